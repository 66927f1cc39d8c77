package authorization

import "fmt"

// ============================================================================
//                              发起轨道状态
// ============================================================================

// InitiatingState 发起轨道状态
type InitiatingState interface {
	fmt.Stringer
	isInitiatingState()
}

// WaitingForStart 尚未发送 AuthProtocolRequest
type WaitingForStart struct{}

// WaitingForAuthProtocolResponse 已发送 AuthProtocolRequest
type WaitingForAuthProtocolResponse struct{}

// InitiatingTrust 信任方案进行中
type InitiatingTrust struct {
	Sub TrustInitiatingState
}

// InitiatingChallenge 挑战方案进行中
type InitiatingChallenge struct {
	Sub ChallengeInitiatingState
}

// Authorized 对端已接受本端身份，尚未发送 AuthComplete
type Authorized struct{}

// WaitForComplete 已发送 AuthComplete，等待对端的 AuthComplete
type WaitForComplete struct{}

// AuthorizedAndComplete 发起轨道终态
type AuthorizedAndComplete struct{}

// Unauthorized 发起轨道失败
type Unauthorized struct{}

func (WaitingForStart) isInitiatingState()                {}
func (WaitingForAuthProtocolResponse) isInitiatingState() {}
func (InitiatingTrust) isInitiatingState()                {}
func (InitiatingChallenge) isInitiatingState()            {}
func (Authorized) isInitiatingState()                     {}
func (WaitForComplete) isInitiatingState()                {}
func (AuthorizedAndComplete) isInitiatingState()          {}
func (Unauthorized) isInitiatingState()                   {}

func (WaitingForStart) String() string                { return "WaitingForStart" }
func (WaitingForAuthProtocolResponse) String() string { return "WaitingForAuthProtocolResponse" }
func (s InitiatingTrust) String() string              { return "Trust(" + s.Sub.String() + ")" }
func (s InitiatingChallenge) String() string          { return "Challenge(" + s.Sub.String() + ")" }
func (Authorized) String() string                     { return "Authorized" }
func (WaitForComplete) String() string                { return "WaitForComplete" }
func (AuthorizedAndComplete) String() string          { return "AuthorizedAndComplete" }
func (Unauthorized) String() string                   { return "Unauthorized" }

// TrustInitiatingState 信任方案发起子状态
type TrustInitiatingState interface {
	fmt.Stringer
	isTrustInitiatingState()
}

// WaitingForAuthTrustResponse 已发送 AuthTrustRequest
type WaitingForAuthTrustResponse struct{}

func (WaitingForAuthTrustResponse) isTrustInitiatingState() {}
func (WaitingForAuthTrustResponse) String() string          { return "WaitingForAuthTrustResponse" }

// ChallengeInitiatingState 挑战方案发起子状态
type ChallengeInitiatingState interface {
	fmt.Stringer
	isChallengeInitiatingState()
}

// WaitingForAuthChallengeNonceResponse 已发送 AuthChallengeNonceRequest
type WaitingForAuthChallengeNonceResponse struct{}

// WaitingForAuthChallengeSubmitResponse 已发送 AuthChallengeSubmitRequest
type WaitingForAuthChallengeSubmitResponse struct{}

func (WaitingForAuthChallengeNonceResponse) isChallengeInitiatingState()  {}
func (WaitingForAuthChallengeSubmitResponse) isChallengeInitiatingState() {}

func (WaitingForAuthChallengeNonceResponse) String() string {
	return "WaitingForAuthChallengeNonceResponse"
}

func (WaitingForAuthChallengeSubmitResponse) String() string {
	return "WaitingForAuthChallengeSubmitResponse"
}

// ============================================================================
//                              接受轨道状态
// ============================================================================

// AcceptingState 接受轨道状态
type AcceptingState interface {
	fmt.Stringer
	isAcceptingState()
}

// WaitingForAuthProtocolRequest 尚未收到 AuthProtocolRequest
type WaitingForAuthProtocolRequest struct{}

// SentAuthProtocolResponse 已回复 AuthProtocolResponse
type SentAuthProtocolResponse struct{}

// AcceptingTrust 信任方案进行中
type AcceptingTrust struct {
	Sub TrustAcceptingState
}

// AcceptingChallenge 挑战方案进行中
type AcceptingChallenge struct {
	Sub ChallengeAcceptingState
}

// Done 接受轨道终态，携带对端身份
type Done struct {
	Identity Identity
}

// Unauthorizing 接受轨道失败，已（或即将）向对端发送 AuthorizationError
type Unauthorizing struct{}

func (WaitingForAuthProtocolRequest) isAcceptingState() {}
func (SentAuthProtocolResponse) isAcceptingState()      {}
func (AcceptingTrust) isAcceptingState()                {}
func (AcceptingChallenge) isAcceptingState()            {}
func (Done) isAcceptingState()                          {}
func (Unauthorizing) isAcceptingState()                 {}

func (WaitingForAuthProtocolRequest) String() string { return "WaitingForAuthProtocolRequest" }
func (SentAuthProtocolResponse) String() string      { return "SentAuthProtocolResponse" }
func (s AcceptingTrust) String() string              { return "Trust(" + s.Sub.String() + ")" }
func (s AcceptingChallenge) String() string          { return "Challenge(" + s.Sub.String() + ")" }
func (s Done) String() string                        { return fmt.Sprintf("Done(%s)", s.Identity) }
func (Unauthorizing) String() string                 { return "Unauthorizing" }

// TrustAcceptingState 信任方案接受子状态
type TrustAcceptingState interface {
	fmt.Stringer
	isTrustAcceptingState()
}

// ReceivedAuthTrustRequest 已收到并接受对端声明的身份
type ReceivedAuthTrustRequest struct {
	Identity Identity
}

func (ReceivedAuthTrustRequest) isTrustAcceptingState() {}

func (s ReceivedAuthTrustRequest) String() string {
	return fmt.Sprintf("ReceivedAuthTrustRequest(%s)", s.Identity)
}

// ChallengeAcceptingState 挑战方案接受子状态
type ChallengeAcceptingState interface {
	fmt.Stringer
	isChallengeAcceptingState()
}

// WaitingForAuthChallengeSubmitRequest 已发出 nonce，等待签名
type WaitingForAuthChallengeSubmitRequest struct {
	Nonce []byte
}

// ReceivedAuthChallengeSubmitRequest 签名验证通过
type ReceivedAuthChallengeSubmitRequest struct {
	Identity Identity
}

func (WaitingForAuthChallengeSubmitRequest) isChallengeAcceptingState() {}
func (ReceivedAuthChallengeSubmitRequest) isChallengeAcceptingState()   {}

func (WaitingForAuthChallengeSubmitRequest) String() string {
	return "WaitingForAuthChallengeSubmitRequest"
}

func (s ReceivedAuthChallengeSubmitRequest) String() string {
	return fmt.Sprintf("ReceivedAuthChallengeSubmitRequest(%s)", s.Identity)
}

// ============================================================================
//                              每连接状态
// ============================================================================

// ManagedAuthorizationState 单条连接的授权状态
type ManagedAuthorizationState struct {
	Initiating InitiatingState
	Accepting  AcceptingState

	// ReceivedComplete 对端的 AuthComplete 是否已到达
	ReceivedComplete bool

	// LocalAuthorization 本端向对端声明的身份
	LocalAuthorization Identity
}

// newManagedAuthorizationState 创建初始状态
func newManagedAuthorizationState() ManagedAuthorizationState {
	return ManagedAuthorizationState{
		Initiating: WaitingForStart{},
		Accepting:  WaitingForAuthProtocolRequest{},
	}
}

// IsAuthorized 两条轨道均已到达终态
func (s ManagedAuthorizationState) IsAuthorized() bool {
	_, initDone := s.Initiating.(AuthorizedAndComplete)
	_, accDone := s.Accepting.(Done)
	return initDone && accDone
}

// IsUnauthorized 任一轨道失败
func (s ManagedAuthorizationState) IsUnauthorized() bool {
	_, initFailed := s.Initiating.(Unauthorized)
	_, accFailed := s.Accepting.(Unauthorizing)
	return initFailed || accFailed
}

// RemoteIdentity 返回接受轨道得到的对端身份
func (s ManagedAuthorizationState) RemoteIdentity() (Identity, bool) {
	done, ok := s.Accepting.(Done)
	if !ok {
		return nil, false
	}
	return done.Identity, true
}
