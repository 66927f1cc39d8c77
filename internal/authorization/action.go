package authorization

import "fmt"

// ============================================================================
//                              发起轨道动作
// ============================================================================

// InitiatingAction 驱动发起轨道的动作
type InitiatingAction interface {
	fmt.Stringer
	isInitiatingAction()
}

// SendAuthProtocolRequest 发送协议协商请求
type SendAuthProtocolRequest struct{}

// TrustInitiatingStep 信任方案发起子动作
type TrustInitiatingStep struct {
	Action TrustInitiatingAction
}

// ChallengeInitiatingStep 挑战方案发起子动作
type ChallengeInitiatingStep struct {
	Action ChallengeInitiatingAction
}

// SendAuthComplete 发送 AuthComplete
type SendAuthComplete struct{}

func (SendAuthProtocolRequest) isInitiatingAction() {}
func (TrustInitiatingStep) isInitiatingAction()     {}
func (ChallengeInitiatingStep) isInitiatingAction() {}
func (SendAuthComplete) isInitiatingAction()        {}

func (SendAuthProtocolRequest) String() string { return "SendAuthProtocolRequest" }
func (a TrustInitiatingStep) String() string   { return "Trust(" + a.Action.String() + ")" }
func (a ChallengeInitiatingStep) String() string {
	return "Challenge(" + a.Action.String() + ")"
}
func (SendAuthComplete) String() string { return "SendAuthComplete" }

// TrustInitiatingAction 信任方案发起子动作
type TrustInitiatingAction interface {
	fmt.Stringer
	isTrustInitiatingAction()
}

// SendAuthTrustRequest 声明本端身份
type SendAuthTrustRequest struct {
	Identity Identity
}

// ReceiveAuthTrustResponse 对端接受了本端身份
type ReceiveAuthTrustResponse struct{}

func (SendAuthTrustRequest) isTrustInitiatingAction()     {}
func (ReceiveAuthTrustResponse) isTrustInitiatingAction() {}

func (a SendAuthTrustRequest) String() string {
	return fmt.Sprintf("SendAuthTrustRequest(%s)", a.Identity)
}
func (ReceiveAuthTrustResponse) String() string { return "ReceiveAuthTrustResponse" }

// ChallengeInitiatingAction 挑战方案发起子动作
type ChallengeInitiatingAction interface {
	fmt.Stringer
	isChallengeInitiatingAction()
}

// SendAuthChallengeNonceRequest 请求 nonce
type SendAuthChallengeNonceRequest struct{}

// SendAuthChallengeSubmitRequest 提交签名，LocalIdentity 为本端声明的公钥身份
type SendAuthChallengeSubmitRequest struct {
	LocalIdentity Identity
}

// ReceiveAuthChallengeSubmitResponse 对端接受了签名，PublicKey 为对端采纳的本端公钥
type ReceiveAuthChallengeSubmitResponse struct {
	PublicKey []byte
}

func (SendAuthChallengeNonceRequest) isChallengeInitiatingAction()      {}
func (SendAuthChallengeSubmitRequest) isChallengeInitiatingAction()     {}
func (ReceiveAuthChallengeSubmitResponse) isChallengeInitiatingAction() {}

func (SendAuthChallengeNonceRequest) String() string { return "SendAuthChallengeNonceRequest" }
func (a SendAuthChallengeSubmitRequest) String() string {
	return fmt.Sprintf("SendAuthChallengeSubmitRequest(%s)", a.LocalIdentity)
}
func (ReceiveAuthChallengeSubmitResponse) String() string {
	return "ReceiveAuthChallengeSubmitResponse"
}

// ============================================================================
//                              接受轨道动作
// ============================================================================

// AcceptingAction 驱动接受轨道的动作
type AcceptingAction interface {
	fmt.Stringer
	isAcceptingAction()
}

// ReceiveAuthProtocolRequest 收到协议协商请求
type ReceiveAuthProtocolRequest struct{}

// TrustAcceptingStep 信任方案接受子动作
type TrustAcceptingStep struct {
	Action TrustAcceptingAction
}

// ChallengeAcceptingStep 挑战方案接受子动作
type ChallengeAcceptingStep struct {
	Action ChallengeAcceptingAction
}

func (ReceiveAuthProtocolRequest) isAcceptingAction() {}
func (TrustAcceptingStep) isAcceptingAction()         {}
func (ChallengeAcceptingStep) isAcceptingAction()     {}

func (ReceiveAuthProtocolRequest) String() string { return "ReceiveAuthProtocolRequest" }
func (a TrustAcceptingStep) String() string       { return "Trust(" + a.Action.String() + ")" }
func (a ChallengeAcceptingStep) String() string   { return "Challenge(" + a.Action.String() + ")" }

// TrustAcceptingAction 信任方案接受子动作
type TrustAcceptingAction interface {
	fmt.Stringer
	isTrustAcceptingAction()
}

// ReceiveAuthTrustRequest 收到对端声明的身份
type ReceiveAuthTrustRequest struct {
	Identity Identity
}

func (ReceiveAuthTrustRequest) isTrustAcceptingAction() {}
func (a ReceiveAuthTrustRequest) String() string {
	return fmt.Sprintf("ReceiveAuthTrustRequest(%s)", a.Identity)
}

// ChallengeAcceptingAction 挑战方案接受子动作
type ChallengeAcceptingAction interface {
	fmt.Stringer
	isChallengeAcceptingAction()
}

// ReceiveAuthChallengeNonceRequest 收到 nonce 请求，Nonce 为本端生成并发出的值
type ReceiveAuthChallengeNonceRequest struct {
	Nonce []byte
}

// ReceiveAuthChallengeSubmitRequest 签名验证通过
type ReceiveAuthChallengeSubmitRequest struct {
	Identity Identity
}

func (ReceiveAuthChallengeNonceRequest) isChallengeAcceptingAction()  {}
func (ReceiveAuthChallengeSubmitRequest) isChallengeAcceptingAction() {}

func (ReceiveAuthChallengeNonceRequest) String() string { return "ReceiveAuthChallengeNonceRequest" }
func (a ReceiveAuthChallengeSubmitRequest) String() string {
	return fmt.Sprintf("ReceiveAuthChallengeSubmitRequest(%s)", a.Identity)
}

// ============================================================================
//                              双轨共享动作
// ============================================================================

// ReceiveAuthComplete 收到对端的 AuthComplete
type ReceiveAuthComplete struct{}

// Unauthorize 握手失败
type Unauthorize struct{}

func (ReceiveAuthComplete) isInitiatingAction() {}
func (ReceiveAuthComplete) isAcceptingAction()  {}
func (Unauthorize) isInitiatingAction()         {}
func (Unauthorize) isAcceptingAction()          {}

func (ReceiveAuthComplete) String() string { return "ReceiveAuthComplete" }
func (Unauthorize) String() string         { return "Unauthorize" }
