package protocol

import (
	"fmt"

	"github.com/dep2p/go-splinter/internal/dispatch"
)

// 授权协议版本
const (
	// ProtocolVersion 当前实现的授权协议版本
	ProtocolVersion uint32 = 1
	// MinProtocolVersion 支持的最低版本
	MinProtocolVersion uint32 = 1
)

// 授权消息类型
const (
	TypeAuthorizationError          dispatch.MessageType = 1
	TypeAuthProtocolRequest         dispatch.MessageType = 2
	TypeAuthProtocolResponse        dispatch.MessageType = 3
	TypeAuthTrustRequest            dispatch.MessageType = 4
	TypeAuthTrustResponse           dispatch.MessageType = 5
	TypeAuthChallengeNonceRequest   dispatch.MessageType = 6
	TypeAuthChallengeNonceResponse  dispatch.MessageType = 7
	TypeAuthChallengeSubmitRequest  dispatch.MessageType = 8
	TypeAuthChallengeSubmitResponse dispatch.MessageType = 9
	TypeAuthComplete                dispatch.MessageType = 10
)

// TypeName 返回消息类型名称
func TypeName(mt dispatch.MessageType) string {
	switch mt {
	case TypeAuthorizationError:
		return "AuthorizationError"
	case TypeAuthProtocolRequest:
		return "AuthProtocolRequest"
	case TypeAuthProtocolResponse:
		return "AuthProtocolResponse"
	case TypeAuthTrustRequest:
		return "AuthTrustRequest"
	case TypeAuthTrustResponse:
		return "AuthTrustResponse"
	case TypeAuthChallengeNonceRequest:
		return "AuthChallengeNonceRequest"
	case TypeAuthChallengeNonceResponse:
		return "AuthChallengeNonceResponse"
	case TypeAuthChallengeSubmitRequest:
		return "AuthChallengeSubmitRequest"
	case TypeAuthChallengeSubmitResponse:
		return "AuthChallengeSubmitResponse"
	case TypeAuthComplete:
		return "AuthComplete"
	default:
		return fmt.Sprintf("MessageType(%d)", int32(mt))
	}
}

// AuthType 授权方案
type AuthType uint32

const (
	// AuthTypeTrust 信任方案：对端直接声明身份
	AuthTypeTrust AuthType = 1
	// AuthTypeChallenge 挑战方案：对端证明持有私钥
	AuthTypeChallenge AuthType = 2
)

// String 返回方案名称
func (t AuthType) String() string {
	switch t {
	case AuthTypeTrust:
		return "Trust"
	case AuthTypeChallenge:
		return "Challenge"
	default:
		return fmt.Sprintf("AuthType(%d)", uint32(t))
	}
}

// ============================================================================
//                              消息定义
// ============================================================================

// Message 授权协议消息
type Message interface {
	// Type 返回消息类型
	Type() dispatch.MessageType

	// Marshal 编码负载（不含信封）
	Marshal() []byte
}

// AuthorizationError 授权失败通知
type AuthorizationError struct {
	Message string
}

// AuthProtocolRequest 协商授权协议版本
type AuthProtocolRequest struct {
	AuthProtocolMin uint32
	AuthProtocolMax uint32
}

// AuthProtocolResponse 协商结果及接受的授权方案
type AuthProtocolResponse struct {
	AuthProtocol  uint32
	AcceptedTypes []AuthType
}

// AuthTrustRequest 信任方案：声明身份
type AuthTrustRequest struct {
	Identity string
}

// AuthTrustResponse 信任方案：身份已接受
type AuthTrustResponse struct{}

// AuthChallengeNonceRequest 挑战方案：请求 nonce
type AuthChallengeNonceRequest struct{}

// AuthChallengeNonceResponse 挑战方案：返回 nonce
type AuthChallengeNonceResponse struct {
	Nonce []byte
}

// SubmitRequest 单个签名者对 nonce 的签名
type SubmitRequest struct {
	PublicKey []byte
	Signature []byte
}

// AuthChallengeSubmitRequest 挑战方案：提交签名
type AuthChallengeSubmitRequest struct {
	SubmitRequests []SubmitRequest
}

// AuthChallengeSubmitResponse 挑战方案：确认被采纳的公钥
type AuthChallengeSubmitResponse struct {
	PublicKey []byte
}

// AuthComplete 本端授权流程完成
type AuthComplete struct{}

// Type 实现 Message
func (*AuthorizationError) Type() dispatch.MessageType { return TypeAuthorizationError }

// Type 实现 Message
func (*AuthProtocolRequest) Type() dispatch.MessageType { return TypeAuthProtocolRequest }

// Type 实现 Message
func (*AuthProtocolResponse) Type() dispatch.MessageType { return TypeAuthProtocolResponse }

// Type 实现 Message
func (*AuthTrustRequest) Type() dispatch.MessageType { return TypeAuthTrustRequest }

// Type 实现 Message
func (*AuthTrustResponse) Type() dispatch.MessageType { return TypeAuthTrustResponse }

// Type 实现 Message
func (*AuthChallengeNonceRequest) Type() dispatch.MessageType { return TypeAuthChallengeNonceRequest }

// Type 实现 Message
func (*AuthChallengeNonceResponse) Type() dispatch.MessageType { return TypeAuthChallengeNonceResponse }

// Type 实现 Message
func (*AuthChallengeSubmitRequest) Type() dispatch.MessageType { return TypeAuthChallengeSubmitRequest }

// Type 实现 Message
func (*AuthChallengeSubmitResponse) Type() dispatch.MessageType {
	return TypeAuthChallengeSubmitResponse
}

// Type 实现 Message
func (*AuthComplete) Type() dispatch.MessageType { return TypeAuthComplete }
