package authorization

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/dep2p/go-splinter/internal/authorization/protocol"
	"github.com/dep2p/go-splinter/internal/dispatch"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

var logger = log.Logger("authorization")

// 拒绝原因，作为 AuthorizationError 的内容发给对端
const (
	reasonProtocolVersion   = "Unable to agree on authorization protocol version"
	reasonNoCommonType      = "No common authorization type"
	reasonTrustNotAccepted  = "Trust authorization is not accepted"
	reasonEmptyIdentity     = "Empty identity"
	reasonChallengeDisabled = "Challenge authorization is not accepted"
	reasonEmptyNonce        = "Empty nonce"
	reasonInvalidSignature  = "Challenge signature was not valid"
	reasonRequiredKey       = "Required public key not submitted"
	reasonNoKeys            = "No public keys submitted"
	reasonUnknownKey        = "Submitted public key is not a local key"
)

// ============================================================================
//                              处理器公共部分
// ============================================================================

// handlerBase 各消息处理器共享的依赖
type handlerBase struct {
	manager *AuthorizationManager
	cfg     *Config
	metrics *metrics
}

// send 编码并发送一条授权消息
func (b *handlerBase) send(sender pkgif.MessageSender, connectionID string, msg protocol.Message) error {
	if err := sender.Send(connectionID, protocol.Encode(msg)); err != nil {
		return dispatch.NetworkSendError(err)
	}
	return nil
}

// reject 通知对端授权失败并终止本连接的握手
//
// 先发送 AuthorizationError 再置失败状态，结果回调可能会关闭连接。
func (b *handlerBase) reject(sender pkgif.MessageSender, connectionID string, mt dispatch.MessageType, reason string) error {
	logger.Warn("拒绝授权",
		"connID", log.TruncateID(connectionID, 8),
		"messageType", protocol.TypeName(mt),
		"reason", reason)
	b.metrics.rejected.WithLabelValues(protocol.TypeName(mt)).Inc()

	sendErr := sender.Send(connectionID, protocol.Encode(&protocol.AuthorizationError{Message: reason}))
	b.manager.Unauthorize(connectionID)
	if sendErr != nil {
		return dispatch.NetworkSendError(sendErr)
	}
	return nil
}

// decode 解码负载，失败时拒绝并返回反序列化错误
//
// 分发器按消息类型选择处理器，返回值的具体类型与 mctx.MessageType() 一致。
func (b *handlerBase) decode(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) (protocol.Message, error) {
	msg, err := protocol.Decode(mctx.MessageType(), payload)
	if err == nil {
		return msg, nil
	}
	if rejectErr := b.reject(sender, mctx.SourceID(), mctx.MessageType(), "Unable to parse message"); rejectErr != nil {
		return nil, rejectErr
	}
	return nil, dispatch.DeserializationError(err)
}

// startInitiating 发送本端的 AuthProtocolRequest
func (b *handlerBase) startInitiating(sender pkgif.MessageSender, connectionID string) error {
	if _, err := b.manager.NextInitiatingState(connectionID, SendAuthProtocolRequest{}); err != nil {
		return err
	}
	return b.send(sender, connectionID, &protocol.AuthProtocolRequest{
		AuthProtocolMin: protocol.MinProtocolVersion,
		AuthProtocolMax: protocol.ProtocolVersion,
	})
}

// ============================================================================
//                              协议协商
// ============================================================================

// AuthProtocolRequestHandler 接受方处理协议协商请求
type AuthProtocolRequestHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthProtocolRequestHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthProtocolRequest
}

// Handle 实现 dispatch.Handler
func (h AuthProtocolRequestHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	msg, err := h.decode(payload, mctx, sender)
	if err != nil {
		return err
	}
	req := msg.(*protocol.AuthProtocolRequest)
	cid := mctx.SourceID()

	if req.AuthProtocolMax < protocol.MinProtocolVersion || req.AuthProtocolMin > protocol.ProtocolVersion {
		return h.reject(sender, cid, mctx.MessageType(), reasonProtocolVersion)
	}

	if _, err := h.manager.NextAcceptingState(cid, ReceiveAuthProtocolRequest{}); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}

	version := protocol.ProtocolVersion
	if req.AuthProtocolMax < version {
		version = req.AuthProtocolMax
	}
	if err := h.send(sender, cid, &protocol.AuthProtocolResponse{
		AuthProtocol:  version,
		AcceptedTypes: h.cfg.AcceptedTypes,
	}); err != nil {
		return err
	}

	// 对端先发起时，本端随后发起自己的一侧
	state, _ := h.manager.State(cid)
	if _, waiting := state.Initiating.(WaitingForStart); waiting {
		if err := h.startInitiating(sender, cid); err != nil {
			var ist *InvalidStateTransition
			if errors.As(err, &ist) {
				// 本端已在并发路径上发起
				return nil
			}
			return err
		}
	}
	return nil
}

// AuthProtocolResponseHandler 发起方处理协议协商结果并选择授权方案
type AuthProtocolResponseHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthProtocolResponseHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthProtocolResponse
}

// Handle 实现 dispatch.Handler
func (h AuthProtocolResponseHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	msg, err := h.decode(payload, mctx, sender)
	if err != nil {
		return err
	}
	resp := msg.(*protocol.AuthProtocolResponse)
	cid := mctx.SourceID()

	if resp.AuthProtocol < protocol.MinProtocolVersion || resp.AuthProtocol > protocol.ProtocolVersion {
		return h.reject(sender, cid, mctx.MessageType(), reasonProtocolVersion)
	}

	scheme, ok := h.cfg.chooseScheme(resp.AcceptedTypes)
	if !ok {
		return h.reject(sender, cid, mctx.MessageType(), reasonNoCommonType)
	}

	switch scheme {
	case protocol.AuthTypeChallenge:
		action := ChallengeInitiatingStep{Action: SendAuthChallengeNonceRequest{}}
		if _, err := h.manager.NextInitiatingState(cid, action); err != nil {
			return h.reject(sender, cid, mctx.MessageType(), err.Error())
		}
		return h.send(sender, cid, &protocol.AuthChallengeNonceRequest{})

	default:
		identity := TrustIdentity{ID: h.cfg.LocalIdentity}
		action := TrustInitiatingStep{Action: SendAuthTrustRequest{Identity: identity}}
		if _, err := h.manager.NextInitiatingState(cid, action); err != nil {
			return h.reject(sender, cid, mctx.MessageType(), err.Error())
		}
		return h.send(sender, cid, &protocol.AuthTrustRequest{Identity: identity.ID})
	}
}

// ============================================================================
//                              信任方案
// ============================================================================

// AuthTrustRequestHandler 接受方处理对端声明的身份
type AuthTrustRequestHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthTrustRequestHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthTrustRequest
}

// Handle 实现 dispatch.Handler
func (h AuthTrustRequestHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	msg, err := h.decode(payload, mctx, sender)
	if err != nil {
		return err
	}
	req := msg.(*protocol.AuthTrustRequest)
	cid := mctx.SourceID()

	if !h.cfg.accepts(protocol.AuthTypeTrust) {
		return h.reject(sender, cid, mctx.MessageType(), reasonTrustNotAccepted)
	}
	if req.Identity == "" {
		return h.reject(sender, cid, mctx.MessageType(), reasonEmptyIdentity)
	}

	action := TrustAcceptingStep{Action: ReceiveAuthTrustRequest{Identity: TrustIdentity{ID: req.Identity}}}
	if _, err := h.manager.NextAcceptingState(cid, action); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	return h.send(sender, cid, &protocol.AuthTrustResponse{})
}

// AuthTrustResponseHandler 发起方处理身份确认
type AuthTrustResponseHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthTrustResponseHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthTrustResponse
}

// Handle 实现 dispatch.Handler
func (h AuthTrustResponseHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	if _, err := h.decode(payload, mctx, sender); err != nil {
		return err
	}
	cid := mctx.SourceID()

	action := TrustInitiatingStep{Action: ReceiveAuthTrustResponse{}}
	if _, err := h.manager.NextInitiatingState(cid, action); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	return h.complete(sender, cid, mctx.MessageType())
}

// complete 本端发起轨道已授权，发送 AuthComplete
func (b *handlerBase) complete(sender pkgif.MessageSender, connectionID string, mt dispatch.MessageType) error {
	if _, err := b.manager.NextInitiatingState(connectionID, SendAuthComplete{}); err != nil {
		return b.reject(sender, connectionID, mt, err.Error())
	}
	return b.send(sender, connectionID, &protocol.AuthComplete{})
}

// ============================================================================
//                              挑战方案
// ============================================================================

// AuthChallengeNonceRequestHandler 接受方生成 nonce
type AuthChallengeNonceRequestHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthChallengeNonceRequestHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthChallengeNonceRequest
}

// Handle 实现 dispatch.Handler
func (h AuthChallengeNonceRequestHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	if _, err := h.decode(payload, mctx, sender); err != nil {
		return err
	}
	cid := mctx.SourceID()

	if !h.cfg.accepts(protocol.AuthTypeChallenge) {
		return h.reject(sender, cid, mctx.MessageType(), reasonChallengeDisabled)
	}

	nonce := make([]byte, h.cfg.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), "Unable to generate nonce")
	}

	action := ChallengeAcceptingStep{Action: ReceiveAuthChallengeNonceRequest{Nonce: nonce}}
	if _, err := h.manager.NextAcceptingState(cid, action); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	return h.send(sender, cid, &protocol.AuthChallengeNonceResponse{Nonce: nonce})
}

// AuthChallengeNonceResponseHandler 发起方用全部本地签名器对 nonce 签名
type AuthChallengeNonceResponseHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthChallengeNonceResponseHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthChallengeNonceResponse
}

// Handle 实现 dispatch.Handler
func (h AuthChallengeNonceResponseHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	msg, err := h.decode(payload, mctx, sender)
	if err != nil {
		return err
	}
	resp := msg.(*protocol.AuthChallengeNonceResponse)
	cid := mctx.SourceID()

	if len(resp.Nonce) == 0 {
		return h.reject(sender, cid, mctx.MessageType(), reasonEmptyNonce)
	}
	if len(h.cfg.Signers) == 0 {
		return h.reject(sender, cid, mctx.MessageType(), reasonNoKeys)
	}

	submits := make([]protocol.SubmitRequest, 0, len(h.cfg.Signers))
	for _, signer := range h.cfg.Signers {
		sig, err := signer.Sign(resp.Nonce)
		if err != nil {
			logger.Error("签名 nonce 失败", "connID", log.TruncateID(cid, 8), "err", err)
			return h.reject(sender, cid, mctx.MessageType(), "Unable to sign nonce")
		}
		submits = append(submits, protocol.SubmitRequest{
			PublicKey: signer.PublicKey(),
			Signature: sig,
		})
	}

	local := ChallengeIdentity{PublicKey: h.cfg.Signers[0].PublicKey()}
	action := ChallengeInitiatingStep{Action: SendAuthChallengeSubmitRequest{LocalIdentity: local}}
	if _, err := h.manager.NextInitiatingState(cid, action); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	return h.send(sender, cid, &protocol.AuthChallengeSubmitRequest{SubmitRequests: submits})
}

// AuthChallengeSubmitRequestHandler 接受方校验签名并确定对端身份
type AuthChallengeSubmitRequestHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthChallengeSubmitRequestHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthChallengeSubmitRequest
}

// Handle 实现 dispatch.Handler
func (h AuthChallengeSubmitRequestHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	msg, err := h.decode(payload, mctx, sender)
	if err != nil {
		return err
	}
	req := msg.(*protocol.AuthChallengeSubmitRequest)
	cid := mctx.SourceID()

	state, _ := h.manager.State(cid)
	nonce, ok := pendingNonce(state)
	if !ok {
		ist := &InvalidStateTransition{
			Track:  TrackAccepting,
			State:  state.Accepting,
			Action: ChallengeAcceptingStep{Action: ReceiveAuthChallengeSubmitRequest{}},
		}
		return h.reject(sender, cid, mctx.MessageType(), ist.Error())
	}

	// 任一签名无效即拒绝
	for _, submit := range req.SubmitRequests {
		valid, err := h.cfg.Verifier.Verify(nonce, submit.Signature, submit.PublicKey)
		if err != nil || !valid {
			logger.Warn("挑战签名校验失败",
				"connID", log.TruncateID(cid, 8),
				"publicKey", fmt.Sprintf("%x", submit.PublicKey),
				"err", err)
			return h.reject(sender, cid, mctx.MessageType(), reasonInvalidSignature)
		}
	}

	publicKey, reason := h.resolvePublicKey(req.SubmitRequests)
	if reason != "" {
		return h.reject(sender, cid, mctx.MessageType(), reason)
	}

	identity := ChallengeIdentity{PublicKey: publicKey}
	action := ChallengeAcceptingStep{Action: ReceiveAuthChallengeSubmitRequest{Identity: identity}}
	if _, err := h.manager.NextAcceptingState(cid, action); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	return h.send(sender, cid, &protocol.AuthChallengeSubmitResponse{PublicKey: publicKey})
}

// resolvePublicKey 按配置从提交的公钥中选出对端身份
//
// 配置了 ExpectedPublicKey 时必须在提交列表中；否则取第一个公钥。
func (h AuthChallengeSubmitRequestHandler) resolvePublicKey(submits []protocol.SubmitRequest) ([]byte, string) {
	if len(h.cfg.ExpectedPublicKey) > 0 {
		for _, submit := range submits {
			if bytes.Equal(submit.PublicKey, h.cfg.ExpectedPublicKey) {
				return submit.PublicKey, ""
			}
		}
		return nil, reasonRequiredKey
	}

	if len(submits) == 0 {
		return nil, reasonNoKeys
	}
	return submits[0].PublicKey, ""
}

// pendingNonce 取出接受轨道等待签名时保存的 nonce
func pendingNonce(state ManagedAuthorizationState) ([]byte, bool) {
	challenge, ok := state.Accepting.(AcceptingChallenge)
	if !ok {
		return nil, false
	}
	waiting, ok := challenge.Sub.(WaitingForAuthChallengeSubmitRequest)
	if !ok {
		return nil, false
	}
	return waiting.Nonce, true
}

// AuthChallengeSubmitResponseHandler 发起方确认被采纳的公钥
type AuthChallengeSubmitResponseHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthChallengeSubmitResponseHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthChallengeSubmitResponse
}

// Handle 实现 dispatch.Handler
func (h AuthChallengeSubmitResponseHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	msg, err := h.decode(payload, mctx, sender)
	if err != nil {
		return err
	}
	resp := msg.(*protocol.AuthChallengeSubmitResponse)
	cid := mctx.SourceID()

	if !h.isLocalKey(resp.PublicKey) {
		return h.reject(sender, cid, mctx.MessageType(), reasonUnknownKey)
	}

	action := ChallengeInitiatingStep{Action: ReceiveAuthChallengeSubmitResponse{PublicKey: resp.PublicKey}}
	if _, err := h.manager.NextInitiatingState(cid, action); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	return h.complete(sender, cid, mctx.MessageType())
}

func (h AuthChallengeSubmitResponseHandler) isLocalKey(publicKey []byte) bool {
	for _, signer := range h.cfg.Signers {
		if bytes.Equal(signer.PublicKey(), publicKey) {
			return true
		}
	}
	return false
}

// ============================================================================
//                              完成与失败
// ============================================================================

// AuthCompleteHandler 处理对端的 AuthComplete
//
// 先推进接受轨道（Received* -> Done），再记录到发起轨道。
type AuthCompleteHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthCompleteHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthComplete
}

// Handle 实现 dispatch.Handler
func (h AuthCompleteHandler) Handle(payload []byte, mctx *dispatch.MessageContext, sender pkgif.MessageSender) error {
	if _, err := h.decode(payload, mctx, sender); err != nil {
		return err
	}
	cid := mctx.SourceID()

	if _, err := h.manager.NextAcceptingState(cid, ReceiveAuthComplete{}); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	if _, err := h.manager.NextInitiatingState(cid, ReceiveAuthComplete{}); err != nil {
		return h.reject(sender, cid, mctx.MessageType(), err.Error())
	}
	return nil
}

// AuthorizationErrorHandler 对端拒绝了授权
type AuthorizationErrorHandler struct{ *handlerBase }

// MatchType 实现 dispatch.Handler
func (AuthorizationErrorHandler) MatchType() dispatch.MessageType {
	return protocol.TypeAuthorizationError
}

// Handle 实现 dispatch.Handler
func (h AuthorizationErrorHandler) Handle(payload []byte, mctx *dispatch.MessageContext, _ pkgif.MessageSender) error {
	cid := mctx.SourceID()

	reason := ""
	if msg, err := protocol.Decode(mctx.MessageType(), payload); err == nil {
		reason = msg.(*protocol.AuthorizationError).Message
	}
	logger.Warn("对端拒绝授权", "connID", log.TruncateID(cid, 8), "reason", reason)

	h.manager.Unauthorize(cid)
	return nil
}

// ============================================================================
//                              注册
// ============================================================================

// RegisterHandlers 向分发器注册全部授权消息处理器
func RegisterHandlers(d *dispatch.Dispatcher, manager *AuthorizationManager, cfg *Config) {
	base := &handlerBase{manager: manager, cfg: cfg, metrics: manager.metrics}
	for _, h := range []dispatch.Handler{
		AuthorizationErrorHandler{base},
		AuthProtocolRequestHandler{base},
		AuthProtocolResponseHandler{base},
		AuthTrustRequestHandler{base},
		AuthTrustResponseHandler{base},
		AuthChallengeNonceRequestHandler{base},
		AuthChallengeNonceResponseHandler{base},
		AuthChallengeSubmitRequestHandler{base},
		AuthChallengeSubmitResponseHandler{base},
		AuthCompleteHandler{base},
	} {
		d.SetHandler(h)
	}
}
