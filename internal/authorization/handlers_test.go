package authorization

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-splinter/internal/authorization/protocol"
	"github.com/dep2p/go-splinter/internal/dispatch"
	"github.com/dep2p/go-splinter/internal/signing"
	"github.com/dep2p/go-splinter/tests/mocks"
)

const testConnID = "conn-1"

// party 握手的一方：独立的管理器、分发器和记录发送内容的 mock sender
type party struct {
	t          *testing.T
	cfg        *Config
	manager    *AuthorizationManager
	dispatcher *dispatch.Dispatcher
	sender     *mocks.MockMessageSender
	outbox     [][]byte
	outcomes   []Outcome
}

func newParty(t *testing.T, ctrl *gomock.Controller, cfg *Config) *party {
	t.Helper()
	require.NoError(t, cfg.Validate())

	p := &party{t: t, cfg: cfg}
	p.sender = mocks.NewMockMessageSender(ctrl)
	p.sender.EXPECT().Send(testConnID, gomock.Any()).DoAndReturn(func(_ string, frame []byte) error {
		p.outbox = append(p.outbox, frame)
		return nil
	}).AnyTimes()

	p.manager = NewAuthorizationManager(nil)
	p.manager.Register(testConnID, func(o Outcome) { p.outcomes = append(p.outcomes, o) })
	p.dispatcher = dispatch.NewDispatcher(p.sender)
	RegisterHandlers(p.dispatcher, p.manager, cfg)
	return p
}

func (p *party) start() {
	base := &handlerBase{manager: p.manager, cfg: p.cfg, metrics: p.manager.metrics}
	require.NoError(p.t, base.startInitiating(p.sender, testConnID))
}

// deliver 把一帧交给本方分发器
func (p *party) deliver(frame []byte) error {
	mt, payload, err := protocol.DecodeEnvelope(frame)
	require.NoError(p.t, err)
	return p.dispatcher.Dispatch(testConnID, mt, payload)
}

func (p *party) state() ManagedAuthorizationState {
	s, ok := p.manager.State(testConnID)
	require.True(p.t, ok)
	return s
}

// lastSent 解码最后发出的一条消息
func (p *party) lastSent() protocol.Message {
	require.NotEmpty(p.t, p.outbox)
	return decodeFrame(p.t, p.outbox[len(p.outbox)-1])
}

func decodeFrame(t *testing.T, frame []byte) protocol.Message {
	t.Helper()
	mt, payload, err := protocol.DecodeEnvelope(frame)
	require.NoError(t, err)
	msg, err := protocol.Decode(mt, payload)
	require.NoError(t, err)
	return msg
}

// pump 在两方之间来回投递消息直到都没有待发内容，返回各自发出的消息类型名
func pump(t *testing.T, a, b *party) (fromA, fromB []string) {
	t.Helper()
	for i := 0; i < 64 && (len(a.outbox) > 0 || len(b.outbox) > 0); i++ {
		frames := a.outbox
		a.outbox = nil
		for _, f := range frames {
			fromA = append(fromA, protocol.TypeName(decodeFrame(t, f).Type()))
			require.NoError(t, b.deliver(f))
		}

		frames = b.outbox
		b.outbox = nil
		for _, f := range frames {
			fromB = append(fromB, protocol.TypeName(decodeFrame(t, f).Type()))
			require.NoError(t, a.deliver(f))
		}
	}
	require.Empty(t, a.outbox)
	require.Empty(t, b.outbox)
	return fromA, fromB
}

func newSigner(t *testing.T) *signing.Secp256k1Signer {
	t.Helper()
	s, err := signing.GenerateSecp256k1Signer()
	require.NoError(t, err)
	return s
}

func challengeConfig(signer signing.Signer, expected []byte) *Config {
	cfg := DefaultConfig()
	cfg.Signers = []signing.Signer{signer}
	cfg.ExpectedPublicKey = expected
	return cfg
}

// ============================================================================
//                              完整握手
// ============================================================================

func TestHandshake_ChallengeHappyPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	signerA, signerB := newSigner(t), newSigner(t)

	a := newParty(t, ctrl, challengeConfig(signerA, signerB.PublicKey()))
	b := newParty(t, ctrl, challengeConfig(signerB, signerA.PublicKey()))

	a.start()
	fromA, fromB := pump(t, a, b)

	// 双向握手：每种消息两方各发一次
	for _, name := range []string{
		"AuthProtocolRequest",
		"AuthProtocolResponse",
		"AuthChallengeNonceRequest",
		"AuthChallengeNonceResponse",
		"AuthChallengeSubmitRequest",
		"AuthChallengeSubmitResponse",
		"AuthComplete",
	} {
		assert.Equal(t, 1, count(fromA, name), "from a: %s", name)
		assert.Equal(t, 1, count(fromB, name), "from b: %s", name)
	}
	assert.Zero(t, count(fromA, "AuthorizationError")+count(fromB, "AuthorizationError"))

	stateA := a.state()
	assert.Equal(t, AuthorizedAndComplete{}, stateA.Initiating)
	assert.Equal(t, Done{Identity: ChallengeIdentity{PublicKey: signerB.PublicKey()}}, stateA.Accepting)

	stateB := b.state()
	assert.Equal(t, AuthorizedAndComplete{}, stateB.Initiating)
	assert.Equal(t, Done{Identity: ChallengeIdentity{PublicKey: signerA.PublicKey()}}, stateB.Accepting)

	require.Len(t, a.outcomes, 1)
	assert.True(t, a.outcomes[0].Authorized)
	assert.Equal(t, signing.PeerIDFromPublicKey(signerB.PublicKey()), a.outcomes[0].Identity.PeerID())
	assert.True(t, a.outcomes[0].LocalIdentity.Equal(ChallengeIdentity{PublicKey: signerA.PublicKey()}))

	require.Len(t, b.outcomes, 1)
	assert.True(t, b.outcomes[0].Authorized)
	assert.Equal(t, signing.PeerIDFromPublicKey(signerA.PublicKey()), b.outcomes[0].Identity.PeerID())
}

func TestHandshake_AcceptorSideOfChallenge(t *testing.T) {
	ctrl := gomock.NewController(t)
	signerA, signerB := newSigner(t), newSigner(t)

	a := newParty(t, ctrl, challengeConfig(signerA, nil))
	b := newParty(t, ctrl, challengeConfig(signerB, signerA.PublicKey()))

	a.start()
	fromA, fromB := pump(t, a, b)

	// 每方只发起一次协议协商
	assert.Equal(t, 1, count(fromA, "AuthProtocolRequest"))
	assert.Equal(t, 1, count(fromB, "AuthProtocolRequest"))
	assert.Equal(t, 1, count(fromA, "AuthChallengeSubmitRequest"))
	assert.Equal(t, 1, count(fromB, "AuthChallengeSubmitRequest"))
	assert.Equal(t, 0, count(fromA, "AuthorizationError")+count(fromB, "AuthorizationError"))

	assert.True(t, a.state().IsAuthorized())
	assert.True(t, b.state().IsAuthorized())
}

func count(list []string, name string) int {
	n := 0
	for _, s := range list {
		if s == name {
			n++
		}
	}
	return n
}

func TestHandshake_TrustScheme(t *testing.T) {
	ctrl := gomock.NewController(t)

	cfgA := DefaultConfig()
	cfgA.LocalIdentity = "node-a"
	cfgA.AcceptedTypes = []protocol.AuthType{protocol.AuthTypeTrust}
	cfgB := DefaultConfig()
	cfgB.LocalIdentity = "node-b"
	cfgB.AcceptedTypes = []protocol.AuthType{protocol.AuthTypeTrust}

	a := newParty(t, ctrl, cfgA)
	b := newParty(t, ctrl, cfgB)

	a.start()
	fromA, _ := pump(t, a, b)
	assert.Contains(t, fromA, "AuthTrustRequest")

	assert.Equal(t, Done{Identity: TrustIdentity{ID: "node-b"}}, a.state().Accepting)
	assert.Equal(t, Done{Identity: TrustIdentity{ID: "node-a"}}, b.state().Accepting)
	require.Len(t, b.outcomes, 1)
	assert.Equal(t, "node-a", b.outcomes[0].Identity.PeerID())
	assert.Equal(t, TrustIdentity{ID: "node-b"}, b.outcomes[0].LocalIdentity)
}

func TestHandshake_NoCommonScheme(t *testing.T) {
	ctrl := gomock.NewController(t)

	cfgA := challengeConfig(newSigner(t), nil)
	cfgB := DefaultConfig()
	cfgB.LocalIdentity = "node-b"
	cfgB.AcceptedTypes = []protocol.AuthType{protocol.AuthTypeTrust}

	a := newParty(t, ctrl, cfgA)
	b := newParty(t, ctrl, cfgB)

	a.start()
	fromA, _ := pump(t, a, b)
	assert.Contains(t, fromA, "AuthorizationError")

	assert.True(t, a.state().IsUnauthorized())
	assert.True(t, b.state().IsUnauthorized())
	require.Len(t, a.outcomes, 1)
	assert.False(t, a.outcomes[0].Authorized)
	require.Len(t, b.outcomes, 1)
	assert.False(t, b.outcomes[0].Authorized)
}

// ============================================================================
//                              挑战方案拒绝路径
// ============================================================================

// acceptorAwaitingSubmit 让接受方进入等待签名的状态，返回其发出的 nonce
func acceptorAwaitingSubmit(t *testing.T, b *party) []byte {
	t.Helper()

	require.NoError(t, b.deliver(protocol.Encode(&protocol.AuthProtocolRequest{
		AuthProtocolMin: protocol.MinProtocolVersion,
		AuthProtocolMax: protocol.ProtocolVersion,
	})))
	require.NoError(t, b.deliver(protocol.Encode(&protocol.AuthChallengeNonceRequest{})))

	resp, ok := b.lastSent().(*protocol.AuthChallengeNonceResponse)
	require.True(t, ok)
	require.Len(t, resp.Nonce, 32)
	return resp.Nonce
}

func submit(t *testing.T, signer signing.Signer, message []byte) protocol.SubmitRequest {
	t.Helper()
	sig, err := signer.Sign(message)
	require.NoError(t, err)
	return protocol.SubmitRequest{PublicKey: signer.PublicKey(), Signature: sig}
}

func requireRejected(t *testing.T, p *party, reason string) {
	t.Helper()
	msg, ok := p.lastSent().(*protocol.AuthorizationError)
	require.True(t, ok, "expected AuthorizationError, got %T", p.lastSent())
	assert.Equal(t, reason, msg.Message)
	assert.Equal(t, Unauthorizing{}, p.state().Accepting)
	require.Len(t, p.outcomes, 1)
	assert.False(t, p.outcomes[0].Authorized)
}

func TestChallenge_BadSignatureRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	peer := newSigner(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), peer.PublicKey()))

	nonce := acceptorAwaitingSubmit(t, b)
	wrong := append([]byte{}, nonce...)
	wrong[0] ^= 0xff

	frame := protocol.Encode(&protocol.AuthChallengeSubmitRequest{
		SubmitRequests: []protocol.SubmitRequest{submit(t, peer, wrong)},
	})
	require.NoError(t, b.deliver(frame))

	requireRejected(t, b, reasonInvalidSignature)
}

func TestChallenge_AnyBadSignatureRejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	good, bad := newSigner(t), newSigner(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	nonce := acceptorAwaitingSubmit(t, b)
	forged := submit(t, bad, []byte("other"))

	frame := protocol.Encode(&protocol.AuthChallengeSubmitRequest{
		SubmitRequests: []protocol.SubmitRequest{submit(t, good, nonce), forged},
	})
	require.NoError(t, b.deliver(frame))

	requireRejected(t, b, reasonInvalidSignature)
}

func TestChallenge_RequiredKeyNotSubmitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	expected, other := newSigner(t), newSigner(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), expected.PublicKey()))

	nonce := acceptorAwaitingSubmit(t, b)
	frame := protocol.Encode(&protocol.AuthChallengeSubmitRequest{
		SubmitRequests: []protocol.SubmitRequest{submit(t, other, nonce)},
	})
	require.NoError(t, b.deliver(frame))

	requireRejected(t, b, reasonRequiredKey)
}

func TestChallenge_NoKeysSubmitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	acceptorAwaitingSubmit(t, b)
	require.NoError(t, b.deliver(protocol.Encode(&protocol.AuthChallengeSubmitRequest{})))

	requireRejected(t, b, reasonNoKeys)
}

func TestChallenge_FirstKeyUsedWithoutExpectation(t *testing.T) {
	ctrl := gomock.NewController(t)
	first, second := newSigner(t), newSigner(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	nonce := acceptorAwaitingSubmit(t, b)
	frame := protocol.Encode(&protocol.AuthChallengeSubmitRequest{
		SubmitRequests: []protocol.SubmitRequest{submit(t, first, nonce), submit(t, second, nonce)},
	})
	require.NoError(t, b.deliver(frame))

	resp, ok := b.lastSent().(*protocol.AuthChallengeSubmitResponse)
	require.True(t, ok)
	assert.Equal(t, first.PublicKey(), resp.PublicKey)

	identity := ChallengeIdentity{PublicKey: first.PublicKey()}
	assert.Equal(t, AcceptingChallenge{Sub: ReceivedAuthChallengeSubmitRequest{Identity: identity}}, b.state().Accepting)
}

func TestChallenge_Ed25519Signer(t *testing.T) {
	ctrl := gomock.NewController(t)
	peer, err := signing.GenerateEd25519Signer()
	require.NoError(t, err)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), peer.PublicKey()))

	nonce := acceptorAwaitingSubmit(t, b)
	frame := protocol.Encode(&protocol.AuthChallengeSubmitRequest{
		SubmitRequests: []protocol.SubmitRequest{submit(t, peer, nonce)},
	})
	require.NoError(t, b.deliver(frame))

	_, ok := b.lastSent().(*protocol.AuthChallengeSubmitResponse)
	assert.True(t, ok)
}

func TestChallenge_SubmitWithoutNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	peer := newSigner(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	frame := protocol.Encode(&protocol.AuthChallengeSubmitRequest{
		SubmitRequests: []protocol.SubmitRequest{submit(t, peer, []byte("guess"))},
	})
	require.NoError(t, b.deliver(frame))

	msg, ok := b.lastSent().(*protocol.AuthorizationError)
	require.True(t, ok)
	assert.Contains(t, msg.Message, "invalid accepting transition")
	assert.Equal(t, Unauthorizing{}, b.state().Accepting)
}

func TestChallenge_UnknownKeyInSubmitResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	a.start()
	require.NoError(t, a.deliver(protocol.Encode(&protocol.AuthProtocolResponse{
		AuthProtocol:  protocol.ProtocolVersion,
		AcceptedTypes: []protocol.AuthType{protocol.AuthTypeChallenge},
	})))
	require.NoError(t, a.deliver(protocol.Encode(&protocol.AuthChallengeNonceResponse{Nonce: []byte("0123456789abcdef")})))
	require.NoError(t, a.deliver(protocol.Encode(&protocol.AuthChallengeSubmitResponse{PublicKey: newSigner(t).PublicKey()})))

	msg, ok := a.lastSent().(*protocol.AuthorizationError)
	require.True(t, ok)
	assert.Equal(t, reasonUnknownKey, msg.Message)
	assert.Equal(t, Unauthorized{}, a.state().Initiating)
}

// ============================================================================
//                              其他错误路径
// ============================================================================

func TestHandler_OutOfOrderMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	require.NoError(t, b.deliver(protocol.Encode(&protocol.AuthComplete{})))

	_, ok := b.lastSent().(*protocol.AuthorizationError)
	assert.True(t, ok)
	assert.True(t, b.state().IsUnauthorized())
}

func TestHandler_ProtocolVersionMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	require.NoError(t, b.deliver(protocol.Encode(&protocol.AuthProtocolRequest{
		AuthProtocolMin: protocol.ProtocolVersion + 1,
		AuthProtocolMax: protocol.ProtocolVersion + 3,
	})))

	requireRejected(t, b, reasonProtocolVersion)
}

func TestHandler_AuthorizationErrorReceived(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := newParty(t, ctrl, challengeConfig(newSigner(t), nil))
	a.start()
	sent := len(a.outbox)

	require.NoError(t, a.deliver(protocol.Encode(&protocol.AuthorizationError{Message: "nope"})))

	// 收到拒绝后不再回复
	assert.Len(t, a.outbox, sent)
	assert.Equal(t, Unauthorized{}, a.state().Initiating)
	assert.Equal(t, Unauthorizing{}, a.state().Accepting)
}

func TestHandler_MalformedPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := newParty(t, ctrl, challengeConfig(newSigner(t), nil))

	err := b.dispatcher.Dispatch(testConnID, protocol.TypeAuthProtocolRequest, []byte{0xff, 0xff, 0xff})
	var de *dispatch.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dispatch.KindDeserialization, de.Kind)

	_, ok := b.lastSent().(*protocol.AuthorizationError)
	assert.True(t, ok)
}

func TestHandler_SendFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockMessageSender(ctrl)
	sender.EXPECT().Send(testConnID, gomock.Any()).Return(errors.New("broken pipe")).AnyTimes()

	cfg := challengeConfig(newSigner(t), nil)
	manager := NewAuthorizationManager(nil)
	d := dispatch.NewDispatcher(sender)
	RegisterHandlers(d, manager, cfg)

	payload := (&protocol.AuthProtocolRequest{
		AuthProtocolMin: protocol.MinProtocolVersion,
		AuthProtocolMax: protocol.ProtocolVersion,
	}).Marshal()
	err := d.Dispatch(testConnID, protocol.TypeAuthProtocolRequest, payload)

	var de *dispatch.DispatchError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, dispatch.KindNetworkSend, de.Kind)
	assert.Contains(t, err.Error(), "broken pipe")
}
