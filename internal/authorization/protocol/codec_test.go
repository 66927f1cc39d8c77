package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func decodeFrame(t *testing.T, frame []byte) Message {
	t.Helper()
	mt, payload, err := DecodeEnvelope(frame)
	require.NoError(t, err)
	msg, err := Decode(mt, payload)
	require.NoError(t, err)
	return msg
}

func TestSubmitRequest_Frame(t *testing.T) {
	in := &AuthChallengeSubmitRequest{SubmitRequests: []SubmitRequest{
		{PublicKey: []byte{0x02, 0x01}, Signature: []byte("sig-1")},
		{PublicKey: []byte{0x03, 0x02}, Signature: []byte("sig-2")},
	}}

	out, ok := decodeFrame(t, Encode(in)).(*AuthChallengeSubmitRequest)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestProtocolResponse_PackedAcceptedTypes(t *testing.T) {
	var packed []byte
	packed = protowire.AppendVarint(packed, uint64(AuthTypeTrust))
	packed = protowire.AppendVarint(packed, uint64(AuthTypeChallenge))

	var payload []byte
	payload = protowire.AppendTag(payload, 1, protowire.VarintType)
	payload = protowire.AppendVarint(payload, 1)
	payload = protowire.AppendTag(payload, 2, protowire.BytesType)
	payload = protowire.AppendBytes(payload, packed)

	msg, err := Decode(TypeAuthProtocolResponse, payload)
	require.NoError(t, err)
	resp := msg.(*AuthProtocolResponse)
	assert.Equal(t, uint32(1), resp.AuthProtocol)
	assert.Equal(t, []AuthType{AuthTypeTrust, AuthTypeChallenge}, resp.AcceptedTypes)

	// 非 packed 编码
	again := decodeFrame(t, Encode(resp)).(*AuthProtocolResponse)
	assert.Equal(t, resp, again)
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	payload := (&AuthTrustRequest{Identity: "node-a"}).Marshal()
	payload = protowire.AppendTag(payload, 15, protowire.BytesType)
	payload = protowire.AppendBytes(payload, []byte("future"))

	msg, err := Decode(TypeAuthTrustRequest, payload)
	require.NoError(t, err)
	assert.Equal(t, "node-a", msg.(*AuthTrustRequest).Identity)
}

func TestDecode_EmptyMessages(t *testing.T) {
	for _, m := range []Message{&AuthComplete{}, &AuthChallengeNonceRequest{}, &AuthTrustResponse{}} {
		got := decodeFrame(t, Encode(m))
		assert.Equal(t, m.Type(), got.Type())
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(99, nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	// 字段类型不匹配
	var bad []byte
	bad = protowire.AppendTag(bad, 1, protowire.VarintType)
	bad = protowire.AppendVarint(bad, 5)
	_, err = Decode(TypeAuthChallengeNonceResponse, bad)
	assert.ErrorIs(t, err, ErrMalformed)

	// 截断
	frame := Encode(&AuthChallengeNonceResponse{Nonce: make([]byte, 32)})
	_, _, err = DecodeEnvelope(frame[:len(frame)-4])
	assert.ErrorIs(t, err, ErrMalformed)

	// 缺少类型字段
	var noType []byte
	noType = protowire.AppendTag(noType, 2, protowire.BytesType)
	noType = protowire.AppendBytes(noType, nil)
	_, _, err = DecodeEnvelope(noType)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "AuthComplete", TypeName(TypeAuthComplete))
	assert.Equal(t, "MessageType(77)", TypeName(77))
	assert.Equal(t, "Challenge", AuthTypeChallenge.String())
}

func TestDecodeEnvelope_TypeOutOfRange(t *testing.T) {
	// 截断为 int32 后与 AuthComplete 相同
	var frame []byte
	frame = protowire.AppendTag(frame, 1, protowire.VarintType)
	frame = protowire.AppendVarint(frame, 1<<32|uint64(TypeAuthComplete))
	frame = protowire.AppendTag(frame, 2, protowire.BytesType)
	frame = protowire.AppendBytes(frame, nil)

	_, _, err := DecodeEnvelope(frame)
	assert.ErrorIs(t, err, ErrMalformed)
}
