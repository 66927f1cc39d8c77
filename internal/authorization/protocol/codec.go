package protocol

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-splinter/internal/dispatch"
)

var (
	// ErrMalformed 消息格式错误
	ErrMalformed = errors.New("protocol: malformed message")

	// ErrUnknownType 未知消息类型
	ErrUnknownType = errors.New("protocol: unknown message type")
)

// 信封字段编号
const (
	envelopeTypeField    protowire.Number = 1
	envelopePayloadField protowire.Number = 2
)

// ============================================================================
//                              信封
// ============================================================================

// Encode 编码消息并包裹信封
func Encode(msg Message) []byte {
	return EncodeEnvelope(msg.Type(), msg.Marshal())
}

// EncodeEnvelope 编码信封
func EncodeEnvelope(mt dispatch.MessageType, payload []byte) []byte {
	b := make([]byte, 0, len(payload)+8)
	b = protowire.AppendTag(b, envelopeTypeField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(mt))
	b = protowire.AppendTag(b, envelopePayloadField, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

// DecodeEnvelope 解码信封，返回消息类型和负载
func DecodeEnvelope(frame []byte) (dispatch.MessageType, []byte, error) {
	var (
		mt      dispatch.MessageType
		payload []byte
		hasType bool
	)
	err := walk(frame, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case envelopeTypeField:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return n, err
			}
			if v > math.MaxInt32 {
				return n, fmt.Errorf("%w: message type %d out of range", ErrMalformed, v)
			}
			mt = dispatch.MessageType(v)
			hasType = true
			return n, nil
		case envelopePayloadField:
			v, n, err := consumeBytes(typ, b)
			payload = v
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return 0, nil, err
	}
	if !hasType {
		return 0, nil, fmt.Errorf("%w: envelope without message type", ErrMalformed)
	}
	return mt, payload, nil
}

// Decode 按消息类型解码负载
func Decode(mt dispatch.MessageType, payload []byte) (Message, error) {
	var msg interface {
		Message
		unmarshal([]byte) error
	}
	switch mt {
	case TypeAuthorizationError:
		msg = &AuthorizationError{}
	case TypeAuthProtocolRequest:
		msg = &AuthProtocolRequest{}
	case TypeAuthProtocolResponse:
		msg = &AuthProtocolResponse{}
	case TypeAuthTrustRequest:
		msg = &AuthTrustRequest{}
	case TypeAuthTrustResponse:
		msg = &AuthTrustResponse{}
	case TypeAuthChallengeNonceRequest:
		msg = &AuthChallengeNonceRequest{}
	case TypeAuthChallengeNonceResponse:
		msg = &AuthChallengeNonceResponse{}
	case TypeAuthChallengeSubmitRequest:
		msg = &AuthChallengeSubmitRequest{}
	case TypeAuthChallengeSubmitResponse:
		msg = &AuthChallengeSubmitResponse{}
	case TypeAuthComplete:
		msg = &AuthComplete{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, int32(mt))
	}
	if err := msg.unmarshal(payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", TypeName(mt), err)
	}
	return msg, nil
}

// ============================================================================
//                              各消息编解码
// ============================================================================

// Marshal 实现 Message
func (m *AuthorizationError) Marshal() []byte {
	var b []byte
	if m.Message != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.Message)
	}
	return b
}

func (m *AuthorizationError) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(typ, b)
			m.Message = string(v)
			return n, err
		}
		return 0, nil
	})
}

// Marshal 实现 Message
func (m *AuthProtocolRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.AuthProtocolMin))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.AuthProtocolMax))
	return b
}

func (m *AuthProtocolRequest) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(typ, b)
			m.AuthProtocolMin = uint32(v)
			return n, err
		case 2:
			v, n, err := consumeVarint(typ, b)
			m.AuthProtocolMax = uint32(v)
			return n, err
		}
		return 0, nil
	})
}

// Marshal 实现 Message
func (m *AuthProtocolResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.AuthProtocol))
	for _, t := range m.AcceptedTypes {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(t))
	}
	return b
}

func (m *AuthProtocolResponse) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := consumeVarint(typ, b)
			m.AuthProtocol = uint32(v)
			return n, err
		case 2:
			// 同时兼容 packed 与非 packed 编码
			if typ == protowire.BytesType {
				packed, n := protowire.ConsumeBytes(b)
				if n < 0 {
					return n, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
				}
				for len(packed) > 0 {
					v, k := protowire.ConsumeVarint(packed)
					if k < 0 {
						return k, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(k))
					}
					m.AcceptedTypes = append(m.AcceptedTypes, AuthType(v))
					packed = packed[k:]
				}
				return n, nil
			}
			v, n, err := consumeVarint(typ, b)
			m.AcceptedTypes = append(m.AcceptedTypes, AuthType(v))
			return n, err
		}
		return 0, nil
	})
}

// Marshal 实现 Message
func (m *AuthTrustRequest) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Identity)
	return b
}

func (m *AuthTrustRequest) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(typ, b)
			m.Identity = string(v)
			return n, err
		}
		return 0, nil
	})
}

// Marshal 实现 Message
func (*AuthTrustResponse) Marshal() []byte { return nil }

func (*AuthTrustResponse) unmarshal(data []byte) error { return walk(data, skipAll) }

// Marshal 实现 Message
func (*AuthChallengeNonceRequest) Marshal() []byte { return nil }

func (*AuthChallengeNonceRequest) unmarshal(data []byte) error { return walk(data, skipAll) }

// Marshal 实现 Message
func (m *AuthChallengeNonceResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Nonce)
	return b
}

func (m *AuthChallengeNonceResponse) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(typ, b)
			m.Nonce = v
			return n, err
		}
		return 0, nil
	})
}

// Marshal 实现 Message
func (m *AuthChallengeSubmitRequest) Marshal() []byte {
	var b []byte
	for _, req := range m.SubmitRequests {
		var inner []byte
		inner = protowire.AppendTag(inner, 1, protowire.BytesType)
		inner = protowire.AppendBytes(inner, req.PublicKey)
		inner = protowire.AppendTag(inner, 2, protowire.BytesType)
		inner = protowire.AppendBytes(inner, req.Signature)

		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	return b
}

func (m *AuthChallengeSubmitRequest) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 {
			return 0, nil
		}
		inner, n, err := consumeBytes(typ, b)
		if err != nil {
			return n, err
		}
		var req SubmitRequest
		err = walk(inner, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch num {
			case 1:
				v, k, err := consumeBytes(typ, b)
				req.PublicKey = v
				return k, err
			case 2:
				v, k, err := consumeBytes(typ, b)
				req.Signature = v
				return k, err
			}
			return 0, nil
		})
		if err != nil {
			return n, err
		}
		m.SubmitRequests = append(m.SubmitRequests, req)
		return n, nil
	})
}

// Marshal 实现 Message
func (m *AuthChallengeSubmitResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, m.PublicKey)
	return b
}

func (m *AuthChallengeSubmitResponse) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n, err := consumeBytes(typ, b)
			m.PublicKey = v
			return n, err
		}
		return 0, nil
	})
}

// Marshal 实现 Message
func (*AuthComplete) Marshal() []byte { return nil }

func (*AuthComplete) unmarshal(data []byte) error { return walk(data, skipAll) }

// ============================================================================
//                              线格式辅助
// ============================================================================

// fieldVisitor 处理一个字段，返回消耗的字节数；返回 0 表示跳过该字段
type fieldVisitor func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func skipAll(protowire.Number, protowire.Type, []byte) (int, error) { return 0, nil }

func walk(data []byte, visit fieldVisitor) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		m, err := visit(num, typ, data)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, data)
		}
		if m < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, -1, fmt.Errorf("%w: expected varint, got wire type %d", ErrMalformed, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, n, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, -1, fmt.Errorf("%w: expected bytes, got wire type %d", ErrMalformed, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, n, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, n, nil
}
