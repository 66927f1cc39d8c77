package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-splinter/internal/authorization"
	"github.com/dep2p/go-splinter/internal/authorization/protocol"
	"github.com/dep2p/go-splinter/internal/signing"
)

// 密钥类型
const (
	KeyTypeSecp256k1 = "secp256k1"
	KeyTypeEd25519   = "ed25519"
)

// 授权方案名称
const (
	SchemeChallenge = "challenge"
	SchemeTrust     = "trust"
)

// AuthorizationConfig 授权握手配置
type AuthorizationConfig struct {
	// KeyType 本端签名密钥类型：secp256k1 或 ed25519
	KeyType string `json:"key_type"`

	// PrivateKey 十六进制私钥，为空时启动时生成临时密钥
	PrivateKey string `json:"private_key,omitempty"`

	// TrustIdentity 信任方案下声明的身份，为空时不使用信任方案发起
	TrustIdentity string `json:"trust_identity,omitempty"`

	// AcceptedTypes 接受的方案，按偏好排序
	AcceptedTypes []string `json:"accepted_types"`

	// ExpectedPublicKey 要求对端证明持有的十六进制公钥
	ExpectedPublicKey string `json:"expected_public_key,omitempty"`

	// NonceSize 挑战 nonce 字节数
	NonceSize int `json:"nonce_size"`
}

// DefaultAuthorizationConfig 返回默认授权配置
func DefaultAuthorizationConfig() AuthorizationConfig {
	return AuthorizationConfig{
		KeyType:       KeyTypeSecp256k1,
		AcceptedTypes: []string{SchemeChallenge, SchemeTrust},
		NonceSize:     32,
	}
}

// Validate 验证授权配置
func (c AuthorizationConfig) Validate() error {
	switch c.KeyType {
	case KeyTypeSecp256k1, KeyTypeEd25519:
	default:
		return fmt.Errorf("%w: authorization.key_type must be %s or %s", ErrInvalidConfig, KeyTypeSecp256k1, KeyTypeEd25519)
	}
	if c.PrivateKey != "" {
		if _, err := hex.DecodeString(c.PrivateKey); err != nil {
			return fmt.Errorf("%w: authorization.private_key: %v", ErrInvalidConfig, err)
		}
	}
	if c.ExpectedPublicKey != "" {
		if _, err := hex.DecodeString(c.ExpectedPublicKey); err != nil {
			return fmt.Errorf("%w: authorization.expected_public_key: %v", ErrInvalidConfig, err)
		}
	}
	if _, err := c.authTypes(); err != nil {
		return err
	}
	if c.NonceSize < 16 {
		return fmt.Errorf("%w: authorization.nonce_size must be at least 16", ErrInvalidConfig)
	}
	return nil
}

// Signer 按配置加载或生成签名者
func (c AuthorizationConfig) Signer() (signing.Signer, error) {
	var key []byte
	if c.PrivateKey != "" {
		decoded, err := hex.DecodeString(c.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: authorization.private_key: %v", ErrInvalidConfig, err)
		}
		key = decoded
	}

	switch c.KeyType {
	case KeyTypeSecp256k1:
		if key == nil {
			return signing.GenerateSecp256k1Signer()
		}
		return signing.NewSecp256k1Signer(key)
	case KeyTypeEd25519:
		if key == nil {
			return signing.GenerateEd25519Signer()
		}
		return signing.NewEd25519Signer(key)
	default:
		return nil, fmt.Errorf("%w: unsupported key type %q", ErrInvalidConfig, c.KeyType)
	}
}

// Build 转换为 authorization.Config
func (c AuthorizationConfig) Build(signer signing.Signer, reg prometheus.Registerer) (*authorization.Config, error) {
	types, err := c.authTypes()
	if err != nil {
		return nil, err
	}

	out := authorization.DefaultConfig()
	out.AcceptedTypes = types
	out.LocalIdentity = c.TrustIdentity
	out.NonceSize = c.NonceSize
	out.Registerer = reg
	if signer != nil {
		out.Signers = []signing.Signer{signer}
	}
	if c.ExpectedPublicKey != "" {
		out.ExpectedPublicKey, err = hex.DecodeString(c.ExpectedPublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: authorization.expected_public_key: %v", ErrInvalidConfig, err)
		}
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c AuthorizationConfig) authTypes() ([]protocol.AuthType, error) {
	if len(c.AcceptedTypes) == 0 {
		return nil, fmt.Errorf("%w: authorization.accepted_types must not be empty", ErrInvalidConfig)
	}
	types := make([]protocol.AuthType, 0, len(c.AcceptedTypes))
	for _, name := range c.AcceptedTypes {
		switch strings.ToLower(name) {
		case SchemeChallenge:
			types = append(types, protocol.AuthTypeChallenge)
		case SchemeTrust:
			types = append(types, protocol.AuthTypeTrust)
		default:
			return nil, fmt.Errorf("%w: unknown authorization scheme %q", ErrInvalidConfig, name)
		}
	}
	return types, nil
}
