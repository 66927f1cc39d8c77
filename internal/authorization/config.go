package authorization

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-splinter/internal/authorization/protocol"
	"github.com/dep2p/go-splinter/internal/signing"
)

// ============================================================================
//                              授权配置
// ============================================================================

// Config 授权配置
type Config struct {
	// Signers 本端签名器，挑战方案下对 nonce 逐一签名
	Signers []signing.Signer

	// Verifier 校验对端签名，默认 signing.MultiVerifier
	Verifier signing.Verifier

	// ExpectedPublicKey 要求对端证明持有的公钥，为空时接受第一个提交的公钥
	ExpectedPublicKey []byte

	// LocalIdentity 信任方案下本端声明的身份
	LocalIdentity string

	// AcceptedTypes 本端接受的授权方案，按偏好排序
	AcceptedTypes []protocol.AuthType

	// NonceSize nonce 大小（字节）
	NonceSize int

	// Registerer 指标注册器，为 nil 时不注册
	Registerer prometheus.Registerer
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Verifier:      signing.MultiVerifier{},
		AcceptedTypes: []protocol.AuthType{protocol.AuthTypeChallenge, protocol.AuthTypeTrust},
		NonceSize:     32,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.AcceptedTypes) == 0 {
		return fmt.Errorf("%w: AcceptedTypes must not be empty", ErrInvalidConfig)
	}
	for _, t := range c.AcceptedTypes {
		if t != protocol.AuthTypeChallenge && t != protocol.AuthTypeTrust {
			return fmt.Errorf("%w: unsupported auth type %d", ErrInvalidConfig, t)
		}
	}

	if len(c.Signers) == 0 && c.LocalIdentity == "" {
		return fmt.Errorf("%w: either Signers or LocalIdentity must be set", ErrInvalidConfig)
	}

	if c.accepts(protocol.AuthTypeChallenge) {
		if c.Verifier == nil {
			return fmt.Errorf("%w: Verifier is required for challenge authorization", ErrInvalidConfig)
		}
		if c.NonceSize < 16 {
			return fmt.Errorf("%w: NonceSize must be at least 16", ErrInvalidConfig)
		}
	}

	return nil
}

// accepts 判断是否接受某个方案
func (c *Config) accepts(t protocol.AuthType) bool {
	for _, a := range c.AcceptedTypes {
		if a == t {
			return true
		}
	}
	return false
}

// chooseScheme 从对端接受的方案中选出本端能发起的方案
//
// 挑战方案优先于信任方案。
func (c *Config) chooseScheme(remoteAccepted []protocol.AuthType) (protocol.AuthType, bool) {
	has := func(t protocol.AuthType) bool {
		for _, a := range remoteAccepted {
			if a == t {
				return true
			}
		}
		return false
	}

	if len(c.Signers) > 0 && has(protocol.AuthTypeChallenge) {
		return protocol.AuthTypeChallenge, true
	}
	if c.LocalIdentity != "" && has(protocol.AuthTypeTrust) {
		return protocol.AuthTypeTrust, true
	}
	return 0, false
}
