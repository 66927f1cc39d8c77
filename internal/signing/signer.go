package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/minio/sha256-simd"
)

// ============================================================================
//                              接口
// ============================================================================

// Signer 持有私钥的签名者
type Signer interface {
	// Sign 对消息签名
	Sign(message []byte) ([]byte, error)

	// PublicKey 返回签名者公钥的字节表示
	PublicKey() []byte
}

// Verifier 签名验证者
type Verifier interface {
	// Verify 验证 signature 是否为 publicKey 对 message 的有效签名
	//
	// 签名不匹配返回 (false, nil)；公钥或签名无法解析返回错误。
	Verify(message, signature, publicKey []byte) (bool, error)
}

// ============================================================================
//                              secp256k1
// ============================================================================

// Secp256k1Signer secp256k1 签名者
type Secp256k1Signer struct {
	key *secp256k1.PrivateKey
	pub []byte
}

var _ Signer = (*Secp256k1Signer)(nil)

// NewSecp256k1Signer 从 32 字节私钥创建签名者
func NewSecp256k1Signer(privateKey []byte) (*Secp256k1Signer, error) {
	if len(privateKey) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, secp256k1.PrivKeyBytesLen, len(privateKey))
	}
	key := secp256k1.PrivKeyFromBytes(privateKey)
	return &Secp256k1Signer{key: key, pub: key.PubKey().SerializeCompressed()}, nil
}

// GenerateSecp256k1Signer 生成随机私钥的签名者
func GenerateSecp256k1Signer() (*Secp256k1Signer, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return &Secp256k1Signer{key: key, pub: key.PubKey().SerializeCompressed()}, nil
}

// Sign 对 SHA-256(message) 签名
func (s *Secp256k1Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return ecdsa.Sign(s.key, digest[:]).Serialize(), nil
}

// PublicKey 返回 33 字节压缩公钥
func (s *Secp256k1Signer) PublicKey() []byte {
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out
}

// PrivateKey 返回 32 字节私钥
func (s *Secp256k1Signer) PrivateKey() []byte {
	return s.key.Serialize()
}

// Secp256k1Verifier secp256k1 验证者
type Secp256k1Verifier struct{}

// Verify 实现 Verifier
func (Secp256k1Verifier) Verify(message, signature, publicKey []byte) (bool, error) {
	pub, err := secp256k1.ParsePubKey(publicKey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	digest := sha256.Sum256(message)
	return sig.Verify(digest[:], pub), nil
}

// ============================================================================
//                              ed25519
// ============================================================================

// Ed25519Signer ed25519 签名者
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

var _ Signer = (*Ed25519Signer)(nil)

// NewEd25519Signer 从 64 字节私钥创建签名者
func NewEd25519Signer(privateKey []byte) (*Ed25519Signer, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, ed25519.PrivateKeySize, len(privateKey))
	}
	return &Ed25519Signer{key: ed25519.PrivateKey(privateKey)}, nil
}

// GenerateEd25519Signer 生成随机私钥的签名者
func GenerateEd25519Signer() (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return &Ed25519Signer{key: priv}, nil
}

// Sign 实现 Signer
func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.key, message), nil
}

// PublicKey 返回 32 字节公钥
func (s *Ed25519Signer) PublicKey() []byte {
	pub := s.key.Public().(ed25519.PublicKey)
	out := make([]byte, len(pub))
	copy(out, pub)
	return out
}

// Ed25519Verifier ed25519 验证者
type Ed25519Verifier struct{}

// Verify 实现 Verifier
func (Ed25519Verifier) Verify(message, signature, publicKey []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, ErrInvalidPublicKey
	}
	if len(signature) != ed25519.SignatureSize {
		return false, ErrInvalidSignature
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
}

// ============================================================================
//                              多方案验证
// ============================================================================

// MultiVerifier 按公钥长度选择方案的验证者
type MultiVerifier struct{}

var _ Verifier = MultiVerifier{}

// Verify 实现 Verifier
func (MultiVerifier) Verify(message, signature, publicKey []byte) (bool, error) {
	switch len(publicKey) {
	case secp256k1.PubKeyBytesLenCompressed, secp256k1.PubKeyBytesLenUncompressed:
		return Secp256k1Verifier{}.Verify(message, signature, publicKey)
	case ed25519.PublicKeySize:
		return Ed25519Verifier{}.Verify(message, signature, publicKey)
	default:
		return false, fmt.Errorf("%w: %d byte key", ErrUnsupportedKey, len(publicKey))
	}
}
