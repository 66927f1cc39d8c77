package authorization

import (
	"bytes"
	"fmt"

	"github.com/dep2p/go-splinter/internal/signing"
)

// Identity 授权得到的身份
//
// 同时用于描述对端身份（握手结果）和本端声明的身份（local authorization）。
type Identity interface {
	// PeerID 返回身份对应的 PeerID
	PeerID() string

	// Equal 判断两个身份是否相同
	Equal(other Identity) bool

	fmt.Stringer
	isIdentity()
}

// TrustIdentity 信任方案下对端直接声明的身份
type TrustIdentity struct {
	ID string
}

// ChallengeIdentity 挑战方案下由公钥证明的身份
type ChallengeIdentity struct {
	PublicKey []byte
}

func (TrustIdentity) isIdentity()     {}
func (ChallengeIdentity) isIdentity() {}

// PeerID 实现 Identity
func (i TrustIdentity) PeerID() string { return i.ID }

// PeerID 实现 Identity，格式见 signing.PeerIDFromPublicKey
func (i ChallengeIdentity) PeerID() string { return signing.PeerIDFromPublicKey(i.PublicKey) }

// Equal 实现 Identity
func (i TrustIdentity) Equal(other Identity) bool {
	o, ok := other.(TrustIdentity)
	return ok && o.ID == i.ID
}

// Equal 实现 Identity
func (i ChallengeIdentity) Equal(other Identity) bool {
	o, ok := other.(ChallengeIdentity)
	return ok && bytes.Equal(o.PublicKey, i.PublicKey)
}

// String 实现 fmt.Stringer
func (i TrustIdentity) String() string { return "Trust{" + i.ID + "}" }

// String 实现 fmt.Stringer
func (i ChallengeIdentity) String() string {
	return "Challenge{" + signing.PublicKeyID(i.PublicKey) + "}"
}
