package signing

import (
	"encoding/hex"
	"strings"

	"github.com/mr-tron/base58"
)

// PublicKeyPeerPrefix 公钥派生 PeerID 的前缀
const PublicKeyPeerPrefix = "public_key::"

// PeerIDFromPublicKey 由公钥派生 PeerID
//
// 格式："public_key::" + 十六进制公钥，与挑战授权得到的身份一一对应。
func PeerIDFromPublicKey(publicKey []byte) string {
	return PublicKeyPeerPrefix + hex.EncodeToString(publicKey)
}

// PublicKeyFromPeerID 从 PeerID 还原公钥，非公钥派生的 PeerID 返回 false
func PublicKeyFromPeerID(peerID string) ([]byte, bool) {
	if !strings.HasPrefix(peerID, PublicKeyPeerPrefix) {
		return nil, false
	}
	key, err := hex.DecodeString(strings.TrimPrefix(peerID, PublicKeyPeerPrefix))
	if err != nil || len(key) == 0 {
		return nil, false
	}
	return key, true
}

// PublicKeyID 返回公钥的 Base58 短标识，用于日志
func PublicKeyID(publicKey []byte) string {
	return base58.Encode(publicKey)
}
