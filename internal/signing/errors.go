package signing

import "errors"

var (
	// ErrInvalidPrivateKey 私钥无效
	ErrInvalidPrivateKey = errors.New("signing: invalid private key")

	// ErrInvalidPublicKey 公钥无效
	ErrInvalidPublicKey = errors.New("signing: invalid public key")

	// ErrInvalidSignature 签名格式无效
	ErrInvalidSignature = errors.New("signing: malformed signature")

	// ErrUnsupportedKey 无法识别的公钥方案
	ErrUnsupportedKey = errors.New("signing: unsupported public key")
)
