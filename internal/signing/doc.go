// Package signing 提供授权握手使用的签名与验签能力
//
// 支持两种密钥方案：
//   - secp256k1（默认，区块链生态兼容），签名为 SHA-256 摘要上的 DER 编码 ECDSA 签名
//   - ed25519，直接对消息签名
//
// Verifier 按公钥长度识别方案：33 字节为压缩 secp256k1 公钥，32 字节为 ed25519 公钥。
package signing
