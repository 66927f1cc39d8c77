// Package connection 实现 pkgif.Connector 的参考连接管理器
//
// ConnectionManager 在 pkgif.Transport 之上拨号和监听，每条新连接先经过
// Authorizer 完成授权握手，再以 ConnectionNotification 通知订阅者：
//
//   - 出站拨号并授权成功：Connected
//   - 入站连接授权成功：InboundConnection
//   - 拨号或握手失败：NonFatalConnectionError，按退避间隔重试，
//     超过 MaxRetryAttempts 后发出 FatalConnectionError 并放弃
//   - 已授权的连接断开：Disconnected，出站连接随后自动重连
//
// 连接按端点索引。授权完成后的帧交给 FrameHandler，ConnectionManager 同时
// 实现 pkgif.MessageSender，按连接 ID 发送帧。
package connection
