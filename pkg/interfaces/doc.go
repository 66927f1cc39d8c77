// Package interfaces 定义 go-splinter 的公共接口
//
// 核心子系统（对等节点管理、连接授权）通过这些窄接口与外部协作者交互：
//   - connector.go  - 连接管理器能力（拨号、移除、通知订阅）
//   - transport.go  - 帧传输（拨号、监听、连接）
//   - network.go    - 协议消息发送
//
// 接口保持最小化，具体传输与编码实现可替换。
package interfaces
