// Package peer 实现节点连接生命周期管理
//
// PeerManager 是一个 actor：所有状态（PeerMap、RefMap、未引用节点、订阅者）
// 只由一个 goroutine 读写，外部调用和连接管理器的通知都以消息形式进入同一个
// 有序邮箱。调用方只在自己的应答通道上阻塞。
//
// 上层通过 PeerManagerConnector 持有 PeerRef；最后一个引用释放后，
// 节点元数据和底层连接一并移除。
//
// 连接失败由三条路径恢复：
//   - 连接管理器上报 NonFatalConnectionError 且重试次数耗尽时切换到其他端点
//   - FatalConnectionError 与身份不符时节点回到 Pending
//   - 定时器（pacemaker）驱动的重试扫描对 Pending 节点重新拨号，间隔指数退避
package peer
