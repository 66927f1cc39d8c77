// Package mocks 提供测试用的 Mock 实现
//
//   - MockConnector: 模拟 interfaces.Connector，手写，支持 XxxFunc 注入行为、
//     调用记录，以及通过 Notify 向订阅者投递连接通知
//   - MockMessageSender: 模拟 interfaces.MessageSender，由 mockgen 生成
//
// 重新生成 MockMessageSender：
//
//	mockgen -source=pkg/interfaces/network.go -destination=tests/mocks/message_sender.go -package=mocks
//
// 使用示例：
//
//	conn := mocks.NewMockConnector()
//	conn.RequestConnectionFunc = func(endpoint, connectionID string) error {
//	    return errors.New("refused")
//	}
//	conn.Notify(pkgif.ConnectionNotification{Kind: pkgif.NotifyDisconnected, Endpoint: "inproc://a"})
package mocks
