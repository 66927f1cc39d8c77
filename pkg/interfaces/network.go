// Package interfaces 定义 go-splinter 公共接口
//
// 本文件定义消息发送接口，处理器通过它发出协议消息。
package interfaces

import "fmt"

// MessageSender 向指定连接发送消息
//
// 发送失败时返回 *SendError，其中携带未发送的负载，由调用方决定如何处理。
type MessageSender interface {
	Send(recipient string, payload []byte) error
}

// SendError 消息发送失败
type SendError struct {
	Recipient string
	Payload   []byte
	Err       error
}

// Error 实现 error 接口
func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to send message to %s: %v", e.Recipient, e.Err)
	}
	return fmt.Sprintf("unable to send message to %s", e.Recipient)
}

// Unwrap 返回底层错误
func (e *SendError) Unwrap() error {
	return e.Err
}
