package connection

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed 连接管理器已关闭
	ErrClosed = errors.New("connection: manager closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("connection: invalid config")

	// ErrUnknownConnection 连接不存在或尚未完成授权
	ErrUnknownConnection = errors.New("connection: unknown connection")

	// ErrUnknownSubscriber 订阅者不存在
	ErrUnknownSubscriber = errors.New("connection: unknown subscriber")

	// ErrEmptyEndpoint 端点为空
	ErrEmptyEndpoint = errors.New("connection: empty endpoint")
)

// HandshakeError 握手失败
type HandshakeError struct {
	Endpoint string
	Err      error
}

// Error 实现 error 接口
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake with %s failed: %v", e.Endpoint, e.Err)
}

// Unwrap 返回底层错误
func (e *HandshakeError) Unwrap() error { return e.Err }

// RetryExhaustedError 重试次数耗尽
type RetryExhaustedError struct {
	Endpoint string
	Attempts uint64
	Err      error
}

// Error 实现 error 接口
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("gave up on %s after %d attempts: %v", e.Endpoint, e.Attempts, e.Err)
}

// Unwrap 返回最后一次失败的原因
func (e *RetryExhaustedError) Unwrap() error { return e.Err }
