// Package interfaces 定义 go-splinter 公共接口
//
// 本文件定义 Transport 接口，抽象承载授权握手与上层协议的帧传输。
package interfaces

import "context"

// Transport 定义传输层接口
//
// 具体实现（TCP、TLS、内存）不属于核心范围，核心只依赖本接口。
type Transport interface {
	// Dial 拨号连接到指定端点
	Dial(ctx context.Context, endpoint string) (Connection, error)

	// Listen 在指定端点监听
	Listen(endpoint string) (Listener, error)
}

// Listener 定义监听器接口
type Listener interface {
	// Accept 接受新连接，监听器关闭后返回错误
	Accept() (Connection, error)

	// Endpoint 返回监听端点
	Endpoint() string

	// Close 关闭监听器
	Close() error
}

// Connection 定义帧连接接口
//
// Send/Recv 以完整消息帧为单位，分帧方式由具体传输决定。
type Connection interface {
	// Send 发送一帧
	Send(frame []byte) error

	// Recv 阻塞接收一帧，连接关闭后返回错误
	Recv() ([]byte, error)

	// RemoteEndpoint 返回对端端点
	RemoteEndpoint() string

	// LocalEndpoint 返回本地端点
	LocalEndpoint() string

	// Close 关闭连接
	Close() error
}
