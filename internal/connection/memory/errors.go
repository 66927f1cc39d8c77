package memory

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("memory: transport closed")

	// ErrConnectionClosed 连接已关闭
	ErrConnectionClosed = errors.New("memory: connection closed")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("memory: listener closed")

	// ErrNoListener 端点上没有监听器
	ErrNoListener = errors.New("memory: no listener at endpoint")

	// ErrEndpointInUse 端点已被占用
	ErrEndpointInUse = errors.New("memory: endpoint in use")
)
