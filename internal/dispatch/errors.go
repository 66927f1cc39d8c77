package dispatch

import (
	"errors"
	"fmt"
)

// ErrNoHandler 没有匹配的处理器
var ErrNoHandler = errors.New("dispatch: no handler for message type")

// ErrorKind 分发错误类型
type ErrorKind int

const (
	// KindUnknownMessageType 未注册的消息类型
	KindUnknownMessageType ErrorKind = iota + 1
	// KindDeserialization 负载解码失败
	KindDeserialization
	// KindSerialization 回复编码失败
	KindSerialization
	// KindHandler 处理器内部错误
	KindHandler
	// KindNetworkSend 回复发送失败
	KindNetworkSend
)

// String 返回错误类型名称
func (k ErrorKind) String() string {
	switch k {
	case KindUnknownMessageType:
		return "unknown message type"
	case KindDeserialization:
		return "deserialization error"
	case KindSerialization:
		return "serialization error"
	case KindHandler:
		return "handler error"
	case KindNetworkSend:
		return "network send error"
	default:
		return "dispatch error"
	}
}

// DispatchError 分发错误
type DispatchError struct {
	Kind        ErrorKind
	MessageType MessageType
	Err         error
}

// Error 实现 error 接口
func (e *DispatchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (message type %d)", e.Kind, e.MessageType)
	}
	return fmt.Sprintf("%s (message type %d): %v", e.Kind, e.MessageType, e.Err)
}

// Unwrap 返回底层错误
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// HandlerError 包装处理器错误
func HandlerError(err error) error {
	return &DispatchError{Kind: KindHandler, Err: err}
}

// DeserializationError 包装解码错误
func DeserializationError(err error) error {
	return &DispatchError{Kind: KindDeserialization, Err: err}
}

// SerializationError 包装编码错误
func SerializationError(err error) error {
	return &DispatchError{Kind: KindSerialization, Err: err}
}

// NetworkSendError 包装发送错误
func NetworkSendError(err error) error {
	return &DispatchError{Kind: KindNetworkSend, Err: err}
}
