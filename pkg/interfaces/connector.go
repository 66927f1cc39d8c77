// Package interfaces 定义 go-splinter 公共接口
//
// 本文件定义 Connector 接口：连接管理器对外暴露的最小能力集合。
package interfaces

import "fmt"

// ============================================================================
//                              连接通知
// ============================================================================

// ConnectionNotificationKind 连接通知类型
type ConnectionNotificationKind int

const (
	// NotifyConnected 出站连接已建立并完成授权
	NotifyConnected ConnectionNotificationKind = iota + 1
	// NotifyDisconnected 连接断开
	NotifyDisconnected
	// NotifyInboundConnection 入站连接已建立并完成授权
	NotifyInboundConnection
	// NotifyFatalConnectionError 连接不可恢复的错误，连接管理器已放弃
	NotifyFatalConnectionError
	// NotifyNonFatalConnectionError 连接可恢复的错误，连接管理器仍在重试
	NotifyNonFatalConnectionError
)

// String 返回通知类型名称
func (k ConnectionNotificationKind) String() string {
	switch k {
	case NotifyConnected:
		return "Connected"
	case NotifyDisconnected:
		return "Disconnected"
	case NotifyInboundConnection:
		return "InboundConnection"
	case NotifyFatalConnectionError:
		return "FatalConnectionError"
	case NotifyNonFatalConnectionError:
		return "NonFatalConnectionError"
	default:
		return fmt.Sprintf("ConnectionNotificationKind(%d)", int(k))
	}
}

// ConnectionNotification 连接管理器发出的通知
//
// 字段按 Kind 使用：
//   - Connected / InboundConnection: Endpoint, ConnectionID, Identity
//   - Disconnected: Endpoint
//   - NonFatalConnectionError: Endpoint, Attempts
//   - FatalConnectionError: Endpoint, Err
type ConnectionNotification struct {
	Kind         ConnectionNotificationKind
	Endpoint     string
	ConnectionID string

	// Identity 授权后得到的对端身份（即 PeerID）
	Identity string

	// Attempts 已重试次数
	Attempts uint64

	// Err 致命错误原因
	Err error
}

// String 返回可读描述
func (n ConnectionNotification) String() string {
	switch n.Kind {
	case NotifyConnected, NotifyInboundConnection:
		return fmt.Sprintf("%s{endpoint=%s, identity=%s, connection=%s}", n.Kind, n.Endpoint, n.Identity, n.ConnectionID)
	case NotifyNonFatalConnectionError:
		return fmt.Sprintf("%s{endpoint=%s, attempts=%d}", n.Kind, n.Endpoint, n.Attempts)
	case NotifyFatalConnectionError:
		return fmt.Sprintf("%s{endpoint=%s, err=%v}", n.Kind, n.Endpoint, n.Err)
	default:
		return fmt.Sprintf("%s{endpoint=%s}", n.Kind, n.Endpoint)
	}
}

// ============================================================================
//                              Connector 接口
// ============================================================================

// SubscriberID 通知订阅者 ID
type SubscriberID uint64

// Connector 连接管理器能力
//
// 拨号是即发即忘的：RequestConnection 成功只代表请求被接受，
// 连接结果通过订阅的通知异步送达。
type Connector interface {
	// RequestConnection 请求连接到端点，connectionID 由调用方分配
	RequestConnection(endpoint, connectionID string) error

	// RemoveConnection 移除连接，连接不存在时返回 (false, nil)
	RemoveConnection(endpoint, connectionID string) (bool, error)

	// Subscribe 订阅连接通知
	Subscribe(ch chan<- ConnectionNotification) (SubscriberID, error)

	// Unsubscribe 取消订阅
	Unsubscribe(id SubscriberID) error
}
