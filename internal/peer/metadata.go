package peer

import (
	"fmt"
	"time"
)

// StatusKind 节点状态类型
type StatusKind int

const (
	// StatusPending 拨号进行中，尚无确认的连接
	StatusPending StatusKind = iota + 1
	// StatusConnected 已连接并完成授权
	StatusConnected
	// StatusDisconnected 连接断开，等待端点切换或重连
	StatusDisconnected
)

// String 返回状态名称
func (k StatusKind) String() string {
	switch k {
	case StatusPending:
		return "Pending"
	case StatusConnected:
		return "Connected"
	case StatusDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

// PeerStatus 节点状态
//
// RetryAttempts 仅在 StatusDisconnected 下有意义。
type PeerStatus struct {
	Kind          StatusKind
	RetryAttempts uint64
}

// Pending 返回 Pending 状态
func Pending() PeerStatus { return PeerStatus{Kind: StatusPending} }

// Connected 返回 Connected 状态
func Connected() PeerStatus { return PeerStatus{Kind: StatusConnected} }

// Disconnected 返回带重试次数的 Disconnected 状态
func Disconnected(retryAttempts uint64) PeerStatus {
	return PeerStatus{Kind: StatusDisconnected, RetryAttempts: retryAttempts}
}

// String 返回可读描述
func (s PeerStatus) String() string {
	if s.Kind == StatusDisconnected {
		return fmt.Sprintf("Disconnected{retry_attempts=%d}", s.RetryAttempts)
	}
	return s.Kind.String()
}

// PeerMetadata 节点元数据
//
// 只由节点管理器的 actor goroutine 修改；查询返回的是副本。
type PeerMetadata struct {
	ID             string
	ConnectionID   string
	Endpoints      []string
	ActiveEndpoint string
	Status         PeerStatus

	// RetryFrequency 重试扫描的最小间隔，每次重试后翻倍
	RetryFrequency time.Duration

	// LastConnectionAttempt 最近一次重试扫描的时间
	LastConnectionAttempt time.Time
}

// clone 深拷贝
func (m PeerMetadata) clone() PeerMetadata {
	m.Endpoints = append([]string(nil), m.Endpoints...)
	return m
}

// hasEndpoint 判断端点是否属于该节点
func (m PeerMetadata) hasEndpoint(endpoint string) bool {
	for _, ep := range m.Endpoints {
		if ep == endpoint {
			return true
		}
	}
	return false
}

// unreferencedPeer 入站连接建立但尚未被本地引用的节点
type unreferencedPeer struct {
	Endpoint     string
	ConnectionID string
}
