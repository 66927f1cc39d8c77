// Package interfaces 定义 go-splinter 公共接口
//
// 本文件定义节点管理器对上层暴露的接口。
package interfaces

import (
	"context"
	"fmt"
)

// ============================================================================
//                              节点通知
// ============================================================================

// PeerNotificationKind 节点通知类型
type PeerNotificationKind int

const (
	// PeerConnected 节点已连接并完成授权
	PeerConnected PeerNotificationKind = iota + 1
	// PeerDisconnected 节点连接断开或身份不符
	PeerDisconnected
)

// String 返回通知类型名称
func (k PeerNotificationKind) String() string {
	switch k {
	case PeerConnected:
		return "Connected"
	case PeerDisconnected:
		return "Disconnected"
	default:
		return fmt.Sprintf("PeerNotificationKind(%d)", int(k))
	}
}

// PeerNotification 节点状态变化通知
type PeerNotification struct {
	Kind   PeerNotificationKind
	PeerID string
}

// String 返回可读描述
func (n PeerNotification) String() string {
	return fmt.Sprintf("%s{peer=%s}", n.Kind, n.PeerID)
}

// PeerNotificationIter 节点通知迭代器
type PeerNotificationIter interface {
	// Next 阻塞等待下一条通知，迭代器关闭后返回错误
	Next(ctx context.Context) (PeerNotification, error)

	// Close 关闭迭代器并取消订阅
	Close() error
}

// ============================================================================
//                              节点引用
// ============================================================================

// PeerRef 节点引用
//
// 持有引用期间节点会被保持连接；最后一个引用释放后节点被移除。
// Release 可以重复调用，第二次起为空操作。
type PeerRef interface {
	// PeerID 返回引用的节点 ID
	PeerID() string

	// Release 释放引用
	Release() error
}

// ============================================================================
//                              PeerManagerConnector 接口
// ============================================================================

// PeerManagerConnector 节点管理器句柄
//
// 所有调用都以消息形式发给节点管理器，可在多个 goroutine 中并发使用。
type PeerManagerConnector interface {
	// AddPeerRef 增加节点引用，首次引用时开始连接
	AddPeerRef(peerID string, endpoints []string) (PeerRef, error)

	// AddUnidentifiedPeer 连接身份未知的端点
	AddUnidentifiedPeer(endpoint string) error

	// ListPeers 列出被引用的节点
	ListPeers() ([]string, error)

	// ListUnreferencedPeers 列出未被引用的入站节点
	ListUnreferencedPeers() ([]string, error)

	// ConnectionIDs 返回节点 ID 到连接 ID 的映射
	ConnectionIDs() (map[string]string, error)

	// GetConnectionID 查询节点的连接 ID
	GetConnectionID(peerID string) (string, bool, error)

	// GetPeerID 查询连接对应的节点 ID
	GetPeerID(connectionID string) (string, bool, error)

	// Subscribe 订阅节点通知
	Subscribe() (PeerNotificationIter, error)
}
