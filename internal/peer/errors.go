package peer

import (
	"errors"
	"fmt"
)

var (
	// ErrShutdown 节点管理器已关闭
	ErrShutdown = errors.New("peer: manager shut down")

	// ErrNotStarted 节点管理器未启动
	ErrNotStarted = errors.New("peer: manager not started")

	// ErrAlreadyStarted 节点管理器已启动
	ErrAlreadyStarted = errors.New("peer: manager already started")

	// ErrNoEndpoints 未提供端点
	ErrNoEndpoints = errors.New("peer: no endpoints provided")

	// ErrUnknownPeer 节点不存在
	ErrUnknownPeer = errors.New("peer: unknown peer")

	// ErrInconsistentState RefMap 与 PeerMap 不一致
	ErrInconsistentState = errors.New("peer: ref map and peer map disagree")

	// ErrIterClosed 通知迭代器已关闭
	ErrIterClosed = errors.New("peer: notification iterator closed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("peer: invalid config")
)

// PeerRefAddError 增加节点引用失败
type PeerRefAddError struct {
	PeerID string
	Err    error
}

// Error 实现 error 接口
func (e *PeerRefAddError) Error() string {
	return fmt.Sprintf("unable to add peer %s: %v", e.PeerID, e.Err)
}

// Unwrap 返回底层错误
func (e *PeerRefAddError) Unwrap() error { return e.Err }

// PeerRefRemoveError 移除节点引用失败
type PeerRefRemoveError struct {
	PeerID string
	Err    error
}

// Error 实现 error 接口
func (e *PeerRefRemoveError) Error() string {
	return fmt.Sprintf("unable to remove peer %s: %v", e.PeerID, e.Err)
}

// Unwrap 返回底层错误
func (e *PeerRefRemoveError) Unwrap() error { return e.Err }

// PeerUnknownAddError 连接未知身份端点失败
type PeerUnknownAddError struct {
	Endpoint string
	Err      error
}

// Error 实现 error 接口
func (e *PeerUnknownAddError) Error() string {
	return fmt.Sprintf("unable to add unidentified peer at %s: %v", e.Endpoint, e.Err)
}

// Unwrap 返回底层错误
func (e *PeerUnknownAddError) Unwrap() error { return e.Err }

// PeerListError 列举节点失败
type PeerListError struct {
	Err error
}

// Error 实现 error 接口
func (e *PeerListError) Error() string { return fmt.Sprintf("unable to list peers: %v", e.Err) }

// Unwrap 返回底层错误
func (e *PeerListError) Unwrap() error { return e.Err }

// PeerLookupError 查询节点失败
type PeerLookupError struct {
	Err error
}

// Error 实现 error 接口
func (e *PeerLookupError) Error() string { return fmt.Sprintf("unable to look up peer: %v", e.Err) }

// Unwrap 返回底层错误
func (e *PeerLookupError) Unwrap() error { return e.Err }

// PeerManagerError 启动或关闭节点管理器失败
type PeerManagerError struct {
	Op  string
	Err error
}

// Error 实现 error 接口
func (e *PeerManagerError) Error() string {
	return fmt.Sprintf("peer manager %s: %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *PeerManagerError) Unwrap() error { return e.Err }
