package splinter

import "errors"

// 节点生命周期错误
var (
	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("splinter: node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("splinter: node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("splinter: node closed")

	// ErrNoTransport 未提供传输层
	ErrNoTransport = errors.New("splinter: no transport configured")
)
