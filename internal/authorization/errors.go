package authorization

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownConnection 连接没有授权状态
	ErrUnknownConnection = errors.New("authorization: unknown connection")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("authorization: invalid config")

	// ErrUnauthorized 握手以失败结束
	ErrUnauthorized = errors.New("authorization: connection unauthorized")

	// ErrClosed 授权连接器已关闭
	ErrClosed = errors.New("authorization: closed")
)

// Track 状态轨道
type Track string

const (
	// TrackInitiating 发起轨道
	TrackInitiating Track = "initiating"
	// TrackAccepting 接受轨道
	TrackAccepting Track = "accepting"
)

// InvalidStateTransition 非法状态转换
type InvalidStateTransition struct {
	Track  Track
	State  fmt.Stringer
	Action fmt.Stringer
}

// Error 实现 error 接口
func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("authorization: invalid %s transition from %s with action %s", e.Track, e.State, e.Action)
}
