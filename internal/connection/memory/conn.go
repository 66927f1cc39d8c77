package memory

import (
	"sync"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// frameBuffer 每个方向缓冲的帧数
const frameBuffer = 64

// Conn 内存连接的一端
type Conn struct {
	local  string
	remote string

	in   chan []byte
	peer *Conn

	// 两端共享
	done      chan struct{}
	closeOnce *sync.Once
}

// 确保实现 pkgif.Connection 接口
var _ pkgif.Connection = (*Conn)(nil)

// Pipe 创建一对相连的内存连接
func Pipe(localEndpoint, remoteEndpoint string) (*Conn, *Conn) {
	done := make(chan struct{})
	once := &sync.Once{}
	a := &Conn{
		local:     localEndpoint,
		remote:    remoteEndpoint,
		in:        make(chan []byte, frameBuffer),
		done:      done,
		closeOnce: once,
	}
	b := &Conn{
		local:     remoteEndpoint,
		remote:    localEndpoint,
		in:        make(chan []byte, frameBuffer),
		done:      done,
		closeOnce: once,
	}
	a.peer, b.peer = b, a
	return a, b
}

// Send 发送一帧
func (c *Conn) Send(frame []byte) error {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.peer.in <- buf:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	}
}

// Recv 接收一帧，关闭前已送达的帧仍可读出
func (c *Conn) Recv() ([]byte, error) {
	select {
	case frame := <-c.in:
		return frame, nil
	default:
	}

	select {
	case frame := <-c.in:
		return frame, nil
	case <-c.done:
		select {
		case frame := <-c.in:
			return frame, nil
		default:
			return nil, ErrConnectionClosed
		}
	}
}

// RemoteEndpoint 返回对端端点
func (c *Conn) RemoteEndpoint() string { return c.remote }

// LocalEndpoint 返回本地端点
func (c *Conn) LocalEndpoint() string { return c.local }

// Close 关闭连接的两端
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// IsClosed 检查连接是否已关闭
func (c *Conn) IsClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
