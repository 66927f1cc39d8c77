package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// ============================================================================
//                              Hub
// ============================================================================

// Hub 进程内的端点注册表
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]*Listener

	dialSeq atomic.Uint64
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{listeners: make(map[string]*Listener)}
}

func (h *Hub) register(l *Listener) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[l.endpoint]; ok {
		return fmt.Errorf("%w: %s", ErrEndpointInUse, l.endpoint)
	}
	h.listeners[l.endpoint] = l
	return nil
}

func (h *Hub) unregister(endpoint string) {
	h.mu.Lock()
	delete(h.listeners, endpoint)
	h.mu.Unlock()
}

func (h *Hub) lookup(endpoint string) (*Listener, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	l, ok := h.listeners[endpoint]
	return l, ok
}

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport 内存传输
type Transport struct {
	hub    *Hub
	closed atomic.Bool
}

// 确保实现 pkgif.Transport 接口
var _ pkgif.Transport = (*Transport)(nil)

// NewTransport 创建挂在 hub 上的传输
func NewTransport(hub *Hub) *Transport {
	return &Transport{hub: hub}
}

// Dial 连接到 hub 上监听 endpoint 的传输
func (t *Transport) Dial(ctx context.Context, endpoint string) (pkgif.Connection, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	l, ok := t.hub.lookup(endpoint)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoListener, endpoint)
	}

	local := fmt.Sprintf("memory-dialer-%d", t.hub.dialSeq.Add(1))
	dialer, accepted := Pipe(local, endpoint)

	select {
	case l.incoming <- accepted:
		return dialer, nil
	case <-l.done:
		return nil, fmt.Errorf("%w: %s", ErrNoListener, endpoint)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Listen 在 endpoint 上监听
func (t *Transport) Listen(endpoint string) (pkgif.Listener, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	l := &Listener{
		hub:      t.hub,
		endpoint: endpoint,
		incoming: make(chan *Conn),
		done:     make(chan struct{}),
	}
	if err := t.hub.register(l); err != nil {
		return nil, err
	}
	return l, nil
}

// Close 关闭传输，已建立的连接不受影响
func (t *Transport) Close() error {
	t.closed.Store(true)
	return nil
}

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener 内存监听器
type Listener struct {
	hub      *Hub
	endpoint string
	incoming chan *Conn

	done      chan struct{}
	closeOnce sync.Once
}

// 确保实现 pkgif.Listener 接口
var _ pkgif.Listener = (*Listener)(nil)

// Accept 接受新连接
func (l *Listener) Accept() (pkgif.Connection, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.done:
		return nil, ErrListenerClosed
	}
}

// Endpoint 返回监听端点
func (l *Listener) Endpoint() string { return l.endpoint }

// Close 关闭监听器
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.hub.unregister(l.endpoint)
	})
	return nil
}
