package connection

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-splinter/internal/authorization"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

var logger = log.Logger("connection")

// Authorizer 在新连接上完成授权握手
//
// *authorization.AuthorizationConnector 实现了该接口。
type Authorizer interface {
	Authorize(ctx context.Context, connectionID string, conn pkgif.Connection, initiator bool) (authorization.Outcome, error)
}

// FrameHandler 处理授权完成后收到的帧
type FrameHandler func(connectionID string, frame []byte)

// direction 连接方向
type direction int

const (
	outbound direction = iota
	inbound
)

func (d direction) String() string {
	if d == inbound {
		return "inbound"
	}
	return "outbound"
}

// entry 单个端点上的连接
type entry struct {
	endpoint     string
	connectionID string
	dir          direction

	// 以下字段受 ConnectionManager.mu 保护，conn 在授权完成前为 nil
	identity string
	conn     pkgif.Connection

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriber struct {
	ch   chan<- pkgif.ConnectionNotification
	gone chan struct{}
}

// ============================================================================
//                              ConnectionManager
// ============================================================================

// ConnectionManager 参考连接管理器
type ConnectionManager struct {
	cfg        *Config
	transport  pkgif.Transport
	authorizer Authorizer
	clock      clock.Clock
	metrics    *metrics

	mu        sync.Mutex
	entries   map[string]*entry
	listeners []pkgif.Listener
	closed    bool

	subMu       sync.RWMutex
	subscribers map[pkgif.SubscriberID]*subscriber
	nextSubID   pkgif.SubscriberID

	handlerMu    sync.RWMutex
	frameHandler FrameHandler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// 确保实现接口
var (
	_ pkgif.Connector     = (*ConnectionManager)(nil)
	_ pkgif.MessageSender = (*ConnectionManager)(nil)
)

// NewConnectionManager 创建连接管理器
func NewConnectionManager(transport pkgif.Transport, authorizer Authorizer, cfg *Config) (*ConnectionManager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ConnectionManager{
		cfg:         cfg,
		transport:   transport,
		authorizer:  authorizer,
		clock:       cfg.Clock,
		metrics:     newMetrics(cfg.Registerer),
		entries:     make(map[string]*entry),
		subscribers: make(map[pkgif.SubscriberID]*subscriber),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}, nil
}

// SetFrameHandler 设置授权后帧的处理函数
func (m *ConnectionManager) SetFrameHandler(fn FrameHandler) {
	m.handlerMu.Lock()
	m.frameHandler = fn
	m.handlerMu.Unlock()
}

// ============================================================================
//                              Connector 实现
// ============================================================================

// RequestConnection 请求连接到端点
//
// 端点上已有授权连接时重新发出 Connected；拨号进行中时为空操作。
func (m *ConnectionManager) RequestConnection(endpoint, connectionID string) error {
	if endpoint == "" {
		return ErrEmptyEndpoint
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}

	if e, ok := m.entries[endpoint]; ok {
		conn, identity, cid := e.conn, e.identity, e.connectionID
		if conn != nil {
			m.wg.Add(1)
		}
		m.mu.Unlock()

		if conn != nil {
			// 调用方可能正阻塞在通知通道的消费端，异步发出
			go func() {
				defer m.wg.Done()
				m.notify(pkgif.ConnectionNotification{
					Kind:         pkgif.NotifyConnected,
					Endpoint:     endpoint,
					ConnectionID: cid,
					Identity:     identity,
				})
			}()
		}
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	e := &entry{
		endpoint:     endpoint,
		connectionID: connectionID,
		dir:          outbound,
		ctx:          ctx,
		cancel:       cancel,
	}
	m.entries[endpoint] = e
	m.wg.Add(1)
	m.mu.Unlock()

	logger.Debug("请求连接", "endpoint", endpoint, "connID", log.TruncateID(connectionID, 8))
	go m.dialLoop(e)
	return nil
}

// RemoveConnection 关闭并移除端点上的连接
//
// connectionID 非空时必须与端点上的连接一致，否则视为不存在。
func (m *ConnectionManager) RemoveConnection(endpoint, connectionID string) (bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, ErrClosed
	}
	e, ok := m.entries[endpoint]
	if !ok || (connectionID != "" && e.connectionID != connectionID) {
		m.mu.Unlock()
		return false, nil
	}
	delete(m.entries, endpoint)
	conn := m.detachLocked(e)
	m.mu.Unlock()

	e.cancel()
	logger.Info("移除连接", "endpoint", endpoint, "connID", log.TruncateID(e.connectionID, 8))
	if conn != nil {
		if err := conn.Close(); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Subscribe 订阅连接通知
func (m *ConnectionManager) Subscribe(ch chan<- pkgif.ConnectionNotification) (pkgif.SubscriberID, error) {
	select {
	case <-m.done:
		return 0, ErrClosed
	default:
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.nextSubID++
	m.subscribers[m.nextSubID] = &subscriber{ch: ch, gone: make(chan struct{})}
	return m.nextSubID, nil
}

// Unsubscribe 取消订阅，正在投递给该订阅者的通知会被放弃
func (m *ConnectionManager) Unsubscribe(id pkgif.SubscriberID) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	s, ok := m.subscribers[id]
	if !ok {
		return ErrUnknownSubscriber
	}
	delete(m.subscribers, id)
	close(s.gone)
	return nil
}

// ============================================================================
//                              MessageSender 实现
// ============================================================================

// Send 向已授权的连接发送一帧
func (m *ConnectionManager) Send(recipient string, payload []byte) error {
	m.mu.Lock()
	var conn pkgif.Connection
	for _, e := range m.entries {
		if e.connectionID == recipient && e.conn != nil {
			conn = e.conn
			break
		}
	}
	m.mu.Unlock()

	if conn == nil {
		return &pkgif.SendError{Recipient: recipient, Payload: payload, Err: ErrUnknownConnection}
	}
	if err := conn.Send(payload); err != nil {
		return &pkgif.SendError{Recipient: recipient, Payload: payload, Err: err}
	}
	return nil
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 关闭所有监听器和连接，等待后台 goroutine 退出
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	listeners := m.listeners
	m.listeners = nil
	var conns []pkgif.Connection
	for _, e := range m.entries {
		if conn := m.detachLocked(e); conn != nil {
			conns = append(conns, conn)
		}
	}
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	close(m.done)
	m.cancel()

	var errs error
	for _, l := range listeners {
		errs = multierr.Append(errs, l.Close())
	}

	var g errgroup.Group
	for _, conn := range conns {
		g.Go(conn.Close)
	}
	errs = multierr.Append(errs, g.Wait())

	m.wg.Wait()
	logger.Info("连接管理器已关闭", "connections", len(conns), "listeners", len(listeners))
	return errs
}

// ============================================================================
//                              内部
// ============================================================================

// notify 逐个投递通知，订阅者取消订阅或管理器关闭时放弃
func (m *ConnectionManager) notify(n pkgif.ConnectionNotification) {
	m.subMu.RLock()
	subs := make([]*subscriber, 0, len(m.subscribers))
	for _, s := range m.subscribers {
		subs = append(subs, s)
	}
	m.subMu.RUnlock()

	for _, s := range subs {
		select {
		case s.ch <- n:
		case <-s.gone:
		case <-m.done:
			return
		}
	}
}

// attach 授权完成后登记连接，entry 已被移除时返回 false
func (m *ConnectionManager) attach(e *entry, conn pkgif.Connection, identity string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.entries[e.endpoint] != e || e.ctx.Err() != nil {
		return false
	}
	e.conn = conn
	e.identity = identity
	m.metrics.connections.WithLabelValues(e.dir.String()).Inc()
	return true
}

// detach 连接断开后解除登记，返回 entry 是否仍然有效
func (m *ConnectionManager) detach(e *entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detachLocked(e)
	return !m.closed && m.entries[e.endpoint] == e && e.ctx.Err() == nil
}

func (m *ConnectionManager) detachLocked(e *entry) pkgif.Connection {
	conn := e.conn
	if conn != nil {
		e.conn = nil
		m.metrics.connections.WithLabelValues(e.dir.String()).Dec()
	}
	return conn
}

// forget 删除仍然有效的 entry
func (m *ConnectionManager) forget(e *entry) {
	m.mu.Lock()
	if m.entries[e.endpoint] == e {
		delete(m.entries, e.endpoint)
	}
	m.mu.Unlock()
	e.cancel()
}

// readLoop 读取授权后的帧直到连接断开
func (m *ConnectionManager) readLoop(e *entry, conn pkgif.Connection) error {
	for {
		frame, err := conn.Recv()
		if err != nil {
			return err
		}

		m.handlerMu.RLock()
		fn := m.frameHandler
		m.handlerMu.RUnlock()

		if fn == nil {
			logger.Debug("丢弃帧，未设置处理函数", "connID", log.TruncateID(e.connectionID, 8), "size", len(frame))
			continue
		}
		fn(e.connectionID, frame)
	}
}

// sleep 等待 d 或 ctx 结束，返回是否等满
func (m *ConnectionManager) sleep(ctx context.Context, d time.Duration) bool {
	timer := m.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func newConnectionID() string {
	return uuid.NewString()
}
