package connection

import (
	"context"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

// Listen 在端点上监听入站连接
func (m *ConnectionManager) Listen(endpoint string) error {
	if endpoint == "" {
		return ErrEmptyEndpoint
	}

	l, err := m.transport.Listen(endpoint)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = l.Close()
		return ErrClosed
	}
	m.listeners = append(m.listeners, l)
	m.wg.Add(1)
	m.mu.Unlock()

	logger.Info("开始监听", "endpoint", l.Endpoint())
	go m.acceptLoop(l)
	return nil
}

// acceptLoop 接受连接循环
func (m *ConnectionManager) acceptLoop(l pkgif.Listener) {
	defer m.wg.Done()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-m.done:
			default:
				logger.Warn("监听器退出", "endpoint", l.Endpoint(), "err", err)
			}
			return
		}

		m.wg.Add(1)
		go m.acceptConn(conn)
	}
}

// acceptConn 完成入站握手并保持连接，入站连接断开后不重连
func (m *ConnectionManager) acceptConn(conn pkgif.Connection) {
	defer m.wg.Done()

	ctx, cancel := context.WithCancel(m.ctx)
	outcome, err := m.authorizer.Authorize(ctx, newConnectionID(), conn, false)
	if err != nil {
		cancel()
		_ = conn.Close()
		m.metrics.handshakes.WithLabelValues(inbound.String(), "failed").Inc()
		logger.Warn("入站连接授权失败", "endpoint", conn.RemoteEndpoint(), "err", err)
		return
	}
	m.metrics.handshakes.WithLabelValues(inbound.String(), "ok").Inc()

	e := &entry{
		endpoint:     conn.RemoteEndpoint(),
		connectionID: newConnectionID(),
		dir:          inbound,
		ctx:          ctx,
		cancel:       cancel,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		_ = conn.Close()
		return
	}
	if old, ok := m.entries[e.endpoint]; ok {
		// 同一端点的新连接取代旧连接
		delete(m.entries, e.endpoint)
		if stale := m.detachLocked(old); stale != nil {
			_ = stale.Close()
		}
		old.cancel()
	}
	m.entries[e.endpoint] = e
	m.mu.Unlock()

	identity := outcome.Identity.PeerID()
	if !m.attach(e, conn, identity) {
		_ = conn.Close()
		return
	}

	logger.Info("入站连接已授权",
		"endpoint", e.endpoint,
		"identity", log.TruncateID(identity, 16),
		"connID", log.TruncateID(e.connectionID, 8))
	m.notify(pkgif.ConnectionNotification{
		Kind:         pkgif.NotifyInboundConnection,
		Endpoint:     e.endpoint,
		ConnectionID: e.connectionID,
		Identity:     identity,
	})

	readErr := m.readLoop(e, conn)
	if m.detach(e) {
		logger.Info("入站连接断开", "endpoint", e.endpoint, "err", readErr)
		m.notify(pkgif.ConnectionNotification{Kind: pkgif.NotifyDisconnected, Endpoint: e.endpoint})
	}
	m.forget(e)
}
