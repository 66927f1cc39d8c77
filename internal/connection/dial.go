package connection

import (
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

// dialLoop 拨号、握手并保持出站连接
//
// 失败时按退避间隔重试，连接断开后重置计数重新拨号，直到 entry 被移除、
// 管理器关闭或重试次数耗尽。
func (m *ConnectionManager) dialLoop(e *entry) {
	defer m.wg.Done()

	backoff := m.cfg.ReconnectBackoff
	var attempts uint64

	for {
		conn, identity, err := m.connectOutbound(e)
		if err == nil {
			attempts = 0
			backoff = m.cfg.ReconnectBackoff

			m.notify(pkgif.ConnectionNotification{
				Kind:         pkgif.NotifyConnected,
				Endpoint:     e.endpoint,
				ConnectionID: e.connectionID,
				Identity:     identity,
			})

			readErr := m.readLoop(e, conn)
			if !m.detach(e) {
				return
			}
			logger.Info("出站连接断开，准备重连", "endpoint", e.endpoint, "err", readErr)
			m.notify(pkgif.ConnectionNotification{Kind: pkgif.NotifyDisconnected, Endpoint: e.endpoint})
			continue
		}

		if e.ctx.Err() != nil {
			return
		}

		attempts++
		if attempts > m.cfg.MaxRetryAttempts {
			logger.Warn("放弃连接端点", "endpoint", e.endpoint, "attempts", attempts-1, "err", err)
			m.forget(e)
			m.notify(pkgif.ConnectionNotification{
				Kind:     pkgif.NotifyFatalConnectionError,
				Endpoint: e.endpoint,
				Err:      &RetryExhaustedError{Endpoint: e.endpoint, Attempts: attempts - 1, Err: err},
			})
			return
		}

		logger.Debug("连接失败，稍后重试",
			"endpoint", e.endpoint,
			"attempts", attempts,
			"backoff", backoff,
			"err", err)
		m.notify(pkgif.ConnectionNotification{
			Kind:     pkgif.NotifyNonFatalConnectionError,
			Endpoint: e.endpoint,
			Attempts: attempts,
		})

		if !m.sleep(e.ctx, backoff) {
			return
		}
		backoff = m.cfg.nextBackoff(backoff)
	}
}

// connectOutbound 拨号并完成握手，返回已登记的连接和对端身份
func (m *ConnectionManager) connectOutbound(e *entry) (pkgif.Connection, string, error) {
	conn, err := m.transport.Dial(e.ctx, e.endpoint)
	if err != nil {
		m.metrics.dials.WithLabelValues("error").Inc()
		return nil, "", err
	}
	m.metrics.dials.WithLabelValues("ok").Inc()

	outcome, err := m.authorizer.Authorize(e.ctx, newConnectionID(), conn, true)
	if err != nil {
		_ = conn.Close()
		m.metrics.handshakes.WithLabelValues(outbound.String(), "failed").Inc()
		return nil, "", &HandshakeError{Endpoint: e.endpoint, Err: err}
	}
	m.metrics.handshakes.WithLabelValues(outbound.String(), "ok").Inc()

	identity := outcome.Identity.PeerID()
	if !m.attach(e, conn, identity) {
		_ = conn.Close()
		return nil, "", ErrClosed
	}

	logger.Info("出站连接已授权",
		"endpoint", e.endpoint,
		"identity", log.TruncateID(identity, 16),
		"connID", log.TruncateID(e.connectionID, 8))
	return conn, identity, nil
}
