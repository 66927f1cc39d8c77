package authorization

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dep2p/go-splinter/internal/authorization/protocol"
	"github.com/dep2p/go-splinter/internal/dispatch"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

// ============================================================================
//                              连接路由发送器
// ============================================================================

// connectionSender 按连接 ID 把消息路由到对应连接
type connectionSender struct {
	mu    sync.RWMutex
	conns map[string]pkgif.Connection
}

func newConnectionSender() *connectionSender {
	return &connectionSender{conns: make(map[string]pkgif.Connection)}
}

// Send 实现 pkgif.MessageSender
func (s *connectionSender) Send(recipient string, payload []byte) error {
	s.mu.RLock()
	conn, ok := s.conns[recipient]
	s.mu.RUnlock()
	if !ok {
		return &pkgif.SendError{Recipient: recipient, Payload: payload, Err: ErrUnknownConnection}
	}
	if err := conn.Send(payload); err != nil {
		return &pkgif.SendError{Recipient: recipient, Payload: payload, Err: err}
	}
	return nil
}

func (s *connectionSender) add(connectionID string, conn pkgif.Connection) {
	s.mu.Lock()
	s.conns[connectionID] = conn
	s.mu.Unlock()
}

func (s *connectionSender) remove(connectionID string) {
	s.mu.Lock()
	delete(s.conns, connectionID)
	s.mu.Unlock()
}

// ============================================================================
//                              AuthorizationConnector
// ============================================================================

// AuthorizationConnector 在单条连接上运行授权握手
//
// 握手期间独占连接的读取；握手结束后连接交还调用方。
type AuthorizationConnector struct {
	cfg        *Config
	manager    *AuthorizationManager
	dispatcher *dispatch.Dispatcher
	sender     *connectionSender
	base       *handlerBase

	mu     sync.Mutex
	closed bool
}

// NewAuthorizationConnector 创建授权连接器
func NewAuthorizationConnector(cfg *Config) (*AuthorizationConnector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	manager := NewAuthorizationManager(newMetrics(cfg.Registerer))
	sender := newConnectionSender()
	dispatcher := dispatch.NewDispatcher(sender)
	RegisterHandlers(dispatcher, manager, cfg)

	return &AuthorizationConnector{
		cfg:        cfg,
		manager:    manager,
		dispatcher: dispatcher,
		sender:     sender,
		base:       &handlerBase{manager: manager, cfg: cfg, metrics: manager.metrics},
	}, nil
}

// Manager 返回底层授权管理器
func (c *AuthorizationConnector) Manager() *AuthorizationManager {
	return c.manager
}

// Authorize 在 conn 上运行握手直到得出结果
//
// initiator 为 true 时本端先发送 AuthProtocolRequest；另一端收到后会发起自己的一侧。
// ctx 取消时连接会被关闭以中断阻塞的读取。握手失败返回 ErrUnauthorized。
func (c *AuthorizationConnector) Authorize(ctx context.Context, connectionID string, conn pkgif.Connection, initiator bool) (Outcome, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return Outcome{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return Outcome{}, err
	}

	done := make(chan Outcome, 1)
	c.sender.add(connectionID, conn)
	defer c.sender.remove(connectionID)
	defer c.manager.Remove(connectionID)

	c.manager.Register(connectionID, func(o Outcome) { done <- o })

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if initiator {
		if err := c.base.startInitiating(c.sender, connectionID); err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			return Outcome{}, fmt.Errorf("authorization: start handshake: %w", err)
		}
	}

	for {
		select {
		case o := <-done:
			return c.finish(o)
		default:
		}

		frame, err := conn.Recv()
		if err != nil {
			select {
			case o := <-done:
				return c.finish(o)
			default:
			}
			if ctx.Err() != nil {
				return Outcome{}, ctx.Err()
			}
			return Outcome{}, fmt.Errorf("authorization: receive: %w", err)
		}

		mt, payload, err := protocol.DecodeEnvelope(frame)
		if err != nil {
			logger.Warn("无法解析消息信封", "connID", log.TruncateID(connectionID, 8), "err", err)
			if err := c.base.reject(c.sender, connectionID, 0, "Unable to parse message"); err != nil {
				return Outcome{}, err
			}
			continue
		}

		if err := c.dispatcher.Dispatch(connectionID, mt, payload); err != nil {
			var de *dispatch.DispatchError
			if errors.As(err, &de) && de.Kind == dispatch.KindNetworkSend {
				return Outcome{}, err
			}
			logger.Warn("处理授权消息失败",
				"connID", log.TruncateID(connectionID, 8),
				"messageType", protocol.TypeName(mt),
				"err", err)
			if errors.As(err, &de) && de.Kind == dispatch.KindUnknownMessageType {
				if err := c.base.reject(c.sender, connectionID, mt, "Unexpected message type"); err != nil {
					return Outcome{}, err
				}
			}
		}
	}
}

func (c *AuthorizationConnector) finish(o Outcome) (Outcome, error) {
	if !o.Authorized {
		return o, ErrUnauthorized
	}
	logger.Debug("连接授权完成",
		"connID", log.TruncateID(o.ConnectionID, 8),
		"identity", o.Identity,
		"local", o.LocalIdentity)
	return o, nil
}

// Close 关闭连接器，之后的 Authorize 调用返回 ErrClosed
func (c *AuthorizationConnector) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
