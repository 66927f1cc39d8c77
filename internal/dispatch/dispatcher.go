package dispatch

import (
	"errors"
	"sync"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

var logger = log.Logger("dispatch")

// MessageType 消息类型标识
type MessageType int32

// ============================================================================
//                              MessageContext
// ============================================================================

// MessageContext 单条消息的上下文
type MessageContext struct {
	sourceID    string
	messageType MessageType
	payload     []byte
}

// NewMessageContext 创建消息上下文
func NewMessageContext(sourceID string, messageType MessageType, payload []byte) *MessageContext {
	return &MessageContext{
		sourceID:    sourceID,
		messageType: messageType,
		payload:     payload,
	}
}

// SourceID 返回来源连接 ID
func (c *MessageContext) SourceID() string { return c.sourceID }

// MessageType 返回消息类型
func (c *MessageContext) MessageType() MessageType { return c.messageType }

// Payload 返回原始负载
func (c *MessageContext) Payload() []byte { return c.payload }

// ============================================================================
//                              Handler
// ============================================================================

// Handler 消息处理器
type Handler interface {
	// MatchType 返回处理器负责的消息类型
	MatchType() MessageType

	// Handle 处理消息，回复通过 sender 发出
	Handle(payload []byte, mctx *MessageContext, sender pkgif.MessageSender) error
}

// HandlerFunc 以函数形式实现 Handler
type HandlerFunc struct {
	Type MessageType
	Fn   func(payload []byte, mctx *MessageContext, sender pkgif.MessageSender) error
}

// MatchType 实现 Handler
func (h HandlerFunc) MatchType() MessageType { return h.Type }

// Handle 实现 Handler
func (h HandlerFunc) Handle(payload []byte, mctx *MessageContext, sender pkgif.MessageSender) error {
	return h.Fn(payload, mctx, sender)
}

// ============================================================================
//                              Dispatcher
// ============================================================================

// Dispatcher 消息分发器
//
// 注册处理器与分发可以并发进行；同一连接的消息顺序由调用方保证。
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[MessageType]Handler
	fallback Handler

	sender pkgif.MessageSender
}

// NewDispatcher 创建分发器
func NewDispatcher(sender pkgif.MessageSender) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[MessageType]Handler),
		sender:   sender,
	}
}

// SetHandler 注册处理器，同类型的旧处理器会被替换
func (d *Dispatcher) SetHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.MatchType()] = h
}

// SetFallbackHandler 设置未匹配消息的兜底处理器
func (d *Dispatcher) SetFallbackHandler(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallback = h
}

// HasHandler 判断是否注册了某类型的处理器
func (d *Dispatcher) HasHandler(mt MessageType) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[mt]
	return ok
}

// Dispatch 分发一条消息
func (d *Dispatcher) Dispatch(sourceID string, mt MessageType, payload []byte) error {
	d.mu.RLock()
	h, ok := d.handlers[mt]
	if !ok {
		h = d.fallback
	}
	d.mu.RUnlock()

	if h == nil {
		return &DispatchError{Kind: KindUnknownMessageType, MessageType: mt, Err: ErrNoHandler}
	}

	mctx := NewMessageContext(sourceID, mt, payload)
	if err := h.Handle(payload, mctx, d.sender); err != nil {
		var de *DispatchError
		if errors.As(err, &de) {
			if de.MessageType == 0 {
				de.MessageType = mt
			}
			return de
		}
		return &DispatchError{Kind: KindHandler, MessageType: mt, Err: err}
	}

	logger.Debug("消息已处理", "source", log.TruncateID(sourceID, 8), "type", mt)
	return nil
}
