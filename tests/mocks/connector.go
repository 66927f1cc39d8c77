package mocks

import (
	"errors"
	"sync"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// ErrNoSubscriber Notify 时尚无订阅者
var ErrNoSubscriber = errors.New("mocks: no subscriber")

// ConnectionRequest RequestConnection 调用记录
type ConnectionRequest struct {
	Endpoint     string
	ConnectionID string
}

// MockConnector 模拟 pkgif.Connector
//
// 默认接受所有拨号请求；通过 XxxFunc 字段注入自定义行为。
// Notify 把通知投递给所有订阅者，用于驱动被测组件。
type MockConnector struct {
	mu sync.Mutex

	// 可覆盖的方法
	RequestConnectionFunc func(endpoint, connectionID string) error
	RemoveConnectionFunc  func(endpoint, connectionID string) (bool, error)

	// 调用记录
	RequestCalls []ConnectionRequest
	RemoveCalls  []ConnectionRequest

	subscribers map[pkgif.SubscriberID]chan<- pkgif.ConnectionNotification
	nextID      pkgif.SubscriberID
}

// 确保实现 pkgif.Connector 接口
var _ pkgif.Connector = (*MockConnector)(nil)

// NewMockConnector 创建 MockConnector
func NewMockConnector() *MockConnector {
	return &MockConnector{
		subscribers: make(map[pkgif.SubscriberID]chan<- pkgif.ConnectionNotification),
	}
}

// RequestConnection 记录拨号请求
func (m *MockConnector) RequestConnection(endpoint, connectionID string) error {
	m.mu.Lock()
	m.RequestCalls = append(m.RequestCalls, ConnectionRequest{Endpoint: endpoint, ConnectionID: connectionID})
	fn := m.RequestConnectionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(endpoint, connectionID)
	}
	return nil
}

// RemoveConnection 记录断开请求
func (m *MockConnector) RemoveConnection(endpoint, connectionID string) (bool, error) {
	m.mu.Lock()
	m.RemoveCalls = append(m.RemoveCalls, ConnectionRequest{Endpoint: endpoint, ConnectionID: connectionID})
	fn := m.RemoveConnectionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(endpoint, connectionID)
	}
	return true, nil
}

// Subscribe 注册通知通道
func (m *MockConnector) Subscribe(ch chan<- pkgif.ConnectionNotification) (pkgif.SubscriberID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.subscribers[m.nextID] = ch
	return m.nextID, nil
}

// Unsubscribe 注销通知通道
func (m *MockConnector) Unsubscribe(id pkgif.SubscriberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, id)
	return nil
}

// Notify 向所有订阅者投递通知
func (m *MockConnector) Notify(n pkgif.ConnectionNotification) error {
	m.mu.Lock()
	subs := make([]chan<- pkgif.ConnectionNotification, 0, len(m.subscribers))
	for _, ch := range m.subscribers {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	if len(subs) == 0 {
		return ErrNoSubscriber
	}
	for _, ch := range subs {
		ch <- n
	}
	return nil
}

// Requests 返回拨号请求记录的副本
func (m *MockConnector) Requests() []ConnectionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConnectionRequest(nil), m.RequestCalls...)
}

// Removals 返回断开请求记录的副本
func (m *MockConnector) Removals() []ConnectionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConnectionRequest(nil), m.RemoveCalls...)
}

// SubscriberCount 返回当前订阅者数量
func (m *MockConnector) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}
