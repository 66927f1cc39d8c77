package peer

import (
	"context"
	"sync"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// ============================================================================
//                              订阅者队列
// ============================================================================

// notificationQueue 有界通知队列，满时丢弃最旧的通知
type notificationQueue struct {
	mu      sync.Mutex
	items   []pkgif.PeerNotification
	limit   int
	dropped uint64

	signal    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newNotificationQueue(limit int) *notificationQueue {
	return &notificationQueue{
		limit:  limit,
		signal: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// push 追加通知，返回是否丢弃了旧通知
func (q *notificationQueue) push(n pkgif.PeerNotification) bool {
	q.mu.Lock()
	dropped := false
	q.items = append(q.items, n)
	if len(q.items) > q.limit {
		q.items = q.items[len(q.items)-q.limit:]
		q.dropped++
		dropped = true
	}
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return dropped
}

// drain 取出全部通知
func (q *notificationQueue) drain() []pkgif.PeerNotification {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *notificationQueue) pop() (pkgif.PeerNotification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return pkgif.PeerNotification{}, false
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n, true
}

// next 阻塞等待下一条通知；队列关闭后仍可读出剩余通知
func (q *notificationQueue) next(ctx context.Context) (pkgif.PeerNotification, error) {
	for {
		if n, ok := q.pop(); ok {
			return n, nil
		}

		select {
		case <-q.signal:
		case <-q.closed:
			if n, ok := q.pop(); ok {
				return n, nil
			}
			return pkgif.PeerNotification{}, ErrIterClosed
		case <-ctx.Done():
			return pkgif.PeerNotification{}, ctx.Err()
		}
	}
}

func (q *notificationQueue) close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// ============================================================================
//                              notifier
// ============================================================================

// notifier 节点通知广播
//
// 没有订阅者时通知暂存在 pending 中（有界，丢弃最旧），第一个订阅者
// 会收到这些暂存通知，之后的订阅者只收到订阅之后的通知。
// 只在 actor goroutine 中调用。
type notifier struct {
	limit       int
	pending     *notificationQueue
	subscribers map[uint64]*notificationQueue
	nextID      uint64

	onDrop func()
}

func newNotifier(limit int, onDrop func()) *notifier {
	return &notifier{
		limit:       limit,
		pending:     newNotificationQueue(limit),
		subscribers: make(map[uint64]*notificationQueue),
		onDrop:      onDrop,
	}
}

// broadcast 发送通知给所有订阅者
func (n *notifier) broadcast(notification pkgif.PeerNotification) {
	if len(n.subscribers) == 0 {
		if n.pending.push(notification) && n.onDrop != nil {
			n.onDrop()
		}
		return
	}
	for _, q := range n.subscribers {
		if q.push(notification) && n.onDrop != nil {
			n.onDrop()
		}
	}
}

// subscribe 新增订阅者
func (n *notifier) subscribe() (uint64, *notificationQueue) {
	n.nextID++
	q := newNotificationQueue(n.limit)
	for _, pending := range n.pending.drain() {
		q.push(pending)
	}
	n.subscribers[n.nextID] = q
	return n.nextID, q
}

// unsubscribe 移除订阅者并关闭其队列
func (n *notifier) unsubscribe(id uint64) bool {
	q, ok := n.subscribers[id]
	if !ok {
		return false
	}
	delete(n.subscribers, id)
	q.close()
	return true
}

// closeAll 关闭全部订阅者
func (n *notifier) closeAll() {
	for id, q := range n.subscribers {
		q.close()
		delete(n.subscribers, id)
	}
}

// ============================================================================
//                              NotificationIter
// ============================================================================

// NotificationIter 节点通知迭代器
type NotificationIter struct {
	id    uint64
	queue *notificationQueue
	pm    *PeerManager

	closeOnce sync.Once
}

// 确保实现 pkgif.PeerNotificationIter 接口
var _ pkgif.PeerNotificationIter = (*NotificationIter)(nil)

// Next 阻塞等待下一条通知
func (it *NotificationIter) Next(ctx context.Context) (pkgif.PeerNotification, error) {
	return it.queue.next(ctx)
}

// Close 取消订阅，节点管理器已关闭时同样返回 nil
func (it *NotificationIter) Close() error {
	var err error
	it.closeOnce.Do(func() {
		err = it.pm.unsubscribe(it.id)
		it.queue.close()
	})
	return err
}
