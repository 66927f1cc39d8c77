package peer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

var logger = log.Logger("peer")

// notificationBuffer 连接管理器通知通道的缓冲大小
const notificationBuffer = 64

// ============================================================================
//                              PeerManager
// ============================================================================

// PeerManager 节点管理器
//
// 状态只在 run goroutine 中读写；其他 goroutine 通过邮箱发送消息。
// 关闭分两步：SignalShutdown 通知退出，WaitForShutdown 等待全部 goroutine 结束。
type PeerManager struct {
	cfg       *Config
	connector pkgif.Connector
	clock     clock.Clock
	metrics   *metrics

	// 应答通道均带一个缓冲，actor 发送应答不会阻塞
	mailbox       chan message
	notifications chan pkgif.ConnectionNotification
	subscriberID  pkgif.SubscriberID

	started      atomic.Bool
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	wg           sync.WaitGroup

	errMu sync.Mutex
	errs  error

	// 以下字段只由 run goroutine 访问
	peers        *PeerMap
	refs         *RefMap
	unreferenced map[string]unreferencedPeer
	notifier     *notifier
}

// NewPeerManager 创建节点管理器
func NewPeerManager(connector pkgif.Connector, cfg *Config) (*PeerManager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := newMetrics(cfg.Registerer)
	return &PeerManager{
		cfg:           cfg,
		connector:     connector,
		clock:         cfg.Clock,
		metrics:       m,
		mailbox:       make(chan message, cfg.MailboxSize),
		notifications: make(chan pkgif.ConnectionNotification, notificationBuffer),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		peers:         NewPeerMap(cfg.InitialRetryFrequency),
		refs:          NewRefMap(),
		unreferenced:  make(map[string]unreferencedPeer),
		notifier:      newNotifier(cfg.NotificationQueueLimit, m.droppedNotices.Inc),
	}, nil
}

// Start 订阅连接管理器通知并启动 actor 与 pacemaker
func (pm *PeerManager) Start(_ context.Context) error {
	if !pm.started.CompareAndSwap(false, true) {
		return &PeerManagerError{Op: "start", Err: ErrAlreadyStarted}
	}

	id, err := pm.connector.Subscribe(pm.notifications)
	if err != nil {
		pm.started.Store(false)
		return &PeerManagerError{Op: "start", Err: err}
	}
	pm.subscriberID = id

	pm.wg.Add(3)
	go pm.run()
	go pm.forwardNotifications()
	go pm.pacemaker()

	logger.Info("节点管理器已启动", "retryInterval", pm.cfg.RetryInterval)
	return nil
}

// Connector 返回节点管理器句柄
func (pm *PeerManager) Connector() *PeerManagerConnector {
	return &PeerManagerConnector{pm: pm}
}

// SignalShutdown 通知节点管理器退出，不等待
func (pm *PeerManager) SignalShutdown() {
	pm.shutdownOnce.Do(func() { close(pm.shutdown) })
}

// WaitForShutdown 等待节点管理器退出
func (pm *PeerManager) WaitForShutdown() error {
	if !pm.started.Load() {
		return nil
	}
	pm.wg.Wait()

	pm.errMu.Lock()
	defer pm.errMu.Unlock()
	if pm.errs != nil {
		return &PeerManagerError{Op: "shutdown", Err: pm.errs}
	}
	return nil
}

// Shutdown 通知退出并等待，ctx 到期时提前返回
func (pm *PeerManager) Shutdown(ctx context.Context) error {
	pm.SignalShutdown()

	result := make(chan error, 1)
	go func() { result <- pm.WaitForShutdown() }()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return &PeerManagerError{Op: "shutdown", Err: ctx.Err()}
	}
}

func (pm *PeerManager) recordError(err error) {
	pm.errMu.Lock()
	pm.errs = multierr.Append(pm.errs, err)
	pm.errMu.Unlock()
}

// ============================================================================
//                              goroutines
// ============================================================================

// run actor 主循环
func (pm *PeerManager) run() {
	defer pm.wg.Done()
	defer close(pm.done)
	defer pm.notifier.closeAll()

	for {
		select {
		case <-pm.shutdown:
			if err := pm.connector.Unsubscribe(pm.subscriberID); err != nil {
				logger.Warn("取消连接通知订阅失败", "err", err)
				pm.recordError(err)
			}
			logger.Info("节点管理器已退出")
			return
		case msg := <-pm.mailbox:
			pm.handle(msg)
		}
	}
}

// forwardNotifications 把连接管理器通知转入邮箱，保持到达顺序
func (pm *PeerManager) forwardNotifications() {
	defer pm.wg.Done()

	for {
		select {
		case n := <-pm.notifications:
			select {
			case pm.mailbox <- connectorNotification{notification: n}:
			case <-pm.shutdown:
				return
			}
		case <-pm.shutdown:
			return
		}
	}
}

// pacemaker 周期性触发重试扫描
func (pm *PeerManager) pacemaker() {
	defer pm.wg.Done()

	ticker := pm.clock.Ticker(pm.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case pm.mailbox <- retryPending{}:
			case <-pm.shutdown:
				return
			}
		case <-pm.shutdown:
			return
		}
	}
}

// send 投递消息到邮箱
func (pm *PeerManager) send(msg message) error {
	if !pm.started.Load() {
		return ErrNotStarted
	}
	select {
	case <-pm.done:
		return ErrShutdown
	default:
	}

	select {
	case pm.mailbox <- msg:
		return nil
	case <-pm.done:
		return ErrShutdown
	}
}

// ============================================================================
//                              消息分发
// ============================================================================

// handle 处理一条邮箱消息
func (pm *PeerManager) handle(msg message) {
	switch m := msg.(type) {
	case addPeerRequest:
		m.reply <- pm.addPeer(m.peerID, m.endpoints)
	case addUnidentifiedRequest:
		m.reply <- pm.addUnidentified(m.endpoint)
	case removePeerRequest:
		m.reply <- pm.removePeer(m.peerID)
	case listPeersRequest:
		m.reply <- pm.peers.PeerIDs()
	case listUnreferencedRequest:
		m.reply <- pm.unreferencedIDs()
	case connectionIDsRequest:
		m.reply <- pm.connectionIDs()
	case getConnectionIDRequest:
		m.reply <- pm.lookupConnectionID(m.peerID)
	case getPeerIDRequest:
		m.reply <- pm.lookupPeerID(m.connectionID)
	case peerMetadataRequest:
		meta, ok := pm.peers.Get(m.peerID)
		m.reply <- metadataResult{meta: meta, found: ok}
	case subscribeRequest:
		id, q := pm.notifier.subscribe()
		m.reply <- &NotificationIter{id: id, queue: q, pm: pm}
	case unsubscribeRequest:
		pm.notifier.unsubscribe(m.id)
		m.reply <- nil
	case connectorNotification:
		pm.handleNotification(m.notification)
	case retryPending:
		pm.retryPending()
	default:
		logger.Warn("未知的邮箱消息", "type", fmt.Sprintf("%T", msg))
	}
	pm.metrics.observe(pm.peers, len(pm.unreferenced))
}
