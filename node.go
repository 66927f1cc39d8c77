package splinter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-splinter/config"
	"github.com/dep2p/go-splinter/internal/connection"
	"github.com/dep2p/go-splinter/internal/peer"
	"github.com/dep2p/go-splinter/internal/signing"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

var logger = log.Logger("splinter")

const stopTimeout = 10 * time.Second

// ============================================================================
//                              节点状态
// ============================================================================

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateRunning 运行中
	StateRunning

	// StateStopped 已停止，不可重新启动
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Node
// ============================================================================

// Node Splinter 节点
type Node struct {
	mu    sync.Mutex
	state NodeState

	app    *fx.App
	peerID string
	signer signing.Signer

	// 由 Fx 注入
	peers       pkgif.PeerManagerConnector
	peerManager *peer.PeerManager
	connections *connection.ConnectionManager
	sender      pkgif.MessageSender
}

// New 按配置创建节点，不会启动任何组件
//
// cfg 为 nil 时使用 config.DefaultConfig()。必须通过 WithHub 或
// WithTransport 提供传输层。
func New(cfg *config.Config, opts ...Option) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.transport == nil {
		return nil, ErrNoTransport
	}

	signer := o.signer
	if signer == nil {
		var err error
		if signer, err = cfg.Authorization.Signer(); err != nil {
			return nil, err
		}
	}

	node := &Node{
		state:  StateIdle,
		signer: signer,
		peerID: localPeerID(cfg.Authorization, signer),
	}

	app, err := buildFxApp(cfg, o, signer, node)
	if err != nil {
		return nil, fmt.Errorf("build node: %w", err)
	}
	node.app = app

	logger.Debug("节点已创建", "peerID", log.TruncateID(node.peerID, 24))
	return node, nil
}

// localPeerID 对端看到的本端身份
//
// 接受挑战方案时由签名公钥派生，否则为信任方案声明的身份。
func localPeerID(cfg config.AuthorizationConfig, signer signing.Signer) string {
	for _, t := range cfg.AcceptedTypes {
		if t == config.SchemeChallenge {
			return signing.PeerIDFromPublicKey(signer.PublicKey())
		}
	}
	return cfg.TrustIdentity
}

// Start 启动节点
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrNodeClosed
	}

	if err := n.app.Start(ctx); err != nil {
		logger.Error("节点启动失败", "err", err)
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = n.app.Stop(stopCtx)
		n.state = StateStopped
		return fmt.Errorf("start failed: %w", err)
	}

	n.state = StateRunning
	logger.Info("节点已启动", "peerID", log.TruncateID(n.peerID, 24))
	return nil
}

// Stop 停止节点，所有组件按启动的逆序关闭
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.state {
	case StateIdle:
		return ErrNotStarted
	case StateStopped:
		return nil
	}

	n.state = StateStopped
	if err := n.app.Stop(ctx); err != nil {
		logger.Warn("节点停止时出错", "err", err)
		return err
	}
	logger.Info("节点已停止")
	return nil
}

// State 返回当前状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// PeerID 返回本端身份
func (n *Node) PeerID() string { return n.peerID }

// PublicKey 返回签名公钥
func (n *Node) PublicKey() []byte { return n.signer.PublicKey() }

// Peers 返回节点管理器的连接器
func (n *Node) Peers() pkgif.PeerManagerConnector { return n.peers }

// Sender 返回按连接 ID 发送帧的发送器
func (n *Node) Sender() pkgif.MessageSender { return n.sender }

// Listen 在额外的端点上监听
func (n *Node) Listen(endpoint string) error {
	if n.State() != StateRunning {
		return ErrNotStarted
	}
	return n.connections.Listen(endpoint)
}

// SetFrameHandler 设置授权完成后收到的应用帧的处理函数
func (n *Node) SetFrameHandler(h connection.FrameHandler) {
	n.connections.SetFrameHandler(h)
}

// Peer 返回节点元数据
func (n *Node) Peer(peerID string) (peer.PeerMetadata, bool, error) {
	return n.peerManager.Connector().Peer(peerID)
}
