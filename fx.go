package splinter

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dep2p/go-splinter/config"
	"github.com/dep2p/go-splinter/internal/authorization"
	"github.com/dep2p/go-splinter/internal/connection"
	"github.com/dep2p/go-splinter/internal/peer"
	"github.com/dep2p/go-splinter/internal/signing"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
	"github.com/dep2p/go-splinter/pkg/lib/log"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 组件配置：由 config.Config 转换后 Supply
//  2. authorization.Module → connection.Module → peer.Module
//  3. 用户扩展 Fx 选项
//  4. Node 组件注入与已知节点引用
func buildFxApp(cfg *config.Config, o *options, signer signing.Signer, node *Node) (*fx.App, error) {
	authCfg, err := cfg.Authorization.Build(signer, o.registerer)
	if err != nil {
		return nil, fmt.Errorf("authorization config: %w", err)
	}

	connCfg := cfg.Connection.Build(o.registerer)
	peerCfg := cfg.Peer.Build(o.registerer)
	if o.clock != nil {
		connCfg.Clock = o.clock
		peerCfg.Clock = o.clock
	}

	modules := []fx.Option{
		fx.Supply(authCfg, connCfg, peerCfg),
		fx.Provide(func() pkgif.Transport { return o.transport }),

		authorization.Module,
		connection.Module,
		peer.Module,
	}

	if len(o.fxOptions) > 0 {
		modules = append(modules, o.fxOptions...)
	}

	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	if len(cfg.KnownPeers) > 0 {
		modules = append(modules, fx.Invoke(wireKnownPeers(cfg.KnownPeers)))
	}

	// 禁用 Fx 日志输出
	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}))

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// ============================================================================
//                              组件注入
// ============================================================================

type nodeInjectParams struct {
	fx.In

	Peers       pkgif.PeerManagerConnector
	PeerManager *peer.PeerManager
	Connections *connection.ConnectionManager
	Sender      pkgif.MessageSender
}

func injectNodeComponents(node *Node) func(nodeInjectParams) {
	return func(p nodeInjectParams) {
		node.peers = p.Peers
		node.peerManager = p.PeerManager
		node.connections = p.Connections
		node.sender = p.Sender
	}
}

var knownPeersLogger = log.Logger("splinter/known-peers")

// wireKnownPeers 启动时引用配置中的已知节点，停止时释放
func wireKnownPeers(known []config.KnownPeer) func(fx.Lifecycle, pkgif.PeerManagerConnector) {
	return func(lc fx.Lifecycle, peers pkgif.PeerManagerConnector) {
		var refs []pkgif.PeerRef

		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				for _, kp := range known {
					ref, err := peers.AddPeerRef(kp.PeerID, kp.Endpoints)
					if err != nil {
						knownPeersLogger.Warn("引用已知节点失败",
							"peerID", log.TruncateID(kp.PeerID, 16),
							"err", err)
						continue
					}
					refs = append(refs, ref)
				}
				knownPeersLogger.Info("已引用已知节点", "count", len(refs))
				return nil
			},
			OnStop: func(_ context.Context) error {
				var errs error
				for _, ref := range refs {
					errs = multierr.Append(errs, ref.Release())
				}
				refs = nil
				return errs
			},
		})
	}
}
