package peer

import (
	"context"

	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// ============================================================================
//
//	Fx 模块定义
//
// ============================================================================

// Module 节点管理 Fx 模块
var Module = fx.Module("peer",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 节点管理模块依赖参数
type Params struct {
	fx.In

	Connector pkgif.Connector
	Config    *Config `optional:"true"`
}

// Result 节点管理模块导出结果
type Result struct {
	fx.Out

	Manager       *PeerManager
	PeerConnector pkgif.PeerManagerConnector
}

// NewFromParams 从 Fx 参数创建节点管理器
func NewFromParams(p Params) (Result, error) {
	pm, err := NewPeerManager(p.Connector, p.Config)
	if err != nil {
		return Result{}, err
	}
	return Result{Manager: pm, PeerConnector: pm.Connector()}, nil
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, pm *PeerManager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return pm.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return pm.Shutdown(ctx)
		},
	})
}
