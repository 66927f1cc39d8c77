package connection

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-splinter/internal/authorization"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// ============================================================================
//
//	Fx 模块定义
//
// ============================================================================

// Module 连接管理 Fx 模块
var Module = fx.Module("connection",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 连接管理模块依赖参数
type Params struct {
	fx.In

	Transport  pkgif.Transport
	Authorizer *authorization.AuthorizationConnector
	Config     *Config `optional:"true"`
}

// Result 连接管理模块导出结果
type Result struct {
	fx.Out

	Manager   *ConnectionManager
	Connector pkgif.Connector
	Sender    pkgif.MessageSender
}

// NewFromParams 从 Fx 参数创建连接管理器
func NewFromParams(p Params) (Result, error) {
	m, err := NewConnectionManager(p.Transport, p.Authorizer, p.Config)
	if err != nil {
		return Result{}, err
	}
	return Result{Manager: m, Connector: m, Sender: m}, nil
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, m *ConnectionManager) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			for _, ep := range m.cfg.ListenEndpoints {
				if err := m.Listen(ep); err != nil {
					return err
				}
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			return m.Close()
		},
	})
}
