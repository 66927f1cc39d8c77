package authorization

import (
	"context"

	"go.uber.org/fx"
)

// ============================================================================
//
//	Fx 模块定义
//
// ============================================================================

// Module 授权 Fx 模块
var Module = fx.Module("authorization",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 授权模块依赖参数
type Params struct {
	fx.In

	Config *Config `optional:"true"`
}

// Result 授权模块导出结果
type Result struct {
	fx.Out

	Connector *AuthorizationConnector
}

// NewFromParams 从 Fx 参数创建授权连接器
func NewFromParams(p Params) (Result, error) {
	c, err := NewAuthorizationConnector(p.Config)
	if err != nil {
		return Result{}, err
	}
	return Result{Connector: c}, nil
}

// registerLifecycle 注册生命周期
func registerLifecycle(lc fx.Lifecycle, c *AuthorizationConnector) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return c.Close()
		},
	})
}
