package splinter

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-splinter/internal/connection/memory"
	"github.com/dep2p/go-splinter/internal/signing"
	pkgif "github.com/dep2p/go-splinter/pkg/interfaces"
)

// Option 节点选项
type Option func(*options) error

type options struct {
	transport  pkgif.Transport
	signer     signing.Signer
	clock      clock.Clock
	registerer prometheus.Registerer
	fxOptions  []fx.Option
}

// WithTransport 指定传输层
func WithTransport(t pkgif.Transport) Option {
	return func(o *options) error {
		o.transport = t
		return nil
	}
}

// WithHub 使用进程内传输，同一 Hub 上的节点互相可达
func WithHub(hub *memory.Hub) Option {
	return func(o *options) error {
		o.transport = memory.NewTransport(hub)
		return nil
	}
}

// WithSigner 使用给定签名者，覆盖配置中的私钥
func WithSigner(s signing.Signer) Option {
	return func(o *options) error {
		o.signer = s
		return nil
	}
}

// WithClock 替换连接管理与节点管理使用的时钟
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithRegisterer 注册 Prometheus 指标
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
