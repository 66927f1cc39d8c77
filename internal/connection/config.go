package connection

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// 默认值
const (
	// DefaultMaxRetryAttempts 放弃端点前的最大连续失败次数
	DefaultMaxRetryAttempts uint64 = 10

	// DefaultReconnectBackoff 首次重试的等待时间
	DefaultReconnectBackoff = time.Second

	// DefaultMaxReconnectBackoff 重试等待时间上限
	DefaultMaxReconnectBackoff = 60 * time.Second
)

// Config 连接管理器配置
type Config struct {
	// ListenEndpoints 启动时监听的端点
	ListenEndpoints []string

	// MaxRetryAttempts 连续失败超过该次数后发出 FatalConnectionError
	MaxRetryAttempts uint64

	// ReconnectBackoff 首次重试等待时间，之后每次翻倍
	ReconnectBackoff time.Duration

	// MaxReconnectBackoff 重试等待时间上限
	MaxReconnectBackoff time.Duration

	// Clock 时钟，测试中可替换为 clock.NewMock()
	Clock clock.Clock

	// Registerer 指标注册器，为 nil 时不注册
	Registerer prometheus.Registerer
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxRetryAttempts:    DefaultMaxRetryAttempts,
		ReconnectBackoff:    DefaultReconnectBackoff,
		MaxReconnectBackoff: DefaultMaxReconnectBackoff,
		Clock:               clock.New(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.MaxRetryAttempts == 0 {
		return fmt.Errorf("%w: MaxRetryAttempts must be positive", ErrInvalidConfig)
	}
	if c.ReconnectBackoff <= 0 {
		return fmt.Errorf("%w: ReconnectBackoff must be positive", ErrInvalidConfig)
	}
	if c.MaxReconnectBackoff < c.ReconnectBackoff {
		return fmt.Errorf("%w: MaxReconnectBackoff must not be less than ReconnectBackoff", ErrInvalidConfig)
	}
	if c.Clock == nil {
		return fmt.Errorf("%w: Clock is required", ErrInvalidConfig)
	}
	return nil
}

// nextBackoff 翻倍等待时间，不超过上限
func (c *Config) nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > c.MaxReconnectBackoff || next <= 0 {
		return c.MaxReconnectBackoff
	}
	return next
}
