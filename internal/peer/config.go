package peer

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// 默认值
const (
	// DefaultMaxRetryAttempts 切换端点前容忍的连续失败次数
	DefaultMaxRetryAttempts uint64 = 5

	// DefaultPacemakerInterval 重试扫描间隔
	DefaultPacemakerInterval = 10 * time.Second

	// DefaultInitialRetryFrequency 新节点的初始重试间隔
	DefaultInitialRetryFrequency = 10 * time.Second

	// DefaultMaximumRetryFrequency 重试间隔上限
	DefaultMaximumRetryFrequency = 300 * time.Second

	// DefaultNotificationQueueLimit 通知队列容量
	DefaultNotificationQueueLimit = 1<<16 - 1

	// DefaultMailboxSize 邮箱缓冲大小
	DefaultMailboxSize = 1024
)

// ============================================================================
//                              配置
// ============================================================================

// Config 节点管理器配置
type Config struct {
	// MaxRetryAttempts NonFatalConnectionError 达到该次数后尝试其他端点
	MaxRetryAttempts uint64

	// RetryInterval pacemaker 触发重试扫描的间隔
	RetryInterval time.Duration

	// InitialRetryFrequency 节点的初始重试间隔
	InitialRetryFrequency time.Duration

	// MaximumRetryFrequency 重试间隔翻倍的上限
	MaximumRetryFrequency time.Duration

	// NotificationQueueLimit 通知队列容量，超出时丢弃最旧的通知
	NotificationQueueLimit int

	// MailboxSize 邮箱缓冲大小
	MailboxSize int

	// Clock 时钟，测试中可替换为 clock.NewMock()
	Clock clock.Clock

	// Registerer 指标注册器，为 nil 时不注册
	Registerer prometheus.Registerer
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxRetryAttempts:       DefaultMaxRetryAttempts,
		RetryInterval:          DefaultPacemakerInterval,
		InitialRetryFrequency:  DefaultInitialRetryFrequency,
		MaximumRetryFrequency:  DefaultMaximumRetryFrequency,
		NotificationQueueLimit: DefaultNotificationQueueLimit,
		MailboxSize:            DefaultMailboxSize,
		Clock:                  clock.New(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.MaxRetryAttempts == 0 {
		return fmt.Errorf("%w: MaxRetryAttempts must be positive", ErrInvalidConfig)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("%w: RetryInterval must be positive", ErrInvalidConfig)
	}
	if c.InitialRetryFrequency <= 0 {
		return fmt.Errorf("%w: InitialRetryFrequency must be positive", ErrInvalidConfig)
	}
	if c.MaximumRetryFrequency < c.InitialRetryFrequency {
		return fmt.Errorf("%w: MaximumRetryFrequency must not be less than InitialRetryFrequency", ErrInvalidConfig)
	}
	if c.NotificationQueueLimit <= 0 {
		return fmt.Errorf("%w: NotificationQueueLimit must be positive", ErrInvalidConfig)
	}
	if c.MailboxSize < 0 {
		return fmt.Errorf("%w: MailboxSize must be non-negative", ErrInvalidConfig)
	}
	if c.Clock == nil {
		return fmt.Errorf("%w: Clock is required", ErrInvalidConfig)
	}
	return nil
}

// nextRetryFrequency 翻倍重试间隔，不超过上限
func (c *Config) nextRetryFrequency(current time.Duration) time.Duration {
	next := current * 2
	if next > c.MaximumRetryFrequency || next <= 0 {
		return c.MaximumRetryFrequency
	}
	return next
}
