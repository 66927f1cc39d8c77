package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-splinter/internal/peer"
)

// PeerConfig 节点管理配置
type PeerConfig struct {
	// MaxRetryAttempts 切换端点前容忍的连续失败次数
	MaxRetryAttempts uint64 `json:"max_retry_attempts"`

	// RetryInterval 重试扫描间隔
	RetryInterval Duration `json:"retry_interval"`

	// InitialRetryFrequency 节点初始重试间隔
	InitialRetryFrequency Duration `json:"initial_retry_frequency"`

	// MaximumRetryFrequency 重试间隔上限
	MaximumRetryFrequency Duration `json:"maximum_retry_frequency"`

	// NotificationQueueLimit 通知队列容量
	NotificationQueueLimit int `json:"notification_queue_limit"`
}

// DefaultPeerConfig 返回默认节点管理配置
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		MaxRetryAttempts:       peer.DefaultMaxRetryAttempts,
		RetryInterval:          Duration(peer.DefaultPacemakerInterval),
		InitialRetryFrequency:  Duration(peer.DefaultInitialRetryFrequency),
		MaximumRetryFrequency:  Duration(peer.DefaultMaximumRetryFrequency),
		NotificationQueueLimit: peer.DefaultNotificationQueueLimit,
	}
}

// Validate 验证节点管理配置
func (c PeerConfig) Validate() error {
	if err := c.Build(nil).Validate(); err != nil {
		return fmt.Errorf("%w: peer: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Build 转换为 peer.Config
func (c PeerConfig) Build(reg prometheus.Registerer) *peer.Config {
	out := peer.DefaultConfig()
	out.MaxRetryAttempts = c.MaxRetryAttempts
	out.RetryInterval = c.RetryInterval.Duration()
	out.InitialRetryFrequency = c.InitialRetryFrequency.Duration()
	out.MaximumRetryFrequency = c.MaximumRetryFrequency.Duration()
	out.NotificationQueueLimit = c.NotificationQueueLimit
	out.Registerer = reg
	return out
}
