package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-splinter/internal/connection"
)

// ConnectionConfig 连接管理配置
type ConnectionConfig struct {
	// ListenEndpoints 监听端点
	ListenEndpoints []string `json:"listen_endpoints,omitempty"`

	// MaxRetryAttempts 放弃端点前的最大连续失败次数
	MaxRetryAttempts uint64 `json:"max_retry_attempts"`

	// ReconnectBackoff 首次重试等待时间
	ReconnectBackoff Duration `json:"reconnect_backoff"`

	// MaxReconnectBackoff 重试等待时间上限
	MaxReconnectBackoff Duration `json:"max_reconnect_backoff"`
}

// DefaultConnectionConfig 返回默认连接管理配置
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxRetryAttempts:    connection.DefaultMaxRetryAttempts,
		ReconnectBackoff:    Duration(connection.DefaultReconnectBackoff),
		MaxReconnectBackoff: Duration(connection.DefaultMaxReconnectBackoff),
	}
}

// Validate 验证连接管理配置
func (c ConnectionConfig) Validate() error {
	for i, ep := range c.ListenEndpoints {
		if ep == "" {
			return fmt.Errorf("%w: connection.listen_endpoints[%d] is empty", ErrInvalidConfig, i)
		}
	}
	if err := c.Build(nil).Validate(); err != nil {
		return fmt.Errorf("%w: connection: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Build 转换为 connection.Config
func (c ConnectionConfig) Build(reg prometheus.Registerer) *connection.Config {
	out := connection.DefaultConfig()
	out.ListenEndpoints = append([]string(nil), c.ListenEndpoints...)
	out.MaxRetryAttempts = c.MaxRetryAttempts
	out.ReconnectBackoff = c.ReconnectBackoff.Duration()
	out.MaxReconnectBackoff = c.MaxReconnectBackoff.Duration()
	out.Registerer = reg
	return out
}
