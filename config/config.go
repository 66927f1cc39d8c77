// Package config 提供 go-splinter 节点的统一配置
//
// Config 按组件拆分为子配置，每个子配置在独立文件中定义并提供
// DefaultXxxConfig、Validate 和到组件配置的转换：
//
//	cfg := config.DefaultConfig()
//	cfg.Connection.ListenEndpoints = []string{"inproc://alpha"}
//
//	// 从 JSON 加载，未出现的字段保持默认值
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("config: invalid config")

// KnownPeer 启动时引用的节点
type KnownPeer struct {
	// PeerID 节点 ID
	PeerID string `json:"peer_id"`

	// Endpoints 候选端点，按顺序尝试
	Endpoints []string `json:"endpoints"`
}

// Config 节点完整配置
type Config struct {
	// Authorization 授权握手配置
	Authorization AuthorizationConfig `json:"authorization"`

	// Peer 节点管理配置
	Peer PeerConfig `json:"peer"`

	// Connection 连接管理配置
	Connection ConnectionConfig `json:"connection"`

	// KnownPeers 启动时引用的节点
	KnownPeers []KnownPeer `json:"known_peers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Authorization: DefaultAuthorizationConfig(),
		Peer:          DefaultPeerConfig(),
		Connection:    DefaultConnectionConfig(),
	}
}

// FromJSON 在默认配置之上解析 JSON
func FromJSON(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Validate 验证所有子配置
func (c *Config) Validate() error {
	if err := c.Authorization.Validate(); err != nil {
		return err
	}
	if err := c.Peer.Validate(); err != nil {
		return err
	}
	if err := c.Connection.Validate(); err != nil {
		return err
	}
	for i, kp := range c.KnownPeers {
		if kp.PeerID == "" {
			return fmt.Errorf("%w: known_peers[%d]: peer_id is required", ErrInvalidConfig, i)
		}
		if len(kp.Endpoints) == 0 {
			return fmt.Errorf("%w: known_peers[%d]: at least one endpoint is required", ErrInvalidConfig, i)
		}
	}
	return nil
}
