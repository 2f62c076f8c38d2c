package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// 预设名称
const (
	PresetMinimal = "minimal"
	PresetDefault = "default"
	PresetServer  = "server"
)

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。示例 JSON:
//
//	{
//	  "routing": {"rows": 256, "columns": 16, "probe_interval": "30s"},
//	  "log": {"level": "debug"}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载并验证配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 将配置序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "minimal": 小表、无替换缓存、无探测、无指标，适合测试
//   - "default": 默认值
//   - "server": 更大的替换缓存和更频繁的探测
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case PresetMinimal:
		cfg.Routing = RoutingConfig{
			Rows:    32,
			Columns: 4,
		}
	case PresetDefault:
		cfg.Routing = DefaultRoutingConfig()
	case PresetServer:
		cfg.Routing = DefaultRoutingConfig().
			WithReplacementCacheSize(512).
			WithProbeInterval(ProbeIntervalServer)
	case "":
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
	return nil
}

// CloneConfig 深拷贝配置
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	clone := *cfg
	return &clone
}
