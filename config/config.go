// Package config 提供路由表的配置管理
//
// 本包采用与节点配置相同的混合模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//   - 支持预设配置（minimal/default/server）
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Routing.Columns = 16
//
//	// 使用预设配置
//	cfg := config.NewServerConfig()
//
//	// 从文件加载
//	cfg, err := config.LoadFile("kbucket.json")
package config

import "go.uber.org/multierr"

// Config 路由表的完整配置
//
//   - Routing: 路由表尺寸、替换缓存、健康探测与指标
//   - Log: 日志级别与格式
type Config struct {
	// Routing 路由表配置
	Routing RoutingConfig `json:"routing"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Routing: DefaultRoutingConfig(),
		Log:     DefaultLogConfig(),
	}
}

// NewMinimalConfig 创建最小配置（测试与嵌入场景）
func NewMinimalConfig() *Config {
	cfg := NewConfig()
	_ = ApplyPreset(cfg, PresetMinimal)
	return cfg
}

// NewServerConfig 创建服务器配置
func NewServerConfig() *Config {
	cfg := NewConfig()
	_ = ApplyPreset(cfg, PresetServer)
	return cfg
}

// Validate 验证配置的有效性
//
// 汇总所有子配置的问题后一并返回，而不是遇到第一个就停止。
func (c *Config) Validate() error {
	return multierr.Combine(
		c.Routing.Validate(),
		c.Log.Validate(),
	)
}
