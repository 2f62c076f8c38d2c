package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置的有效性
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 验证配置并修复可以安全修复的问题
//
//   - 启用指标但未设置命名空间 -> 使用默认命名空间
//   - 负的探测间隔或缓存容量 -> 视为禁用
//   - 未知的日志级别或格式 -> 使用默认值
//
// 行列数不做修复，非法时直接返回错误。
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	r := &c.Routing
	if r.EnableMetrics && r.MetricsNamespace == "" {
		r.MetricsNamespace = DefaultRoutingConfig().MetricsNamespace
	}
	if r.ProbeInterval < 0 {
		r.ProbeInterval = 0
	}
	if r.ReplacementCacheSize < 0 {
		r.ReplacementCacheSize = 0
	}
	if r.ScratchCapacity < 0 {
		r.ScratchCapacity = 0
	}
	if err := c.Log.Validate(); err != nil {
		c.Log = DefaultLogConfig()
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，如果失败则 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}
