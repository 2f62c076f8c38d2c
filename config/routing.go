package config

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/multierr"
)

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("kbucket: invalid config")

// ProbeIntervalServer 服务器预设的健康探测间隔
const ProbeIntervalServer = 15 * time.Second

// RoutingConfig 路由表配置
//
// Rows 与 Columns 在路由表生命周期内不可变。默认 160×20 对应
// 20 字节标识符与 K=20。
type RoutingConfig struct {
	// Rows 桶的数量（最大距离等级）
	Rows int `json:"rows"`

	// Columns 每个桶的容量
	Columns int `json:"columns"`

	// ScratchCapacity 表内搜索预留的槽位数，0 表示按 Columns+1 预留
	ScratchCapacity int `json:"scratch_capacity,omitempty"`

	// ReplacementCacheSize 替换缓存容量，0 表示禁用
	ReplacementCacheSize int `json:"replacement_cache_size,omitempty"`

	// ProbeInterval 健康探测间隔，0 表示禁用后台探测
	ProbeInterval Duration `json:"probe_interval,omitempty"`

	// EnableMetrics 是否注册 Prometheus 指标
	EnableMetrics bool `json:"enable_metrics"`

	// MetricsNamespace 指标命名空间
	MetricsNamespace string `json:"metrics_namespace,omitempty"`
}

// DefaultRoutingConfig 返回默认的路由表配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		Rows:                 160,
		Columns:              20,
		ReplacementCacheSize: 64,
		ProbeInterval:        Duration(time.Minute),
		EnableMetrics:        true,
		MetricsNamespace:     "kbucket",
	}
}

// Validate 验证路由表配置
func (c *RoutingConfig) Validate() error {
	var err error
	if c.Rows <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidConfig, c.Rows))
	}
	if c.Columns <= 0 {
		err = multierr.Append(err, fmt.Errorf("%w: columns must be positive, got %d", ErrInvalidConfig, c.Columns))
	}
	if c.Rows > 0 && c.Columns > 0 && int64(c.Rows)*int64(c.Columns) > math.MaxInt32 {
		err = multierr.Append(err, fmt.Errorf("%w: rows*columns exceeds %d", ErrInvalidConfig, math.MaxInt32))
	}
	if c.ScratchCapacity < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: scratch_capacity must not be negative", ErrInvalidConfig))
	}
	if c.ReplacementCacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: replacement_cache_size must not be negative", ErrInvalidConfig))
	}
	if c.ProbeInterval < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: probe_interval must not be negative", ErrInvalidConfig))
	}
	if c.EnableMetrics && c.MetricsNamespace == "" {
		err = multierr.Append(err, fmt.Errorf("%w: metrics_namespace required when metrics are enabled", ErrInvalidConfig))
	}
	return err
}

// WithDimensions 设置行列数
func (c RoutingConfig) WithDimensions(rows, columns int) RoutingConfig {
	c.Rows = rows
	c.Columns = columns
	return c
}

// WithReplacementCacheSize 设置替换缓存容量
func (c RoutingConfig) WithReplacementCacheSize(n int) RoutingConfig {
	c.ReplacementCacheSize = n
	return c
}

// WithProbeInterval 设置健康探测间隔
func (c RoutingConfig) WithProbeInterval(d time.Duration) RoutingConfig {
	c.ProbeInterval = Duration(d)
	return c
}

// WithMetrics 设置是否启用指标
func (c RoutingConfig) WithMetrics(enabled bool) RoutingConfig {
	c.EnableMetrics = enabled
	return c
}
