package kbucket

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-kbucket/config"
	"github.com/dep2p/go-kbucket/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	cfg config.RoutingConfig

	registerer prometheus.Registerer
	clock      clock.Clock

	baseNode types.Identifier

	peerAdded   func(Peer)
	peerRemoved func(Peer)
	verify      VerifyHandler
}

func defaultOptions() *options {
	return &options{
		cfg: config.DefaultRoutingConfig(),
	}
}

// WithConfig 使用完整的路由表配置
func WithConfig(cfg config.RoutingConfig) Option {
	return func(o *options) error {
		o.cfg = cfg
		return nil
	}
}

// WithPreset 应用预设配置（minimal/default/server）
func WithPreset(name string) Option {
	return func(o *options) error {
		c := &config.Config{Routing: o.cfg}
		if err := config.ApplyPreset(c, name); err != nil {
			return err
		}
		o.cfg = c.Routing
		return nil
	}
}

// WithDimensions 设置行数（桶数）与列数（每桶容量）
func WithDimensions(rows, columns int) Option {
	return func(o *options) error {
		if rows <= 0 || columns <= 0 {
			return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, rows, columns)
		}
		o.cfg.Rows = rows
		o.cfg.Columns = columns
		return nil
	}
}

// WithReplacementCache 设置替换缓存容量，0 表示禁用
func WithReplacementCache(size int) Option {
	return func(o *options) error {
		if size < 0 {
			return fmt.Errorf("%w: replacement cache size %d", ErrInvalidConfig, size)
		}
		o.cfg.ReplacementCacheSize = size
		return nil
	}
}

// WithRegisterer 设置 Prometheus 注册器
//
// 未设置时不采集指标。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithClock 设置时钟（测试中使用 clock.NewMock()）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithBaseNode 在创建时设置基准节点
func WithBaseNode(id Identifier) Option {
	return func(o *options) error {
		if len(id) == 0 {
			return ErrEmptyIdentifier
		}
		o.baseNode = id.Clone()
		return nil
	}
}

// WithPeerAdded 设置节点进入路由表时的回调
func WithPeerAdded(fn func(Peer)) Option {
	return func(o *options) error {
		o.peerAdded = fn
		return nil
	}
}

// WithPeerRemoved 设置节点离开路由表时的回调
func WithPeerRemoved(fn func(Peer)) Option {
	return func(o *options) error {
		o.peerRemoved = fn
		return nil
	}
}

// WithVerifyHandler 设置健康探测使用的可达性检查
//
// interval 为 0 时沿用配置中的探测间隔。
func WithVerifyHandler(fn VerifyHandler, interval time.Duration) Option {
	return func(o *options) error {
		if interval < 0 {
			return fmt.Errorf("%w: probe interval %s", ErrInvalidConfig, interval)
		}
		o.verify = fn
		if interval > 0 {
			o.cfg.ProbeInterval = config.Duration(interval)
		}
		return nil
	}
}
