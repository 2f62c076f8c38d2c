package kbucket

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-kbucket/config"
	pkgif "github.com/dep2p/go-kbucket/pkg/interfaces"
	"github.com/dep2p/go-kbucket/pkg/lib/log"
)

var fxLogger = log.Logger("kbucket/fx")

// Module 路由表 Fx 模块
//
// 依赖均为可选：未提供 *config.Config 时使用默认配置，
// 未提供 prometheus.Registerer 时不采集指标，
// 未提供 VerifyHandler 时不启动健康探测。
var Module = fx.Module("routing_kbucket",
	fx.Provide(
		NewFromParams,
	),
	fx.Invoke(registerLifecycle),
)

// Params 路由表依赖参数
type Params struct {
	fx.In

	Config     *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	Clock      clock.Clock           `optional:"true"`
	Verify     VerifyHandler         `optional:"true"`
	BaseNode   Identifier            `name:"base_node" optional:"true"`
}

// Result 路由表导出结果
type Result struct {
	fx.Out

	Table        *Table
	RoutingTable pkgif.RoutingTable
}

// NewFromParams 从 Fx 参数创建路由表
func NewFromParams(p Params) (Result, error) {
	cfg := config.NewConfig()
	if p.Config != nil {
		cfg = p.Config
	}

	opts := []Option{
		WithConfig(cfg.Routing),
		WithRegisterer(p.Registerer),
		WithClock(p.Clock),
	}
	if p.Verify != nil {
		opts = append(opts, WithVerifyHandler(p.Verify, 0))
	}
	if len(p.BaseNode) > 0 {
		opts = append(opts, WithBaseNode(p.BaseNode))
	}

	t, err := New(opts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: t, RoutingTable: t}, nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, t *Table) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// 启动上下文在 OnStart 返回后失效，探测循环使用独立上下文
			if err := t.Start(context.Background()); err != nil {
				return err
			}
			fxLogger.Debug("路由表模块已启动", "probe", t.Prober() != nil)
			return nil
		},
		OnStop: func(_ context.Context) error {
			return t.Close()
		},
	})
}

// NewApp 组装只包含路由表模块的 Fx 应用
//
// Fx 自身的事件日志被禁用，避免干扰组件日志。
func NewApp(extra ...fx.Option) *fx.App {
	modules := append([]fx.Option{Module}, extra...)
	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
	return fx.New(modules...)
}
