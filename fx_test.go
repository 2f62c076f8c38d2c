package kbucket

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-kbucket/config"
	pkgif "github.com/dep2p/go-kbucket/pkg/interfaces"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Load 测试模块加载
func TestModule_Load(t *testing.T) {
	var rt pkgif.RoutingTable

	app := fxtest.New(t,
		Module,
		fx.Populate(&rt),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, rt)
	_, ok := rt.BaseNode()
	assert.False(t, ok)

	t.Log("✅ 模块加载成功")
}

// TestModule_WithDependencies 测试注入配置、基准节点与指标
func TestModule_WithDependencies(t *testing.T) {
	cfg := config.NewMinimalConfig()
	cfg.Routing.EnableMetrics = true
	cfg.Routing.MetricsNamespace = "fxtest"
	reg := prometheus.NewRegistry()

	var tbl *Table
	app := fxtest.New(t,
		Module,
		fx.Supply(cfg),
		fx.Provide(func() prometheus.Registerer { return reg }),
		fx.Supply(fx.Annotated{Name: "base_node", Target: Identifier{0x00}}),
		fx.Populate(&tbl),
	)
	app.RequireStart()

	require.NotNil(t, tbl)
	assert.Equal(t, 32, tbl.Rows())
	base, ok := tbl.BaseNode()
	require.True(t, ok)
	assert.Equal(t, Identifier{0x00}, base)
	require.NoError(t, tbl.Live(IDPeer{0x80}))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	app.RequireStop()
}

// TestModule_ProberLifecycle 测试生命周期启停健康探测
func TestModule_ProberLifecycle(t *testing.T) {
	cfg := config.NewMinimalConfig()
	cfg.Routing.ProbeInterval = config.Duration(time.Second)
	mock := clock.NewMock()

	var tbl *Table
	app := fxtest.New(t,
		Module,
		fx.Supply(cfg),
		fx.Provide(func() clock.Clock { return mock }),
		fx.Provide(func() VerifyHandler {
			return func(context.Context, Peer) error { return nil }
		}),
		fx.Populate(&tbl),
	)
	app.RequireStart()

	require.NotNil(t, tbl.Prober())
	assert.ErrorIs(t, tbl.Prober().Start(context.Background()), ErrProberRunning)

	app.RequireStop()
	require.NoError(t, tbl.Prober().Start(context.Background()), "停止后可以再次启动")
	tbl.Prober().Stop()
}

// TestNewApp 测试组装应用
func TestNewApp(t *testing.T) {
	var tbl *Table
	app := NewApp(fx.Populate(&tbl))
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	require.NotNil(t, tbl)
	require.NoError(t, app.Stop(ctx))
}

// TestModule_InvalidConfig 测试非法配置导致启动失败
func TestModule_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Routing.Rows = 0

	app := fx.New(
		Module,
		fx.Supply(cfg),
		fx.Invoke(func(*Table) {}),
		fx.NopLogger,
	)
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "rows must be positive")
}
