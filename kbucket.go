package kbucket

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-kbucket/config"
	routing "github.com/dep2p/go-kbucket/internal/routing/kbucket"
	pkgif "github.com/dep2p/go-kbucket/pkg/interfaces"
	"github.com/dep2p/go-kbucket/pkg/lib/log"
	"github.com/dep2p/go-kbucket/pkg/types"
)

var logger = log.Logger("kbucket")

// ════════════════════════════════════════════════════════════════════════════
// 类型导出
// ════════════════════════════════════════════════════════════════════════════

type (
	// Identifier 任意长度的键空间坐标
	Identifier = types.Identifier

	// Peer 路由表中的节点，只需提供 Identifier()
	Peer = types.Peer

	// IDPeer 只携带标识符的 Peer
	IDPeer = types.IDPeer

	// DistanceClass 距离等级，0 表示同一坐标
	DistanceClass = types.DistanceClass

	// RoutingTable 路由表
	RoutingTable = routing.RoutingTable

	// TableStats 路由表统计信息
	TableStats = routing.TableStats

	// Scratch 搜索槽位池，每个 goroutine 持有自己的实例
	Scratch = routing.Scratch

	// Replacement 替换缓存条目
	Replacement = routing.Replacement

	// VerifyHandler 节点可达性检查
	VerifyHandler = routing.VerifyHandler

	// Prober 健康探测器
	Prober = routing.Prober

	// ProbeResult 一次探测的详情
	ProbeResult = routing.ProbeResult
)

var _ pkgif.RoutingTable = (*Table)(nil)

// Distance 计算两个标识符之间的距离等级
func Distance(a, b Identifier) DistanceClass {
	return routing.Distance(a, b)
}

// NewScratch 创建预留 capacity 个槽位的搜索槽位池
func NewScratch(capacity int) *Scratch {
	return routing.NewScratch(capacity)
}

// Search 返回 candidates 中距离 target 最近的至多 k 个节点，按距离升序
//
// s 为 nil 时使用临时槽位池。
func Search[P Peer](candidates []P, target Identifier, k int, s *Scratch) ([]P, error) {
	return routing.Search(candidates, target, k, s)
}

// SearchExcludingSelf 与 Search 相同，但只返回比 base 严格更接近 target 的节点
func SearchExcludingSelf[P Peer](candidates []P, target, base Identifier, k int, s *Scratch) ([]P, error) {
	return routing.SearchExcludingSelf(candidates, target, base, k, s)
}

// ════════════════════════════════════════════════════════════════════════════
// Table 门面
// ════════════════════════════════════════════════════════════════════════════

// Table 路由表门面
//
// 嵌入 *RoutingTable 提供全部成员与搜索操作，另外持有可选的健康探测器。
// 健康探测需要同时配置 VerifyHandler 与正的探测间隔。
type Table struct {
	*RoutingTable

	cfg    config.RoutingConfig
	prober *Prober
}

// New 创建路由表
func New(opts ...Option) (*Table, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	var tableOpts []routing.Option
	if o.cfg.ScratchCapacity > 0 {
		tableOpts = append(tableOpts, routing.WithScratchCapacity(o.cfg.ScratchCapacity))
	}
	if o.cfg.ReplacementCacheSize > 0 {
		rc, err := routing.NewReplacementCache(o.cfg.ReplacementCacheSize, o.clock)
		if err != nil {
			return nil, fmt.Errorf("create replacement cache: %w", err)
		}
		tableOpts = append(tableOpts, routing.WithReplacementCache(rc))
	}
	if o.cfg.EnableMetrics && o.registerer != nil {
		m, err := routing.NewMetrics(o.cfg.MetricsNamespace, o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		tableOpts = append(tableOpts, routing.WithMetrics(m))
	}
	if o.peerAdded != nil {
		tableOpts = append(tableOpts, routing.WithPeerAdded(o.peerAdded))
	}
	if o.peerRemoved != nil {
		tableOpts = append(tableOpts, routing.WithPeerRemoved(o.peerRemoved))
	}

	rt, err := routing.NewRoutingTable(o.cfg.Rows, o.cfg.Columns, tableOpts...)
	if err != nil {
		return nil, err
	}
	if o.baseNode != nil {
		if err := rt.SetBaseNode(o.baseNode); err != nil {
			return nil, err
		}
	}

	t := &Table{RoutingTable: rt, cfg: o.cfg}
	if o.verify != nil && o.cfg.ProbeInterval > 0 {
		t.prober, err = routing.NewProber(rt, o.verify, o.cfg.ProbeInterval.Duration(), o.clock)
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("路由表已创建",
		"rows", o.cfg.Rows,
		"columns", o.cfg.Columns,
		"replacementCache", o.cfg.ReplacementCacheSize,
		"probe", t.prober != nil)
	return t, nil
}

// Config 返回创建时使用的配置
func (t *Table) Config() config.RoutingConfig {
	return t.cfg
}

// Prober 返回健康探测器，未配置时返回 nil
func (t *Table) Prober() *Prober {
	return t.prober
}

// Start 启动后台健康探测，未配置探测时不做任何事
func (t *Table) Start(ctx context.Context) error {
	if t.prober == nil {
		return nil
	}
	return t.prober.Start(ctx)
}

// Close 停止后台健康探测
func (t *Table) Close() error {
	if t.prober != nil {
		t.prober.Stop()
	}
	return nil
}
