package kbucket

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-kbucket/pkg/types"
)

// VerifyHandler 检查节点是否仍可达
//
// 返回 nil 表示联系成功。由调用方实现（例如发送 PING），路由表本身不做网络操作。
type VerifyHandler func(ctx context.Context, p types.Peer) error

// ProbeOutcome 一次探测的结果
type ProbeOutcome int

const (
	// ProbeIdle 没有已满的桶，未发起探测
	ProbeIdle ProbeOutcome = iota
	// ProbeAlive 节点可达，已重新确认
	ProbeAlive
	// ProbeDead 节点不可达，已移除
	ProbeDead
)

// String 返回结果的字符串表示
func (o ProbeOutcome) String() string {
	switch o {
	case ProbeIdle:
		return "idle"
	case ProbeAlive:
		return "alive"
	case ProbeDead:
		return "dead"
	default:
		return "unknown"
	}
}

// ProbeResult 一次探测的详情
type ProbeResult struct {
	Outcome  ProbeOutcome
	Peer     types.Peer // 被探测的节点
	Refilled types.Peer // 移除后从替换缓存补入的节点，可能为 nil
}

// ============================================================================
//                              Prober - 健康探测
// ============================================================================

// Prober 周期性地对已满桶中最久未确认的节点做健康检查
//
// 每个周期调用 RoutingTable.Verify 取得候选：可达则 Live 重新确认，
// 不可达则 Remove，并尝试用替换缓存补位。
type Prober struct {
	rt       *RoutingTable
	verify   VerifyHandler
	clock    clock.Clock
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProber 创建探测器
//
// clk 为 nil 时使用真实时钟。
func NewProber(rt *RoutingTable, verify VerifyHandler, interval time.Duration, clk clock.Clock) (*Prober, error) {
	if interval <= 0 {
		return nil, opError("new prober", ErrInvalidInterval)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Prober{
		rt:       rt,
		verify:   verify,
		clock:    clk,
		interval: interval,
	}, nil
}

// Start 启动后台探测循环
func (p *Prober) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrProberRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	ticker := p.clock.Ticker(p.interval)

	p.wg.Add(1)
	go p.loop(ctx, ticker)

	logger.Info("路由表健康探测已启动", "interval", p.interval)
	return nil
}

// Stop 停止探测循环并等待其退出，未启动时不做任何事
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	logger.Info("路由表健康探测已停止")
}

func (p *Prober) loop(ctx context.Context, ticker *clock.Ticker) {
	defer p.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.ProbeOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("路由表健康探测失败", "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

// ProbeOnce 执行一次探测
func (p *Prober) ProbeOnce(ctx context.Context) (ProbeResult, error) {
	peer, ok := p.rt.Verify()
	if !ok {
		return ProbeResult{Outcome: ProbeIdle}, nil
	}

	if err := p.verify(ctx, peer); err == nil {
		if err := p.rt.Live(peer); err != nil {
			return ProbeResult{}, err
		}
		return ProbeResult{Outcome: ProbeAlive, Peer: peer}, nil
	} else if ctx.Err() != nil {
		return ProbeResult{}, ctx.Err()
	}

	base, _ := p.rt.BaseNode()
	class := Distance(base, peer.Identifier())
	if err := p.rt.Remove(peer); err != nil {
		return ProbeResult{}, err
	}
	res := ProbeResult{Outcome: ProbeDead, Peer: peer}
	if r, ok := p.rt.Refill(class); ok {
		res.Refilled = r
	}

	logger.Debug("不可达节点已移除",
		"peer", peer.Identifier().ShortString(),
		"refilled", res.Refilled != nil)
	return res, nil
}
