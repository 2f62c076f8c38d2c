package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-kbucket"
	"github.com/dep2p/go-kbucket/config"
)

// ============================================================================
//                              模拟参数
// ============================================================================

// simParams 一次模拟的规模参数
type simParams struct {
	Peers     int
	IDBytes   int
	LiveRatio float64
	K         int
	Searches  int
	Workers   int
	Seed      int64
}

func (p simParams) validate() error {
	switch {
	case p.Peers < 0:
		return errors.New("peers must not be negative")
	case p.IDBytes <= 0:
		return errors.New("id-bytes must be positive")
	case p.LiveRatio < 0 || p.LiveRatio > 1:
		return errors.New("live-ratio must be within [0, 1]")
	case p.K < 0:
		return errors.New("k must not be negative")
	case p.Searches < 0:
		return errors.New("searches must not be negative")
	case p.Workers <= 0:
		return errors.New("workers must be positive")
	}
	return nil
}

// ============================================================================
//                              模拟报告
// ============================================================================

// classCount 某个距离等级的节点数
type classCount struct {
	Class int `json:"class"`
	Peers int `json:"peers"`
}

// report 模拟结果
type report struct {
	Rows      int `json:"rows"`
	Columns   int `json:"columns"`
	Generated int `json:"generated"`
	Live      int `json:"live"`
	Add       int `json:"add"`

	Stored    int          `json:"stored"`
	Dropped   int64        `json:"dropped"`
	Buckets   int          `json:"buckets"`
	Saturated int          `json:"saturated"`
	PerClass  []classCount `json:"per_class"`

	Searches         int     `json:"searches"`
	AvgResults       float64 `json:"avg_results"`
	AvgCloserThanMe  float64 `json:"avg_closer_than_self"`
	SearchElapsed    string  `json:"search_elapsed"`
	InsertElapsed    string  `json:"insert_elapsed"`
	ReplacementCount int     `json:"replacements"`
}

func (r *report) writeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (r *report) writeText(w io.Writer) {
	fmt.Fprintf(w, "路由表 %d×%d\n", r.Rows, r.Columns)
	fmt.Fprintf(w, "  合成节点:   %d (Live %d / Add %d)，耗时 %s\n", r.Generated, r.Live, r.Add, r.InsertElapsed)
	fmt.Fprintf(w, "  表内节点:   %d，驱逐或丢弃 %d，替换候选 %d\n", r.Stored, r.Dropped, r.ReplacementCount)
	fmt.Fprintf(w, "  桶:         %d 个已创建，%d 个已满\n", r.Buckets, r.Saturated)
	for _, c := range r.PerClass {
		fmt.Fprintf(w, "    等级 %3d: %d\n", c.Class, c.Peers)
	}
	fmt.Fprintf(w, "  搜索:       %d 次，平均返回 %.2f，比本节点更近 %.2f，耗时 %s\n",
		r.Searches, r.AvgResults, r.AvgCloserThanMe, r.SearchElapsed)
}

// ============================================================================
//                              模拟
// ============================================================================

// simulate 创建路由表，插入合成节点并执行并行搜索
//
// 同一组参数与种子得到相同的表内容与搜索结果。
func simulate(ctx context.Context, rc config.RoutingConfig, p simParams) (*report, error) {
	rng := rand.New(rand.NewSource(p.Seed))
	base := randomID(rng, p.IDBytes)

	var dropped atomic.Int64
	tbl, err := kbucket.New(
		kbucket.WithConfig(rc),
		kbucket.WithBaseNode(base),
		kbucket.WithPeerRemoved(func(kbucket.Peer) { dropped.Add(1) }),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tbl.Close() }()

	rep := &report{
		Rows:      rc.Rows,
		Columns:   rc.Columns,
		Generated: p.Peers,
		Searches:  p.Searches,
	}

	start := time.Now()
	for i := 0; i < p.Peers; i++ {
		peer := kbucket.IDPeer(randomID(rng, p.IDBytes))
		if rng.Float64() < p.LiveRatio {
			err = tbl.Live(peer)
			rep.Live++
		} else {
			err = tbl.Add(peer)
			rep.Add++
		}
		if err != nil {
			return nil, err
		}
	}
	rep.InsertElapsed = time.Since(start).String()

	targets := make([]kbucket.Identifier, p.Searches)
	for i := range targets {
		targets[i] = randomID(rng, p.IDBytes)
	}

	start = time.Now()
	results, closer, err := runSearches(ctx, tbl, base, targets, p)
	if err != nil {
		return nil, err
	}
	rep.SearchElapsed = time.Since(start).String()
	if p.Searches > 0 {
		rep.AvgResults = float64(results) / float64(p.Searches)
		rep.AvgCloserThanMe = float64(closer) / float64(p.Searches)
	}

	st := tbl.Stats()
	rep.Stored = st.Peers
	rep.Buckets = st.Buckets
	rep.Saturated = st.Saturated
	rep.Dropped = dropped.Load()
	rep.ReplacementCount = len(tbl.Replacements())
	for class, n := range st.PerClass {
		rep.PerClass = append(rep.PerClass, classCount{Class: int(class), Peers: n})
	}
	sort.Slice(rep.PerClass, func(i, j int) bool {
		return rep.PerClass[i].Class < rep.PerClass[j].Class
	})

	logger.Debug("模拟完成", "stored", rep.Stored, "dropped", rep.Dropped)
	return rep, nil
}

// runSearches 在 p.Workers 个 goroutine 中执行搜索
//
// 每次表内搜索的结果都与对表快照做的独立排序比较，不一致时返回错误。
func runSearches(ctx context.Context, tbl *kbucket.Table, base kbucket.Identifier, targets []kbucket.Identifier, p simParams) (int, int, error) {
	snapshot := tbl.ToSlice()

	type tally struct{ results, closer int }
	tallies := make([]tally, p.Workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < p.Workers; w++ {
		g.Go(func() error {
			s := kbucket.NewScratch(p.K + 1)
			for i := w; i < len(targets); i += p.Workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				target := targets[i]

				got, err := tbl.Search(target, p.K)
				if err != nil {
					return err
				}
				want, err := kbucket.Search(snapshot, target, p.K, s)
				if err != nil {
					return err
				}
				if err := samePeers(got, want); err != nil {
					return fmt.Errorf("search %d: %w", i, err)
				}

				closer, err := kbucket.SearchExcludingSelf(snapshot, target, base, p.K, s)
				if err != nil {
					return err
				}
				tallies[w].results += len(got)
				tallies[w].closer += len(closer)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	var results, closer int
	for _, t := range tallies {
		results += t.results
		closer += t.closer
	}
	return results, closer, nil
}

func samePeers(got, want []kbucket.Peer) error {
	if len(got) != len(want) {
		return fmt.Errorf("table returned %d peers, snapshot ranking %d", len(got), len(want))
	}
	for i := range got {
		if !got[i].Identifier().Equal(want[i].Identifier()) {
			return fmt.Errorf("mismatch at %d: %s != %s", i, got[i].Identifier(), want[i].Identifier())
		}
	}
	return nil
}

func randomID(rng *rand.Rand, size int) kbucket.Identifier {
	id := make(kbucket.Identifier, size)
	rng.Read(id)
	return id
}
