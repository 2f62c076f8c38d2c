// Package main 提供 kbucket-sim 命令行入口
//
// kbucket-sim 用合成节点驱动一张路由表，执行并行搜索并输出统计信息，
// 用于观察不同行列数、插入策略比例下的表形态与搜索结果规模。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dep2p/go-kbucket/config"
	"github.com/dep2p/go-kbucket/pkg/lib/log"
)

var logger = log.Logger("kbucket/sim")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：覆盖这次模拟的规模与随机种子
//   JSON 配置文件：路由表与日志配置
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile = flag.String("config", "", "配置文件路径")
	preset     = flag.String("preset", "", "预设配置 (minimal/default/server)")

	rows    = flag.Int("rows", 160, "桶数量（覆盖配置文件）")
	columns = flag.Int("columns", 20, "每个桶的容量（覆盖配置文件）")

	peers     = flag.Int("peers", 5000, "合成节点数量")
	idBytes   = flag.Int("id-bytes", 20, "标识符字节长度")
	liveRatio = flag.Float64("live-ratio", 0.5, "以 Live 插入的比例，其余以 Add 插入")
	k         = flag.Int("k", 20, "每次搜索返回的节点数")
	searches  = flag.Int("searches", 1000, "搜索次数")
	workers   = flag.Int("workers", 4, "并行搜索的 goroutine 数")
	seed      = flag.Int64("seed", 1, "随机种子")

	logLevel = flag.String("log-level", "", "日志级别 (debug/info/warn/error)")
	jsonOut  = flag.Bool("json", false, "以 JSON 输出报告")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	cfg.Log.Apply()

	params := simParams{
		Peers:     *peers,
		IDBytes:   *idBytes,
		LiveRatio: *liveRatio,
		K:         *k,
		Searches:  *searches,
		Workers:   *workers,
		Seed:      *seed,
	}
	if err := params.validate(); err != nil {
		return fmt.Errorf("参数错误: %w", err)
	}

	logger.Info("开始模拟",
		"rows", cfg.Routing.Rows,
		"columns", cfg.Routing.Columns,
		"peers", params.Peers,
		"searches", params.Searches)

	rep, err := simulate(context.Background(), cfg.Routing, params)
	if err != nil {
		return err
	}

	if *jsonOut {
		return rep.writeJSON(os.Stdout)
	}
	rep.writeText(os.Stdout)
	return nil
}

// loadConfig 加载配置
//
// 优先级（从高到低）：命令行参数 > 预设 > 配置文件 > 默认值
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
	}

	if *preset != "" {
		if err := config.ApplyPreset(cfg, *preset); err != nil {
			return nil, err
		}
	}

	if isFlagSet("rows") {
		cfg.Routing.Rows = *rows
	}
	if isFlagSet("columns") {
		cfg.Routing.Columns = *columns
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	// 模拟不需要后台探测与指标
	cfg.Routing.ProbeInterval = 0
	cfg.Routing.EnableMetrics = false

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
