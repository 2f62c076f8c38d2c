package kbucket

import (
	"github.com/dep2p/go-kbucket/config"
	routing "github.com/dep2p/go-kbucket/internal/routing/kbucket"
	"github.com/dep2p/go-kbucket/pkg/types"
)

// 公共错误定义
//
// 所有错误都表示调用方违反前置条件，使用 errors.Is 判断。
var (
	// ────────────────────────────────────────────────────────────────────────
	// 路由表错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidDimensions 行数或列数不是正数
	ErrInvalidDimensions = routing.ErrInvalidDimensions

	// ErrNilPeer Peer 为空
	ErrNilPeer = routing.ErrNilPeer

	// ErrEmptyIdentifier 标识符为空
	ErrEmptyIdentifier = routing.ErrEmptyIdentifier

	// ErrBaseNodeNotSet 尚未设置基准节点
	ErrBaseNodeNotSet = routing.ErrBaseNodeNotSet

	// ErrNegativeK k 为负数
	ErrNegativeK = routing.ErrNegativeK

	// ────────────────────────────────────────────────────────────────────────
	// 配置与生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = config.ErrInvalidConfig

	// ErrProberRunning 健康探测已在运行
	ErrProberRunning = routing.ErrProberRunning

	// ErrInvalidIdentifier 标识符文本无法解析
	ErrInvalidIdentifier = types.ErrInvalidIdentifier
)

// OpError 携带操作名称的路由表错误
type OpError = routing.OpError
