package interfaces

import (
	"context"

	"github.com/dep2p/go-kbucket/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
// 路由表接口
// ════════════════════════════════════════════════════════════════════════════

// RoutingTable 定义 Kademlia 路由表接口
//
// 路由表是纯内存结构，由调用方事件驱动，所有方法可并发调用。
type RoutingTable interface {
	// SetBaseNode 设置本地标识符并重建路由表
	//
	// 重建是有损操作：新桶已满时放不下的节点被丢弃。
	SetBaseNode(id types.Identifier) error

	// BaseNode 返回本地标识符，未设置时第二个返回值为 false
	BaseNode() (types.Identifier, bool)

	// Live 记录一次确认成功的联系，可能驱逐最久未确认的节点
	Live(p types.Peer) error

	// Add 记录一次被动得知的节点，从不驱逐
	Add(p types.Peer) error

	// Remove 移除节点，不存在时不做任何事
	Remove(p types.Peer) error

	// Contains 检查节点是否在表中
	Contains(p types.Peer) (bool, error)

	// Verify 返回任意已满桶中的一个节点，用于周期性健康探测
	Verify() (types.Peer, bool)

	// Count 返回节点总数
	Count() int

	// ToSlice 返回所有节点的快照
	ToSlice() []types.Peer

	// Search 返回距离 target 最近的至多 k 个节点，按距离升序
	//
	// 参数:
	//   - target: 目标标识符（节点 ID 或内容哈希）
	//   - k: 返回数量上限，0 返回空结果，负数返回错误
	Search(target types.Identifier, k int) ([]types.Peer, error)

	// SearchExcludingSelf 与 Search 相同，但只返回比本地节点严格更接近 target 的节点
	SearchExcludingSelf(target types.Identifier, k int) ([]types.Peer, error)
}

// VerifyHandler 由调用方实现的节点可达性检查
//
// 返回 nil 表示联系成功。
type VerifyHandler = func(ctx context.Context, p types.Peer) error
