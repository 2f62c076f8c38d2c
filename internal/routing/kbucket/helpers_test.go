package kbucket

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/dep2p/go-kbucket/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

func pid(b ...byte) types.IDPeer {
	return types.IDPeer(b)
}

// idAtClass 构造与 base 距离等级恰为 class 的标识符，low 决定更低比特的取值
func idAtClass(base types.Identifier, class int, low uint64) types.Identifier {
	id := base.Clone()
	flip := func(bit int) {
		id[len(id)-1-bit/8] ^= 1 << (bit % 8)
	}
	flip(class - 1)
	for j := 0; j < class-1 && j < 64; j++ {
		if low>>j&1 == 1 {
			flip(j)
		}
	}
	return id
}

func randomID(rng *rand.Rand, size int) types.Identifier {
	id := make(types.Identifier, size)
	rng.Read(id)
	return id
}

// bruteForce 稳定排序后截取前 k 个，作为搜索的参照实现
func bruteForce(candidates []types.IDPeer, target types.Identifier, k int) []types.IDPeer {
	sorted := make([]types.IDPeer, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Distance(target, sorted[i].Identifier()) < Distance(target, sorted[j].Identifier())
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

func identifiers[P types.Peer](peers []P) []string {
	out := make([]string, len(peers))
	for i, p := range peers {
		out[i] = p.Identifier().String()
	}
	return out
}

// newTestTable 创建并设置好基准节点的路由表
func newTestTable(t testing.TB, rows, columns int, base types.Identifier, opts ...Option) *RoutingTable {
	t.Helper()
	rt, err := NewRoutingTable(rows, columns, opts...)
	if err != nil {
		t.Fatalf("new routing table: %v", err)
	}
	if err := rt.SetBaseNode(base); err != nil {
		t.Fatalf("set base node: %v", err)
	}
	return rt
}
