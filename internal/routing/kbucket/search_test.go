package kbucket

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-kbucket/pkg/types"
)

// ============================================================================
// Search 测试
// ============================================================================

func suffixPeer(last byte) types.IDPeer {
	id := make(types.IDPeer, 20)
	id[19] = last
	return id
}

// TestSearch_NearestFirst 测试按距离升序返回最近的 k 个
func TestSearch_NearestFirst(t *testing.T) {
	target := make(types.Identifier, 20)
	candidates := []types.IDPeer{suffixPeer(0xFF), suffixPeer(0x01), suffixPeer(0x02)}

	got, err := Search(candidates, target, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.IDPeer{suffixPeer(0x01), suffixPeer(0x02)}, got)

	// 输入顺序不影响结果
	candidates = []types.IDPeer{suffixPeer(0x01), suffixPeer(0x02), suffixPeer(0xFF)}
	got, err = Search(candidates, target, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.IDPeer{suffixPeer(0x01), suffixPeer(0x02)}, got)

	t.Log("✅ 搜索返回最近的节点")
}

// TestSearch_StableTies 测试距离相同的节点保持输入顺序
func TestSearch_StableTies(t *testing.T) {
	target := types.Identifier{0x00}
	// 0x04..0x07 距离等级都是 3
	candidates := []types.IDPeer{pid(0x06), pid(0x04), pid(0x10), pid(0x07), pid(0x05)}

	got, err := Search(candidates, target, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.IDPeer{pid(0x06), pid(0x04), pid(0x07)}, got)
}

// TestSearch_KBounds 测试 k 的边界
func TestSearch_KBounds(t *testing.T) {
	target := types.Identifier{0x00}
	candidates := []types.IDPeer{pid(1), pid(2), pid(3)}

	got, err := Search(candidates, target, 0, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = Search(candidates, target, 10, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = Search([]types.IDPeer{}, target, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Search(candidates, target, -1, nil)
	assert.ErrorIs(t, err, ErrNegativeK)

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "search", opErr.Op)

	t.Log("✅ k 边界处理正确")
}

// TestSearch_InvalidInput 测试无效输入
func TestSearch_InvalidInput(t *testing.T) {
	_, err := Search([]types.IDPeer{pid(1)}, nil, 1, nil)
	assert.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = Search([]types.IDPeer{pid(1), {}}, types.Identifier{0}, 1, nil)
	assert.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = Search([]types.Peer{pid(1), nil}, types.Identifier{0}, 1, nil)
	assert.ErrorIs(t, err, ErrNilPeer)
}

// TestSearch_MatchesBruteForce 随机输入与稳定排序参照实现对比
func TestSearch_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewScratch(0)

	for round := 0; round < 300; round++ {
		n := rng.Intn(200)
		candidates := make([]types.IDPeer, n)
		for i := range candidates {
			// 短标识符制造大量同距离的条目
			candidates[i] = types.IDPeer(randomID(rng, 1+rng.Intn(3)))
		}
		target := randomID(rng, 1+rng.Intn(3))
		k := rng.Intn(40)

		got, err := Search(candidates, target, k, s)
		require.NoError(t, err)

		want := bruteForce(candidates, target, k)
		require.Equal(t, identifiers(want), identifiers(got), "round %d", round)

		for i := 1; i < len(got); i++ {
			assert.LessOrEqual(t,
				Distance(target, got[i-1].Identifier()),
				Distance(target, got[i].Identifier()))
		}
	}

	t.Log("✅ 搜索结果与参照实现一致")
}

// TestSearch_ScratchReuse 测试槽位池按需扩容并复用
func TestSearch_ScratchReuse(t *testing.T) {
	s := NewScratch(2)
	candidates := []types.IDPeer{pid(1), pid(2), pid(3), pid(4)}

	_, err := Search(candidates, types.Identifier{0}, 3, s)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.Cap(), 4)

	grown := s.Cap()
	got, err := Search(candidates, types.Identifier{0}, 1, s)
	require.NoError(t, err)
	assert.Equal(t, []types.IDPeer{pid(1)}, got)
	assert.Equal(t, grown, s.Cap(), "更小的 k 不重新分配")
}

// TestSearch_ConcurrentScratch 测试每个 goroutine 持有自己的槽位池时可并发搜索
func TestSearch_ConcurrentScratch(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	candidates := make([]types.IDPeer, 500)
	for i := range candidates {
		candidates[i] = types.IDPeer(randomID(rng, 8))
	}
	targets := make([]types.Identifier, 16)
	for i := range targets {
		targets[i] = randomID(rng, 8)
	}

	var g errgroup.Group
	for _, target := range targets {
		target := target
		g.Go(func() error {
			s := NewScratch(21)
			for i := 0; i < 50; i++ {
				got, err := Search(candidates, target, 20, s)
				if err != nil {
					return err
				}
				want := bruteForce(candidates, target, 20)
				if len(got) != len(want) {
					return errors.New("length mismatch")
				}
				for j := range got {
					if !got[j].Identifier().Equal(want[j].Identifier()) {
						return errors.New("order mismatch")
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

// ============================================================================
// SearchExcludingSelf 测试
// ============================================================================

// TestSearchExcludingSelf_BaseCloserThanAll 测试基准节点比所有候选都近时返回空
func TestSearchExcludingSelf_BaseCloserThanAll(t *testing.T) {
	target := make(types.Identifier, 20)
	base := suffixPeer(0x01).Identifier()
	candidates := []types.IDPeer{suffixPeer(0x02), suffixPeer(0x10), suffixPeer(0xFF)}

	got, err := SearchExcludingSelf(candidates, target, base, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	t.Log("✅ 基准节点最近时结果为空")
}

// TestSearchExcludingSelf_StrictlyCloser 测试只返回严格更近的节点
func TestSearchExcludingSelf_StrictlyCloser(t *testing.T) {
	target := types.Identifier{0x00}
	base := types.Identifier{0x04} // 等级 3
	candidates := []types.IDPeer{
		pid(0x08), // 等级 4
		pid(0x05), // 等级 3，与基准节点同距离，排除
		pid(0x01), // 等级 1
		pid(0x03), // 等级 2
		pid(0x02), // 等级 2
	}

	got, err := SearchExcludingSelf(candidates, target, base, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.IDPeer{pid(0x01), pid(0x03), pid(0x02)}, got)

	got, err = SearchExcludingSelf(candidates, target, base, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.IDPeer{pid(0x01), pid(0x03)}, got)
}

// TestSearchExcludingSelf_MatchesFilteredBruteForce 随机输入与参照实现对比
func TestSearchExcludingSelf_MatchesFilteredBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	s := NewScratch(0)

	for round := 0; round < 300; round++ {
		candidates := make([]types.IDPeer, rng.Intn(100))
		for i := range candidates {
			candidates[i] = types.IDPeer(randomID(rng, 2))
		}
		target := randomID(rng, 2)
		base := randomID(rng, 2)
		k := rng.Intn(20)

		got, err := SearchExcludingSelf(candidates, target, base, k, s)
		require.NoError(t, err)

		limit := Distance(target, base)
		// 参照：稳定排序后取严格更近的前 k 个
		var filtered []types.IDPeer
		for _, p := range bruteForce(candidates, target, len(candidates)) {
			if Distance(target, p.Identifier()) >= limit || len(filtered) == k {
				break
			}
			filtered = append(filtered, p)
		}
		require.Equal(t, identifiers(filtered), identifiers(got), "round %d", round)
	}
}

// TestSearchExcludingSelf_InvalidInput 测试无效输入
func TestSearchExcludingSelf_InvalidInput(t *testing.T) {
	_, err := SearchExcludingSelf([]types.IDPeer{pid(1)}, types.Identifier{0}, nil, 1, nil)
	assert.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = SearchExcludingSelf([]types.IDPeer{pid(1)}, types.Identifier{0}, types.Identifier{1}, -2, nil)
	assert.ErrorIs(t, err, ErrNegativeK)

	got, err := SearchExcludingSelf([]types.IDPeer{pid(1)}, types.Identifier{0}, types.Identifier{1}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestSearch_HugeK 测试 k 远大于候选数时按候选数分配工作集
func TestSearch_HugeK(t *testing.T) {
	target := make(types.Identifier, 20)
	base := suffixPeer(0x80).Identifier()
	candidates := []types.IDPeer{suffixPeer(0xFF), suffixPeer(0x01), suffixPeer(0x02)}

	for _, k := range []int{math.MaxInt, 1 << 33, 4} {
		got, err := Search(candidates, target, k, nil)
		require.NoError(t, err)
		assert.Equal(t, identifiers(bruteForce(candidates, target, 3)), identifiers(got))

		got, err = SearchExcludingSelf(candidates, target, base, k, nil)
		require.NoError(t, err)
		assert.Equal(t, []types.IDPeer{suffixPeer(0x01), suffixPeer(0x02)}, got)

		s := NewScratch(0)
		got, err = Search(candidates, target, k, s)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.LessOrEqual(t, s.Cap(), len(candidates)+2)
	}

	got, err := Search([]types.IDPeer{}, target, math.MaxInt, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	rt := newTestTable(t, 160, 20, target)
	got2, err := rt.Search(target, math.MaxInt)
	require.NoError(t, err)
	assert.Empty(t, got2)

	require.NoError(t, rt.Live(suffixPeer(0x01)))
	require.NoError(t, rt.Live(suffixPeer(0xFF)))
	got2, err = rt.Search(target, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []types.Peer{suffixPeer(0x01), suffixPeer(0xFF)}, got2)

	got2, err = rt.SearchExcludingSelf(suffixPeer(0xFE).Identifier(), math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, []types.Peer{suffixPeer(0xFF)}, got2)

	t.Log("✅ 超大 k 不会按 k 分配槽位")
}

// ptrPeer 指针接收者的 Peer，nil 接收者返回空标识符
type ptrPeer struct {
	id types.Identifier
}

func (p *ptrPeer) Identifier() types.Identifier {
	if p == nil {
		return nil
	}
	return p.id
}

// TestSearch_TypedNilPeer 测试带类型的 nil 指针按空标识符拒绝
func TestSearch_TypedNilPeer(t *testing.T) {
	target := make(types.Identifier, 20)
	candidates := []*ptrPeer{{id: suffixPeer(0x01).Identifier()}, nil}

	_, err := Search(candidates, target, 2, nil)
	assert.ErrorIs(t, err, ErrEmptyIdentifier)

	_, err = SearchExcludingSelf(candidates, target, suffixPeer(0x80).Identifier(), 2, nil)
	assert.ErrorIs(t, err, ErrEmptyIdentifier)
}
