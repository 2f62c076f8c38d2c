package kbucket

import (
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-kbucket/pkg/types"
)

// ReplacementReason 节点进入替换缓存的原因
type ReplacementReason int

const (
	// ReasonEvicted 被 Live 驱逐出已满的桶
	ReasonEvicted ReplacementReason = iota
	// ReasonRejected Add 时桶已满而未插入
	ReasonRejected
)

// String 返回原因的字符串表示
func (r ReplacementReason) String() string {
	switch r {
	case ReasonEvicted:
		return "evicted"
	case ReasonRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Replacement 替换缓存条目
type Replacement struct {
	Peer   types.Peer
	Class  types.DistanceClass // 相对基准节点的距离等级
	Reason ReplacementReason
	At     time.Time
}

// ReplacementCache 有界的替换候选缓存
//
// 记录被 Live 驱逐或被 Add 拒绝的节点，供维护循环挑选重新确认的对象。
// 缓存只用于观察，不改变 Add / Live 的语义；节点重新进入路由表时从缓存移除。
type ReplacementCache struct {
	cache *lru.Cache[string, Replacement]
	clock clock.Clock
}

// NewReplacementCache 创建容量为 size 的替换缓存
func NewReplacementCache(size int, clk clock.Clock) (*ReplacementCache, error) {
	c, err := lru.New[string, Replacement](size)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &ReplacementCache{cache: c, clock: clk}, nil
}

// Put 记录一个替换候选
func (rc *ReplacementCache) Put(p types.Peer, class types.DistanceClass, reason ReplacementReason) {
	rc.cache.Add(p.Identifier().Key(), Replacement{
		Peer:   p,
		Class:  class,
		Reason: reason,
		At:     rc.clock.Now(),
	})
}

// Forget 移除标识符对应的候选
func (rc *ReplacementCache) Forget(id types.Identifier) {
	rc.cache.Remove(id.Key())
}

// Take 取出并移除标识符对应的候选
func (rc *ReplacementCache) Take(id types.Identifier) (Replacement, bool) {
	r, ok := rc.cache.Peek(id.Key())
	if ok {
		rc.cache.Remove(id.Key())
	}
	return r, ok
}

// Len 返回缓存条目数
func (rc *ReplacementCache) Len() int {
	return rc.cache.Len()
}

// Entries 按从新到旧返回所有候选
func (rc *ReplacementCache) Entries() []Replacement {
	vals := rc.cache.Values() // 从旧到新
	out := make([]Replacement, len(vals))
	for i, v := range vals {
		out[len(vals)-1-i] = v
	}
	return out
}

// Purge 清空缓存
func (rc *ReplacementCache) Purge() {
	rc.cache.Purge()
}
