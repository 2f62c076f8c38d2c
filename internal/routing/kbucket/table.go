// Package kbucket 实现 Kademlia 风格的路由表与有界最近邻搜索
//
// 路由表是纯内存结构，由调用方的事件驱动：
//   - Live: 确认联系成功，可能驱逐最久未确认的节点
//   - Add:  被动得知（二手消息），从不驱逐
//   - Remove: 联系失败等调用方策略
//
// 所有操作在一把表级互斥锁内执行，路由表表现为监视器；
// 枚举结果是锁内拍下的快照。
package kbucket

import (
	"math"
	"sync"

	"github.com/dep2p/go-kbucket/pkg/lib/log"
	"github.com/dep2p/go-kbucket/pkg/types"
)

var logger = log.Logger("routing/kbucket")

// ============================================================================
//                              配置选项
// ============================================================================

// Option 路由表选项
type Option func(*RoutingTable)

// WithMetrics 设置指标，nil 表示不采集
func WithMetrics(m *Metrics) Option {
	return func(rt *RoutingTable) {
		rt.metrics = m
	}
}

// WithReplacementCache 设置替换缓存，nil 表示不记录
func WithReplacementCache(rc *ReplacementCache) Option {
	return func(rt *RoutingTable) {
		rt.replacements = rc
	}
}

// WithScratchCapacity 预留表内搜索槽位数量
func WithScratchCapacity(n int) Option {
	return func(rt *RoutingTable) {
		rt.scratch = NewScratch(n)
	}
}

// WithPeerAdded 设置节点进入路由表时的回调
//
// 回调在释放表锁后调用，可以安全地回调路由表。
func WithPeerAdded(fn func(types.Peer)) Option {
	return func(rt *RoutingTable) {
		if fn != nil {
			rt.peerAdded = fn
		}
	}
}

// WithPeerRemoved 设置节点离开路由表（移除、驱逐或重建时丢弃）时的回调
func WithPeerRemoved(fn func(types.Peer)) Option {
	return func(rt *RoutingTable) {
		if fn != nil {
			rt.peerRemoved = fn
		}
	}
}

// ============================================================================
//                              路由表
// ============================================================================

// RoutingTable 路由表
//
// buckets[i] 存放与基准节点距离等级为 i+1 的节点；桶在首次插入时创建。
// 距离等级超过行数的节点归入最后一个桶。
type RoutingTable struct {
	mu sync.Mutex

	rows    int
	columns int

	base    types.Identifier
	hasBase bool

	buckets   []*Bucket
	total     int
	saturated int

	scratch      *Scratch
	replacements *ReplacementCache
	metrics      *Metrics

	peerAdded   func(types.Peer)
	peerRemoved func(types.Peer)
}

// TableStats 路由表统计信息
type TableStats struct {
	Rows      int
	Columns   int
	Peers     int
	Buckets   int                         // 已创建的桶数
	Saturated int                         // 已满的桶数
	PerClass  map[types.DistanceClass]int // 非空桶的节点数，键为距离等级
}

// change 锁外派发的回调事件
type change struct {
	peer  types.Peer
	added bool
}

// NewRoutingTable 创建 rows 行、每桶 columns 列的路由表
//
// 基准节点需通过 SetBaseNode 设置后才能进行成员操作。
func NewRoutingTable(rows, columns int, opts ...Option) (*RoutingTable, error) {
	if rows <= 0 || columns <= 0 || int64(rows)*int64(columns) > math.MaxInt32 {
		return nil, opError("new routing table", ErrInvalidDimensions)
	}

	rt := &RoutingTable{
		rows:        rows,
		columns:     columns,
		buckets:     make([]*Bucket, rows),
		peerAdded:   func(types.Peer) {},
		peerRemoved: func(types.Peer) {},
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.scratch == nil {
		rt.scratch = NewScratch(columns + 1)
	}
	return rt, nil
}

// Rows 返回行数（桶数上限）
func (rt *RoutingTable) Rows() int {
	return rt.rows
}

// Columns 返回每个桶的容量
func (rt *RoutingTable) Columns() int {
	return rt.columns
}

// SetBaseNode 设置基准节点并重建路由表
//
// 所有已有节点按 ToSlice 顺序取出、清空后相对新基准节点被动插入到桶尾，
// 因此同一个桶内的节点保持原有的新旧顺序。新桶已满时放不下的节点被丢弃
// （有损操作），并触发 PeerRemoved 回调。
// 耗时与表大小成正比，不应在延迟敏感路径上调用。
func (rt *RoutingTable) SetBaseNode(id types.Identifier) error {
	if len(id) == 0 {
		return opError("set base node", ErrEmptyIdentifier)
	}

	rt.mu.Lock()
	existing := rt.snapshotLocked()
	rebuild := rt.hasBase

	rt.base = id.Clone()
	rt.hasBase = true
	if rt.replacements != nil {
		rt.replacements.Purge()
	}
	for i := range rt.buckets {
		rt.buckets[i] = nil
	}
	rt.total, rt.saturated = 0, 0

	var events []change
	for _, p := range existing {
		class := Distance(rt.base, p.Identifier())
		if class.IsSelf() {
			events = append(events, change{peer: p})
			continue
		}
		b := rt.bucketFor(class, true)
		wasFull := b.Full()
		if !b.Append(p) {
			events = append(events, change{peer: p})
			continue
		}
		rt.afterInsert(b, wasFull)
	}

	if rebuild {
		rt.metrics.rebuilt()
	}
	rt.metrics.removed(len(events))
	rt.metrics.setSize(rt.total, rt.saturated)
	rt.mu.Unlock()

	if len(existing) > 0 {
		logger.Debug("基准节点变更，路由表已重建",
			"base", id.ShortString(),
			"kept", len(existing)-len(events),
			"dropped", len(events))
	} else {
		logger.Info("基准节点已设置", "base", id.ShortString())
	}
	rt.dispatch(events)
	return nil
}

// BaseNode 返回基准节点标识符
func (rt *RoutingTable) BaseNode() (types.Identifier, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.base.Clone(), rt.hasBase
}

// Live 记录一次确认成功的联系
//
// 节点前移到所在桶头部；桶满时驱逐最久未确认的节点。
// 这是唯一会驱逐已有节点的路径。节点是基准节点本身时不做任何事。
func (rt *RoutingTable) Live(p types.Peer) error {
	rt.mu.Lock()
	id, err := rt.checkPeerLocked("live", p)
	if err != nil {
		rt.mu.Unlock()
		return err
	}
	class := Distance(rt.base, id)
	if class.IsSelf() {
		rt.mu.Unlock()
		return nil
	}

	b := rt.bucketFor(class, true)
	present := b.Contains(id)
	wasFull := b.Full()
	evicted := b.PromoteOrEvict(p)

	var events []change
	if !present {
		rt.metrics.inserted(policyLive)
		if rt.replacements != nil {
			rt.replacements.Forget(id)
		}
		events = append(events, change{peer: p, added: true})
		if evicted != nil {
			rt.metrics.evicted()
			if rt.replacements != nil {
				rt.replacements.Put(evicted, class, ReasonEvicted)
			}
			events = append(events, change{peer: evicted})
		} else {
			rt.afterInsert(b, wasFull)
		}
	}
	rt.metrics.setSize(rt.total, rt.saturated)
	rt.mu.Unlock()

	if evicted != nil {
		logger.Debug("确认联系驱逐了最久未确认的节点",
			"peer", id.ShortString(),
			"evicted", evicted.Identifier().ShortString(),
			"class", int(class))
	}
	rt.dispatch(events)
	return nil
}

// Add 记录一次被动得知（未经确认）的节点
//
// 仅当节点不在表中且所在桶未满时插入；从不驱逐，也不调整已有节点的顺序。
// 桶满属于正常结果，不是错误。
func (rt *RoutingTable) Add(p types.Peer) error {
	rt.mu.Lock()
	id, err := rt.checkPeerLocked("add", p)
	if err != nil {
		rt.mu.Unlock()
		return err
	}
	class := Distance(rt.base, id)
	if class.IsSelf() {
		rt.mu.Unlock()
		return nil
	}

	b := rt.bucketFor(class, true)
	wasFull := b.Full()
	var events []change
	switch {
	case b.Insert(p):
		rt.afterInsert(b, wasFull)
		rt.metrics.inserted(policyAdd)
		if rt.replacements != nil {
			rt.replacements.Forget(id)
		}
		events = append(events, change{peer: p, added: true})
	case wasFull && !b.Contains(id):
		rt.metrics.rejected()
		if rt.replacements != nil {
			rt.replacements.Put(p, class, ReasonRejected)
		}
	}
	rt.metrics.setSize(rt.total, rt.saturated)
	rt.mu.Unlock()

	rt.dispatch(events)
	return nil
}

// Remove 从所在桶中移除节点，节点不存在时不做任何事
func (rt *RoutingTable) Remove(p types.Peer) error {
	rt.mu.Lock()
	id, err := rt.checkPeerLocked("remove", p)
	if err != nil {
		rt.mu.Unlock()
		return err
	}
	class := Distance(rt.base, id)
	b := rt.bucketFor(class, false)
	if b == nil {
		rt.mu.Unlock()
		return nil
	}

	wasFull := b.Full()
	removed, ok := b.Remove(id)
	if ok {
		rt.total--
		if wasFull {
			rt.saturated--
		}
		rt.metrics.removed(1)
		rt.metrics.setSize(rt.total, rt.saturated)
	}
	rt.mu.Unlock()

	if ok {
		rt.dispatch([]change{{peer: removed}})
	}
	return nil
}

// Contains 检查节点是否在表中，只查找其所在的桶
func (rt *RoutingTable) Contains(p types.Peer) (bool, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id, err := rt.checkPeerLocked("contains", p)
	if err != nil {
		return false, err
	}
	b := rt.bucketFor(Distance(rt.base, id), false)
	if b == nil {
		return false, nil
	}
	return b.Contains(id), nil
}

// Verify 返回任意已满桶中的一个节点
//
// 从距离等级 1 开始向远处扫描，返回第一个已满桶中最久未确认（尾部）的节点；
// 没有已满的桶时返回 false。调用方把它当作表中该区域已充分填充的粗略信号。
func (rt *RoutingTable) Verify() (types.Peer, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.saturated == 0 {
		return nil, false
	}
	for _, b := range rt.buckets {
		if b != nil && b.Full() {
			return b.Back(), true
		}
	}
	return nil, false
}

// Count 返回表中节点总数
func (rt *RoutingTable) Count() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.total
}

// ToSlice 返回所有节点的快照
//
// 顺序：按距离等级从近到远，桶内从最近确认到最久未确认。
func (rt *RoutingTable) ToSlice() []types.Peer {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.snapshotLocked()
}

// BucketCount 返回指定距离等级所在桶的节点数
func (rt *RoutingTable) BucketCount(class types.DistanceClass) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if class <= 0 {
		return 0
	}
	if b := rt.bucketFor(class, false); b != nil {
		return b.Count()
	}
	return 0
}

// BucketPeers 返回指定距离等级所在桶的快照（头部为最近确认）
func (rt *RoutingTable) BucketPeers(class types.DistanceClass) []types.Peer {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if class <= 0 {
		return nil
	}
	b := rt.bucketFor(class, false)
	if b == nil {
		return nil
	}
	return b.Peers()
}

// Search 返回表中距离 target 最近的至多 k 个节点，按距离升序排列
func (rt *RoutingTable) Search(target types.Identifier, k int) ([]types.Peer, error) {
	return rt.search("search", target, k, false)
}

// SearchExcludingSelf 返回表中比基准节点严格更接近 target 的至多 k 个节点
func (rt *RoutingTable) SearchExcludingSelf(target types.Identifier, k int) ([]types.Peer, error) {
	return rt.search("search excluding self", target, k, true)
}

func (rt *RoutingTable) search(op string, target types.Identifier, k int, excludeSelf bool) ([]types.Peer, error) {
	if err := checkSearchArgs(op, target, k); err != nil {
		return nil, err
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.hasBase {
		return nil, opError(op, ErrBaseNodeNotSet)
	}
	if k == 0 {
		return []types.Peer{}, nil
	}

	// 工作集不超过表中节点数（加哨兵）
	limit := min(k, rt.total)
	if excludeSelf {
		limit = min(k, rt.total+1)
	}

	// ref = 桶下标 × columns + 槽位下标
	t := newTopK(rt.scratch, limit)
	if excludeSelf {
		t.push(Distance(target, rt.base), sentinelRef)
	}
	for bi, b := range rt.buckets {
		if b == nil {
			continue
		}
		for si := b.head; si != nilSlot; si = b.slots[si].next {
			t.push(Distance(target, b.slots[si].id), int32(bi*rt.columns)+si)
		}
	}

	out := make([]types.Peer, 0, t.size)
	t.each(func(ref int32) bool {
		b := rt.buckets[int(ref)/rt.columns]
		out = append(out, b.slots[int(ref)%rt.columns].peer)
		return true
	})
	rt.metrics.searched(len(out))
	return out, nil
}

// Replacements 返回替换缓存中的候选（从新到旧），未启用缓存时返回 nil
func (rt *RoutingTable) Replacements() []Replacement {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.replacements == nil {
		return nil
	}
	return rt.replacements.Entries()
}

// Refill 用替换缓存中最新的候选填补 class 所在的桶
//
// 只考虑相对当前基准节点落在同一个桶、且不在表中的候选；
// 桶已满、未启用缓存或没有合适候选时返回 false。
func (rt *RoutingTable) Refill(class types.DistanceClass) (types.Peer, bool) {
	rt.mu.Lock()
	if rt.replacements == nil || !rt.hasBase || class <= 0 {
		rt.mu.Unlock()
		return nil, false
	}
	want := rt.bucketIndex(class)
	b := rt.bucketFor(class, true)
	if b.Full() {
		rt.mu.Unlock()
		return nil, false
	}

	var picked types.Peer
	for _, r := range rt.replacements.Entries() {
		id := r.Peer.Identifier()
		c := Distance(rt.base, id)
		if c.IsSelf() || rt.bucketIndex(c) != want || b.Contains(id) {
			continue
		}
		rt.replacements.Forget(id)
		b.Insert(r.Peer)
		rt.afterInsert(b, false)
		rt.metrics.inserted(policyAdd)
		rt.metrics.setSize(rt.total, rt.saturated)
		picked = r.Peer
		break
	}
	rt.mu.Unlock()

	if picked == nil {
		return nil, false
	}
	logger.Debug("替换候选已补入路由表",
		"peer", picked.Identifier().ShortString(),
		"class", int(class))
	rt.dispatch([]change{{peer: picked, added: true}})
	return picked, true
}

// Stats 返回路由表统计信息
func (rt *RoutingTable) Stats() TableStats {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	st := TableStats{
		Rows:      rt.rows,
		Columns:   rt.columns,
		Peers:     rt.total,
		Saturated: rt.saturated,
		PerClass:  make(map[types.DistanceClass]int),
	}
	for i, b := range rt.buckets {
		if b == nil {
			continue
		}
		st.Buckets++
		if n := b.Count(); n > 0 {
			st.PerClass[types.DistanceClass(i+1)] = n
		}
	}
	return st
}

// ============================================================================
//                              内部方法（调用方持锁）
// ============================================================================

func (rt *RoutingTable) checkPeerLocked(op string, p types.Peer) (types.Identifier, error) {
	id, err := peerID(op, p)
	if err != nil {
		return nil, err
	}
	if !rt.hasBase {
		return nil, opError(op, ErrBaseNodeNotSet)
	}
	return id, nil
}

// bucketFor 返回距离等级对应的桶，create 为 true 时按需创建
func (rt *RoutingTable) bucketFor(class types.DistanceClass, create bool) *Bucket {
	if class.IsSelf() {
		return nil
	}
	idx := rt.bucketIndex(class)
	b := rt.buckets[idx]
	if b == nil && create {
		b = NewBucket(rt.columns)
		rt.buckets[idx] = b
	}
	return b
}

// bucketIndex 距离等级对应的桶下标，超过行数的等级归入最后一个桶
func (rt *RoutingTable) bucketIndex(class types.DistanceClass) int {
	idx := int(class) - 1
	if idx >= rt.rows {
		idx = rt.rows - 1
	}
	return idx
}

// afterInsert 更新一次新增插入后的计数
func (rt *RoutingTable) afterInsert(b *Bucket, wasFull bool) {
	rt.total++
	if !wasFull && b.Full() {
		rt.saturated++
	}
}

func (rt *RoutingTable) snapshotLocked() []types.Peer {
	out := make([]types.Peer, 0, rt.total)
	for _, b := range rt.buckets {
		if b != nil {
			out = b.appendPeers(out)
		}
	}
	return out
}

func (rt *RoutingTable) dispatch(events []change) {
	for _, ev := range events {
		if ev.added {
			rt.peerAdded(ev.peer)
		} else {
			rt.peerRemoved(ev.peer)
		}
	}
}
