package kbucket

import (
	"github.com/dep2p/go-kbucket/pkg/types"
)

// ============================================================================
//                              Scratch - 候选槽位池
// ============================================================================

// sentinelRef 基准节点占位条目的引用值
const sentinelRef int32 = -1

// candidate 搜索工作集中的一个条目
//
// ref 指向调用方的候选序列（或路由表中的槽位），prev/next 是工作集链表下标。
type candidate struct {
	dist types.DistanceClass
	ref  int32
	prev int32
	next int32
}

// Scratch 搜索使用的可复用槽位池
//
// 工作集最多同时占用 k+1 个槽位，池按遇到的最大工作集自动扩容，之后重复使用，
// 因此稳定状态下搜索不产生堆分配（结果切片除外）。
//
// Scratch 不是并发安全的：每个调用方（goroutine）持有自己的 Scratch，
// 路由表持有一个并在表锁内使用。
type Scratch struct {
	slots []candidate
	free  int32
}

// NewScratch 创建预留 capacity 个槽位的池
func NewScratch(capacity int) *Scratch {
	if capacity < 0 {
		capacity = 0
	}
	return &Scratch{slots: make([]candidate, 0, capacity), free: nilSlot}
}

// Cap 返回当前槽位容量
func (s *Scratch) Cap() int {
	return cap(s.slots)
}

// reset 为容纳 n 个并发条目准备槽位池
func (s *Scratch) reset(n int) {
	if cap(s.slots) < n {
		s.slots = make([]candidate, n)
	} else {
		s.slots = s.slots[:n]
	}
	for i := range s.slots {
		s.slots[i].next = int32(i + 1)
	}
	if n > 0 {
		s.slots[n-1].next = nilSlot
		s.free = 0
	} else {
		s.free = nilSlot
	}
}

func (s *Scratch) alloc() int32 {
	i := s.free
	s.free = s.slots[i].next
	return i
}

func (s *Scratch) release(i int32) {
	s.slots[i].next = s.free
	s.free = i
}

// ============================================================================
//                              topK - 有界有序工作集
// ============================================================================

// topK 按距离升序排列、最多保留 limit 个条目的工作集
//
// 新条目从当前最远条目开始向前比较，找到插入点后插入；
// 超出 limit 时丢弃最远条目。距离相同的条目保持输入顺序。
type topK struct {
	s     *Scratch
	head  int32
	tail  int32
	size  int
	limit int
}

func newTopK(s *Scratch, limit int) topK {
	s.reset(limit + 1)
	return topK{s: s, head: nilSlot, tail: nilSlot, limit: limit}
}

// push 放入一个条目
func (t *topK) push(dist types.DistanceClass, ref int32) {
	slots := t.s.slots
	// 已满且不比最远条目更近：直接跳过
	if t.size == t.limit && (t.tail == nilSlot || slots[t.tail].dist <= dist) {
		return
	}

	at := t.tail
	for at != nilSlot && slots[at].dist > dist {
		at = slots[at].prev
	}

	n := t.s.alloc()
	c := &slots[n]
	c.dist = dist
	c.ref = ref
	c.prev = at
	if at == nilSlot {
		c.next = t.head
		if t.head != nilSlot {
			slots[t.head].prev = n
		}
		t.head = n
	} else {
		c.next = slots[at].next
		if c.next != nilSlot {
			slots[c.next].prev = n
		}
		slots[at].next = n
	}
	if c.next == nilSlot {
		t.tail = n
	}
	t.size++

	if t.size > t.limit {
		drop := t.tail
		t.tail = slots[drop].prev
		if t.tail != nilSlot {
			slots[t.tail].next = nilSlot
		} else {
			t.head = nilSlot
		}
		t.s.release(drop)
		t.size--
	}
}

// each 从近到远遍历，遇到哨兵条目或 fn 返回 false 时停止
func (t *topK) each(fn func(ref int32) bool) {
	for i := t.head; i != nilSlot; i = t.s.slots[i].next {
		ref := t.s.slots[i].ref
		if ref == sentinelRef || !fn(ref) {
			return
		}
	}
}

// ============================================================================
//                              Search - 有界最近邻搜索
// ============================================================================

// Search 返回 candidates 中距离 target 最近的至多 k 个节点，按距离升序排列
//
// 距离相同的节点保持输入顺序，因此结果等于对 candidates 按距离稳定排序后
// 取前 k 个。k 为 0 时返回空结果。s 为 nil 时使用临时槽位池。
//
// candidates 中不能有带类型的 nil 指针，除非其 Identifier 方法不解引用
// 接收者（此时返回空标识符，按 ErrEmptyIdentifier 拒绝）。
func Search[P types.Peer](candidates []P, target types.Identifier, k int, s *Scratch) ([]P, error) {
	if err := checkSearchArgs("search", target, k); err != nil {
		return nil, err
	}
	limit := min(k, len(candidates))
	if k == 0 {
		return []P{}, nil
	}
	if s == nil {
		s = NewScratch(limit + 1)
	}

	t := newTopK(s, limit)
	for i, c := range candidates {
		id, err := peerID("search", c)
		if err != nil {
			return nil, err
		}
		t.push(Distance(target, id), int32(i))
	}
	return collect(&t, candidates), nil
}

// SearchExcludingSelf 与 Search 相同，但只返回比 base 严格更接近 target 的节点
//
// 工作集先放入距离为 Distance(target, base) 的哨兵条目，
// 输出在哨兵处截止。用于在自身路由表内排序时，
// 保证不会返回不比本节点更接近目标的节点。
func SearchExcludingSelf[P types.Peer](candidates []P, target, base types.Identifier, k int, s *Scratch) ([]P, error) {
	if err := checkSearchArgs("search excluding self", target, k); err != nil {
		return nil, err
	}
	if len(base) == 0 {
		return nil, opError("search excluding self", ErrEmptyIdentifier)
	}
	// 哨兵占用一个条目
	limit := min(k, len(candidates)+1)
	if k == 0 {
		return []P{}, nil
	}
	if s == nil {
		s = NewScratch(limit + 1)
	}

	t := newTopK(s, limit)
	t.push(Distance(target, base), sentinelRef)
	for i, c := range candidates {
		id, err := peerID("search excluding self", c)
		if err != nil {
			return nil, err
		}
		t.push(Distance(target, id), int32(i))
	}
	return collect(&t, candidates), nil
}

func collect[P types.Peer](t *topK, candidates []P) []P {
	out := make([]P, 0, t.size)
	t.each(func(ref int32) bool {
		out = append(out, candidates[ref])
		return true
	})
	return out
}

func checkSearchArgs(op string, target types.Identifier, k int) error {
	if k < 0 {
		return opError(op, ErrNegativeK)
	}
	if len(target) == 0 {
		return opError(op, ErrEmptyIdentifier)
	}
	return nil
}

// peerID 校验 Peer 并返回其标识符
//
// 带类型的 nil 指针无法在不使用反射的情况下识别，直接调用其 Identifier。
func peerID(op string, p types.Peer) (types.Identifier, error) {
	if p == nil {
		return nil, opError(op, ErrNilPeer)
	}
	id := p.Identifier()
	if len(id) == 0 {
		return nil, opError(op, ErrEmptyIdentifier)
	}
	return id, nil
}
