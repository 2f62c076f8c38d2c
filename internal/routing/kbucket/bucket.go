package kbucket

import (
	"github.com/dep2p/go-kbucket/pkg/types"
)

// nilSlot 链表结束标记
const nilSlot int32 = -1

// slot 桶内固定槽位
//
// 槽位通过 prev/next 下标串成双向链表，不使用指针，
// 因此前移、插入、驱逐都是 O(1) 且不产生分配。
type slot struct {
	peer types.Peer
	id   types.Identifier
	key  string
	prev int32
	next int32
}

// Bucket 容量固定的 K 桶
//
// 节点按最近确认时间排列：链表头部是最近确认的节点，尾部是最久未确认的节点。
// Bucket 自身不加锁，所有访问都在路由表的锁内进行。
type Bucket struct {
	slots []slot
	index map[string]int32

	head int32
	tail int32
	free int32 // 空闲槽位链表头，经 next 串联
}

// NewBucket 创建容量为 capacity 的桶
//
// capacity 必须为正数，由路由表构造时保证。
func NewBucket(capacity int) *Bucket {
	b := &Bucket{
		slots: make([]slot, capacity),
		index: make(map[string]int32, capacity),
		head:  nilSlot,
		tail:  nilSlot,
	}
	for i := range b.slots {
		b.slots[i].prev = nilSlot
		b.slots[i].next = int32(i + 1)
	}
	b.slots[capacity-1].next = nilSlot
	b.free = 0
	return b
}

// Capacity 返回桶容量
func (b *Bucket) Capacity() int {
	return len(b.slots)
}

// Count 返回桶中节点数量
func (b *Bucket) Count() int {
	return len(b.index)
}

// Full 检查桶是否已满
func (b *Bucket) Full() bool {
	return len(b.index) >= len(b.slots)
}

// Contains 检查桶中是否存在该标识符
func (b *Bucket) Contains(id types.Identifier) bool {
	_, ok := b.index[id.Key()]
	return ok
}

// Get 返回桶中与标识符对应的节点
func (b *Bucket) Get(id types.Identifier) (types.Peer, bool) {
	i, ok := b.index[id.Key()]
	if !ok {
		return nil, false
	}
	return b.slots[i].peer, true
}

// Front 返回最近确认的节点
func (b *Bucket) Front() types.Peer {
	if b.head == nilSlot {
		return nil
	}
	return b.slots[b.head].peer
}

// Back 返回最久未确认的节点
func (b *Bucket) Back() types.Peer {
	if b.tail == nilSlot {
		return nil
	}
	return b.slots[b.tail].peer
}

// Promote 将节点前移到头部
//
//   - 已存在：前移到头部
//   - 不存在且未满：插入头部
//   - 不存在且已满：不做任何事（普通插入不驱逐）
//
// 返回节点最终是否在桶中。
func (b *Bucket) Promote(p types.Peer) bool {
	id := p.Identifier()
	if i, ok := b.index[id.Key()]; ok {
		b.slots[i].peer = p
		b.moveToFront(i)
		return true
	}
	if b.Full() {
		return false
	}
	b.pushFront(p, id)
	return true
}

// PromoteOrEvict 将节点前移到头部，桶满时驱逐尾部节点
//
// 返回被驱逐的节点；没有驱逐时返回 nil。
func (b *Bucket) PromoteOrEvict(p types.Peer) types.Peer {
	id := p.Identifier()
	if i, ok := b.index[id.Key()]; ok {
		b.slots[i].peer = p
		b.moveToFront(i)
		return nil
	}

	var evicted types.Peer
	if b.Full() {
		evicted = b.slots[b.tail].peer
		b.release(b.tail)
	}
	b.pushFront(p, id)
	return evicted
}

// Insert 被动插入
//
// 仅当节点不存在且桶未满时插入头部；从不驱逐，也不调整已有节点的顺序。
// 返回是否插入。
func (b *Bucket) Insert(p types.Peer) bool {
	id := p.Identifier()
	if _, ok := b.index[id.Key()]; ok {
		return false
	}
	if b.Full() {
		return false
	}
	b.pushFront(p, id)
	return true
}

// Append 被动插入到尾部
//
// 与 Insert 相同但放在尾部，用于按从新到旧的顺序整体重建桶。
// 返回是否插入。
func (b *Bucket) Append(p types.Peer) bool {
	id := p.Identifier()
	if _, ok := b.index[id.Key()]; ok {
		return false
	}
	if b.Full() {
		return false
	}
	b.pushBack(p, id)
	return true
}

// Remove 移除节点，返回被移除的节点
func (b *Bucket) Remove(id types.Identifier) (types.Peer, bool) {
	i, ok := b.index[id.Key()]
	if !ok {
		return nil, false
	}
	p := b.slots[i].peer
	b.release(i)
	return p, true
}

// Peers 按从头到尾（最近确认在前）返回桶中节点的拷贝
func (b *Bucket) Peers() []types.Peer {
	out := make([]types.Peer, 0, b.Count())
	return b.appendPeers(out)
}

func (b *Bucket) appendPeers(out []types.Peer) []types.Peer {
	for i := b.head; i != nilSlot; i = b.slots[i].next {
		out = append(out, b.slots[i].peer)
	}
	return out
}

// take 从空闲链表取一个槽位并填入节点，调用方保证桶未满
func (b *Bucket) take(p types.Peer, id types.Identifier) int32 {
	i := b.free
	s := &b.slots[i]
	b.free = s.next

	s.peer = p
	s.id = id.Clone()
	s.key = id.Key()
	b.index[s.key] = i
	return i
}

// pushFront 放到头部，调用方保证桶未满
func (b *Bucket) pushFront(p types.Peer, id types.Identifier) {
	i := b.take(p, id)
	s := &b.slots[i]
	s.prev = nilSlot
	s.next = b.head
	if b.head != nilSlot {
		b.slots[b.head].prev = i
	}
	b.head = i
	if b.tail == nilSlot {
		b.tail = i
	}
}

// pushBack 放到尾部，调用方保证桶未满
func (b *Bucket) pushBack(p types.Peer, id types.Identifier) {
	i := b.take(p, id)
	s := &b.slots[i]
	s.next = nilSlot
	s.prev = b.tail
	if b.tail != nilSlot {
		b.slots[b.tail].next = i
	}
	b.tail = i
	if b.head == nilSlot {
		b.head = i
	}
}

func (b *Bucket) unlink(i int32) {
	s := &b.slots[i]
	if s.prev != nilSlot {
		b.slots[s.prev].next = s.next
	} else {
		b.head = s.next
	}
	if s.next != nilSlot {
		b.slots[s.next].prev = s.prev
	} else {
		b.tail = s.prev
	}
	s.prev, s.next = nilSlot, nilSlot
}

func (b *Bucket) moveToFront(i int32) {
	if b.head == i {
		return
	}
	b.unlink(i)
	s := &b.slots[i]
	s.next = b.head
	b.slots[b.head].prev = i
	b.head = i
}

// release 把槽位从链表摘下并归还空闲链表
func (b *Bucket) release(i int32) {
	b.unlink(i)
	s := &b.slots[i]
	delete(b.index, s.key)
	s.peer = nil
	s.id = nil
	s.key = ""
	s.next = b.free
	b.free = i
}
