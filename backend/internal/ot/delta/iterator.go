package delta

import "math"

// Unbounded 表示"无界长度"哨兵。只在这几个地方出现：
// - PeekLength 在迭代器耗尽后的返回值
// - Next 的 maxLen 参数表示"取完当前操作"
// - Slice 的 end 参数表示"取到末尾"
// 存储在 Delta 里的操作长度永远是有限的。
const Unbounded = math.MaxInt

// Iterator 是 Delta 上的游标，能按请求长度切出子操作，
// 供 compose/transform 等算法对两个 Delta 做等长对齐消费。
// 创建时记下源 Delta 的 modCount；之后源被结构性修改再调用 Next 会 panic
// （ErrConcurrentModification），迭代期间不允许并发修改。
type Iterator struct {
	d        *Delta
	modCount int
	index    int // 当前操作下标
	offset   int // 当前操作内部的 rune 偏移，操作边界处为 0
}

// Iterator 创建一个新游标。
func (d *Delta) Iterator() *Iterator {
	return &Iterator{d: d, modCount: d.modCount}
}

func (it *Iterator) check() {
	if it.modCount != it.d.modCount {
		panic(ErrConcurrentModification)
	}
}

// HasNext 等价于 PeekLength() < Unbounded。
func (it *Iterator) HasNext() bool {
	return it.PeekLength() < Unbounded
}

// PeekLength 返回当前操作还剩多少长度可取；迭代器耗尽时返回 Unbounded。
func (it *Iterator) PeekLength() int {
	if it.index < len(it.d.ops) {
		return it.d.ops[it.index].length - it.offset
	}
	return Unbounded
}

// PeekKind 返回下一个子操作的种类；耗尽时返回 KindRetain
// （耗尽后的 Next 会合成无属性 retain）。
func (it *Iterator) PeekKind() Kind {
	if it.index < len(it.d.ops) {
		return it.d.ops[it.index].kind
	}
	return KindRetain
}

func (it *Iterator) IsNextInsert() bool { return it.PeekKind() == KindInsert }
func (it *Iterator) IsNextDelete() bool { return it.PeekKind() == KindDelete }
func (it *Iterator) IsNextRetain() bool { return it.PeekKind() == KindRetain }

// Next 从当前操作切出最长 maxLen 的新操作并前进。
// maxLen <= 0 按 Unbounded 处理。
// 迭代器耗尽后返回长度为 maxLen 的无属性合成 retain——算法主循环
// 靠它把较短的一侧"垫平"，结果最后由 Trim 清掉。
func (it *Iterator) Next(maxLen int) Op {
	it.check()
	if maxLen <= 0 {
		maxLen = Unbounded
	}
	if it.index >= len(it.d.ops) {
		return Op{kind: KindRetain, length: maxLen}
	}
	cur := it.d.ops[it.index]
	offset := it.offset
	remaining := cur.length - offset
	take := maxLen
	if take > remaining {
		take = remaining
	}
	if take == remaining {
		it.index++
		it.offset = 0
	} else {
		it.offset += take
	}
	switch cur.kind {
	case KindDelete:
		return Op{kind: KindDelete, length: take}
	case KindRetain:
		return Op{kind: KindRetain, length: take, attrs: cur.attrs}
	default:
		return Op{kind: KindInsert, length: take, text: runeSubstring(cur.text, offset, take), attrs: cur.attrs}
	}
}

// Skip 丢弃接下来 n 个长度单位。
func (it *Iterator) Skip(n int) {
	for n > 0 && it.HasNext() {
		step := it.PeekLength()
		if step > n {
			step = n
		}
		it.Next(step)
		n -= step
	}
}
