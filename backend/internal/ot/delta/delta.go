package delta

import (
	"encoding/json"
	"slices"
	"strings"
)

// Delta 是有序的操作序列，既可表示文档（全 insert），也可表示一次编辑。
// push 在追加时维持规范形（normal form）：
//  1. 不存空操作
//  2. 相邻可合并的操作必定已合并（同为 delete；或同为 insert/retain 且属性相等）
//  3. insert 永远排在相邻 delete 之前（append insert 到尾部 delete 后面时，
//     insert 被放到 delete 前面，并和更前面的 insert 继续尝试合并）
//  4. Trim 之后末尾不会是无属性的 retain
type Delta struct {
	ops []Op
	// 结构性修改计数，迭代器用它做 fail-fast
	modCount int
}

func New() *Delta {
	return &Delta{}
}

// FromOps 依次 push 传入的操作（会走合并规则，结果保持规范形）。
func FromOps(ops ...Op) *Delta {
	d := New()
	for _, op := range ops {
		d.push(op)
	}
	return d
}

// Ops 返回内部操作序列。只读，调用方不应修改。
func (d *Delta) Ops() []Op { return d.ops }

// Len 返回操作个数。
func (d *Delta) Len() int { return len(d.ops) }

// Length 返回所有操作的长度之和。
func (d *Delta) Length() int {
	n := 0
	for _, op := range d.ops {
		n += op.length
	}
	return n
}

// ChangeLength 返回该编辑作用于基础文档后的长度变化（insert 加、delete 减）。
func (d *Delta) ChangeLength() int {
	n := 0
	for _, op := range d.ops {
		switch op.kind {
		case KindInsert:
			n += op.length
		case KindDelete:
			n -= op.length
		}
	}
	return n
}

// IsDocument 判断是否为文档形态（只含 insert）。
func (d *Delta) IsDocument() bool {
	for _, op := range d.ops {
		if !op.IsInsert() {
			return false
		}
	}
	return true
}

// Insert 追加插入。空串是 Delta 层面的 no-op。
func (d *Delta) Insert(text string, attrs AttributeMap) *Delta {
	d.push(NewInsert(text, attrs))
	return d
}

// Delete 追加删除。n 为负时 panic（ErrInvalidArgument）。
func (d *Delta) Delete(n int) *Delta {
	d.push(NewDelete(n))
	return d
}

// Retain 追加保留。n 为负时 panic（ErrInvalidArgument）。
func (d *Delta) Retain(n int, attrs AttributeMap) *Delta {
	d.push(NewRetain(n, attrs))
	return d
}

// Push 追加任意操作，按合并规则维持规范形。
func (d *Delta) Push(op Op) *Delta {
	d.push(op)
	return d
}

// push 是规范形维护的核心。规则按序判定（tail 为当前末尾）：
//  1. 空操作 → 丢弃
//  2. tail 和 op 同为 delete → 合并长度
//  3. tail 为 delete、op 为 insert → 插入点前移到 delete 之前，
//     再对新的前驱重新尝试合并
//  4. 同为 insert 且属性相等 → 文本拼接
//  5. 同为 retain 且属性相等 → 长度相加
//  6. 其余 → 原样放入（可能插在中间）
func (d *Delta) push(op Op) {
	if op.IsEmpty() {
		return
	}
	index := len(d.ops)
	if index > 0 {
		last := d.ops[index-1]
		if last.IsDelete() && op.IsDelete() {
			d.ops[index-1] = NewDelete(last.length + op.length)
			d.modCount++
			return
		}
		// insert 永远排在相邻 delete 之前，这样 invert 和 compose
		// 的结合律在 delete 后跟 insert 的序列上才成立
		if last.IsDelete() && op.IsInsert() {
			index--
			if index == 0 {
				d.ops = slices.Insert(d.ops, 0, op)
				d.modCount++
				return
			}
			last = d.ops[index-1]
		}
		if AttributesEqual(last.attrs, op.attrs) {
			if last.IsInsert() && op.IsInsert() {
				d.ops[index-1] = NewInsert(last.text+op.text, last.attrs)
				d.modCount++
				return
			}
			if last.IsRetain() && op.IsRetain() {
				d.ops[index-1] = NewRetain(last.length+op.length, last.attrs)
				d.modCount++
				return
			}
		}
	}
	if index == len(d.ops) {
		d.ops = append(d.ops, op)
	} else {
		d.ops = slices.Insert(d.ops, index, op)
	}
	d.modCount++
}

// Trim 去掉末尾的无属性 retain（若有）。
func (d *Delta) Trim() *Delta {
	if n := len(d.ops); n > 0 {
		last := d.ops[n-1]
		if last.IsRetain() && last.IsPlain() {
			d.ops = d.ops[:n-1]
			d.modCount++
		}
	}
	return d
}

// Concat 返回 d 与 other 首尾相接的新 Delta。
// other 的第一个操作走 push（允许跨边界合并），其余原样拼接。
func (d *Delta) Concat(other *Delta) *Delta {
	out := New()
	out.ops = slices.Clone(d.ops)
	if len(other.ops) > 0 {
		out.push(other.ops[0])
		out.ops = append(out.ops, other.ops[1:]...)
	}
	return out
}

// Slice 返回覆盖基础坐标区间 [start, end) 的子 Delta。
// end 可以传 Unbounded 表示取到末尾。
func (d *Delta) Slice(start, end int) *Delta {
	out := New()
	iter := d.Iterator()
	index := 0
	for index < end && iter.HasNext() {
		var next Op
		if index < start {
			next = iter.Next(start - index)
		} else {
			next = iter.Next(end - index)
			out.push(next)
		}
		index += next.length
	}
	return out
}

// Equal 逐元素结构相等。
func (d *Delta) Equal(other *Delta) bool {
	if len(d.ops) != len(other.ops) {
		return false
	}
	for i, op := range d.ops {
		if !op.Equal(other.ops[i]) {
			return false
		}
	}
	return true
}

// EachLine 把文档形态的 Delta 按行切开回调（行内容不含换行符本身，
// 换行符上的属性作为该行的行属性传出）。回调返回 false 时提前结束。
// 遇到非 insert 操作（非文档）时直接返回。
func (d *Delta) EachLine(fn func(line *Delta, attrs AttributeMap, i int) bool) {
	iter := d.Iterator()
	line := New()
	i := 0
	for iter.HasNext() {
		if iter.PeekKind() != KindInsert {
			return
		}
		cur := d.ops[iter.index]
		start := cur.length - iter.PeekLength()
		idx := runeIndexOf(cur.text, "\n", start)
		if idx >= 0 {
			idx -= start
		}
		switch {
		case idx < 0:
			line.push(iter.Next(Unbounded))
		case idx > 0:
			line.push(iter.Next(idx))
		default:
			newline := iter.Next(1)
			if !fn(line, newline.attrs, i) {
				return
			}
			i++
			line = New()
		}
	}
	if line.Length() > 0 {
		fn(line, nil, i)
	}
}

// runeIndexOf 在 s 中从第 start 个 rune 起查找 sub，返回 rune 下标，找不到返回 -1。
func runeIndexOf(s, sub string, start int) int {
	r := []rune(s)
	tail := string(r[start:])
	b := strings.Index(tail, sub)
	if b < 0 {
		return -1
	}
	return start + len([]rune(tail[:b]))
}

// MarshalJSON 输出操作对象的 JSON 数组，空 Delta 输出 []。
func (d *Delta) MarshalJSON() ([]byte, error) {
	if len(d.ops) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(d.ops)
}

// UnmarshalJSON 解析操作数组。每个操作重新走 push，
// 保证解出来的 Delta 一定处于规范形。
func (d *Delta) UnmarshalJSON(data []byte) error {
	var ops []Op
	if err := json.Unmarshal(data, &ops); err != nil {
		return err
	}
	out := New()
	for _, op := range ops {
		out.push(op)
	}
	*d = *out
	return nil
}
