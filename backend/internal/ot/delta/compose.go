package delta

import "fmt"

// Compose 返回先应用 d、再应用 other 等价的单个 Delta。
// 两个游标按等长切片对齐消费：
//   - other 侧是 insert：新内容，不消费 d，原样进结果
//   - d 侧是 delete：被删内容 other 影响不到，原样进结果
//   - 其余按 min(两侧剩余长度) 等长消费
//
// 输入不会被修改。
func (d *Delta) Compose(other *Delta) *Delta {
	thisIter := d.Iterator()
	otherIter := other.Iterator()
	out := New()
	for thisIter.HasNext() || otherIter.HasNext() {
		if otherIter.PeekKind() == KindInsert {
			out.push(otherIter.Next(Unbounded))
			continue
		}
		if thisIter.PeekKind() == KindDelete {
			out.push(thisIter.Next(Unbounded))
			continue
		}
		n := minLength(thisIter.PeekLength(), otherIter.PeekLength())
		thisOp := thisIter.Next(n)
		otherOp := otherIter.Next(n)
		switch {
		case otherOp.IsRetain():
			// 结果继承 d 侧的形态（retain→retain，insert→insert 带文本）。
			// keepNull 只在 retain+retain 时为 true：属性删除标记要继续
			// 向下游传播；insert+retain 时 insert 的属性就是该区间的
			// 最终状态，nil 直接等价于移除。
			attrs := ComposeAttributes(thisOp.attrs, otherOp.attrs, thisOp.IsRetain())
			if thisOp.IsRetain() {
				out.push(Op{kind: KindRetain, length: n, attrs: attrs})
			} else {
				out.push(Op{kind: KindInsert, length: n, text: thisOp.text, attrs: attrs})
			}
		case otherOp.IsDelete() && thisOp.IsRetain():
			// 删除落到基础文档上
			out.push(otherOp)
		case otherOp.IsDelete() && thisOp.IsInsert():
			// d 插入的内容被 other 删掉，互相抵消
		default:
			panic(fmt.Errorf("delta: compose met op kind %q/%q: %w", thisOp.kind, otherOp.kind, ErrUnreachableState))
		}
	}
	return out.Trim()
}

func minLength(a, b int) int {
	if a < b {
		return a
	}
	return b
}
