package delta

// Transform 对作用于同一基础文档的并发编辑做 OT 变换：
// 返回 other'，满足 d.Compose(other') == other.Compose(d')。
// priority=true 表示并发冲突时 d 视为先发生（同位置 insert 时
// other 的插入排在 d 的插入之后）。
//
// 输入不会被修改。
func (d *Delta) Transform(other *Delta, priority bool) *Delta {
	thisIter := d.Iterator()
	otherIter := other.Iterator()
	out := New()
	for thisIter.HasNext() || otherIter.HasNext() {
		if thisIter.PeekKind() == KindInsert && (priority || otherIter.PeekKind() != KindInsert) {
			// other 的坐标越过 d 插入的内容
			out.Retain(thisIter.Next(Unbounded).length, nil)
			continue
		}
		if otherIter.PeekKind() == KindInsert {
			out.push(otherIter.Next(Unbounded))
			continue
		}
		n := minLength(thisIter.PeekLength(), otherIter.PeekLength())
		thisOp := thisIter.Next(n)
		otherOp := otherIter.Next(n)
		switch {
		case thisOp.IsDelete():
			// d 已删掉这段，other 对它的操作落空
		case otherOp.IsDelete():
			out.push(otherOp)
		default:
			out.push(Op{kind: KindRetain, length: n, attrs: TransformAttributes(thisOp.attrs, otherOp.attrs, priority)})
		}
	}
	return out.Trim()
}
