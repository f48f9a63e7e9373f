package delta

// Invert 求 d 相对基础文档 base（文档形态，只含 insert）的逆：
// base.Compose(d).Compose(d.Invert(base)) == base。
// 按 d 的操作推进 base 上的坐标：
//   - insert → 记 delete
//   - 无属性 retain → 原样记 retain
//   - delete → 把 base 上被删的切片原样拼回（恢复内容和样式）
//   - 带属性 retain → 对 base 切片逐操作记属性逆变换
//
// 输入不会被修改。
func (d *Delta) Invert(base *Delta) *Delta {
	out := New()
	baseIndex := 0
	for _, op := range d.ops {
		switch {
		case op.IsInsert():
			out.Delete(op.length)
		case op.IsRetain() && op.IsPlain():
			out.Retain(op.length, nil)
			baseIndex += op.length
		default:
			// delete 或带属性 retain 都要看 base 的对应切片
			part := base.Slice(baseIndex, baseIndex+op.length)
			for _, baseOp := range part.ops {
				if op.IsDelete() {
					out.push(baseOp)
				} else {
					out.Retain(baseOp.length, InvertAttributes(op.attrs, baseOp.attrs))
				}
			}
			baseIndex += op.length
		}
	}
	return out.Trim()
}
