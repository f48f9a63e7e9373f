package delta

// TransformPosition 把一个光标/位置坐标穿过该编辑做调整。
// delete 把落在删除区间内的部分吃掉；insert 把后方坐标整体右移。
// force=false 且光标恰好停在插入点边界时，光标留在原地
// （即插入视为发生在光标之后）。
func (d *Delta) TransformPosition(index int, force bool) int {
	iter := d.Iterator()
	offset := 0
	for iter.HasNext() && offset <= index {
		n := iter.PeekLength()
		kind := iter.PeekKind()
		iter.Next(Unbounded)
		switch kind {
		case KindDelete:
			shrink := n
			if index-offset < shrink {
				shrink = index - offset
			}
			index -= shrink
			// 被删区域不推进 offset
			continue
		case KindInsert:
			if offset < index || force {
				index += n
			}
		}
		offset += n
	}
	return index
}
