package collab

import "deltaServer/backend/internal/ot/delta"

type bufferKind int

const (
	bufOriginal bufferKind = iota
	bufAdd
)

type piece struct {
	// 指向 original 还是 add 切片
	buf    bufferKind
	offset int // rune 偏移
	length int
}

type PieceTable struct {
	// 原始文本切片
	original []rune
	// 新增文本切片，只追加
	add []rune
	// 分片列表
	pieces []piece
}

func NewPieceTable(initial string) *PieceTable {
	r := []rune(initial)
	return &PieceTable{
		original: r,
		pieces:   []piece{{buf: bufOriginal, offset: 0, length: len(r)}},
	}
}

func (pt *PieceTable) Len() int {
	n := 0
	for _, p := range pt.pieces {
		n += p.length
	}
	return n
}

func (pt *PieceTable) String() string {
	var res string
	for _, p := range pt.pieces {
		switch p.buf {
		case bufOriginal:
			res += string(pt.original[p.offset : p.offset+p.length])
		case bufAdd:
			res += string(pt.add[p.offset : p.offset+p.length])
		}
	}
	return res
}

// Apply 把一个规范形变更同步进分片表：
// retain 向前移动逻辑位置，insert 在当前位置拆片插入，
// delete 裁剪、拆分或移除 piece。样式属性被忽略（纯文本投影）。
func (pt *PieceTable) Apply(d *delta.Delta) error {
	pos := 0
	for _, op := range d.Ops() {
		switch op.Kind() {
		case delta.KindRetain:
			pos += op.Length()

		case delta.KindInsert:
			text := []rune(op.Text())
			start := len(pt.add)
			pt.add = append(pt.add, text...)
			length := len(text)

			idx, offset := pt.locate(pos)
			newPiece := piece{buf: bufAdd, offset: start, length: length}

			if idx < len(pt.pieces) {
				cur := pt.pieces[idx]
				left := piece{buf: cur.buf, offset: cur.offset, length: offset}
				right := piece{buf: cur.buf, offset: cur.offset + offset, length: cur.length - offset}

				// 只动目标 piece，其他 piece 不动
				newPieces := make([]piece, 0, len(pt.pieces)+2)
				newPieces = append(newPieces, pt.pieces[:idx]...)
				if left.length > 0 {
					newPieces = append(newPieces, left)
				}
				newPieces = append(newPieces, newPiece)
				if right.length > 0 {
					newPieces = append(newPieces, right)
				}
				newPieces = append(newPieces, pt.pieces[idx+1:]...)
				pt.pieces = newPieces
			} else {
				pt.pieces = append(pt.pieces, newPiece)
			}

			pos += length

		case delta.KindDelete:
			remain := op.Length()
			idx, offset := pt.locate(pos)

			for remain > 0 && idx < len(pt.pieces) {
				cur := &pt.pieces[idx]
				can := cur.length - offset
				if can <= 0 {
					idx++
					offset = 0
					continue
				}

				take := remain
				if take > can {
					take = can
				}

				if offset == 0 && take == cur.length {
					// 整个 piece 都删掉，idx 不动（现在指向下一个 piece）
					pt.pieces = append(pt.pieces[:idx], pt.pieces[idx+1:]...)
					offset = 0
				} else {
					// 删中间一段，拆成左右两片
					leftLen := offset
					rightLen := cur.length - offset - take

					newPieces := make([]piece, 0, len(pt.pieces)+1)
					newPieces = append(newPieces, pt.pieces[:idx]...)
					if leftLen > 0 {
						newPieces = append(newPieces, piece{
							buf:    cur.buf,
							offset: cur.offset,
							length: leftLen,
						})
					}
					if rightLen > 0 {
						newPieces = append(newPieces, piece{
							buf:    cur.buf,
							offset: cur.offset + offset + take,
							length: rightLen,
						})
					}
					newPieces = append(newPieces, pt.pieces[idx+1:]...)
					pt.pieces = newPieces
				}

				remain -= take
			}
		}
	}
	return nil
}

// locate 把逻辑位置 pos 换算成 piece 下标和片内偏移
func (pt *PieceTable) locate(pos int) (idx int, offset int) {
	cur := 0
	for i, p := range pt.pieces {
		if pos < cur+p.length {
			return i, pos - cur
		}
		cur += p.length
	}
	return len(pt.pieces), 0
}
