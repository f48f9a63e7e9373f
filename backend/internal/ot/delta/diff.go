package delta

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff 求从文档 d 到文档 other 的最小编辑 Delta：
// d.Compose(d.Diff(other)) == other。
// 两侧都必须是文档形态（只含 insert），否则返回 ErrInvalidArgument。
// 文本差异由 diffmatchpatch 给出，相等区间再用 DiffAttributes 对齐样式。
func (d *Delta) Diff(other *Delta) (*Delta, error) {
	thisText, err := documentText(d)
	if err != nil {
		return nil, fmt.Errorf("delta: diff called on non-document: %w", err)
	}
	otherText, err := documentText(other)
	if err != nil {
		return nil, fmt.Errorf("delta: diff called with non-document: %w", err)
	}
	if d.Equal(other) {
		return New(), nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(thisText, otherText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	out := New()
	thisIter := d.Iterator()
	otherIter := other.Iterator()
	for _, component := range diffs {
		remaining := utf8.RuneCountInString(component.Text)
		for remaining > 0 {
			var step int
			switch component.Type {
			case diffmatchpatch.DiffInsert:
				step = minLength(otherIter.PeekLength(), remaining)
				out.push(otherIter.Next(step))
			case diffmatchpatch.DiffDelete:
				step = minLength(remaining, thisIter.PeekLength())
				thisIter.Next(step)
				out.Delete(step)
			case diffmatchpatch.DiffEqual:
				step = minLength(minLength(thisIter.PeekLength(), otherIter.PeekLength()), remaining)
				thisOp := thisIter.Next(step)
				otherOp := otherIter.Next(step)
				if thisOp.text == otherOp.text {
					out.Retain(step, DiffAttributes(thisOp.attrs, otherOp.attrs))
				} else {
					// diff 给出的"相等"区间和操作切片错位时退化为替换
					out.push(otherOp)
					out.Delete(step)
				}
			}
			remaining -= step
		}
	}
	return out.Trim(), nil
}

// documentText 把文档形态的 Delta 拼成纯文本；遇到非 insert 返回错误。
func documentText(d *Delta) (string, error) {
	var b strings.Builder
	for _, op := range d.ops {
		if !op.IsInsert() {
			return "", ErrInvalidArgument
		}
		b.WriteString(op.text)
	}
	return b.String(), nil
}
