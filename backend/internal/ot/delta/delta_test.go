package delta

import (
	"encoding/json"
	"testing"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	return string(b)
}

func assertDelta(t *testing.T, got, want *Delta) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("delta = %s, want %s", mustJSON(t, got), mustJSON(t, want))
	}
}

func TestPush_MergeInsert(t *testing.T) {
	d := New().Insert("abc", nil).Push(NewInsert("123", nil))
	assertDelta(t, d, FromOps(NewInsert("abc123", nil)))
	if d.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", d.Len())
	}
}

func TestPush_NoMergeDifferentAttrs(t *testing.T) {
	d := New().Insert("abc", AttributeMap{"bold": true}).Push(NewInsert("123", nil))
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (不同属性不合并)", d.Len())
	}
	if !d.Ops()[0].Equal(NewInsert("abc", AttributeMap{"bold": true})) || !d.Ops()[1].Equal(NewInsert("123", nil)) {
		t.Fatalf("ops = %s", mustJSON(t, d))
	}
}

func TestPush_InsertBeforeDelete(t *testing.T) {
	d := New().Delete(2).Push(NewInsert("x", nil))
	want := FromOps(NewInsert("x", nil), NewDelete(2))
	assertDelta(t, d, want)
	if !d.Ops()[0].IsInsert() {
		t.Fatalf("insert 应排在相邻 delete 之前: %s", mustJSON(t, d))
	}
}

func TestPush_InsertMergesAcrossDelete(t *testing.T) {
	// insert 被挪到 delete 之前后，还要和新的前驱 insert 继续合并
	d := New().Insert("ab", nil).Delete(3).Push(NewInsert("cd", nil))
	assertDelta(t, d, FromOps(NewInsert("abcd", nil), NewDelete(3)))
}

func TestPush_MergeDeletes(t *testing.T) {
	d := New().Delete(2).Delete(3)
	assertDelta(t, d, FromOps(NewDelete(5)))
}

func TestPush_MergeRetainsSameAttrs(t *testing.T) {
	attrs := AttributeMap{"bold": true}
	d := New().Retain(2, attrs).Retain(3, attrs)
	if d.Len() != 1 || d.Ops()[0].Length() != 5 {
		t.Fatalf("retain 未合并: %s", mustJSON(t, d))
	}
}

func TestPush_EmptyOpIsNoop(t *testing.T) {
	d := New().Insert("", nil).Delete(0).Retain(0, nil)
	if d.Len() != 0 {
		t.Fatalf("空操作不应入列: %s", mustJSON(t, d))
	}
}

func TestTrim(t *testing.T) {
	d := New().Insert("a", nil).Retain(3, nil).Trim()
	assertDelta(t, d, FromOps(NewInsert("a", nil)))
	// 带属性的末尾 retain 不能被裁掉
	d2 := New().Insert("a", nil).Retain(3, AttributeMap{"bold": true}).Trim()
	if d2.Len() != 2 {
		t.Fatalf("带属性 retain 被误裁: %s", mustJSON(t, d2))
	}
}

func TestConcat_MergesBoundary(t *testing.T) {
	a := New().Insert("ab", nil)
	b := New().Insert("cd", nil).Retain(3, nil)
	got := a.Concat(b)
	assertDelta(t, got, FromOps(NewInsert("abcd", nil), NewRetain(3, nil)))
	// 输入不被修改
	assertDelta(t, a, FromOps(NewInsert("ab", nil)))
}

func TestSlice(t *testing.T) {
	d := New().Retain(2, nil).Insert("Hello", AttributeMap{"bold": true}).Delete(1)
	got := d.Slice(2, 5)
	assertDelta(t, got, FromOps(NewInsert("Hel", AttributeMap{"bold": true})))
}

func TestSlice_CoversWhole(t *testing.T) {
	base := New().Insert("Hello", AttributeMap{"bold": true}).Insert(" World", nil)
	for i := 0; i <= base.Length(); i++ {
		joined := base.Slice(0, i).Concat(base.Slice(i, Unbounded))
		assertDelta(t, joined, base)
	}
}

func TestDelta_JSONRoundTrip(t *testing.T) {
	d := New().
		Retain(3, nil).
		Insert("你好", AttributeMap{"color": "red"}).
		Delete(2).
		Retain(1, AttributeMap{"bold": true})
	b := mustJSON(t, d)
	var back Delta
	if err := json.Unmarshal([]byte(b), &back); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	assertDelta(t, &back, d)
}

func TestDelta_EmptyJSON(t *testing.T) {
	if got := mustJSON(t, New()); got != "[]" {
		t.Fatalf("empty delta json = %s, want []", got)
	}
	var d Delta
	if err := json.Unmarshal([]byte("[]"), &d); err != nil {
		t.Fatalf("Unmarshal([]) error = %v", err)
	}
	if d.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", d.Len())
	}
}

func TestDelta_UnmarshalNormalizes(t *testing.T) {
	// 线上来的未合并序列解码后必须回到规范形
	raw := `[{"insert":"ab"},{"insert":"cd"},{"delete":1},{"insert":"x"},{"retain":0}]`
	var d Delta
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	assertDelta(t, &d, FromOps(NewInsert("abcdx", nil), NewDelete(1)))
}

func TestLengths(t *testing.T) {
	d := New().Retain(2, nil).Insert("abc", nil).Delete(4)
	if d.Length() != 9 {
		t.Fatalf("Length() = %d, want 9", d.Length())
	}
	if d.ChangeLength() != -1 {
		t.Fatalf("ChangeLength() = %d, want -1", d.ChangeLength())
	}
}

func TestIsDocument(t *testing.T) {
	if !New().Insert("abc", nil).IsDocument() {
		t.Fatalf("insert-only delta 应是文档")
	}
	if New().Retain(1, nil).IsDocument() {
		t.Fatalf("含 retain 不是文档")
	}
}

func TestEachLine(t *testing.T) {
	d := New().
		Insert("Hello\n", nil).
		Insert("World", AttributeMap{"bold": true}).
		Insert("\n", AttributeMap{"align": "right"}).
		Insert("!", nil)
	var lines []string
	var lineAttrs []AttributeMap
	d.EachLine(func(line *Delta, attrs AttributeMap, i int) bool {
		lines = append(lines, mustJSON(t, line))
		lineAttrs = append(lineAttrs, attrs)
		return true
	})
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3: %v", len(lines), lines)
	}
	if lines[0] != `[{"insert":"Hello"}]` {
		t.Fatalf("line[0] = %s", lines[0])
	}
	if lines[1] != `[{"insert":"World","attributes":{"bold":true}}]` {
		t.Fatalf("line[1] = %s", lines[1])
	}
	if !AttributesEqual(lineAttrs[1], AttributeMap{"align": "right"}) {
		t.Fatalf("line[1] attrs = %v", lineAttrs[1])
	}
	if lines[2] != `[{"insert":"!"}]` {
		t.Fatalf("line[2] = %s", lines[2])
	}
}

// 规范形整体检查：任意一串 builder 调用后不出现可合并的相邻操作、
// 不存空操作、相邻 delete 前没有 insert 排在它后面。
func TestNormalFormInvariant(t *testing.T) {
	d := New().
		Insert("ab", nil).
		Insert("cd", nil).
		Delete(2).
		Insert("ef", nil).
		Retain(3, nil).
		Retain(2, nil).
		Delete(1).
		Delete(4).
		Insert("", nil)
	ops := d.Ops()
	for i, op := range ops {
		if op.IsEmpty() {
			t.Fatalf("空操作被存入: %s", mustJSON(t, d))
		}
		if i == 0 {
			continue
		}
		prev := ops[i-1]
		if prev.IsDelete() && op.IsDelete() {
			t.Fatalf("相邻 delete 未合并: %s", mustJSON(t, d))
		}
		if prev.IsDelete() && op.IsInsert() {
			t.Fatalf("insert 出现在相邻 delete 之后: %s", mustJSON(t, d))
		}
		if prev.Kind() == op.Kind() && AttributesEqual(prev.Attributes(), op.Attributes()) {
			t.Fatalf("相邻同类同属性操作未合并: %s", mustJSON(t, d))
		}
	}
}
