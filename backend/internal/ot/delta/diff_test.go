package delta

import (
	"errors"
	"testing"
)

func mustDiff(t *testing.T, a, b *Delta) *Delta {
	t.Helper()
	d, err := a.Diff(b)
	if err != nil {
		t.Fatalf("Diff error = %v", err)
	}
	return d
}

func TestDiff_Insertion(t *testing.T) {
	a := New().Insert("Hello", nil)
	b := New().Insert("Hello World", nil)
	got := mustDiff(t, a, b)
	assertDelta(t, got, FromOps(NewRetain(5, nil), NewInsert(" World", nil)))
}

func TestDiff_Deletion(t *testing.T) {
	a := New().Insert("Hello World", nil)
	b := New().Insert("Hello", nil)
	got := mustDiff(t, a, b)
	assertDelta(t, got, FromOps(NewRetain(5, nil), NewDelete(6)))
}

func TestDiff_AttributesOnly(t *testing.T) {
	a := New().Insert("AB", nil)
	b := New().Insert("AB", AttributeMap{"bold": true})
	got := mustDiff(t, a, b)
	assertDelta(t, got, FromOps(NewRetain(2, AttributeMap{"bold": true})))
}

func TestDiff_Equal(t *testing.T) {
	a := New().Insert("Hello", AttributeMap{"bold": true})
	got := mustDiff(t, a, a)
	if got.Len() != 0 {
		t.Fatalf("相同文档的 diff 应为空: %s", mustJSON(t, got))
	}
}

func TestDiff_NonDocument(t *testing.T) {
	doc := New().Insert("abc", nil)
	bad := New().Retain(1, nil)
	if _, err := bad.Diff(doc); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Diff(非文档, 文档) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := doc.Diff(bad); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Diff(文档, 非文档) error = %v, want ErrInvalidArgument", err)
	}
}

// 最小编辑律：a.Compose(a.Diff(b)) == b。
func TestDiff_ComposeLaw(t *testing.T) {
	cases := []struct {
		name string
		a, b *Delta
	}{
		{"replace middle", New().Insert("Hello World", nil), New().Insert("Hello Brave World", nil)},
		{"cjk edit", New().Insert("协同编辑器", nil), New().Insert("协同文档编辑器", nil)},
		{"style shift", New().Insert("AB", AttributeMap{"bold": true}).Insert("CD", nil), New().Insert("ABCD", AttributeMap{"italic": true})},
		{"rewrite", New().Insert("Good dog", nil), New().Insert("Bad cat", nil)},
	}
	for _, c := range cases {
		d := mustDiff(t, c.a, c.b)
		got := c.a.Compose(d)
		if !got.Equal(c.b) {
			t.Fatalf("%s: compose(diff) = %s, want %s (diff=%s)",
				c.name, mustJSON(t, got), mustJSON(t, c.b), mustJSON(t, d))
		}
	}
}
