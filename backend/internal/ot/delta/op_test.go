package delta

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewInsert_RuneLength(t *testing.T) {
	op := NewInsert("你好ab", nil)
	if op.Length() != 4 {
		t.Fatalf("Length() = %d, want 4", op.Length())
	}
	if op.Text() != "你好ab" {
		t.Fatalf("Text() = %q, want %q", op.Text(), "你好ab")
	}
}

func TestNewDelete_NegativePanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("NewDelete(-1) did not panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("panic value = %v, want ErrInvalidArgument", r)
		}
	}()
	NewDelete(-1)
}

func TestOp_JSONShapes(t *testing.T) {
	cases := []struct {
		op   Op
		want string
	}{
		{NewInsert("abc", nil), `{"insert":"abc"}`},
		{NewInsert("abc", AttributeMap{"bold": true}), `{"insert":"abc","attributes":{"bold":true}}`},
		{NewDelete(3), `{"delete":3}`},
		{NewRetain(5, nil), `{"retain":5}`},
		{NewRetain(5, AttributeMap{"italic": true}), `{"retain":5,"attributes":{"italic":true}}`},
	}
	for _, c := range cases {
		b, err := json.Marshal(c.op)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", c.op, err)
		}
		if string(b) != c.want {
			t.Fatalf("Marshal = %s, want %s", b, c.want)
		}
		var back Op
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", b, err)
		}
		if !back.Equal(c.op) {
			t.Fatalf("round trip: got %+v, want %+v", back, c.op)
		}
	}
}

func TestOp_UnmarshalMalformed(t *testing.T) {
	cases := []string{
		`{}`,                        // 没有识别键
		`{"insert":"a","delete":1}`, // 多个识别键
		`{"delete":-1}`,             // 负数长度
		`{"retain":-2}`,
		`{"delete":3,"attributes":{"bold":true}}`, // delete 不允许带属性
	}
	for _, c := range cases {
		var op Op
		err := json.Unmarshal([]byte(c), &op)
		if !errors.Is(err, ErrMalformedOperation) {
			t.Fatalf("Unmarshal(%s) error = %v, want ErrMalformedOperation", c, err)
		}
	}
}

func TestOp_UnmarshalIgnoresUnknownKeys(t *testing.T) {
	var op Op
	if err := json.Unmarshal([]byte(`{"retain":5,"meta":"x"}`), &op); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if !op.Equal(NewRetain(5, nil)) {
		t.Fatalf("got %+v, want retain(5)", op)
	}
}

func TestOp_Equal(t *testing.T) {
	a := NewInsert("abc", AttributeMap{"bold": true})
	b := NewInsert("abc", AttributeMap{"bold": true})
	if !a.Equal(b) {
		t.Fatalf("equal ops reported unequal")
	}
	c := NewInsert("abc", AttributeMap{"bold": false})
	if a.Equal(c) {
		t.Fatalf("ops with different attrs reported equal")
	}
	if NewRetain(3, nil).Equal(NewDelete(3)) {
		t.Fatalf("retain(3) should not equal delete(3)")
	}
}

func TestOp_Immutable_AttrsCopied(t *testing.T) {
	attrs := AttributeMap{"bold": true}
	op := NewInsert("a", attrs)
	attrs["bold"] = false
	if v := op.Attributes()["bold"]; v != true {
		t.Fatalf("op attributes mutated through caller map: %v", v)
	}
}
