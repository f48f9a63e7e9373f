package delta

import "testing"

func TestTransformPosition(t *testing.T) {
	d := New().Retain(3, nil).Insert("XX", nil).Delete(2)
	cases := []struct {
		index int
		force bool
		want  int
	}{
		{0, false, 0},
		{2, false, 2},  // 插入点之前不受影响
		{3, false, 3},  // 光标停在插入点边界且不强制，插入视为发生在其后
		{3, true, 5},   // 强制时边界光标被推过插入内容
		{4, false, 5},  // 右移 2 后落进删除区间，被吃掉 1
		{6, false, 6},  // 右移 2 再被删除整体吃掉 2
		{10, false, 10},
	}
	for _, c := range cases {
		if got := d.TransformPosition(c.index, c.force); got != c.want {
			t.Fatalf("TransformPosition(%d, %v) = %d, want %d", c.index, c.force, got, c.want)
		}
	}
}

func TestTransformPosition_DeleteSwallowsCursor(t *testing.T) {
	d := New().Retain(2, nil).Insert("A", nil).Delete(2)
	if got := d.TransformPosition(4, false); got != 3 {
		t.Fatalf("TransformPosition(4) = %d, want 3", got)
	}
	// 光标落在被删区间内部时收缩到删除起点
	d2 := New().Delete(5)
	if got := d2.TransformPosition(3, false); got != 0 {
		t.Fatalf("TransformPosition(3) = %d, want 0", got)
	}
}

func TestTransformPosition_InsertOnly(t *testing.T) {
	d := New().Insert("AB", nil)
	if got := d.TransformPosition(0, false); got != 0 {
		t.Fatalf("TransformPosition(0, false) = %d, want 0", got)
	}
	if got := d.TransformPosition(0, true); got != 2 {
		t.Fatalf("TransformPosition(0, true) = %d, want 2", got)
	}
	if got := d.TransformPosition(1, false); got != 3 {
		t.Fatalf("TransformPosition(1, false) = %d, want 3", got)
	}
}
