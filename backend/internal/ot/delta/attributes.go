package delta

import "reflect"

// AttributeMap 是富文本样式属性表（bold/color 等）。
// 值为 nil 时有特殊语义：在 compose/invert 中表示"删除该属性"。
// 空表和缺失（nil map）在行为上等价，对外输出统一用 nil。
type AttributeMap map[string]any

// AttributesEqual 深度结构相等。nil 和空表视为相等。
// 属性值本身可能是 JSON 复合值（数组/对象），所以必须用深比较，
// 否则 push 的合并规则会把本该合并的操作拆开。
func AttributesEqual(a, b AttributeMap) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !reflect.DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

// ComposeAttributes 把 b 覆盖到 a 上（右侧优先）。
// keepNull=false 时移除最终值为 nil 的键（nil 即"删除属性"已生效）；
// keepNull=true 用于 retain+retain 组合，让删除标记继续向下游传播。
// 结果为空时返回 nil。
func ComposeAttributes(a, b AttributeMap, keepNull bool) AttributeMap {
	out := AttributeMap{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	if !keepNull {
		for k, v := range out {
			if v == nil {
				delete(out, k)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TransformAttributes 对同一基础状态上的并发属性变更做 OT 变换。
// priority=true 表示 a 先发生：a 已占用的键压制 b 的同名键；
// priority=false 时 b 无条件获胜。
func TransformAttributes(a, b AttributeMap, priority bool) AttributeMap {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return nil
	}
	if !priority {
		return b
	}
	out := AttributeMap{}
	for k, v := range b {
		if _, ok := a[k]; !ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// InvertAttributes 求 attr 相对 base 的逆：把逆和 attr 组合后恢复 base。
// - base 里有而被 attr 改掉的键 → 记回旧值
// - attr 新加的键（base 里没有）→ 记 nil（撤销时删除）
// 结果可能为空表。
func InvertAttributes(attr, base AttributeMap) AttributeMap {
	out := AttributeMap{}
	for k, bv := range base {
		if av, ok := attr[k]; ok && !reflect.DeepEqual(av, bv) {
			out[k] = bv
		}
	}
	for k := range attr {
		if _, ok := base[k]; !ok {
			out[k] = nil
		}
	}
	return out
}

// DiffAttributes 求从 a 到 b 的属性变更：对每个不同的键，
// b 里有就取 b 的值，b 里没有就记 nil（表示删除）。空结果返回 nil。
func DiffAttributes(a, b AttributeMap) AttributeMap {
	out := AttributeMap{}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			out[k] = nil
		} else if !reflect.DeepEqual(av, bv) {
			out[k] = bv
		}
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok {
			out[k] = bv
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// copyAttributes 拷贝一份属性表，空表归一化为 nil。
func copyAttributes(attrs AttributeMap) AttributeMap {
	if len(attrs) == 0 {
		return nil
	}
	out := make(AttributeMap, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
