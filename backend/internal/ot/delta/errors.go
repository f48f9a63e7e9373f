package delta

import "errors"

// 错误分类（按 kind 区分，调用方用 errors.Is 判断）：
// - ErrMalformedOperation:     JSON 解码出的操作不合法（识别键不是恰好一个 / 长度为负或越界 / delete 带属性）
// - ErrInvalidArgument:        调用方传入非法参数（构造器收到负数长度、Diff 作用于非文档）
// - ErrConcurrentModification: 迭代器创建后底层 Delta 又被结构性修改
// - ErrUnreachableState:       守卫住的"不可能分支"被命中，说明实现有 bug
//
// 数据类错误（JSON、Diff）通过返回值返回；
// 编程类错误（负数长度、迭代器失效、不可能分支）直接 panic，panic 值仍可被 errors.Is 识别。
var (
	ErrMalformedOperation     = errors.New("MALFORMED_OPERATION")
	ErrInvalidArgument        = errors.New("INVALID_ARGUMENT")
	ErrConcurrentModification = errors.New("CONCURRENT_MODIFICATION")
	ErrUnreachableState       = errors.New("UNREACHABLE_STATE")
)
