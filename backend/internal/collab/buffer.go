package collab

import (
	"deltaServer/backend/internal/ot/delta"
)

// Buffer 是文档纯文本投影的抽象：协作引擎把已应用的变更
// 同步进来，快照和 loadDocumentContent 从这里取字符串。
// 样式属性不在投影范围内，权威内容以文档 Delta 为准。
type Buffer interface {
	Len() int
	Apply(d *delta.Delta) error
	String() string
}

/*
piece table 结构示例

初始文档内容 "Hello world"：

- original buffer 内容："Hello world"
- add buffer 为空 ("")
- piece 表：

    [ (orig, offset=0, length=11) ]

在位置 5 插入 " collaborative"：
- 在 add buffer 末尾追加 " collaborative"
- piece 表从一条拆成三条：

    [
      (orig, offset=0, length=5),   // "Hello"
      (add,  offset=0, length=14),  // " collaborative"
      (orig, offset=5, length=6),   // " world"
    ]
*/
