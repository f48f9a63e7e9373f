package ws

import (
	"time"

	"deltaServer/backend/internal/ot/delta"
)

type ClientMessage struct {
	Type         string       `json:"type"`
	DocID        string       `json:"docId"`
	DocTitle     string       `json:"docTitle"`
	BaseRevision uint64       `json:"baseRevision"`
	ClientId     string       `json:"clientId"`
	ClientSeq    uint64       `json:"clientSeq"`
	Ops          *delta.Delta `json:"ops"`
	// cursor_update 的光标坐标（rune 下标）
	Cursor int `json:"cursor"`
	// undo 要撤销的版本号
	Revision uint64 `json:"revision"`
	Content  string `json:"content,omitempty"`
}

type PresenceMember struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

type ServerMessage struct {
	Type     string           `json:"type"`
	UserID   uint64           `json:"userId,omitempty"`
	DocID    string           `json:"docId,omitempty"`
	Revision uint64           `json:"revision,omitempty"`
	Members  []PresenceMember `json:"members,omitempty"`
	Cursor   int              `json:"cursor,omitempty"`
	Content  string           `json:"content,omitempty"`
}

type OpSubmitMessage struct {
	Type         string `json:"type"`
	DocID        string `json:"docId"`
	BaseRevision uint64 `json:"baseRevision"`
	// 客户端实例标识。同一用户可有多个 clientId（多端/多标签页）。
	ClientId string `json:"clientId"`
	// 针对同一个 clientId 的本地递增序号
	ClientSeq uint64       `json:"clientSeq"`
	Ops       *delta.Delta `json:"ops"`
}

// 广播给同文档房间内其他连接的"已应用操作"事件
// - 与 op_applied(ack) 区分：这里推送给其他协作者（包括同用户的其他标签页）
// - Ops 是服务端实际应用的形态（追平变换之后），前端收到后直接本地应用，
//   并把本地 revision 对齐到 Revision
type OpBroadcastMessage struct {
	Type      string       `json:"type"` // 固定 "op_broadcast"
	DocID     string       `json:"docId"`
	Revision  uint64       `json:"revision"` // 服务端已应用后的最新版本
	AuthorID  uint64       `json:"authorId"`
	ClientId  string       `json:"clientId,omitempty"`
	ClientSeq uint64       `json:"clientSeq,omitempty"`
	Ops       *delta.Delta `json:"ops"`
	AppliedAt time.Time    `json:"appliedAt,omitempty"`
}

type OpAppliedMessage struct {
	Type            string `json:"type"` // 固定 "op_applied"
	DocID           string `json:"docId"`
	BaseRevision    uint64 `json:"baseRevision"`    // 客户端提交时的 base
	CurrentRevision uint64 `json:"currentRevision"` // 服务端应用后的最新版本
	ClientId        string `json:"clientId"`
	ClientSeq       uint64 `json:"clientSeq"`
	// 服务端实际应用的形态。base 落后时经过了追平变换，
	// 客户端要用它（而不是自己发出的原始 ops）对齐本地状态
	Ops *delta.Delta `json:"ops"`
}

// 广播光标位置（cursor_update 或服务端重映射之后）
type CursorBroadcastMessage struct {
	Type   string `json:"type"` // 固定 "cursor"
	DocID  string `json:"docId"`
	UserID uint64 `json:"userId"`
	Cursor int    `json:"cursor"`
}
