package collab

import (
	"time"

	"deltaServer/backend/internal/ot/delta"
)

// DocOpEvent 是发往 Kafka 的"操作已应用"事件，按 docId 做分区 key。
type DocOpEvent struct {
	EventType    string       `json:"eventType"` // 固定 "OP_APPLIED"
	DocID        string       `json:"docId"`
	OperationID  string       `json:"operationId"`
	Revision     uint64       `json:"revision"`
	AuthorID     uint64       `json:"authorId"`
	ClientID     string       `json:"clientId"`
	ClientSeq    uint64       `json:"clientSeq"` // 针对同一个 clientId 的本地递增序号
	BaseRevision uint64       `json:"baseRevision"`
	Ops          *delta.Delta `json:"ops"`
	// 针对应用前状态的逆变更，下游审计/恢复用
	Undo      *delta.Delta `json:"undo,omitempty"`
	AppliedAt time.Time    `json:"appliedAt"`
}
