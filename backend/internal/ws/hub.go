package ws

import (
	"context"
	"sync"
	"time"

	"deltaServer/backend/internal/cache"
	"deltaServer/backend/internal/collab"
)

type Hub struct {
	// 在线状态/光标的外部存储句柄（redis 实现）
	presence cache.PresenceCache
	// 保护 rooms 在并发下安全访问。加入/离开房间、广播时都会先加锁。
	mu sync.RWMutex
	// docID -> set of connections
	rooms map[string]map[*Conn]struct{}
}

func NewHub(p cache.PresenceCache) *Hub {
	return &Hub{presence: p, rooms: make(map[string]map[*Conn]struct{})}
}

// Join 将连接加入指定文档房间
func (h *Hub) Join(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[docID] == nil {
		// 房间里存的是连接而不是 userID：一个用户可开多个标签页/设备，
		// 广播要逐连接发
		h.rooms[docID] = make(map[*Conn]struct{})
	}
	h.rooms[docID][c] = struct{}{}
}

// Leave 将连接从指定文档房间移除
func (h *Hub) Leave(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[docID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, docID)
		}
	}
}

func (h *Hub) BroadcastPresence(docID string, members []PresenceMember) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[docID]))
	for c := range h.rooms[docID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	msg := ServerMessage{Type: "presence", DocID: docID, Members: members}
	for _, c := range conns {
		c.SendMessage_Enqueue(msg)
	}
}

// BroadcastAppliedOp 把已应用的操作推给房间内除提交者外的所有连接，
// 然后把重映射后的光标表广播出去（提交者也收，它自己的光标也可能被
// 其他人的并发操作挪动过）。
func (h *Hub) BroadcastAppliedOp(ctx context.Context, docID string, origin *Conn, applied collab.AppliedOp, clientID string, clientSeq uint64) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[docID]))
	for c := range h.rooms[docID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	msg := OpBroadcastMessage{
		Type:      "op_broadcast",
		DocID:     docID,
		Revision:  applied.Revision,
		AuthorID:  applied.AuthorID,
		ClientId:  clientID,
		ClientSeq: clientSeq,
		Ops:       applied.Ops,
		AppliedAt: applied.AppliedAt,
	}
	for _, c := range conns {
		if c == origin {
			continue
		}
		c.SendMessage_Enqueue(msg)
	}

	h.broadcastCursors(ctx, docID, conns)
}

// BroadcastCursor 把单个用户的光标位置推给房间内所有连接
func (h *Hub) BroadcastCursor(docID string, userID uint64, cursor int) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[docID]))
	for c := range h.rooms[docID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	msg := CursorBroadcastMessage{Type: "cursor", DocID: docID, UserID: userID, Cursor: cursor}
	for _, c := range conns {
		c.SendMessage_Enqueue(msg)
	}
}

func (h *Hub) broadcastCursors(ctx context.Context, docID string, conns []*Conn) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	cursors, err := h.presence.Cursors(ctx, docID)
	if err != nil || len(cursors) == 0 {
		return
	}
	for userID, cursor := range cursors {
		msg := CursorBroadcastMessage{Type: "cursor", DocID: docID, UserID: userID, Cursor: cursor}
		for _, c := range conns {
			c.SendMessage_Enqueue(msg)
		}
	}
}
