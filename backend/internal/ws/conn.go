package ws

import (
	"context"
	"log"
	"slices"
	"strconv"
	"sync"
	"time"

	"deltaServer/backend/internal/collab"

	"github.com/gorilla/websocket"
)

type Conn struct {
	ws       *websocket.Conn
	hub      *Hub
	docID    string
	userID   uint64
	username string
	// 出站消息队列，writeLoop 消费
	send chan OutboundMessage
	// 保护 send 的关闭：连接退出后广播方不能再写
	sendMu sync.Mutex
	closed bool
	// 协作引擎服务
	svc collab.Service
	// 信号量控制
	sem *collab.SemaphoreControl
}

// 出站消息接口
type OutboundMessage interface {
	MessageType() string
}

func (m ServerMessage) MessageType() string          { return m.Type }
func (m OpSubmitMessage) MessageType() string        { return m.Type }
func (m OpAppliedMessage) MessageType() string       { return m.Type }
func (m OpBroadcastMessage) MessageType() string     { return m.Type }
func (m CursorBroadcastMessage) MessageType() string { return m.Type }

func NewConn(ws *websocket.Conn, hub *Hub, docID string, userID uint64, username string, svc collab.Service, sem *collab.SemaphoreControl) *Conn {
	return &Conn{ws: ws, hub: hub, docID: docID, userID: userID, username: username, send: make(chan OutboundMessage, 32), svc: svc, sem: sem}
}

func (c *Conn) SendMessage_Enqueue(msg OutboundMessage) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		// 队列满则丢弃，慢消费者不能拖垮广播
	}
}

func (c *Conn) handleOpSubmit(ctx context.Context, msg OpSubmitMessage, authorID uint64) {
	submitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	if err := c.sem.Acquire(submitCtx); err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	defer c.sem.Release()

	applied, err := c.svc.Submit(submitCtx, msg.DocID, authorID,
		msg.BaseRevision, msg.ClientId, msg.ClientSeq, msg.Ops)
	if err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	c.SendMessage_Enqueue(OpAppliedMessage{
		Type:            "op_applied",
		DocID:           msg.DocID,
		BaseRevision:    msg.BaseRevision,
		CurrentRevision: applied.Revision,
		ClientId:        msg.ClientId,
		ClientSeq:       msg.ClientSeq,
		Ops:             applied.Ops,
	})
	c.hub.BroadcastAppliedOp(ctx, msg.DocID, c, applied, msg.ClientId, msg.ClientSeq)
}

func (c *Conn) handleUndo(ctx context.Context, docID string, revision uint64) {
	undoCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	if err := c.sem.Acquire(undoCtx); err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	defer c.sem.Release()

	applied, err := c.svc.Undo(undoCtx, docID, c.userID, revision)
	if err != nil {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: err.Error()})
		return
	}
	c.SendMessage_Enqueue(OpAppliedMessage{
		Type:            "op_applied",
		DocID:           docID,
		BaseRevision:    revision,
		CurrentRevision: applied.Revision,
		Ops:             applied.Ops,
	})
	// 撤销对其他协作者就是一次普通的应用操作
	c.hub.BroadcastAppliedOp(ctx, docID, c, applied, "", 0)
}

func (c *Conn) readLoop(ctx context.Context) {
	defer func() {
		// 先退房再关队列，避免并发广播写已关闭的通道
		if c.docID != "" {
			c.hub.Leave(c.docID, c)
		}
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
	}()
	for {
		var clientMessage ClientMessage
		if err := c.ws.ReadJSON(&clientMessage); err != nil {
			log.Printf("read json error (user=%d, doc=%s): %v", c.userID, c.docID, err)
			return
		}
		switch clientMessage.Type {
		case "heartbeat":
			err := c.hub.presence.AddMember(ctx, c.docID, c.userID, c.username, 600*time.Second)
			if err != nil {
				log.Printf("add member error: %v", err)
			}

			members, err := c.hub.presence.GetAliveMembersWithNames(ctx, c.docID)
			if err != nil {
				log.Printf("get members error: %v", err)
			}
			out := make([]PresenceMember, len(members))
			for i, m := range members {
				out[i] = PresenceMember{UserID: m.UserID, Username: m.Username}
			}
			c.send <- ServerMessage{Type: "presence", DocID: c.docID, Members: out}
			c.send <- ServerMessage{Type: "feedback", Content: "Heartbeat received"}

		case "createDocument":
			docTitle := clientMessage.DocTitle
			if err := c.svc.CreateDocument(ctx, c.userID, docTitle); err != nil {
				log.Printf("create document error: %v", err)
				c.send <- ServerMessage{Type: "error", Content: "CREATE_DOC_FAILED"}
				return
			}
			docID, err := c.svc.GetDocumentID(ctx, docTitle)
			if err != nil {
				log.Printf("get document id error: %v", err)
				c.send <- ServerMessage{Type: "error", Content: "GET_DOCID_FAILED"}
				return
			}
			c.hub.presence.AddMember(ctx, docID, c.userID, c.username, 600*time.Second)
			c.send <- ServerMessage{Type: "createDocument", DocID: docID, Content: "Document " + docID + " created by user " + strconv.FormatUint(c.userID, 10)}

		case "joinDocument":
			// 允许客户端在 joinDocument 中指定标题，用于动态切换房间
			if clientMessage.DocTitle != "" {
				docID, err := c.svc.GetDocumentID(ctx, clientMessage.DocTitle)
				if err != nil {
					log.Printf("get document id error: %v", err)
					c.send <- ServerMessage{Type: "error", Content: "GET_DOCID_FAILED"}
					continue
				}
				if c.docID != "" && c.docID != docID {
					// 先离开旧房间
					c.hub.Leave(c.docID, c)
				}
				c.docID = docID
			}

			documents, err := c.hub.presence.GetDocuments(ctx)
			if err != nil {
				log.Printf("get documents error: %v", err)
			}
			if !slices.Contains(documents, c.docID) {
				c.send <- ServerMessage{Type: "joinDocument", DocID: c.docID, Content: "Document " + c.docID + " not found"}
				continue
			}
			c.hub.Join(c.docID, c)
			c.hub.presence.AddMember(ctx, c.docID, c.userID, c.username, 600*time.Second)
			c.send <- ServerMessage{Type: "joinDocument", DocID: c.docID, Content: "Document " + c.docID + " joined by user " + strconv.FormatUint(c.userID, 10)}

		case "show_alive_members":
			members, err := c.hub.presence.GetAliveMembersWithNames(ctx, c.docID)
			if err != nil {
				log.Printf("get alive members with names error: %v", err)
			}
			memberNames := make([]PresenceMember, len(members))
			for i, m := range members {
				memberNames[i] = PresenceMember{UserID: m.UserID, Username: m.Username}
			}
			c.send <- ServerMessage{Type: "show_alive_members", Members: memberNames}

		case "op_submit":
			msg := OpSubmitMessage{
				Type:         clientMessage.Type,
				DocID:        clientMessage.DocID,
				BaseRevision: clientMessage.BaseRevision,
				ClientId:     clientMessage.ClientId,
				ClientSeq:    clientMessage.ClientSeq,
				Ops:          clientMessage.Ops,
			}
			c.handleOpSubmit(ctx, msg, c.userID)

		case "undo":
			c.handleUndo(ctx, clientMessage.DocID, clientMessage.Revision)

		case "cursor_update":
			err := c.hub.presence.SetCursor(ctx, c.docID, c.userID, clientMessage.Cursor, 600*time.Second)
			if err != nil {
				log.Printf("set cursor error: %v", err)
				continue
			}
			c.hub.BroadcastCursor(c.docID, c.userID, clientMessage.Cursor)

		case "saveDocument":
			err := c.svc.SaveSnapshot(ctx, clientMessage.DocID)
			if err != nil {
				log.Printf("save document error: %v", err)
				c.send <- ServerMessage{Type: "saveDocument", Content: "Document " + clientMessage.DocID + " save failed"}
				continue
			}
			c.send <- ServerMessage{Type: "saveDocument", Content: "Document " + clientMessage.DocID + " saved"}

		case "loadDocumentContent":
			content, revision, err := c.svc.LoadDocumentContent(ctx, clientMessage.DocID)
			if err != nil {
				log.Printf("load document content error: %v", err)
			} else {
				c.send <- ServerMessage{Type: "loadDocumentContent", Content: content, Revision: revision}
			}

		default:
			// 忽略未知类型，回一条提示
			c.send <- ServerMessage{Type: "ignored", Content: "Unknown message type"}
		}
	}
}

func (c *Conn) writeLoop() {
	// 持续消费出站队列
	for msg := range c.send {
		_ = c.ws.WriteJSON(msg)
	}
}
