package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"deltaServer/backend/internal/ot/delta"
)

// 协作引擎接口
type Service interface {
	// Submit 提交一次编辑。baseRevision 落后于当前版本时，
	// 先把 ops 经 OT 变换追平，再应用。
	Submit(ctx context.Context, docID string, authorID uint64,
		baseRevision uint64, clientID string, clientSeq uint64,
		ops *delta.Delta) (AppliedOp, error)

	// Undo 撤销指定版本的那次操作（应用其保存的逆变更，
	// 逆变更同样会先被变换到当前版本）。
	Undo(ctx context.Context, docID string, authorID uint64, revision uint64) (AppliedOp, error)

	CurrentRevision(ctx context.Context, docID string) (uint64, error)

	LoadDocumentContent(ctx context.Context, docID string) (string, uint64, error)

	// 用于握手/追平
	OpsSince(ctx context.Context, docID string, fromRevision uint64, limit int) ([]AppliedOp, error)

	SaveSnapshot(ctx context.Context, docID string) error

	GetDocumentID(ctx context.Context, title string) (string, error)
	CreateDocument(ctx context.Context, ownerID uint64, title string) error

	GetUserID(ctx context.Context, username string) (uint64, error)
}

// 快照存储接口
type SnapshotStore interface {
	SaveDocumentSnapshot(ctx context.Context, docID string, rev uint64, content string, contentDelta string) error
}

type DocumentStore interface {
	GetDocumentID(ctx context.Context, title string) (string, error)
	CreateDocument(ctx context.Context, ownerID uint64, title string) error
}

type UserStore interface {
	GetUserID(ctx context.Context, username string) (uint64, error)
}

// 光标存储接口。每次应用操作后引擎把房间内所有光标坐标
// 重新映射到新版本，远端光标才能跟着编辑走。
type CursorStore interface {
	SetCursor(ctx context.Context, docID string, userID uint64, index int, ttl time.Duration) error
	Cursors(ctx context.Context, docID string) (map[uint64]int, error)
}

type AppliedOp struct {
	OperationID string // 本次操作的唯一ID（用于幂等/追踪）
	Revision    uint64 // 全局版本号
	AuthorID    uint64
	// 实际应用的操作序列（追平变换之后的形态）
	Ops *delta.Delta
	// 针对应用前文档的逆变更，供撤销使用
	Undo      *delta.Delta
	AppliedAt time.Time
}

var (
	ErrRevisionConflict      = errors.New("REVISION_CONFLICT")
	ErrDuplicateOrOutOfOrder = errors.New("DUPLICATE_OR_OUT_OF_ORDER")
	ErrInvalidOps            = errors.New("INVALID_OPS")
	ErrRevisionNotFound      = errors.New("REVISION_NOT_FOUND")
)

type docState struct {
	mu       sync.RWMutex
	revision uint64
	opsRing  []AppliedOp
	// 去重窗口：记录某 clientId 最近的最大 clientSeq
	lastSeqByClient map[string]uint64
	// 权威文档内容：只含 insert 的文档形态 Delta，随每次操作 Compose 推进
	doc *delta.Delta
	// 纯文本投影
	buf Buffer
}

// 内存实现：持有所有文档的状态
type InMemoryService struct {
	mu      sync.RWMutex
	docs    map[string]*docState
	ringCap int

	// 依赖注入，实现在 store / cache 中
	snapshots SnapshotStore
	documents DocumentStore
	users     UserStore
	cursors   CursorStore

	dispatcher *KafkaDispatcher
}

// NewInMemoryService 返回一个满足 Service 接口的实例
func NewInMemoryService(snapshots SnapshotStore, documents DocumentStore, users UserStore, cursors CursorStore, dispatcher *KafkaDispatcher) *InMemoryService {
	return &InMemoryService{
		docs:       make(map[string]*docState),
		ringCap:    1024, // 近期操作环形缓冲容量，决定可追平的最大落后距离
		snapshots:  snapshots,
		documents:  documents,
		users:      users,
		cursors:    cursors,
		dispatcher: dispatcher,
	}
}

// 获取或创建指定文档的状态
func (s *InMemoryService) getOrCreateDoc(docID string) *docState {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds != nil {
		return ds
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds = s.docs[docID]; ds == nil {
		capacity := s.ringCap
		if capacity <= 0 {
			capacity = 1024
		}
		ds = &docState{
			lastSeqByClient: make(map[string]uint64),
			opsRing:         make([]AppliedOp, 0, capacity),
			doc:             delta.New(),
			buf:             NewPieceTable(""),
		}
		s.docs[docID] = ds
	}
	return ds
}

// catchUp 把基于 baseRevision 的 ops 依次穿过其后每个已应用操作。
// 服务端已应用的操作视为先发生（priority=true），并发插入排在其后。
// 追平窗口受环形缓冲限制，太老的 base 返回 ErrRevisionConflict。
func catchUp(ds *docState, baseRevision uint64, ops *delta.Delta) (*delta.Delta, error) {
	if baseRevision == ds.revision {
		return ops, nil
	}
	if baseRevision > ds.revision {
		return nil, ErrRevisionConflict
	}
	if len(ds.opsRing) == 0 || baseRevision < ds.opsRing[0].Revision-1 {
		return nil, ErrRevisionConflict
	}
	for _, applied := range ds.opsRing {
		if applied.Revision <= baseRevision {
			continue
		}
		ops = applied.Ops.Transform(ops, true)
	}
	return ops, nil
}

// applyLocked 走应用主链路：Compose 推进文档、记逆变更、推进版本、
// 入环形缓冲。调用方必须已持有 ds.mu 写锁。
func (s *InMemoryService) applyLocked(ds *docState, authorID uint64, ops *delta.Delta) (AppliedOp, error) {
	next := ds.doc.Compose(ops)
	if !next.IsDocument() {
		// retain/delete 越过了文档末尾
		return AppliedOp{}, ErrInvalidOps
	}
	undo := ops.Invert(ds.doc)

	if ds.buf == nil {
		ds.buf = NewPieceTable("")
	}
	if err := ds.buf.Apply(ops); err != nil {
		return AppliedOp{}, err
	}
	ds.doc = next

	ds.revision++
	appliedOp := AppliedOp{
		OperationID: fmt.Sprintf("o-%d", time.Now().UnixNano()),
		Revision:    ds.revision,
		AuthorID:    authorID,
		Ops:         ops,
		Undo:        undo,
		AppliedAt:   time.Now(),
	}

	// 保存到环形缓冲（达到容量则丢弃最老的一条）
	if cap(ds.opsRing) > 0 && len(ds.opsRing) == cap(ds.opsRing) {
		copy(ds.opsRing[0:], ds.opsRing[1:])
		ds.opsRing = ds.opsRing[:len(ds.opsRing)-1]
	}
	ds.opsRing = append(ds.opsRing, appliedOp)

	return appliedOp, nil
}

// 提交操作（InMemoryService 实现）
func (s *InMemoryService) Submit(ctx context.Context, docID string, authorID uint64, baseRevision uint64, clientID string, clientSeq uint64, ops *delta.Delta) (AppliedOp, error) {
	ds := s.getOrCreateDoc(docID)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	// 幂等/去重：同一 clientId 只允许递增
	if last := ds.lastSeqByClient[clientID]; clientSeq <= last {
		return AppliedOp{}, ErrDuplicateOrOutOfOrder
	}

	transformed, err := catchUp(ds, baseRevision, ops)
	if err != nil {
		return AppliedOp{}, err
	}

	appliedOp, err := s.applyLocked(ds, authorID, transformed)
	if err != nil {
		return AppliedOp{}, err
	}
	ds.lastSeqByClient[clientID] = clientSeq

	s.remapCursors(ctx, docID, transformed)
	s.publish(ctx, docID, clientID, clientSeq, baseRevision, appliedOp)

	return appliedOp, nil
}

// Undo 应用 revision 那次操作保存的逆变更。逆变更基于该版本的
// 文档状态，要先穿过其后的每个操作变换到当前版本再应用。
func (s *InMemoryService) Undo(ctx context.Context, docID string, authorID uint64, revision uint64) (AppliedOp, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		return AppliedOp{}, ErrRevisionNotFound
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()

	var undo *delta.Delta
	for _, applied := range ds.opsRing {
		if applied.Revision == revision {
			undo = applied.Undo
			break
		}
	}
	if undo == nil {
		return AppliedOp{}, ErrRevisionNotFound
	}
	transformed, err := catchUp(ds, revision, undo)
	if err != nil {
		return AppliedOp{}, err
	}

	appliedOp, err := s.applyLocked(ds, authorID, transformed)
	if err != nil {
		return AppliedOp{}, err
	}

	s.remapCursors(ctx, docID, transformed)
	s.publish(ctx, docID, "", 0, revision, appliedOp)

	return appliedOp, nil
}

// remapCursors 把房间内所有已存光标坐标穿过刚应用的变更。
// 尽力而为：缓存不可用只打日志，不影响提交。
func (s *InMemoryService) remapCursors(ctx context.Context, docID string, ops *delta.Delta) {
	if s.cursors == nil {
		return
	}
	positions, err := s.cursors.Cursors(ctx, docID)
	if err != nil {
		log.Printf("load cursors failed doc=%s err=%v", docID, err)
		return
	}
	for userID, index := range positions {
		moved := ops.TransformPosition(index, false)
		if moved == index {
			continue
		}
		if err := s.cursors.SetCursor(ctx, docID, userID, moved, 600*time.Second); err != nil {
			log.Printf("remap cursor failed doc=%s user=%d err=%v", docID, userID, err)
		}
	}
}

// publish 把已应用操作交给 Kafka 队列异步发送，不阻塞主链路
func (s *InMemoryService) publish(ctx context.Context, docID, clientID string, clientSeq, baseRevision uint64, applied AppliedOp) {
	if s.dispatcher == nil {
		return
	}
	evt := DocOpEvent{
		EventType:    "OP_APPLIED",
		DocID:        docID,
		OperationID:  applied.OperationID,
		Revision:     applied.Revision,
		AuthorID:     applied.AuthorID,
		ClientID:     clientID,
		ClientSeq:    clientSeq,
		BaseRevision: baseRevision,
		Ops:          applied.Ops,
		Undo:         applied.Undo,
		AppliedAt:    applied.AppliedAt,
	}
	if err := s.dispatcher.Enqueue(ctx, evt); err != nil {
		log.Printf("enqueue kafka event failed doc=%s op=%s err=%v", docID, applied.OperationID, err)
	}
}

func (s *InMemoryService) LoadDocumentContent(ctx context.Context, docID string) (string, uint64, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		return "", 0, errors.New("document not found")
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.buf.String(), ds.revision, nil
}

// 返回当前文档版本（InMemoryService 实现）
func (s *InMemoryService) CurrentRevision(ctx context.Context, docID string) (uint64, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		return 0, nil
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.revision, nil
}

// 返回 fromRevision 之后的已应用操作（InMemoryService 实现）
func (s *InMemoryService) OpsSince(ctx context.Context, docID string, fromRevision uint64, limit int) ([]AppliedOp, error) {
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil {
		return nil, nil
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	var out []AppliedOp
	for _, op := range ds.opsRing {
		if op.Revision > fromRevision {
			out = append(out, op)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryService) SaveSnapshot(ctx context.Context, docID string) error {
	if s.snapshots == nil {
		return errors.New("snapshot store not initialized")
	}
	s.mu.RLock()
	ds := s.docs[docID]
	s.mu.RUnlock()
	if ds == nil || ds.buf == nil {
		return errors.New("document not found or buffer not initialized")
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	contentDelta, err := json.Marshal(ds.doc)
	if err != nil {
		return err
	}
	return s.snapshots.SaveDocumentSnapshot(ctx, docID, ds.revision, ds.buf.String(), string(contentDelta))
}

func (s *InMemoryService) GetDocumentID(ctx context.Context, title string) (string, error) {
	if s.documents == nil {
		return "", errors.New("document store not initialized")
	}
	return s.documents.GetDocumentID(ctx, title)
}

func (s *InMemoryService) CreateDocument(ctx context.Context, ownerID uint64, title string) error {
	if s.documents == nil {
		return errors.New("document store not initialized")
	}
	return s.documents.CreateDocument(ctx, ownerID, title)
}

func (s *InMemoryService) GetUserID(ctx context.Context, username string) (uint64, error) {
	if s.users == nil {
		return 0, errors.New("user store not initialized")
	}
	return s.users.GetUserID(ctx, username)
}
