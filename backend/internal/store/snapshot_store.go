package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// SnapshotStore 走 database/sql：快照是追加写的热点路径，
// 不需要 ORM 的模型跟踪。
type SnapshotStore struct{ db *sql.DB }

func NewSnapshotStore(db *sql.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) SaveDocumentSnapshot(ctx context.Context, docID string, rev uint64, content string, contentDelta string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO document_snapshots (document_id, revision, content, content_delta, created_at)
		VALUES (?, ?, ?, ?, NOW())`,
		docID,
		rev,
		content,
		contentDelta,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		// 同一 (document_id, revision) 重复保存视为幂等成功
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return nil
		}
		return err
	}
	return nil
}

// LoadLatestSnapshot 取某文档最新一条快照；没有快照返回 sql.ErrNoRows。
func (s *SnapshotStore) LoadLatestSnapshot(ctx context.Context, docID string) (rev uint64, content string, contentDelta string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT revision, content, content_delta FROM document_snapshots
		WHERE document_id = ? ORDER BY revision DESC LIMIT 1`,
		docID,
	).Scan(&rev, &content, &contentDelta)
	return rev, content, contentDelta, err
}
