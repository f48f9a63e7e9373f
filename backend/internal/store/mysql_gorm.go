package store

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Username  string `gorm:"size:64;uniqueIndex"`
	CreatedAt time.Time
}

type Document struct {
	ID        uint64 `gorm:"primaryKey"`
	Title     string `gorm:"size:255;uniqueIndex"`
	OwnerID   uint64 `gorm:"index"`
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// 快照表由 SnapshotStore 走 database/sql 写入，结构在这里统一建表
type DocumentSnapshot struct {
	ID         uint64 `gorm:"primaryKey"`
	DocumentID string `gorm:"size:64;uniqueIndex:idx_doc_rev"`
	Revision   uint64 `gorm:"uniqueIndex:idx_doc_rev"`
	// 纯文本投影
	Content string `gorm:"type:longtext"`
	// 文档 Delta 的 JSON（权威内容，带样式）
	ContentDelta string `gorm:"type:longtext"`
	CreatedAt    time.Time
}

func (DocumentSnapshot) TableName() string { return "document_snapshots" }

func InitMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&User{}, &Document{}, &DocumentSnapshot{}); err != nil {
		return nil, err
	}
	return db, nil
}
