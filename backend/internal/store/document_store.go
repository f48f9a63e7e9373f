package store

import (
	"context"
	"strconv"

	"gorm.io/gorm"
)

type DocumentStore struct{ db *gorm.DB }

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) GetDocumentID(ctx context.Context, title string) (string, error) {
	var doc Document
	if err := s.db.WithContext(ctx).Select("id").Where("title = ?", title).First(&doc).Error; err != nil {
		// gorm.ErrRecordNotFound
		return "", err
	}
	return strconv.FormatUint(doc.ID, 10), nil
}

func (s *DocumentStore) CreateDocument(ctx context.Context, ownerID uint64, title string) error {
	doc := Document{Title: title, OwnerID: ownerID}
	return s.db.WithContext(ctx).Create(&doc).Error
}

func (s *DocumentStore) ListDocuments(ctx context.Context, ownerID uint64) ([]Document, error) {
	var docs []Document
	err := s.db.WithContext(ctx).Where("owner_id = ? AND archived = ?", ownerID, false).Find(&docs).Error
	return docs, err
}
