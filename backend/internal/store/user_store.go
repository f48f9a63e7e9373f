package store

import (
	"context"

	"gorm.io/gorm"
)

type UserStore struct{ db *gorm.DB }

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserID(ctx context.Context, username string) (uint64, error) {
	var user User
	if err := s.db.WithContext(ctx).Select("id").Where("username = ?", username).First(&user).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}
