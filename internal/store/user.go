package store

import (
	"context"
	"fmt"

	"github.com/ZeldaFan0225/expense-flow/internal/models"

	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UsernameTaken checks case-insensitively whether a username exists.
func (s *UserStore) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", username).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UpdateSettings applies the changed settings fields.
func (s *UserStore) UpdateSettings(ctx context.Context, user *models.User, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
