package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"gorm.io/gorm"
)

type ApiKeyStore struct {
	db *gorm.DB
}

func (s *ApiKeyStore) Create(ctx context.Context, key *models.ApiKey) error {
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *ApiKeyStore) List(ctx context.Context, userID uint) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// FindByPrefix fetches the candidate record for verification. The prefix
// is the public, indexable half of the token.
func (s *ApiKeyStore) FindByPrefix(ctx context.Context, prefix string) (*models.ApiKey, error) {
	var key models.ApiKey
	err := s.db.WithContext(ctx).
		Where("prefix = ?", prefix).
		First(&key).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &key, nil
}

// Revoke marks a key unusable. There is no resurrection path.
func (s *ApiKeyStore) Revoke(ctx context.Context, userID, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.ApiKey{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", id, userID).
		Update("revoked_at", at)
	if res.Error != nil {
		return fmt.Errorf("revoke api key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}

// TouchLastUsed records key usage. Callers treat failure as non-fatal.
func (s *ApiKeyStore) TouchLastUsed(id uint, at time.Time) error {
	return s.db.Model(&models.ApiKey{}).
		Where("id = ?", id).
		Update("token_last_used_at", at).Error
}
