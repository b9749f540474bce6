package store

import (
	"context"
	"fmt"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LimitStore struct {
	db *gorm.DB
}

func (s *LimitStore) List(ctx context.Context, userID uint) ([]models.CategoryLimit, error) {
	var limits []models.CategoryLimit
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Category").
		Find(&limits).Error
	if err != nil {
		return nil, fmt.Errorf("list limits: %w", err)
	}
	return limits, nil
}

// Upsert writes the limit for (user, category) as one atomic statement,
// never read-then-write, so concurrent writers cannot create duplicates.
func (s *LimitStore) Upsert(ctx context.Context, userID, categoryID uint, amountEnc string) (*models.CategoryLimit, error) {
	limit := models.CategoryLimit{
		UserID:     userID,
		CategoryID: categoryID,
		AmountEnc:  amountEnc,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount_enc", "updated_at"}),
	}).Create(&limit).Error
	if err != nil {
		return nil, fmt.Errorf("upsert limit: %w", err)
	}

	var stored models.CategoryLimit
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Preload("Category").
		First(&stored).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (s *LimitStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CategoryLimit{})
	if res.Error != nil {
		return fmt.Errorf("delete limit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
