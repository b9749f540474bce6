package store

import (
	"context"
	"fmt"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"gorm.io/gorm"
)

type IncomeStore struct {
	db *gorm.DB
}

func (s *IncomeStore) List(ctx context.Context, userID uint, params ListParams) ([]models.Income, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("occurred_on DESC, id DESC")
	if params.Start != nil {
		q = q.Where("occurred_on >= ?", *params.Start)
	}
	if params.End != nil {
		q = q.Where("occurred_on <= ?", *params.End)
	}
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}

	var incomes []models.Income
	if err := q.Find(&incomes).Error; err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}
	return incomes, nil
}

func (s *IncomeStore) Create(ctx context.Context, income *models.Income) error {
	if err := s.db.WithContext(ctx).Create(income).Error; err != nil {
		return fmt.Errorf("create income: %w", err)
	}
	return nil
}

func (s *IncomeStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Income{})
	if res.Error != nil {
		return fmt.Errorf("delete income: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
