package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"gorm.io/gorm"
)

type ExpenseStore struct {
	db *gorm.DB
}

// ListParams narrows an expense listing. Nil bounds are open.
type ListParams struct {
	Start *time.Time
	End   *time.Time
	Limit int
}

func (s *ExpenseStore) List(ctx context.Context, userID uint, params ListParams) ([]models.Expense, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Category").
		Preload("Group").
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

	var expenses []models.Expense
	if err := q.Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseStore) Get(ctx context.Context, userID, id uint) (*models.Expense, error) {
	var expense models.Expense
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Preload("Category").
		Preload("Group").
		First(&expense).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &expense, nil
}

func (s *ExpenseStore) Create(ctx context.Context, expense *models.Expense) error {
	if err := s.db.WithContext(ctx).Create(expense).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// CreateBatch stores a bulk submission in one transaction, creating the
// shared group first when present.
func (s *ExpenseStore) CreateBatch(ctx context.Context, group *models.ExpenseGroup, expenses []models.Expense) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if group != nil {
			if err := tx.Create(group).Error; err != nil {
				return fmt.Errorf("create group: %w", err)
			}
			for i := range expenses {
				expenses[i].GroupID = &group.ID
			}
		}
		if err := tx.Create(&expenses).Error; err != nil {
			return fmt.Errorf("create expenses: %w", err)
		}
		return nil
	})
}

// ListGroups returns the user's expense groups, oldest first.
func (s *ExpenseStore) ListGroups(ctx context.Context, userID uint) ([]models.ExpenseGroup, error) {
	var groups []models.ExpenseGroup
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

func (s *ExpenseStore) Update(ctx context.Context, expense *models.Expense) error {
	if err := s.db.WithContext(ctx).Save(expense).Error; err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

func (s *ExpenseStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Expense{})
	if res.Error != nil {
		return fmt.Errorf("delete expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
