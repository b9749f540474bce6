package store

import (
	"context"
	"fmt"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"gorm.io/gorm"
)

type CategoryStore struct {
	db *gorm.DB
}

func (s *CategoryStore) List(ctx context.Context, userID uint) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryStore) Get(ctx context.Context, userID, id uint) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&category).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func (s *CategoryStore) Create(ctx context.Context, category *models.Category) error {
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (s *CategoryStore) Update(ctx context.Context, category *models.Category) error {
	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// Delete removes a category. Referencing expenses and templates fall back
// to uncategorized; only the category's limits go with it.
func (s *CategoryStore) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&category).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&models.Expense{}).
			Where("category_id = ? AND user_id = ?", id, userID).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach expenses: %w", err)
		}
		if err := tx.Model(&models.RecurringExpense{}).
			Where("category_id = ? AND user_id = ?", id, userID).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach templates: %w", err)
		}
		if err := tx.Where("category_id = ? AND user_id = ?", id, userID).
			Delete(&models.CategoryLimit{}).Error; err != nil {
			return fmt.Errorf("delete limits: %w", err)
		}
		if err := tx.Delete(&category).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

// Exists reports whether the category belongs to the user.
func (s *CategoryStore) Exists(ctx context.Context, userID, id uint) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count == 0 {
		return util.ErrNotFound
	}
	return nil
}
