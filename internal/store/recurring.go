package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/models"

	"gorm.io/gorm"
)

type RecurringStore struct {
	db *gorm.DB
}

// errLostRace signals that another materialization run advanced the
// template first; the whole transaction rolls back and no entry is kept.
var errLostRace = errors.New("template already advanced")

func (s *RecurringStore) ListExpenseTemplates(ctx context.Context, userID uint) ([]models.RecurringExpense, error) {
	var templates []models.RecurringExpense
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Category").
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return templates, nil
}

func (s *RecurringStore) ListIncomeTemplates(ctx context.Context, userID uint) ([]models.RecurringIncome, error) {
	var templates []models.RecurringIncome
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("list recurring income: %w", err)
	}
	return templates, nil
}

func (s *RecurringStore) ActiveExpenseTemplates(ctx context.Context, userID uint) ([]models.RecurringExpense, error) {
	var templates []models.RecurringExpense
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("active recurring expenses: %w", err)
	}
	return templates, nil
}

func (s *RecurringStore) ActiveIncomeTemplates(ctx context.Context, userID uint) ([]models.RecurringIncome, error) {
	var templates []models.RecurringIncome
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("active recurring income: %w", err)
	}
	return templates, nil
}

func (s *RecurringStore) GetExpenseTemplate(ctx context.Context, userID, id uint) (*models.RecurringExpense, error) {
	var template models.RecurringExpense
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&template).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &template, nil
}

func (s *RecurringStore) GetIncomeTemplate(ctx context.Context, userID, id uint) (*models.RecurringIncome, error) {
	var template models.RecurringIncome
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&template).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &template, nil
}

func (s *RecurringStore) CreateExpenseTemplate(ctx context.Context, template *models.RecurringExpense) error {
	if err := s.db.WithContext(ctx).Create(template).Error; err != nil {
		return fmt.Errorf("create recurring expense: %w", err)
	}
	return nil
}

func (s *RecurringStore) CreateIncomeTemplate(ctx context.Context, template *models.RecurringIncome) error {
	if err := s.db.WithContext(ctx).Create(template).Error; err != nil {
		return fmt.Errorf("create recurring income: %w", err)
	}
	return nil
}

func (s *RecurringStore) SaveExpenseTemplate(ctx context.Context, template *models.RecurringExpense) error {
	if err := s.db.WithContext(ctx).Save(template).Error; err != nil {
		return fmt.Errorf("save recurring expense: %w", err)
	}
	return nil
}

func (s *RecurringStore) SaveIncomeTemplate(ctx context.Context, template *models.RecurringIncome) error {
	if err := s.db.WithContext(ctx).Save(template).Error; err != nil {
		return fmt.Errorf("save recurring income: %w", err)
	}
	return nil
}

func (s *RecurringStore) DeleteExpenseTemplate(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.RecurringExpense{})
	if res.Error != nil {
		return fmt.Errorf("delete recurring expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *RecurringStore) DeleteIncomeTemplate(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.RecurringIncome{})
	if res.Error != nil {
		return fmt.Errorf("delete recurring income: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound)
	}
	return nil
}

// MaterializeExpense creates the catch-up entries and advances
// lastGeneratedOn as one atomic unit. The advance is conditional on the
// value observed when the templates were read; losing that race means
// another run already generated the periods, so nothing is written and
// (false, nil) is returned.
func (s *RecurringStore) MaterializeExpense(ctx context.Context, template *models.RecurringExpense, entries []models.Expense, newLast time.Time) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := advanceTemplate(tx, &models.RecurringExpense{}, template.ID, template.LastGeneratedOn, newLast); err != nil {
			return err
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("create generated expenses: %w", err)
		}
		return nil
	})
	if errors.Is(err, errLostRace) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MaterializeIncome is the income counterpart of MaterializeExpense.
func (s *RecurringStore) MaterializeIncome(ctx context.Context, template *models.RecurringIncome, entries []models.Income, newLast time.Time) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := advanceTemplate(tx, &models.RecurringIncome{}, template.ID, template.LastGeneratedOn, newLast); err != nil {
			return err
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("create generated income: %w", err)
		}
		return nil
	})
	if errors.Is(err, errLostRace) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func advanceTemplate(tx *gorm.DB, model interface{}, id uint, observed *time.Time, newLast time.Time) error {
	q := tx.Model(model).Where("id = ?", id)
	if observed == nil {
		q = q.Where("last_generated_on IS NULL")
	} else {
		q = q.Where("last_generated_on = ?", *observed)
	}
	res := q.Update("last_generated_on", newLast)
	if res.Error != nil {
		return fmt.Errorf("advance template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errLostRace
	}
	return nil
}
