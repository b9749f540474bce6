package store

import (
	"context"
	"fmt"

	"github.com/ZeldaFan0225/expense-flow/internal/models"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"gorm.io/gorm"
)

type ScheduleStore struct {
	db *gorm.DB
}

func (s *ScheduleStore) List(ctx context.Context, userID uint) ([]models.ImportSchedule, error) {
	var schedules []models.ImportSchedule
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("list import schedules: %w", err)
	}
	return schedules, nil
}

func (s *ScheduleStore) Get(ctx context.Context, userID, id uint) (*models.ImportSchedule, error) {
	var schedule models.ImportSchedule
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&schedule).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &schedule, nil
}

func (s *ScheduleStore) Create(ctx context.Context, schedule *models.ImportSchedule) error {
	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("create import schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) Save(ctx context.Context, schedule *models.ImportSchedule) error {
	if err := s.db.WithContext(ctx).Save(schedule).Error; err != nil {
		return fmt.Errorf("save import schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) Delete(ctx context.Context, userID, id uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ImportSchedule{})
	if res.Error != nil {
		return fmt.Errorf("delete import schedule: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return util.ErrNotFound
	}
	return nil
}
