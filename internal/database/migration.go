package database

import (
	"fmt"

	"github.com/ZeldaFan0225/expense-flow/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.ExpenseGroup{},
		&models.Expense{},
		&models.Income{},
		&models.RecurringExpense{},
		&models.RecurringIncome{},
		&models.CategoryLimit{},
		&models.ApiKey{},
		&models.ImportSchedule{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
