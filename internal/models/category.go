package models

import "time"

// Category groups expenses for reporting. Deleting a category never
// deletes the expenses that reference it; they fall back to uncategorized.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Name      string `gorm:"size:64;not null"`
	Color     string `gorm:"size:16"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
