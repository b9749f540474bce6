package models

import "time"

// CategoryLimit is a monthly spending ceiling, at most one per
// (user, category) pair. Writes go through an atomic upsert keyed on
// that pair, never insert.
type CategoryLimit struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"uniqueIndex:idx_limit_user_category;not null"`
	CategoryID uint   `gorm:"uniqueIndex:idx_limit_user_category;not null"`
	AmountEnc  string `gorm:"size:512;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	User     User     `gorm:"constraint:OnDelete:CASCADE"`
	Category Category `gorm:"constraint:OnDelete:CASCADE"`
}
