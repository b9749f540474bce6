package models

import "time"

// Income is a single income ledger entry, optionally linked to the
// recurring template that generated it.
type Income struct {
	ID                uint      `gorm:"primaryKey"`
	UserID            uint      `gorm:"index;not null"`
	RecurringSourceID *uint     `gorm:"index"`
	AmountEnc         string    `gorm:"size:512;not null"`
	DescriptionEnc    string    `gorm:"size:1024"`
	OccurredOn        time.Time `gorm:"index;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
