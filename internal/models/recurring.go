package models

import "time"

// RecurringExpense is a monthly template the materializer turns into
// concrete expenses. LastGeneratedOn is advanced only by the materializer
// and only through a conditional update, so concurrent catch-up runs
// cannot generate the same period twice.
type RecurringExpense struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index;not null"`
	CategoryID      *uint  `gorm:"index"`
	AmountEnc       string `gorm:"size:512;not null"`
	DescriptionEnc  string `gorm:"size:1024"`
	DueDayOfMonth   int    `gorm:"not null"`
	SplitBy         int    `gorm:"default:1;not null"`
	IsActive        bool   `gorm:"default:true;not null"`
	LastGeneratedOn *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	User     User      `gorm:"constraint:OnDelete:CASCADE"`
	Category *Category `gorm:"constraint:OnDelete:SET NULL"`
}

// RecurringIncome is the income counterpart of RecurringExpense.
type RecurringIncome struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index;not null"`
	AmountEnc       string `gorm:"size:512;not null"`
	DescriptionEnc  string `gorm:"size:1024"`
	DueDayOfMonth   int    `gorm:"not null"`
	IsActive        bool   `gorm:"default:true;not null"`
	LastGeneratedOn *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
