package models

import "time"

// ExpenseGroup is a batch of expenses entered together with a shared
// split factor. Title and notes are stored encrypted. Immutable after
// creation except through the owning expenses.
type ExpenseGroup struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	TitleEnc  string `gorm:"size:512"`
	NotesEnc  string `gorm:"size:1024"`
	SplitBy   int    `gorm:"default:1;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}

// Expense is a single ledger entry. Amount, impact amount and description
// are stored as independent ciphertexts; impact = amount / splitBy must
// hold at write time, where splitBy is the group's when grouped.
type Expense struct {
	ID                uint      `gorm:"primaryKey"`
	UserID            uint      `gorm:"index;not null"`
	CategoryID        *uint     `gorm:"index"`
	GroupID           *uint     `gorm:"index"`
	RecurringSourceID *uint     `gorm:"index"`
	AmountEnc         string    `gorm:"size:512;not null"`
	ImpactAmountEnc   string    `gorm:"size:512;not null"`
	DescriptionEnc    string    `gorm:"size:1024"`
	SplitBy           int       `gorm:"default:1;not null"`
	OccurredOn        time.Time `gorm:"index;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	User     User          `gorm:"constraint:OnDelete:CASCADE"`
	Category *Category     `gorm:"constraint:OnDelete:SET NULL"`
	Group    *ExpenseGroup `gorm:"constraint:OnDelete:SET NULL"`
}
