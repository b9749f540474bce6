package models

import "time"

// ImportSchedule is a recurring CSV pull configuration. The fetching and
// parsing happen outside this service; rows here only feed the ledger
// write path and are managed through session-sourced requests.
type ImportSchedule struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	Name      string `gorm:"size:128;not null"`
	Mode      string `gorm:"size:32"`
	Template  string `gorm:"size:64"`
	Frequency string `gorm:"size:32"`
	SourceURL string `gorm:"size:512"`
	LastRunAt *time.Time
	NextRunAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
