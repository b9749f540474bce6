package models

import "time"

// User represents application user. Every other entity belongs to exactly
// one user; ownership is checked on every query.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	DisplayName  string `gorm:"size:64"`

	DefaultCurrency      string `gorm:"size:8;default:EUR"`
	EncryptionKeyVersion int    `gorm:"default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
