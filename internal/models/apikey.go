package models

import "time"

// ApiKey is a machine credential. Only the bcrypt hash of the secret is
// stored; the prefix is public and used for lookup. Once revoked or
// expired a key is permanently unusable.
type ApiKey struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       uint   `gorm:"index;not null"`
	Prefix       string `gorm:"size:16;uniqueIndex;not null"`
	HashedSecret string `gorm:"size:255;not null"`
	// Granted scopes in storage form (underscores), comma separated.
	Scopes      string `gorm:"size:255;not null"`
	Description string `gorm:"size:255"`

	ExpiresAt       *time.Time
	RevokedAt       *time.Time `gorm:"index"`
	TokenLastUsedAt *time.Time
	CreatedAt       time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
