package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Default point allowance granted at registration. Heavier model classes
// cost more points per generation than the default class.
const DefaultQuotaLimit = 20

type Account struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	IsPro          bool      `gorm:"default:false" json:"is_pro"`
	QuotaLimit     int       `gorm:"not null;default:20" json:"quota_limit"`
	QuotaUsed      int       `gorm:"not null;default:0" json:"quota_used"`
	LastQuotaReset time.Time `json:"last_quota_reset"`
	CreatedAt      time.Time `json:"created_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.LastQuotaReset.IsZero() {
		a.LastQuotaReset = time.Now().UTC()
	}
	return nil
}

func (Account) TableName() string {
	return "accounts"
}
