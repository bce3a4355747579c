package models

import (
	"time"

	"github.com/google/uuid"
)

// Represents one successful dispatch
type Generation struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	AccountID *uuid.UUID `gorm:"index" json:"account_id,omitempty"`
	IP        string     `json:"ip,omitempty"`
	Model     string     `gorm:"index" json:"model"`
	Prompt    string     `json:"prompt"`
	ImageRef  string     `json:"image_ref"`
	PointCost int        `json:"point_cost"`
	Timestamp time.Time  `gorm:"index" json:"timestamp"`
}

func (Generation) TableName() string {
	return "generations"
}
