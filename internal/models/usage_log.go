package models

import "time"

// One anonymous generation, keyed by caller IP. Append-only: the rate
// gate's decisions are aggregate queries over this table and entries are
// never deleted, so the audit history stays complete.
type UsageLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	IP        string    `gorm:"index:idx_ip_time;not null" json:"ip"`
	Timestamp time.Time `gorm:"index:idx_ip_time;not null" json:"timestamp"`
}

func (UsageLog) TableName() string {
	return "usage_logs"
}
