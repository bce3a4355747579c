package repository

import (
	"context"
	"time"

	"github.com/nanogate/imagegate/internal/models"
	"github.com/nanogate/imagegate/internal/storage"
	"gorm.io/gorm"
)

type UsageLogRepository struct {
	db *storage.Postgres
}

func NewUsageLogRepository(db *storage.Postgres) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// Appends one entry. Existing rows are never touched.
func (r *UsageLogRepository) Append(ctx context.Context, ip string, at time.Time) error {
	entry := models.UsageLog{IP: ip, Timestamp: at}
	return r.db.DB.WithContext(ctx).Create(&entry).Error
}

// Returns the most recent entry timestamp for an IP, or nil if the IP has
// no history.
func (r *UsageLogRepository) LastUsedAt(ctx context.Context, ip string) (*time.Time, error) {
	var entry models.UsageLog
	err := r.db.DB.WithContext(ctx).
		Where("ip = ?", ip).
		Order("timestamp DESC").
		First(&entry).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &entry.Timestamp, nil
}

// Counts entries for an IP newer than the given instant
func (r *UsageLogRepository) CountSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("ip = ? AND timestamp > ?", ip, since).
		Count(&count).Error

	return count, err
}

// Aggregated per-IP usage for the admin surface
type IPStat struct {
	IP         string    `json:"ip"`
	Count      int64     `json:"count"`
	LastActive time.Time `json:"last_active"`
}

// Returns total usage and last activity grouped by IP, busiest first.
func (r *UsageLogRepository) StatsByIP(ctx context.Context) ([]IPStat, error) {
	var stats []IPStat
	err := r.db.DB.WithContext(ctx).
		Model(&models.UsageLog{}).
		Select("ip, COUNT(*) as count, MAX(timestamp) as last_active").
		Group("ip").
		Order("count DESC").
		Scan(&stats).Error

	return stats, err
}
