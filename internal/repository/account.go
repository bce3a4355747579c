package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/models"
	"github.com/nanogate/imagegate/internal/storage"
	"gorm.io/gorm"
)

type AccountRepository struct {
	db *storage.Postgres
}

func NewAccountRepository(db *storage.Postgres) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.DB.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.DB.WithContext(ctx).
		Where("username = ?", username).
		First(&account).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &account, err
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &account, err
}

func (r *AccountRepository) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&accounts).Error

	return accounts, err
}

// Adjusts pro status and point limit for an account
func (r *AccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isPro bool, quotaLimit int) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_pro":      isPro,
			"quota_limit": quotaLimit,
		}).Error
}

// ChargeQuota adds cost points to the account's usage. The increment runs
// as a single SQL expression so concurrent charges never lose updates.
func (r *AccountRepository) ChargeQuota(ctx context.Context, id uuid.UUID, cost int) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("quota_used", gorm.Expr("quota_used + ?", cost)).Error
}

// ResetQuota zeroes usage and advances the reset timestamp in one update.
func (r *AccountRepository) ResetQuota(ctx context.Context, id uuid.UUID, resetAt time.Time) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quota_used":       0,
			"last_quota_reset": resetAt,
		}).Error
}
