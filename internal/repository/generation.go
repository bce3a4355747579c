package repository

import (
	"context"
	"time"

	"github.com/nanogate/imagegate/internal/models"
	"github.com/nanogate/imagegate/internal/storage"
)

type GenerationRepository struct {
	db *storage.Postgres
}

func NewGenerationRepository(db *storage.Postgres) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Create(ctx context.Context, generation *models.Generation) error {
	return r.db.DB.WithContext(ctx).Create(generation).Error
}

func (r *GenerationRepository) ListRecent(ctx context.Context, limit int) ([]models.Generation, error) {
	var generations []models.Generation
	err := r.db.DB.WithContext(ctx).
		Order("timestamp DESC").
		Limit(limit).
		Find(&generations).Error

	return generations, err
}

func (r *GenerationRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.Generation{}).
		Where("timestamp > ?", since).
		Count(&count).Error

	return count, err
}
