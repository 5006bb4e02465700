package repository

import (
	"context"
	"time"

	"cosmicwatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APICacheRepository is the durable fallback store for raw NASA responses.
// Entries are written on every successful live fetch and read only when a
// live fetch fails.
type APICacheRepository interface {
	Create(ctx context.Context, entry *models.NASAAPICache) error
	// GetLatestUnexpired returns the most-recently-cached entry for an
	// endpoint whose expiry is still in the future, ignoring query params.
	GetLatestUnexpired(ctx context.Context, endpoint string, now time.Time) (*models.NASAAPICache, error)
	IncrementHit(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type apiCacheRepository struct {
	db *gorm.DB
}

func NewAPICacheRepository(db *gorm.DB) APICacheRepository {
	return &apiCacheRepository{db: db}
}

func (r *apiCacheRepository) Create(ctx context.Context, entry *models.NASAAPICache) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *apiCacheRepository) GetLatestUnexpired(ctx context.Context, endpoint string, now time.Time) (*models.NASAAPICache, error) {
	var entry models.NASAAPICache
	err := r.db.WithContext(ctx).
		Where("endpoint = ? AND expires_at > ?", endpoint, now).
		Order("cached_at DESC").
		First(&entry).
		Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *apiCacheRepository) IncrementHit(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.NASAAPICache{}).
		Where("id = ?", id).
		UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).
		Error
}

func (r *apiCacheRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", before).
		Delete(&models.NASAAPICache{})
	return result.RowsAffected, result.Error
}
