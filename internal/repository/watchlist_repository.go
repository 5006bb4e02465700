package repository

import (
	"context"

	"cosmicwatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WatchlistRepository interface {
	Find(ctx context.Context, userID, asteroidID uuid.UUID) (*models.Watchlist, error)
	Create(ctx context.Context, item *models.Watchlist) error
	Save(ctx context.Context, item *models.Watchlist) error
	Delete(ctx context.Context, item *models.Watchlist) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Watchlist, error)
	// DistinctUserIDs lists every user that currently has at least one
	// watch entry, for the periodic alert evaluation worker.
	DistinctUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

type watchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

func (r *watchlistRepository) Find(ctx context.Context, userID, asteroidID uuid.UUID) (*models.Watchlist, error) {
	var item models.Watchlist
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND asteroid_id = ?", userID, asteroidID).
		First(&item).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *watchlistRepository) Create(ctx context.Context, item *models.Watchlist) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *watchlistRepository) Save(ctx context.Context, item *models.Watchlist) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *watchlistRepository) Delete(ctx context.Context, item *models.Watchlist) error {
	return r.db.WithContext(ctx).Delete(item).Error
}

func (r *watchlistRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Watchlist, error) {
	var items []models.Watchlist
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).
		Error
	return items, err
}

func (r *watchlistRepository) DistinctUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Watchlist{}).
		Distinct("user_id").
		Pluck("user_id", &ids).
		Error
	return ids, err
}
