package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AddWatchRequest subscribes a user to one asteroid. Thresholds are
// optional; nil disables that alert dimension.
type AddWatchRequest struct {
	AsteroidID               string   `json:"asteroid_id" binding:"required"`
	AlertThresholdDistanceKm *float64 `json:"alert_threshold_distance_km"`
	AlertThresholdCRI        *float64 `json:"alert_threshold_cri"`
	CustomNotes              string   `json:"custom_notes"`
}

// UpdateWatchRequest patches an existing watch entry. Nil fields are left
// unchanged.
type UpdateWatchRequest struct {
	AlertThresholdDistanceKm *float64 `json:"alert_threshold_distance_km"`
	AlertThresholdCRI        *float64 `json:"alert_threshold_cri"`
	CustomNotes              *string  `json:"custom_notes"`
}

// WatchlistItemView is one watch entry with its asteroid summary.
type WatchlistItemView struct {
	ID                       string    `json:"id"`
	AsteroidID               string    `json:"asteroid_id"`
	AsteroidName             string    `json:"asteroid_name"`
	NeoID                    string    `json:"neo_id"`
	IsHazardous              bool      `json:"is_hazardous"`
	AlertThresholdDistanceKm *float64  `json:"alert_threshold_distance_km,omitempty"`
	AlertThresholdCRI        *float64  `json:"alert_threshold_cri,omitempty"`
	CustomNotes              string    `json:"custom_notes,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
}

// WatchlistPage is a user's complete watchlist.
type WatchlistPage struct {
	Items      []WatchlistItemView `json:"items"`
	TotalCount int                 `json:"total_count"`
}

// WatchlistService manages users' asteroid subscriptions.
type WatchlistService interface {
	AddToWatchlist(ctx context.Context, userID uuid.UUID, req AddWatchRequest) (*models.Watchlist, error)
	RemoveFromWatchlist(ctx context.Context, userID, asteroidID uuid.UUID) error
	GetUserWatchlist(ctx context.Context, userID uuid.UUID) (*WatchlistPage, error)
	UpdateWatchlistItem(ctx context.Context, userID, asteroidID uuid.UUID, req UpdateWatchRequest) (*models.Watchlist, error)
	IsInWatchlist(ctx context.Context, userID, asteroidID uuid.UUID) (bool, error)
}

type watchlistService struct {
	watchlist repository.WatchlistRepository
	asteroids repository.AsteroidRepository
	users     repository.UserRepository
}

func NewWatchlistService(
	watchlist repository.WatchlistRepository,
	asteroids repository.AsteroidRepository,
	users repository.UserRepository,
) WatchlistService {
	return &watchlistService{
		watchlist: watchlist,
		asteroids: asteroids,
		users:     users,
	}
}

func (s *watchlistService) AddToWatchlist(ctx context.Context, userID uuid.UUID, req AddWatchRequest) (*models.Watchlist, error) {
	asteroidID, err := uuid.Parse(req.AsteroidID)
	if err != nil {
		return nil, fmt.Errorf("asteroid id %q: %w", req.AsteroidID, ErrInvalidID)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	if _, err := s.asteroids.GetByID(ctx, asteroidID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asteroid %s: %w", asteroidID, ErrNotFound)
		}
		return nil, err
	}

	if existing, err := s.watchlist.Find(ctx, userID, asteroidID); err == nil {
		return existing, fmt.Errorf("asteroid %s already watched: %w", asteroidID, ErrDuplicate)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	item := &models.Watchlist{
		UserID:                   userID,
		AsteroidID:               asteroidID,
		AlertThresholdDistanceKm: req.AlertThresholdDistanceKm,
		AlertThresholdCRI:        req.AlertThresholdCRI,
		CustomNotes:              req.CustomNotes,
	}
	if err := s.watchlist.Create(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *watchlistService) RemoveFromWatchlist(ctx context.Context, userID, asteroidID uuid.UUID) error {
	item, err := s.watchlist.Find(ctx, userID, asteroidID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("asteroid %s not in watchlist: %w", asteroidID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.watchlist.Delete(ctx, item)
}

func (s *watchlistService) GetUserWatchlist(ctx context.Context, userID uuid.UUID) (*WatchlistPage, error) {
	items, err := s.watchlist.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	page := &WatchlistPage{Items: []WatchlistItemView{}, TotalCount: len(items)}
	for i := range items {
		item := &items[i]
		view := WatchlistItemView{
			ID:                       item.ID.String(),
			AsteroidID:               item.AsteroidID.String(),
			AlertThresholdDistanceKm: item.AlertThresholdDistanceKm,
			AlertThresholdCRI:        item.AlertThresholdCRI,
			CustomNotes:              item.CustomNotes,
			CreatedAt:                item.CreatedAt,
		}
		if asteroid, err := s.asteroids.GetByID(ctx, item.AsteroidID); err == nil {
			view.AsteroidName = asteroid.Name
			view.NeoID = asteroid.NeoID
			view.IsHazardous = asteroid.IsHazardous
		}
		page.Items = append(page.Items, view)
	}

	return page, nil
}

func (s *watchlistService) UpdateWatchlistItem(ctx context.Context, userID, asteroidID uuid.UUID, req UpdateWatchRequest) (*models.Watchlist, error) {
	item, err := s.watchlist.Find(ctx, userID, asteroidID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("asteroid %s not in watchlist: %w", asteroidID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if req.AlertThresholdDistanceKm != nil {
		item.AlertThresholdDistanceKm = req.AlertThresholdDistanceKm
	}
	if req.AlertThresholdCRI != nil {
		item.AlertThresholdCRI = req.AlertThresholdCRI
	}
	if req.CustomNotes != nil {
		item.CustomNotes = *req.CustomNotes
	}

	if err := s.watchlist.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *watchlistService) IsInWatchlist(ctx context.Context, userID, asteroidID uuid.UUID) (bool, error) {
	_, err := s.watchlist.Find(ctx, userID, asteroidID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
