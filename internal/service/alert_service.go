package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertView is one alert shaped for the request layer, with the asteroid
// name resolved.
type AlertView struct {
	ID                  string     `json:"id"`
	AsteroidID          string     `json:"asteroid_id"`
	AsteroidName        string     `json:"asteroid_name"`
	CloseApproachID     string     `json:"close_approach_id"`
	AlertType           string     `json:"alert_type"`
	TriggeredReason     string     `json:"triggered_reason"`
	CRIScoreAtTrigger   *float64   `json:"cri_score_at_trigger,omitempty"`
	DistanceAtTriggerKm *float64   `json:"distance_at_trigger_km,omitempty"`
	IsRead              bool       `json:"is_read"`
	ReadAt              *time.Time `json:"read_at,omitempty"`
	TriggeredAt         time.Time  `json:"triggered_at"`
}

// AlertList is one page of a user's alerts plus aggregate counts.
type AlertList struct {
	Alerts      []AlertView `json:"alerts"`
	TotalCount  int64       `json:"total_count"`
	UnreadCount int64       `json:"unread_count"`
}

// AlertService evaluates watch thresholds and approach windows against
// the canonical store and manages the resulting alerts.
type AlertService interface {
	// TriggerAlert creates the alert identified by (userID, approach, kind)
	// if it does not already exist. Returns the alert and whether it was
	// newly created.
	TriggerAlert(ctx context.Context, userID uuid.UUID, approach *models.CloseApproach, kind models.AlertType, reason string) (*models.Alert, bool, error)

	// CheckWatchlistThresholds evaluates every watch entry of one user
	// against the next future approach of the watched asteroid. Returns the
	// number of newly created alerts.
	CheckWatchlistThresholds(ctx context.Context, userID uuid.UUID) (int, error)

	// CheckApproachWindows raises time-window alerts (24h, 72h) for the
	// user's watched asteroids. Returns the number of newly created alerts.
	CheckApproachWindows(ctx context.Context, userID uuid.UUID) (int, error)

	GetUserAlerts(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) (*AlertList, error)
	MarkAlertRead(ctx context.Context, userID, alertID uuid.UUID) (*models.Alert, error)
	DeleteAlert(ctx context.Context, userID, alertID uuid.UUID) error
	GetAlertStats(ctx context.Context, userID uuid.UUID, days int) (*repository.AlertStats, error)
}

type alertService struct {
	alerts    repository.AlertRepository
	watchlist repository.WatchlistRepository
	asteroids repository.AsteroidRepository
	metrics   *observability.Metrics
}

func NewAlertService(
	alerts repository.AlertRepository,
	watchlist repository.WatchlistRepository,
	asteroids repository.AsteroidRepository,
	metrics *observability.Metrics,
) AlertService {
	return &alertService{
		alerts:    alerts,
		watchlist: watchlist,
		asteroids: asteroids,
		metrics:   metrics,
	}
}

func (s *alertService) TriggerAlert(ctx context.Context, userID uuid.UUID, approach *models.CloseApproach, kind models.AlertType, reason string) (*models.Alert, bool, error) {
	if !kind.Valid() {
		return nil, false, fmt.Errorf("alert type %q: %w", kind, ErrInvalidID)
	}

	existing, err := s.alerts.FindByTriple(ctx, userID, approach.ID, kind)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	alert := &models.Alert{
		UserID:              userID,
		AsteroidID:          approach.AsteroidID,
		CloseApproachID:     approach.ID,
		AlertType:           kind,
		TriggeredReason:     reason,
		CRIScoreAtTrigger:   approach.CalculatedCRI,
		DistanceAtTriggerKm: approach.MissDistanceKm,
		TriggeredAt:         clock.Now().UTC(),
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		// A concurrent evaluator may have won the race on the unique triple.
		// The alert exists either way, so return the row that won.
		if existing, findErr := s.alerts.FindByTriple(ctx, userID, approach.ID, kind); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}

	s.metrics.AlertsTriggered.WithLabelValues(string(kind)).Inc()
	log.Printf("alert: triggered %s for user %s on approach %s", kind, userID, approach.ID)
	return alert, true, nil
}

func (s *alertService) CheckWatchlistThresholds(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := s.watchlist.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := clock.Now().UTC()
	created := 0

	for i := range items {
		item := &items[i]
		if item.AlertThresholdDistanceKm == nil && item.AlertThresholdCRI == nil {
			continue
		}

		approach, err := s.asteroids.NextApproach(ctx, item.AsteroidID, now)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return created, err
		}

		if item.AlertThresholdDistanceKm != nil &&
			approach.MissDistanceKm != nil &&
			*approach.MissDistanceKm <= *item.AlertThresholdDistanceKm {
			reason := fmt.Sprintf("Miss distance %.0f km is within your %.0f km threshold",
				*approach.MissDistanceKm, *item.AlertThresholdDistanceKm)
			if _, isNew, err := s.TriggerAlert(ctx, userID, approach, models.AlertDistance, reason); err != nil {
				return created, err
			} else if isNew {
				created++
			}
		}

		if item.AlertThresholdCRI != nil &&
			approach.CalculatedCRI != nil &&
			*approach.CalculatedCRI >= *item.AlertThresholdCRI {
			reason := fmt.Sprintf("Risk score %.2f exceeds your threshold of %.2f",
				*approach.CalculatedCRI, *item.AlertThresholdCRI)
			if _, isNew, err := s.TriggerAlert(ctx, userID, approach, models.AlertRiskScore, reason); err != nil {
				return created, err
			} else if isNew {
				created++
			}
		}
	}

	return created, nil
}

func (s *alertService) CheckApproachWindows(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := s.watchlist.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	now := clock.Now().UTC()
	created := 0

	for i := range items {
		approach, err := s.asteroids.NextApproach(ctx, items[i].AsteroidID, now)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return created, err
		}

		until := approach.ApproachAt.Sub(now)
		var kind models.AlertType
		switch {
		case until <= 24*time.Hour:
			kind = models.AlertApproach24
		case until <= 72*time.Hour:
			kind = models.AlertApproach72
		default:
			continue
		}

		reason := fmt.Sprintf("Close approach at %s", approach.ApproachAt.Format("2006-01-02 15:04 UTC"))
		if _, isNew, err := s.TriggerAlert(ctx, userID, approach, kind, reason); err != nil {
			return created, err
		} else if isNew {
			created++
		}
	}

	return created, nil
}

func (s *alertService) GetUserAlerts(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) (*AlertList, error) {
	alerts, err := s.alerts.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.alerts.CountByUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	unread, err := s.alerts.CountByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	list := &AlertList{Alerts: []AlertView{}, TotalCount: total, UnreadCount: unread}
	names := make(map[uuid.UUID]string)
	for i := range alerts {
		alert := &alerts[i]

		name, ok := names[alert.AsteroidID]
		if !ok {
			if asteroid, err := s.asteroids.GetByID(ctx, alert.AsteroidID); err == nil {
				name = asteroid.Name
			}
			names[alert.AsteroidID] = name
		}

		list.Alerts = append(list.Alerts, AlertView{
			ID:                  alert.ID.String(),
			AsteroidID:          alert.AsteroidID.String(),
			AsteroidName:        name,
			CloseApproachID:     alert.CloseApproachID.String(),
			AlertType:           string(alert.AlertType),
			TriggeredReason:     alert.TriggeredReason,
			CRIScoreAtTrigger:   alert.CRIScoreAtTrigger,
			DistanceAtTriggerKm: alert.DistanceAtTriggerKm,
			IsRead:              alert.IsRead,
			ReadAt:              alert.ReadAt,
			TriggeredAt:         alert.TriggeredAt,
		})
	}

	return list, nil
}

func (s *alertService) MarkAlertRead(ctx context.Context, userID, alertID uuid.UUID) (*models.Alert, error) {
	alert, err := s.alerts.GetForUser(ctx, userID, alertID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if !alert.IsRead {
		now := clock.Now().UTC()
		alert.IsRead = true
		alert.ReadAt = &now
		if err := s.alerts.Save(ctx, alert); err != nil {
			return nil, err
		}
	}

	return alert, nil
}

func (s *alertService) DeleteAlert(ctx context.Context, userID, alertID uuid.UUID) error {
	alert, err := s.alerts.GetForUser(ctx, userID, alertID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.alerts.Delete(ctx, alert)
}

func (s *alertService) GetAlertStats(ctx context.Context, userID uuid.UUID, days int) (*repository.AlertStats, error) {
	if days < 1 || days > 365 {
		days = 7
	}

	now := clock.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := midnight.AddDate(0, 0, -days)

	return s.alerts.StatsSince(ctx, userID, since)
}
