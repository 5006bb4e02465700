package repository

import (
	"context"
	"time"

	"cosmicwatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertStats summarizes a user's alerts over a trailing window.
type AlertStats struct {
	TotalAlerts    int64            `json:"total_alerts"`
	UnreadAlerts   int64            `json:"unread_alerts"`
	CriticalAlerts int64            `json:"critical_alerts"`
	HighAlerts     int64            `json:"high_alerts"`
	MediumAlerts   int64            `json:"medium_alerts"`
	AlertsByType   map[string]int64 `json:"alerts_by_type"`
}

type AlertRepository interface {
	// FindByTriple looks up the (user, approach, kind) identity that makes
	// alert creation idempotent.
	FindByTriple(ctx context.Context, userID, approachID uuid.UUID, kind models.AlertType) (*models.Alert, error)
	Create(ctx context.Context, alert *models.Alert) error
	GetForUser(ctx context.Context, userID, alertID uuid.UUID) (*models.Alert, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Alert, error)
	CountByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int64, error)
	Save(ctx context.Context, alert *models.Alert) error
	Delete(ctx context.Context, alert *models.Alert) error
	StatsSince(ctx context.Context, userID uuid.UUID, since time.Time) (*AlertStats, error)
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) FindByTriple(ctx context.Context, userID, approachID uuid.UUID, kind models.AlertType) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND close_approach_id = ? AND alert_type = ?", userID, approachID, kind).
		First(&alert).
		Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *alertRepository) GetForUser(ctx context.Context, userID, alertID uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", alertID, userID).
		First(&alert).
		Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Alert, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var alerts []models.Alert
	err := q.Order("triggered_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&alerts).
		Error
	return alerts, err
}

func (r *alertRepository) CountByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (r *alertRepository) Save(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

func (r *alertRepository) Delete(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Delete(alert).Error
}

func (r *alertRepository) StatsSince(ctx context.Context, userID uuid.UUID, since time.Time) (*AlertStats, error) {
	stats := &AlertStats{AlertsByType: make(map[string]int64)}

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&models.Alert{}).
			Where("user_id = ? AND triggered_at >= ?", userID, since)
	}

	if err := base().Count(&stats.TotalAlerts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_read = ?", false).Count(&stats.UnreadAlerts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("cri_score_at_trigger >= ?", 80).Count(&stats.CriticalAlerts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("cri_score_at_trigger >= ? AND cri_score_at_trigger < ?", 60, 80).Count(&stats.HighAlerts).Error; err != nil {
		return nil, err
	}
	if err := base().Where("cri_score_at_trigger >= ? AND cri_score_at_trigger < ?", 40, 60).Count(&stats.MediumAlerts).Error; err != nil {
		return nil, err
	}

	rows := []struct {
		AlertType string
		Count     int64
	}{}
	err := base().
		Select("alert_type, COUNT(id) as count").
		Group("alert_type").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.AlertsByType[row.AlertType] = row.Count
	}

	return stats, nil
}
