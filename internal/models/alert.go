package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertType is the closed set of alert kinds. Keeping it an enumerated
// type makes the (user, approach, kind) uniqueness invariant checkable
// without string guessing.
type AlertType string

const (
	AlertDistance   AlertType = "DISTANCE"
	AlertRiskScore  AlertType = "RISK_SCORE"
	AlertApproach24 AlertType = "APPROACH_24H"
	AlertApproach72 AlertType = "APPROACH_72H"
)

// Valid reports whether t is one of the known alert kinds.
func (t AlertType) Valid() bool {
	switch t {
	case AlertDistance, AlertRiskScore, AlertApproach24, AlertApproach72:
		return true
	}
	return false
}

// Alert is one triggered notification. Identity is the
// (UserID, CloseApproachID, AlertType) triple; creating a duplicate is a
// no-op that returns the existing row.
type Alert struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_user_approach_type" json:"user_id"`
	AsteroidID      uuid.UUID `gorm:"type:uuid;not null;index" json:"asteroid_id"`
	CloseApproachID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_user_approach_type" json:"close_approach_id"`

	AlertType       AlertType `gorm:"size:50;not null;uniqueIndex:uq_user_approach_type" json:"alert_type"`
	TriggeredReason string    `gorm:"size:255" json:"triggered_reason"`

	// Snapshots at trigger time.
	CRIScoreAtTrigger   *float64 `json:"cri_score_at_trigger,omitempty"`
	DistanceAtTriggerKm *float64 `json:"distance_at_trigger_km,omitempty"`

	IsRead             bool       `gorm:"default:false;index" json:"is_read"`
	IsNotified         bool       `gorm:"default:false" json:"is_notified"`
	NotificationMethod string     `gorm:"size:50" json:"notification_method,omitempty"`
	ReadAt             *time.Time `json:"read_at,omitempty"`

	TriggeredAt time.Time `gorm:"not null;index" json:"triggered_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
