package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Watchlist subscribes one user to threshold monitoring of one asteroid.
// The (user, asteroid) pair is unique; thresholds are optional and nil
// means "do not alert on this dimension".
type Watchlist struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_user_asteroid" json:"user_id"`
	AsteroidID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_user_asteroid" json:"asteroid_id"`

	AlertThresholdDistanceKm *float64 `json:"alert_threshold_distance_km,omitempty"`
	AlertThresholdCRI        *float64 `json:"alert_threshold_cri,omitempty"`

	CustomNotes string `gorm:"type:text" json:"custom_notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User     *User     `gorm:"foreignKey:UserID" json:"-"`
	Asteroid *Asteroid `gorm:"foreignKey:AsteroidID" json:"-"`
}

func (w *Watchlist) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}
