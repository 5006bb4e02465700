package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RiskScoringLog is an append-only audit row written every time an
// approach is (re)scored. Rows are never updated; the latest by
// CalculatedAt is authoritative for display.
type RiskScoringLog struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AsteroidID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"asteroid_id"`
	CloseApproachID *uuid.UUID `gorm:"type:uuid;index" json:"close_approach_id,omitempty"`

	CRIScore float64 `gorm:"not null" json:"cri_score"`

	// Component breakdown and the exact inputs the score was computed from.
	ComponentScores   datatypes.JSON `json:"component_scores"`
	CalculationInputs datatypes.JSON `json:"calculation_inputs"`

	CalculatedAt time.Time `gorm:"not null;index" json:"calculation_timestamp"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	Asteroid *Asteroid `gorm:"foreignKey:AsteroidID" json:"-"`
}

func (r *RiskScoringLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
