package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Asteroid is the canonical record for a near-earth object. NeoID is the
// NASA NeoWs reference id and the only stable identity; every other
// attribute is overwritten on each sync.
type Asteroid struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NeoID string    `gorm:"size:20;uniqueIndex;not null" json:"neo_id"`
	Name  string    `gorm:"size:255;not null;index" json:"name"`
	URL   string    `gorm:"size:500" json:"url,omitempty"`

	// Physical properties. DiameterKm is the midpoint of min/max when both
	// are present, nil otherwise.
	DiameterKm        *float64 `json:"diameter_km,omitempty"`
	DiameterMinKm     *float64 `json:"diameter_min_km,omitempty"`
	DiameterMaxKm     *float64 `json:"diameter_max_km,omitempty"`
	AbsoluteMagnitude *float64 `json:"absolute_magnitude,omitempty"`

	IsHazardous    bool `gorm:"default:false;index" json:"is_hazardous"`
	IsSentryObject bool `gorm:"default:false" json:"is_sentry_object"`

	NasaSyncedAt *time.Time `json:"nasa_synced_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	CloseApproaches []CloseApproach  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	WatchlistItems  []Watchlist      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	RiskLogs        []RiskScoringLog `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Asteroid) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CloseApproach is one predicted close pass. The upsert identity is
// (AsteroidID, ApproachDateFull): the feed repeats the same logical event
// across fetches, and the full-precision date string is the only stable
// discriminator it provides.
type CloseApproach struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AsteroidID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_asteroid_approach" json:"asteroid_id"`

	ApproachAt       time.Time `gorm:"not null;index" json:"closest_approach_date"`
	ApproachDateFull string    `gorm:"size:50;uniqueIndex:uq_asteroid_approach" json:"close_approach_date_full"`

	MissDistanceKm    *float64 `json:"miss_distance_km,omitempty"`
	MissDistanceAU    *float64 `json:"miss_distance_au,omitempty"`
	MissDistanceLunar *float64 `json:"miss_distance_lunar,omitempty"`

	VelocityKmh *float64 `json:"approach_velocity_kmh,omitempty"`
	VelocityKms *float64 `json:"approach_velocity_kms,omitempty"`

	OrbitingBody string `gorm:"size:50;default:Earth" json:"orbiting_body"`

	// Denormalized copy of the latest risk score. Written atomically with
	// the matching RiskScoringLog row during sync.
	CalculatedCRI *float64 `gorm:"index" json:"calculated_cri,omitempty"`

	NasaSyncedAt *time.Time `json:"nasa_synced_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Asteroid *Asteroid `gorm:"foreignKey:AsteroidID" json:"-"`
}

func (c *CloseApproach) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
