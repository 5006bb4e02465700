package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NASAAPICache stores raw upstream responses so a sync can fall back to
// the last good payload when NASA is unreachable. Rows are identified by
// (endpoint, query params); expired rows are ignored on read and pruned
// by a housekeeping worker.
type NASAAPICache struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Endpoint     string         `gorm:"size:255;not null;index:idx_cache_endpoint_expires" json:"endpoint"`
	QueryParams  datatypes.JSON `json:"query_params,omitempty"`
	ResponseData datatypes.JSON `gorm:"not null" json:"response_data"`

	CachedAt  time.Time `gorm:"not null" json:"cached_at"`
	ExpiresAt time.Time `gorm:"not null;index:idx_cache_endpoint_expires" json:"expires_at"`
	HitCount  int       `gorm:"default:0" json:"hit_count"`
}

func (c *NASAAPICache) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
