package repository

import (
	"fmt"
	"testing"

	"cosmicwatch/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a uniquely-named shared in-memory sqlite database and
// migrates the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Asteroid{},
		&models.CloseApproach{},
		&models.RiskScoringLog{},
		&models.Watchlist{},
		&models.Alert{},
		&models.NASAAPICache{},
	))

	return db
}
