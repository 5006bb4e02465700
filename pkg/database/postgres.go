package database

import (
	"fmt"
	"log"
	"time"

	"cosmicwatch/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func Connect(config Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connected successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create uuid extension: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
		return fmt.Errorf("failed to create pg_trgm extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Asteroid{},
		&models.CloseApproach{},
		&models.RiskScoringLog{},
		&models.Watchlist{},
		&models.Alert{},
		&models.NASAAPICache{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migration completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	// Asteroid name search
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_asteroid_name_trgm ON asteroids USING gin(name gin_trgm_ops)").Error; err != nil {
		return err
	}

	// Upcoming approach scans ordered by time
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_approach_at_cri ON close_approaches(approach_at, calculated_cri DESC)").Error; err != nil {
		return err
	}

	// Latest score lookups per approach
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_risk_log_approach_calculated ON risk_scoring_logs(close_approach_id, calculated_at DESC)").Error; err != nil {
		return err
	}

	// Unread alert listing per user
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_alert_user_triggered ON alerts(user_id, triggered_at DESC)").Error; err != nil {
		return err
	}

	return nil
}
