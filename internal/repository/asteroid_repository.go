package repository

import (
	"context"
	"time"

	"cosmicwatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns overwritten when an insert collides with a row another writer
// committed first. Everything the sync rewrites, so the later writer wins.
var (
	asteroidSyncColumns = []string{
		"name", "url", "is_hazardous", "is_sentry_object",
		"absolute_magnitude", "diameter_km", "diameter_min_km",
		"diameter_max_km", "nasa_synced_at", "updated_at",
	}
	approachSyncColumns = []string{
		"approach_at", "velocity_kmh", "velocity_kms",
		"miss_distance_km", "miss_distance_au", "miss_distance_lunar",
		"orbiting_body", "calculated_cri", "nasa_synced_at", "updated_at",
	}
)

// AsteroidRepository persists the canonical asteroid aggregate: the
// asteroid itself plus its close approaches and append-only risk logs.
// Only the synchronizer writes through it; read surfaces are free-form.
type AsteroidRepository interface {
	// Transaction runs fn against a repository bound to a single
	// transaction. The sync batch uses this for its all-or-nothing
	// guarantee.
	Transaction(ctx context.Context, fn func(AsteroidRepository) error) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Asteroid, error)
	GetByNeoID(ctx context.Context, neoID string) (*models.Asteroid, error)
	Save(ctx context.Context, asteroid *models.Asteroid) error
	GetPaginated(ctx context.Context, page, limit int, sort string) ([]models.Asteroid, error)
	Search(ctx context.Context, query string, limit int) ([]models.Asteroid, error)
	Count(ctx context.Context) (int64, error)

	GetApproachByKey(ctx context.Context, asteroidID uuid.UUID, dateFull string) (*models.CloseApproach, error)
	SaveApproach(ctx context.Context, approach *models.CloseApproach) error
	NextApproach(ctx context.Context, asteroidID uuid.UUID, after time.Time) (*models.CloseApproach, error)
	ApproachesForAsteroid(ctx context.Context, asteroidID uuid.UUID) ([]models.CloseApproach, error)
	UpcomingApproaches(ctx context.Context, from, to time.Time) ([]models.CloseApproach, error)
	UpcomingThreats(ctx context.Context, from, to time.Time, minCRI float64) ([]models.CloseApproach, error)

	CreateRiskLog(ctx context.Context, log *models.RiskScoringLog) error
	LatestRiskLog(ctx context.Context, approachID uuid.UUID) (*models.RiskScoringLog, error)
}

type asteroidRepository struct {
	db *gorm.DB
}

func NewAsteroidRepository(db *gorm.DB) AsteroidRepository {
	return &asteroidRepository{db: db}
}

func (r *asteroidRepository) Transaction(ctx context.Context, fn func(AsteroidRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&asteroidRepository{db: tx})
	})
}

func (r *asteroidRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Asteroid, error) {
	var asteroid models.Asteroid
	err := r.db.WithContext(ctx).First(&asteroid, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &asteroid, nil
}

func (r *asteroidRepository) GetByNeoID(ctx context.Context, neoID string) (*models.Asteroid, error) {
	var asteroid models.Asteroid
	err := r.db.WithContext(ctx).First(&asteroid, "neo_id = ?", neoID).Error
	if err != nil {
		return nil, err
	}
	return &asteroid, nil
}

// Save persists the asteroid. New rows insert with ON CONFLICT on neo_id:
// two syncs racing on the same object must not abort each other's
// transaction on the unique index, so the collision becomes an overwrite
// instead. After a collision the struct is reloaded so the caller holds
// the surviving row and its id.
func (r *asteroidRepository) Save(ctx context.Context, asteroid *models.Asteroid) error {
	if asteroid.ID != uuid.Nil {
		return r.db.WithContext(ctx).Save(asteroid).Error
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "neo_id"}},
			DoUpdates: clause.AssignmentColumns(asteroidSyncColumns),
		}).
		Create(asteroid).Error
	if err != nil {
		return err
	}

	stored, err := r.GetByNeoID(ctx, asteroid.NeoID)
	if err != nil {
		return err
	}
	*asteroid = *stored
	return nil
}

func (r *asteroidRepository) GetPaginated(ctx context.Context, page, limit int, sort string) ([]models.Asteroid, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	order := "updated_at DESC"
	switch sort {
	case "name_asc":
		order = "name ASC"
	case "name_desc":
		order = "name DESC"
	case "magnitude_asc":
		order = "absolute_magnitude ASC"
	}

	var asteroids []models.Asteroid
	err := r.db.WithContext(ctx).
		Order(order).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&asteroids).
		Error
	return asteroids, err
}

func (r *asteroidRepository) Search(ctx context.Context, query string, limit int) ([]models.Asteroid, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var asteroids []models.Asteroid
	err := r.db.WithContext(ctx).
		Where("name LIKE ? OR neo_id LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("name ASC").
		Limit(limit).
		Find(&asteroids).
		Error
	return asteroids, err
}

func (r *asteroidRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Asteroid{}).
		Count(&count).
		Error
	return count, err
}

func (r *asteroidRepository) GetApproachByKey(ctx context.Context, asteroidID uuid.UUID, dateFull string) (*models.CloseApproach, error) {
	var approach models.CloseApproach
	err := r.db.WithContext(ctx).
		Where("asteroid_id = ? AND approach_date_full = ?", asteroidID, dateFull).
		First(&approach).
		Error
	if err != nil {
		return nil, err
	}
	return &approach, nil
}

// SaveApproach mirrors Save: new rows insert with ON CONFLICT on the
// (asteroid_id, approach_date_full) identity and reload on collision.
func (r *asteroidRepository) SaveApproach(ctx context.Context, approach *models.CloseApproach) error {
	if approach.ID != uuid.Nil {
		return r.db.WithContext(ctx).Save(approach).Error
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asteroid_id"}, {Name: "approach_date_full"}},
			DoUpdates: clause.AssignmentColumns(approachSyncColumns),
		}).
		Create(approach).Error
	if err != nil {
		return err
	}

	stored, err := r.GetApproachByKey(ctx, approach.AsteroidID, approach.ApproachDateFull)
	if err != nil {
		return err
	}
	*approach = *stored
	return nil
}

func (r *asteroidRepository) NextApproach(ctx context.Context, asteroidID uuid.UUID, after time.Time) (*models.CloseApproach, error) {
	var approach models.CloseApproach
	err := r.db.WithContext(ctx).
		Where("asteroid_id = ? AND approach_at > ?", asteroidID, after).
		Order("approach_at ASC").
		First(&approach).
		Error
	if err != nil {
		return nil, err
	}
	return &approach, nil
}

func (r *asteroidRepository) ApproachesForAsteroid(ctx context.Context, asteroidID uuid.UUID) ([]models.CloseApproach, error) {
	var approaches []models.CloseApproach
	err := r.db.WithContext(ctx).
		Where("asteroid_id = ?", asteroidID).
		Order("approach_at ASC").
		Find(&approaches).
		Error
	return approaches, err
}

func (r *asteroidRepository) UpcomingApproaches(ctx context.Context, from, to time.Time) ([]models.CloseApproach, error) {
	var approaches []models.CloseApproach
	err := r.db.WithContext(ctx).
		Where("approach_at > ? AND approach_at <= ?", from, to).
		Order("approach_at ASC").
		Find(&approaches).
		Error
	return approaches, err
}

func (r *asteroidRepository) UpcomingThreats(ctx context.Context, from, to time.Time, minCRI float64) ([]models.CloseApproach, error) {
	var approaches []models.CloseApproach
	err := r.db.WithContext(ctx).
		Where("approach_at > ? AND approach_at <= ? AND calculated_cri >= ?", from, to, minCRI).
		Order("calculated_cri DESC").
		Find(&approaches).
		Error
	return approaches, err
}

func (r *asteroidRepository) CreateRiskLog(ctx context.Context, log *models.RiskScoringLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *asteroidRepository) LatestRiskLog(ctx context.Context, approachID uuid.UUID) (*models.RiskScoringLog, error) {
	var riskLog models.RiskScoringLog
	err := r.db.WithContext(ctx).
		Where("close_approach_id = ?", approachID).
		Order("calculated_at DESC").
		First(&riskLog).
		Error
	if err != nil {
		return nil, err
	}
	return &riskLog, nil
}
