package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a uniquely-named shared in-memory sqlite database and
// migrates the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
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

// fakeNEOClient replays canned payloads and records call counts.
type fakeNEOClient struct {
	mu          sync.Mutex
	feedPayload []byte
	feedErr     error
	feedCalls   int

	objectPayload []byte
	objectErr     error
	objectCalls   int
}

func (f *fakeNEOClient) FetchFeed(ctx context.Context, startDate, endDate string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedCalls++
	if f.feedErr != nil {
		return nil, f.feedErr
	}
	return f.feedPayload, nil
}

func (f *fakeNEOClient) FetchObject(ctx context.Context, neoID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objectCalls++
	if f.objectErr != nil {
		return nil, f.objectErr
	}
	return f.objectPayload, nil
}

// fakeCacheRepo is an in-memory stand-in for the redis cache. Expirations
// are ignored; tests that care about redis TTLs belong at the repository
// layer.
type fakeCacheRepo struct {
	mu    sync.Mutex
	store map[string]string
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: make(map[string]string)}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[key], nil
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCacheRepo) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store, key)
	return nil
}

func (f *fakeCacheRepo) GetJSON(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.store[key]
	if !ok {
		return fmt.Errorf("cache miss: %s", key)
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (f *fakeCacheRepo) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = string(raw)
	return nil
}

func (f *fakeCacheRepo) Keys(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}

var _ repository.CacheRepository = (*fakeCacheRepo)(nil)

// feedJSON builds a minimal NeoWs feed payload with a single object.
func feedJSON(neoID, name, date string, diameterMin, diameterMax float64, hazardous bool, velocityKmh, missKm string) []byte {
	payload := fmt.Sprintf(`{
		"element_count": 1,
		"near_earth_objects": {
			%q: [{
				"neo_reference_id": %q,
				"name": %q,
				"nasa_jpl_url": "https://example.test/neo",
				"absolute_magnitude_h": 22.1,
				"estimated_diameter": {
					"kilometers": {"estimated_diameter_min": %g, "estimated_diameter_max": %g}
				},
				"is_potentially_hazardous_asteroid": %t,
				"is_sentry_object": false,
				"close_approach_data": [{
					"close_approach_date": %q,
					"close_approach_date_full": "%s 20:28",
					"relative_velocity": {"kilometers_per_hour": %q, "kilometers_per_second": "5.1"},
					"miss_distance": {"astronomical": "0.3", "lunar": "116.7", "kilometers": %q},
					"orbiting_body": "Earth"
				}]
			}]
		}
	}`, date, neoID, name, diameterMin, diameterMax, hazardous, date, date, velocityKmh, missKm)
	return []byte(payload)
}
