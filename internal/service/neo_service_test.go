package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/models"
	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/repository"
	"cosmicwatch/internal/risk"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newNEOServiceForTest(t *testing.T, client clients.NEOClient) (NEOService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewNEOService(
		repository.NewAsteroidRepository(db),
		repository.NewAPICacheRepository(db),
		newFakeCacheRepo(),
		client,
		observability.NewMetricsForTesting(),
		NEOServiceConfig{CacheTTL: 6 * time.Hour, ReportDir: t.TempDir()},
	)
	return svc, db
}

func TestSyncFeedCreatesAsteroidsAndApproaches(t *testing.T) {
	client := &fakeNEOClient{
		feedPayload: feedJSON("3542519", "(2010 PK9)", "2025-09-08", 0.08, 0.18, true, "47000", "450000"),
	}
	svc, db := newNEOServiceForTest(t, client)

	result, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)

	assert.Equal(t, SyncStatusSuccess, result.Status)
	assert.Equal(t, 1, result.SyncedAsteroids)
	assert.Equal(t, 1, result.SyncedApproaches)
	assert.False(t, result.FromCache)

	var asteroid models.Asteroid
	require.NoError(t, db.Where("neo_id = ?", "3542519").First(&asteroid).Error)
	assert.Equal(t, "(2010 PK9)", asteroid.Name)
	assert.True(t, asteroid.IsHazardous)
	require.NotNil(t, asteroid.DiameterKm)
	assert.InDelta(t, 0.13, *asteroid.DiameterKm, 1e-9)
	assert.NotNil(t, asteroid.NasaSyncedAt)

	var approach models.CloseApproach
	require.NoError(t, db.Where("asteroid_id = ?", asteroid.ID).First(&approach).Error)
	require.NotNil(t, approach.CalculatedCRI)

	// The stored score must match a fresh calculation from the same inputs.
	expected, _ := risk.CalculateCRI(asteroid.DiameterKm, approach.VelocityKmh, approach.MissDistanceKm, true)
	assert.Equal(t, expected, *approach.CalculatedCRI)

	// Every scoring writes an audit row.
	var logCount int64
	require.NoError(t, db.Model(&models.RiskScoringLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 1, logCount)
}

func TestSyncFeedIsIdempotent(t *testing.T) {
	client := &fakeNEOClient{
		feedPayload: feedJSON("3542519", "(2010 PK9)", "2025-09-08", 0.08, 0.18, true, "47000", "450000"),
	}
	svc, db := newNEOServiceForTest(t, client)

	first, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)
	require.Equal(t, 1, first.SyncedAsteroids)

	second, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)
	assert.Equal(t, SyncStatusSuccess, second.Status)
	// Nothing new was created, but the approach was still processed.
	assert.Equal(t, 0, second.SyncedAsteroids)
	assert.Equal(t, 1, second.SyncedApproaches)

	var asteroidCount, approachCount, logCount int64
	require.NoError(t, db.Model(&models.Asteroid{}).Count(&asteroidCount).Error)
	require.NoError(t, db.Model(&models.CloseApproach{}).Count(&approachCount).Error)
	require.NoError(t, db.Model(&models.RiskScoringLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 1, asteroidCount)
	assert.EqualValues(t, 1, approachCount)
	// Scoring history accumulates even when rows are merely refreshed.
	assert.EqualValues(t, 2, logCount)
}

// Two overlapping syncs of the same object must both succeed and
// converge on a single row set. The collision on the unique indexes is
// absorbed by the conflict-tolerant insert; neither batch rolls back.
func TestSyncFeedConcurrentRunsConverge(t *testing.T) {
	client := &fakeNEOClient{
		feedPayload: feedJSON("3542519", "(2010 PK9)", "2025-09-08", 0.08, 0.18, true, "47000", "450000"),
	}
	svc, db := newNEOServiceForTest(t, client)

	var wg sync.WaitGroup
	results := make([]*SyncResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, SyncStatusSuccess, results[i].Status)
	}

	var asteroidCount, approachCount, logCount int64
	require.NoError(t, db.Model(&models.Asteroid{}).Count(&asteroidCount).Error)
	require.NoError(t, db.Model(&models.CloseApproach{}).Count(&approachCount).Error)
	require.NoError(t, db.Model(&models.RiskScoringLog{}).Count(&logCount).Error)
	assert.EqualValues(t, 1, asteroidCount)
	assert.EqualValues(t, 1, approachCount)
	// Each successful run scores the approach once.
	assert.EqualValues(t, 2, logCount)
}

func TestSyncFeedOverwritesAttributes(t *testing.T) {
	client := &fakeNEOClient{
		feedPayload: feedJSON("3542519", "(2010 PK9)", "2025-09-08", 0.08, 0.18, false, "47000", "450000"),
	}
	svc, db := newNEOServiceForTest(t, client)

	_, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)

	// Upstream re-classified the object.
	client.mu.Lock()
	client.feedPayload = feedJSON("3542519", "2010 PK9 (renamed)", "2025-09-08", 0.1, 0.2, true, "48000", "440000")
	client.mu.Unlock()

	_, err = svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)

	var asteroid models.Asteroid
	require.NoError(t, db.Where("neo_id = ?", "3542519").First(&asteroid).Error)
	assert.Equal(t, "2010 PK9 (renamed)", asteroid.Name)
	assert.True(t, asteroid.IsHazardous)
	require.NotNil(t, asteroid.DiameterKm)
	assert.InDelta(t, 0.15, *asteroid.DiameterKm, 1e-9)
}

func TestSyncFeedFallsBackToCachedPayload(t *testing.T) {
	payload := feedJSON("3542519", "(2010 PK9)", "2025-09-08", 0.08, 0.18, true, "47000", "450000")
	client := &fakeNEOClient{feedPayload: payload}
	svc, db := newNEOServiceForTest(t, client)

	// First sync succeeds and writes the durable cache entry.
	_, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)

	var cacheCount int64
	require.NoError(t, db.Model(&models.NASAAPICache{}).Count(&cacheCount).Error)
	require.EqualValues(t, 1, cacheCount)

	// Upstream goes down; the cached payload keeps the sync alive.
	client.mu.Lock()
	client.feedErr = &clients.UpstreamError{Endpoint: clients.FeedEndpoint, StatusCode: 503, Err: errors.New("service unavailable")}
	client.mu.Unlock()

	result, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)
	assert.Equal(t, SyncStatusSuccess, result.Status)
	assert.True(t, result.FromCache)
	assert.Equal(t, 1, result.TotalAsteroids)

	// The fallback bumped the hit counter and wrote no new cache entry.
	var entry models.NASAAPICache
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, 1, entry.HitCount)
	require.NoError(t, db.Model(&models.NASAAPICache{}).Count(&cacheCount).Error)
	assert.EqualValues(t, 1, cacheCount)
}

func TestSyncFeedTransientWhenNoCacheExists(t *testing.T) {
	client := &fakeNEOClient{
		feedErr: &clients.UpstreamError{Endpoint: clients.FeedEndpoint, StatusCode: 503, Err: errors.New("service unavailable")},
	}
	svc, db := newNEOServiceForTest(t, client)

	result, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)
	assert.Equal(t, SyncStatusTransient, result.Status)

	var count int64
	require.NoError(t, db.Model(&models.Asteroid{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSyncFeedIgnoresExpiredCache(t *testing.T) {
	db := newTestDB(t)
	apiCache := repository.NewAPICacheRepository(db)

	stale := &models.NASAAPICache{
		Endpoint:     clients.FeedEndpoint,
		ResponseData: feedJSON("3542519", "(2010 PK9)", "2025-09-08", 0.08, 0.18, true, "47000", "450000"),
		CachedAt:     time.Now().UTC().Add(-48 * time.Hour),
		ExpiresAt:    time.Now().UTC().Add(-42 * time.Hour),
	}
	require.NoError(t, apiCache.Create(context.Background(), stale))

	client := &fakeNEOClient{
		feedErr: &clients.UpstreamError{Endpoint: clients.FeedEndpoint, StatusCode: 503, Err: errors.New("service unavailable")},
	}
	svc := NewNEOService(
		repository.NewAsteroidRepository(db),
		apiCache,
		newFakeCacheRepo(),
		client,
		observability.NewMetricsForTesting(),
		NEOServiceConfig{CacheTTL: 6 * time.Hour, ReportDir: t.TempDir()},
	)

	result, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)
	assert.Equal(t, SyncStatusTransient, result.Status)
}

func TestSyncFeedToleratesMalformedNumerics(t *testing.T) {
	payload := []byte(`{
		"element_count": 1,
		"near_earth_objects": {
			"2025-09-08": [{
				"neo_reference_id": "99999",
				"name": "Glitchy",
				"estimated_diameter": {"kilometers": {"estimated_diameter_min": "garbage", "estimated_diameter_max": null}},
				"is_potentially_hazardous_asteroid": false,
				"close_approach_data": [{
					"close_approach_date": "2025-09-08",
					"close_approach_date_full": "2025-Sep-08 20:28",
					"relative_velocity": {"kilometers_per_hour": "not-a-number"},
					"miss_distance": {"kilometers": "0"},
					"orbiting_body": "Earth"
				}]
			}]
		}
	}`)
	client := &fakeNEOClient{feedPayload: payload}
	svc, db := newNEOServiceForTest(t, client)

	result, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)
	require.Equal(t, SyncStatusSuccess, result.Status)

	var asteroid models.Asteroid
	require.NoError(t, db.Where("neo_id = ?", "99999").First(&asteroid).Error)
	assert.Nil(t, asteroid.DiameterKm)

	var approach models.CloseApproach
	require.NoError(t, db.Where("asteroid_id = ?", asteroid.ID).First(&approach).Error)
	assert.Nil(t, approach.VelocityKmh)
	assert.Nil(t, approach.MissDistanceKm)

	// Missing inputs fall back to documented defaults; scoring never fails.
	expected, _ := risk.CalculateCRI(nil, nil, nil, false)
	require.NotNil(t, approach.CalculatedCRI)
	assert.Equal(t, expected, *approach.CalculatedCRI)
}

func TestSyncFeedParsesApproachDate(t *testing.T) {
	client := &fakeNEOClient{
		feedPayload: []byte(`{
			"element_count": 1,
			"near_earth_objects": {
				"2025-09-08": [{
					"neo_reference_id": "3542519",
					"name": "(2010 PK9)",
					"estimated_diameter": {"kilometers": {"estimated_diameter_min": 0.08, "estimated_diameter_max": 0.18}},
					"is_potentially_hazardous_asteroid": true,
					"close_approach_data": [{
						"close_approach_date": "2025-09-08",
						"close_approach_date_full": "2025-Sep-08 20:28",
						"relative_velocity": {"kilometers_per_hour": "47000"},
						"miss_distance": {"kilometers": "450000"},
						"orbiting_body": "Earth"
					}]
				}]
			}
		}`),
	}
	svc, db := newNEOServiceForTest(t, client)

	_, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)

	var approach models.CloseApproach
	require.NoError(t, db.First(&approach).Error)
	assert.Equal(t, time.Date(2025, 9, 8, 20, 28, 0, 0, time.UTC), approach.ApproachAt.UTC())
}

func TestSyncAsteroidRejectsEmptyID(t *testing.T) {
	svc, _ := newNEOServiceForTest(t, &fakeNEOClient{})

	_, err := svc.SyncAsteroid(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestSyncAsteroidLookupFallbackVerifiesIdentity(t *testing.T) {
	lookupPayload := []byte(`{
		"neo_reference_id": "3542519",
		"name": "(2010 PK9)",
		"estimated_diameter": {"kilometers": {"estimated_diameter_min": 0.08, "estimated_diameter_max": 0.18}},
		"is_potentially_hazardous_asteroid": true,
		"close_approach_data": []
	}`)
	client := &fakeNEOClient{objectPayload: lookupPayload}
	svc, _ := newNEOServiceForTest(t, client)

	// Prime the lookup cache.
	_, err := svc.SyncAsteroid(context.Background(), "3542519")
	require.NoError(t, err)

	client.mu.Lock()
	client.objectErr = &clients.UpstreamError{Endpoint: clients.LookupEndpoint, StatusCode: 503, Err: errors.New("down")}
	client.mu.Unlock()

	// Cached payload matches the requested id: served from cache.
	asteroid, err := svc.SyncAsteroid(context.Background(), "3542519")
	require.NoError(t, err)
	assert.Equal(t, "3542519", asteroid.NeoID)

	// Cached payload describes a different object: fallback refused.
	_, err = svc.SyncAsteroid(context.Background(), "7777777")
	require.Error(t, err)
	var upstream *clients.UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestGetAsteroidDetail(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)))
	defer SetClock(nil)
	risk.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)))
	defer risk.SetClock(nil)

	client := &fakeNEOClient{
		feedPayload: feedJSON("3542519", "(2010 PK9)", "2025-09-08", 0.08, 0.18, true, "47000", "450000"),
	}
	svc, db := newNEOServiceForTest(t, client)

	_, err := svc.SyncFeed(context.Background(), "2025-09-08", "2025-09-15")
	require.NoError(t, err)

	var asteroid models.Asteroid
	require.NoError(t, db.Where("neo_id = ?", "3542519").First(&asteroid).Error)

	detail, err := svc.GetAsteroidDetail(context.Background(), asteroid.ID.String())
	require.NoError(t, err)

	assert.Equal(t, "(2010 PK9)", detail.Name)
	require.NotNil(t, detail.NextApproach)
	require.NotNil(t, detail.CRIScore)
	require.NotNil(t, detail.RiskLevel)
	require.NotNil(t, detail.CRIComponents)
	assert.InDelta(t, *detail.CRIScore, detail.CRIComponents.FinalCRI, 1e-9)
	assert.Len(t, detail.AllApproaches, 1)
	assert.True(t, detail.AllApproaches[0].IsNext72hThreat == (*detail.CRIScore >= 40))
}

func TestGetAsteroidDetailErrors(t *testing.T) {
	svc, _ := newNEOServiceForTest(t, &fakeNEOClient{})

	_, err := svc.GetAsteroidDetail(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = svc.GetAsteroidDetail(context.Background(), "11111111-1111-1111-1111-111111111111")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetTodayListsOnlyCurrentDayApproaches(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	db := newTestDB(t)
	repo := repository.NewAsteroidRepository(db)
	svc := NewNEOService(
		repo,
		repository.NewAPICacheRepository(db),
		newFakeCacheRepo(),
		&fakeNEOClient{},
		observability.NewMetricsForTesting(),
		NEOServiceConfig{ReportDir: t.TempDir()},
	)

	ctx := context.Background()
	mk := func(neoID string, at time.Time) {
		asteroid := &models.Asteroid{NeoID: neoID, Name: "NEO " + neoID}
		require.NoError(t, repo.Save(ctx, asteroid))
		approach := &models.CloseApproach{
			AsteroidID:       asteroid.ID,
			ApproachDateFull: at.Format("2006-Jan-02 15:04"),
			ApproachAt:       at,
		}
		require.NoError(t, repo.SaveApproach(ctx, approach))
	}

	mk("100001", time.Date(2025, 9, 8, 20, 28, 0, 0, time.UTC))
	mk("100002", time.Date(2025, 9, 9, 1, 0, 0, 0, time.UTC))
	mk("100003", time.Date(2025, 9, 7, 23, 0, 0, 0, time.UTC))

	items, err := svc.GetToday(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "100001", items[0].NeoID)
}

func TestGetNext72hThreats(t *testing.T) {
	now := time.Now().UTC()
	db := newTestDB(t)
	repo := repository.NewAsteroidRepository(db)
	svc := NewNEOService(
		repo,
		repository.NewAPICacheRepository(db),
		newFakeCacheRepo(),
		&fakeNEOClient{},
		observability.NewMetricsForTesting(),
		NEOServiceConfig{ReportDir: t.TempDir()},
	)

	ctx := context.Background()
	mk := func(neoID string, hoursAhead int, cri float64) {
		asteroid := &models.Asteroid{NeoID: neoID, Name: "NEO " + neoID}
		require.NoError(t, repo.Save(ctx, asteroid))
		approach := &models.CloseApproach{
			AsteroidID:       asteroid.ID,
			ApproachAt:       now.Add(time.Duration(hoursAhead) * time.Hour),
			ApproachDateFull: fmt.Sprintf("%s-%d", neoID, hoursAhead),
			CalculatedCRI:    &cri,
		}
		require.NoError(t, repo.SaveApproach(ctx, approach))
	}

	mk("1", 10, 85)  // inside window, critical
	mk("2", 50, 45)  // inside window
	mk("3", 10, 20)  // below threshold
	mk("4", 100, 90) // outside window

	report, err := svc.GetNext72hThreats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalCount)
	assert.Equal(t, 1, report.CriticalCount)
	require.NotNil(t, report.HighestCRI)
	assert.EqualValues(t, 85, *report.HighestCRI)
}
