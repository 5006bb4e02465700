package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type alertFixture struct {
	svc       AlertService
	asteroids repository.AsteroidRepository
	watchlist repository.WatchlistRepository
	db        *gorm.DB
	user      *models.User
}

func newAlertFixture(t *testing.T) *alertFixture {
	t.Helper()
	db := newTestDB(t)

	asteroids := repository.NewAsteroidRepository(db)
	watchlist := repository.NewWatchlistRepository(db)
	svc := NewAlertService(
		repository.NewAlertRepository(db),
		watchlist,
		asteroids,
		observability.NewMetricsForTesting(),
	)

	user := &models.User{Email: "watcher@example.test", Username: "watcher", PasswordHash: "x"}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), user))

	return &alertFixture{svc: svc, asteroids: asteroids, watchlist: watchlist, db: db, user: user}
}

// seedApproach stores an asteroid plus one upcoming approach with the
// given distance and score.
func (f *alertFixture) seedApproach(t *testing.T, neoID string, hoursAhead int, missKm, cri float64) (*models.Asteroid, *models.CloseApproach) {
	t.Helper()
	ctx := context.Background()

	asteroid := &models.Asteroid{NeoID: neoID, Name: "NEO " + neoID}
	require.NoError(t, f.asteroids.Save(ctx, asteroid))

	approach := &models.CloseApproach{
		AsteroidID:       asteroid.ID,
		ApproachAt:       time.Now().UTC().Add(time.Duration(hoursAhead) * time.Hour),
		ApproachDateFull: fmt.Sprintf("%s+%dh", neoID, hoursAhead),
		MissDistanceKm:   &missKm,
		CalculatedCRI:    &cri,
	}
	require.NoError(t, f.asteroids.SaveApproach(ctx, approach))
	return asteroid, approach
}

func (f *alertFixture) watch(t *testing.T, asteroidID uuid.UUID, distanceKm, cri *float64) {
	t.Helper()
	require.NoError(t, f.watchlist.Create(context.Background(), &models.Watchlist{
		UserID:                   f.user.ID,
		AsteroidID:               asteroidID,
		AlertThresholdDistanceKm: distanceKm,
		AlertThresholdCRI:        cri,
	}))
}

func ptr(v float64) *float64 { return &v }

func TestCheckWatchlistThresholdsTriggersBoth(t *testing.T) {
	f := newAlertFixture(t)
	asteroid, _ := f.seedApproach(t, "100", 48, 300000, 75)
	f.watch(t, asteroid.ID, ptr(500000), ptr(60))

	created, err := f.svc.CheckWatchlistThresholds(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	list, err := f.svc.GetUserAlerts(context.Background(), f.user.ID, false, 10, 0)
	require.NoError(t, err)
	require.Len(t, list.Alerts, 2)
	kinds := map[string]bool{}
	for _, a := range list.Alerts {
		kinds[a.AlertType] = true
		assert.Equal(t, "NEO 100", a.AsteroidName)
	}
	assert.True(t, kinds[string(models.AlertDistance)])
	assert.True(t, kinds[string(models.AlertRiskScore)])
}

func TestCheckWatchlistThresholdsIsAtMostOnce(t *testing.T) {
	f := newAlertFixture(t)
	asteroid, _ := f.seedApproach(t, "100", 48, 300000, 75)
	f.watch(t, asteroid.ID, ptr(500000), ptr(60))

	first, err := f.svc.CheckWatchlistThresholds(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, first)

	// Re-evaluating the same conditions must not duplicate alerts.
	second, err := f.svc.CheckWatchlistThresholds(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, second)

	var count int64
	require.NoError(t, f.db.Model(&models.Alert{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCheckWatchlistThresholdsRespectsNilThresholds(t *testing.T) {
	f := newAlertFixture(t)
	asteroid, _ := f.seedApproach(t, "100", 48, 100, 99)
	f.watch(t, asteroid.ID, nil, nil)

	created, err := f.svc.CheckWatchlistThresholds(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestCheckWatchlistThresholdsSkipsPastApproaches(t *testing.T) {
	f := newAlertFixture(t)
	asteroid, _ := f.seedApproach(t, "100", -48, 100, 99)
	f.watch(t, asteroid.ID, ptr(500000), ptr(10))

	created, err := f.svc.CheckWatchlistThresholds(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestCheckWatchlistThresholdsNotMet(t *testing.T) {
	f := newAlertFixture(t)
	asteroid, _ := f.seedApproach(t, "100", 48, 900000, 30)
	f.watch(t, asteroid.ID, ptr(500000), ptr(60))

	created, err := f.svc.CheckWatchlistThresholds(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestCheckApproachWindows(t *testing.T) {
	f := newAlertFixture(t)

	near, _ := f.seedApproach(t, "100", 10, 300000, 50)
	mid, _ := f.seedApproach(t, "200", 50, 300000, 50)
	far, _ := f.seedApproach(t, "300", 200, 300000, 50)
	f.watch(t, near.ID, nil, nil)
	f.watch(t, mid.ID, nil, nil)
	f.watch(t, far.ID, nil, nil)

	created, err := f.svc.CheckApproachWindows(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	list, err := f.svc.GetUserAlerts(context.Background(), f.user.ID, false, 10, 0)
	require.NoError(t, err)
	kinds := map[string]int{}
	for _, a := range list.Alerts {
		kinds[a.AlertType]++
	}
	assert.Equal(t, 1, kinds[string(models.AlertApproach24)])
	assert.Equal(t, 1, kinds[string(models.AlertApproach72)])

	// Second pass creates nothing new.
	created, err = f.svc.CheckApproachWindows(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestTriggerAlertRejectsUnknownType(t *testing.T) {
	f := newAlertFixture(t)
	_, approach := f.seedApproach(t, "100", 10, 300000, 50)

	_, _, err := f.svc.TriggerAlert(context.Background(), f.user.ID, approach, models.AlertType("BOGUS"), "nope")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMarkAlertRead(t *testing.T) {
	f := newAlertFixture(t)
	_, approach := f.seedApproach(t, "100", 10, 300000, 50)

	alert, isNew, err := f.svc.TriggerAlert(context.Background(), f.user.ID, approach, models.AlertApproach24, "incoming")
	require.NoError(t, err)
	require.True(t, isNew)
	require.False(t, alert.IsRead)

	read, err := f.svc.MarkAlertRead(context.Background(), f.user.ID, alert.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	// Marking twice keeps the original ReadAt.
	again, err := f.svc.MarkAlertRead(context.Background(), f.user.ID, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, read.ReadAt.Unix(), again.ReadAt.Unix())

	_, err = f.svc.MarkAlertRead(context.Background(), f.user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAlert(t *testing.T) {
	f := newAlertFixture(t)
	_, approach := f.seedApproach(t, "100", 10, 300000, 50)

	alert, _, err := f.svc.TriggerAlert(context.Background(), f.user.ID, approach, models.AlertApproach24, "incoming")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAlert(context.Background(), f.user.ID, alert.ID))
	assert.ErrorIs(t, f.svc.DeleteAlert(context.Background(), f.user.ID, alert.ID), ErrNotFound)
}

func TestGetAlertStats(t *testing.T) {
	f := newAlertFixture(t)
	_, critical := f.seedApproach(t, "100", 10, 300000, 92)
	_, high := f.seedApproach(t, "200", 20, 300000, 65)

	_, _, err := f.svc.TriggerAlert(context.Background(), f.user.ID, critical, models.AlertApproach24, "critical pass")
	require.NoError(t, err)
	_, _, err = f.svc.TriggerAlert(context.Background(), f.user.ID, high, models.AlertApproach24, "high pass")
	require.NoError(t, err)

	stats, err := f.svc.GetAlertStats(context.Background(), f.user.ID, 7)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.TotalAlerts)
	assert.EqualValues(t, 2, stats.UnreadAlerts)
	assert.EqualValues(t, 1, stats.CriticalAlerts)
	assert.EqualValues(t, 1, stats.HighAlerts)
	assert.EqualValues(t, 2, stats.AlertsByType[string(models.AlertApproach24)])
}
