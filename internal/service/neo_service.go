package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/models"
	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/repository"
	"cosmicwatch/internal/risk"
	"cosmicwatch/internal/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncStatus is the outcome class of one sync invocation. Sync failures
// are reported through this status instead of raised past the service
// boundary, so callers (workers, handlers) can decide whether to retry.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	// SyncStatusTransient means the feed was unreachable and no unexpired
	// cached payload existed. Safe to retry.
	SyncStatusTransient SyncStatus = "transient_error"
	SyncStatusError     SyncStatus = "error"
)

// SyncResult reports counts for one sync batch. SyncedAsteroids counts
// newly created objects only; SyncedApproaches counts every approach
// record processed, updates included.
type SyncResult struct {
	Status           SyncStatus `json:"status"`
	SyncedAsteroids  int        `json:"synced_asteroids"`
	SyncedApproaches int        `json:"synced_approaches"`
	TotalAsteroids   int        `json:"total_asteroids"`
	FromCache        bool       `json:"from_cache"`
	Message          string     `json:"message,omitempty"`
}

// ApproachView is a close approach shaped for the request layer.
type ApproachView struct {
	ID                string    `json:"id"`
	ApproachAt        time.Time `json:"closest_approach_date"`
	MissDistanceKm    *float64  `json:"miss_distance_km,omitempty"`
	VelocityKmh       *float64  `json:"approach_velocity_kmh,omitempty"`
	CalculatedCRI     *float64  `json:"calculated_cri,omitempty"`
	IsNext72hThreat   bool      `json:"is_next_72h_threat"`
	DaysUntilApproach int       `json:"days_until_approach"`
}

// AsteroidDetail is the full read model for one asteroid: its next
// approach, the latest score breakdown, and the classification band.
type AsteroidDetail struct {
	ID                string              `json:"id"`
	NeoID             string              `json:"neo_id"`
	Name              string              `json:"name"`
	URL               string              `json:"url,omitempty"`
	DiameterKm        *float64            `json:"diameter_km,omitempty"`
	DiameterMinKm     *float64            `json:"diameter_min_km,omitempty"`
	DiameterMaxKm     *float64            `json:"diameter_max_km,omitempty"`
	AbsoluteMagnitude *float64            `json:"absolute_magnitude,omitempty"`
	IsHazardous       bool                `json:"is_hazardous"`
	IsSentryObject    bool                `json:"is_sentry_object"`
	NextApproach      *ApproachView       `json:"next_approach,omitempty"`
	CRIScore          *float64            `json:"cri_score,omitempty"`
	RiskLevel         *risk.Level         `json:"risk_level,omitempty"`
	CRIComponents     *risk.CRIComponents `json:"cri_components,omitempty"`
	AllApproaches     []ApproachView      `json:"all_approaches"`
	CreatedAt         time.Time           `json:"created_at"`
	NasaSyncedAt      *time.Time          `json:"nasa_synced_at,omitempty"`
}

// FeedPage is one page of the asteroid listing.
type FeedPage struct {
	Items      []AsteroidDetail `json:"items"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}

// ThreatReport lists high-risk approaches inside the next 72 hours.
type ThreatReport struct {
	Threats       []AsteroidDetail `json:"threats"`
	TotalCount    int              `json:"total_count"`
	HighestCRI    *float64         `json:"highest_cri,omitempty"`
	CriticalCount int              `json:"critical_count"`
}

// NEOService is the feed synchronizer plus the read surfaces built on the
// canonical store.
type NEOService interface {
	SyncFeed(ctx context.Context, startDate, endDate string) (*SyncResult, error)
	SyncAsteroid(ctx context.Context, neoID string) (*models.Asteroid, error)
	GetAsteroidDetail(ctx context.Context, asteroidID string) (*AsteroidDetail, error)
	GetFeed(ctx context.Context, page, limit int, sortBy string) (*FeedPage, error)
	GetToday(ctx context.Context) ([]AsteroidDetail, error)
	GetNext72hThreats(ctx context.Context) (*ThreatReport, error)
	Search(ctx context.Context, query string, limit int) ([]AsteroidDetail, error)
	ExportUpcoming(ctx context.Context, days int) (string, error)
}

// NEOServiceConfig carries the deployment-fixed knobs.
type NEOServiceConfig struct {
	// CacheTTL is applied at write time to every durable feed-cache entry.
	CacheTTL time.Duration
	// ReportDir is where xlsx risk reports are written.
	ReportDir string
}

type neoService struct {
	repo      repository.AsteroidRepository
	apiCache  repository.APICacheRepository
	cacheRepo repository.CacheRepository
	client    clients.NEOClient
	metrics   *observability.Metrics
	cacheTTL  time.Duration
	reportDir string
	syncLocks *keyedMutex
}

func NewNEOService(
	repo repository.AsteroidRepository,
	apiCache repository.APICacheRepository,
	cacheRepo repository.CacheRepository,
	client clients.NEOClient,
	metrics *observability.Metrics,
	config NEOServiceConfig,
) NEOService {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &neoService{
		repo:      repo,
		apiCache:  apiCache,
		cacheRepo: cacheRepo,
		client:    client,
		metrics:   metrics,
		cacheTTL:  ttl,
		reportDir: config.ReportDir,
		syncLocks: newKeyedMutex(),
	}
}

func (s *neoService) SyncFeed(ctx context.Context, startDate, endDate string) (*SyncResult, error) {
	now := clock.Now().UTC()
	if startDate == "" {
		startDate = now.Format("2006-01-02")
	}
	if endDate == "" {
		endDate = now.AddDate(0, 0, 7).Format("2006-01-02")
	}

	started := clock.Now()
	raw, fromCache, err := s.feedPayload(ctx, startDate, endDate, now)
	if err != nil {
		s.metrics.FeedSyncs.WithLabelValues(string(SyncStatusTransient)).Inc()
		log.Printf("NEO sync: feed unavailable and no cached payload: %v", err)
		return &SyncResult{
			Status:  SyncStatusTransient,
			Message: fmt.Sprintf("feed unavailable, no cached payload: %v", err),
		}, nil
	}

	feed, err := clients.ParseFeed(raw)
	if err != nil || feed.NearEarthObjects == nil {
		s.metrics.FeedSyncs.WithLabelValues(string(SyncStatusError)).Inc()
		return &SyncResult{Status: SyncStatusError, Message: "invalid NASA feed payload"}, nil
	}

	result := &SyncResult{Status: SyncStatusSuccess, FromCache: fromCache}

	// Whole batch in one transaction: a partial failure must not leave
	// some objects updated and others not.
	txErr := s.repo.Transaction(ctx, func(tx repository.AsteroidRepository) error {
		dates := make([]string, 0, len(feed.NearEarthObjects))
		for date := range feed.NearEarthObjects {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		for _, date := range dates {
			for _, neo := range feed.NearEarthObjects[date] {
				if neo.NeoReferenceID == "" {
					continue
				}
				result.TotalAsteroids++

				created, approaches, err := s.upsertObject(ctx, tx, neo, now)
				if err != nil {
					return err
				}
				if created {
					result.SyncedAsteroids++
				}
				result.SyncedApproaches += approaches
			}
		}
		return nil
	})
	if txErr != nil {
		s.metrics.FeedSyncs.WithLabelValues(string(SyncStatusError)).Inc()
		log.Printf("NEO sync: batch rolled back: %v", txErr)
		return &SyncResult{Status: SyncStatusError, Message: txErr.Error()}, nil
	}

	s.metrics.FeedSyncs.WithLabelValues(string(SyncStatusSuccess)).Inc()
	s.metrics.SyncDuration.Observe(clock.Since(started).Seconds())

	result.Message = fmt.Sprintf("synced %d asteroids and %d approaches",
		result.SyncedAsteroids, result.SyncedApproaches)
	log.Printf("NEO sync: %s (from_cache=%v)", result.Message, fromCache)
	return result, nil
}

// feedPayload fetches the live feed, falling back to the latest unexpired
// cached payload on transport failure. Successful live fetches always
// write a fresh cache entry; failed ones never do.
func (s *neoService) feedPayload(ctx context.Context, startDate, endDate string, now time.Time) ([]byte, bool, error) {
	raw, err := s.client.FetchFeed(ctx, startDate, endDate)
	if err != nil {
		s.metrics.CacheFallbacks.Inc()
		log.Printf("NEO sync: live fetch failed, trying cache fallback: %v", err)

		entry, cacheErr := s.apiCache.GetLatestUnexpired(ctx, clients.FeedEndpoint, now)
		if cacheErr != nil {
			return nil, false, err
		}
		if incErr := s.apiCache.IncrementHit(ctx, entry.ID); incErr != nil {
			log.Printf("NEO sync: failed to bump cache hit counter: %v", incErr)
		}
		return entry.ResponseData, true, nil
	}

	params, _ := json.Marshal(map[string]string{"start_date": startDate, "end_date": endDate})
	entry := &models.NASAAPICache{
		Endpoint:     clients.FeedEndpoint,
		QueryParams:  params,
		ResponseData: raw,
		CachedAt:     now,
		ExpiresAt:    now.Add(s.cacheTTL),
	}
	if err := s.apiCache.Create(ctx, entry); err != nil {
		log.Printf("NEO sync: failed to cache feed payload: %v", err)
	}

	return raw, false, nil
}

func (s *neoService) SyncAsteroid(ctx context.Context, neoID string) (*models.Asteroid, error) {
	if neoID == "" {
		return nil, fmt.Errorf("neo id: %w", ErrInvalidID)
	}

	now := clock.Now().UTC()

	raw, err := s.client.FetchObject(ctx, neoID)
	if err != nil {
		raw, err = s.lookupFallback(ctx, neoID, now, err)
		if err != nil {
			return nil, fmt.Errorf("fetch NEO %s: %w", neoID, err)
		}
	} else {
		params, _ := json.Marshal(map[string]string{"neo_id": neoID})
		entry := &models.NASAAPICache{
			Endpoint:     clients.LookupEndpoint,
			QueryParams:  params,
			ResponseData: raw,
			CachedAt:     now,
			ExpiresAt:    now.Add(s.cacheTTL),
		}
		if cacheErr := s.apiCache.Create(ctx, entry); cacheErr != nil {
			log.Printf("NEO sync: failed to cache lookup payload: %v", cacheErr)
		}
	}

	neo, err := clients.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parse NEO %s payload: %w", neoID, err)
	}
	if neo.NeoReferenceID == "" {
		neo.NeoReferenceID = neoID
	}

	var asteroid *models.Asteroid
	txErr := s.repo.Transaction(ctx, func(tx repository.AsteroidRepository) error {
		_, _, err := s.upsertObject(ctx, tx, *neo, now)
		if err != nil {
			return err
		}
		asteroid, err = tx.GetByNeoID(ctx, neo.NeoReferenceID)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	return asteroid, nil
}

// lookupFallback serves a single-object sync from the lookup cache. The
// cache matches on endpoint only, so the payload is verified to describe
// the requested object before it is trusted.
func (s *neoService) lookupFallback(ctx context.Context, neoID string, now time.Time, fetchErr error) ([]byte, error) {
	s.metrics.CacheFallbacks.Inc()

	entry, cacheErr := s.apiCache.GetLatestUnexpired(ctx, clients.LookupEndpoint, now)
	if cacheErr != nil {
		return nil, fetchErr
	}

	cached, parseErr := clients.ParseObject(entry.ResponseData)
	if parseErr != nil || cached.NeoReferenceID != neoID {
		return nil, fetchErr
	}

	if incErr := s.apiCache.IncrementHit(ctx, entry.ID); incErr != nil {
		log.Printf("NEO sync: failed to bump cache hit counter: %v", incErr)
	}
	return entry.ResponseData, nil
}

// upsertObject writes one asteroid and its nested approaches. The
// asteroid row is saved first so scoring can read its diameter and hazard
// flag. Writers in this process are serialized per NEO reference id;
// writers in other transactions cannot be, so the repository inserts are
// conflict-tolerant and the later committer overwrites.
func (s *neoService) upsertObject(ctx context.Context, tx repository.AsteroidRepository, neo clients.NeoObject, now time.Time) (bool, int, error) {
	unlock := s.syncLocks.lock(neo.NeoReferenceID)
	defer unlock()

	asteroid, err := tx.GetByNeoID(ctx, neo.NeoReferenceID)
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		asteroid = &models.Asteroid{NeoID: neo.NeoReferenceID}
		created = true
	case err != nil:
		return false, 0, err
	}

	applyNeoObject(asteroid, neo, now)
	if err := tx.Save(ctx, asteroid); err != nil {
		return false, 0, err
	}

	count := 0
	for _, cad := range neo.CloseApproaches {
		if err := s.upsertApproach(ctx, tx, asteroid, cad, now); err != nil {
			return created, count, err
		}
		count++
	}

	return created, count, nil
}

// applyNeoObject overwrites every synced attribute from the feed record.
// Attributes are replaced, never merged.
func applyNeoObject(asteroid *models.Asteroid, neo clients.NeoObject, now time.Time) {
	asteroid.Name = neo.Name
	asteroid.URL = neo.NasaJplURL
	asteroid.IsHazardous = neo.IsHazardous
	asteroid.IsSentryObject = neo.IsSentryObject
	asteroid.AbsoluteMagnitude = neo.AbsoluteMagnitude.Ptr()

	asteroid.DiameterMinKm = neo.EstimatedDiameter.Kilometers.Min.Ptr()
	asteroid.DiameterMaxKm = neo.EstimatedDiameter.Kilometers.Max.Ptr()
	asteroid.DiameterKm = nil
	if asteroid.DiameterMinKm != nil && asteroid.DiameterMaxKm != nil {
		mid := (*asteroid.DiameterMinKm + *asteroid.DiameterMaxKm) / 2
		asteroid.DiameterKm = &mid
	}

	syncedAt := now
	asteroid.NasaSyncedAt = &syncedAt
}

func (s *neoService) upsertApproach(ctx context.Context, tx repository.AsteroidRepository, asteroid *models.Asteroid, cad clients.ApproachData, now time.Time) error {
	key := cad.CloseApproachDateFull

	approach, err := tx.GetApproachByKey(ctx, asteroid.ID, key)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		approach = &models.CloseApproach{AsteroidID: asteroid.ID, ApproachDateFull: key}
	case err != nil:
		return err
	}

	approach.ApproachAt = parseApproachDate(key, cad.CloseApproachDate, now)
	approach.VelocityKmh = cad.RelativeVelocity.KilometersPerHour.Ptr()
	approach.VelocityKms = cad.RelativeVelocity.KilometersPerSecond.Ptr()
	approach.MissDistanceKm = cad.MissDistance.Kilometers.Ptr()
	approach.MissDistanceAU = cad.MissDistance.Astronomical.Ptr()
	approach.MissDistanceLunar = cad.MissDistance.Lunar.Ptr()
	approach.OrbitingBody = cad.OrbitingBody
	if approach.OrbitingBody == "" {
		approach.OrbitingBody = "Earth"
	}
	syncedAt := now
	approach.NasaSyncedAt = &syncedAt

	// Score immediately with the owning asteroid's current physicals, and
	// persist the denormalized score and its audit log in the same
	// transaction so they cannot diverge.
	cri, components := risk.CalculateCRI(asteroid.DiameterKm, approach.VelocityKmh, approach.MissDistanceKm, asteroid.IsHazardous)
	approach.CalculatedCRI = &cri

	if err := tx.SaveApproach(ctx, approach); err != nil {
		return err
	}

	componentsJSON, err := json.Marshal(components)
	if err != nil {
		return err
	}
	inputsJSON, err := json.Marshal(map[string]interface{}{
		"diameter_km":      asteroid.DiameterKm,
		"velocity_kmh":     approach.VelocityKmh,
		"miss_distance_km": approach.MissDistanceKm,
		"is_hazardous":     asteroid.IsHazardous,
	})
	if err != nil {
		return err
	}

	riskLog := &models.RiskScoringLog{
		AsteroidID:        asteroid.ID,
		CloseApproachID:   &approach.ID,
		CRIScore:          cri,
		ComponentScores:   componentsJSON,
		CalculationInputs: inputsJSON,
		CalculatedAt:      now,
	}
	if err := tx.CreateRiskLog(ctx, riskLog); err != nil {
		return err
	}

	s.metrics.ApproachesProcessed.Inc()
	return nil
}

// approachDateLayouts are tried in order against the feed's full-date
// field; the plain date field is the secondary source.
var approachDateLayouts = []string{
	"2006-Jan-02 15:04",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseApproachDate parses defensively: an unparsable date degrades to
// "now" rather than aborting the batch. Known lossy, kept for feed
// compatibility.
func parseApproachDate(full, date string, now time.Time) time.Time {
	for _, candidate := range []string{full, date} {
		if candidate == "" {
			continue
		}
		for _, layout := range approachDateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t.UTC()
			}
		}
	}
	log.Printf("NEO sync: unparsable approach date %q, falling back to now", full)
	return now
}

func (s *neoService) GetAsteroidDetail(ctx context.Context, asteroidID string) (*AsteroidDetail, error) {
	id, err := uuid.Parse(asteroidID)
	if err != nil {
		return nil, fmt.Errorf("asteroid id %q: %w", asteroidID, ErrInvalidID)
	}

	asteroid, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("asteroid %s: %w", asteroidID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	return s.buildDetail(ctx, asteroid)
}

func (s *neoService) buildDetail(ctx context.Context, asteroid *models.Asteroid) (*AsteroidDetail, error) {
	now := clock.Now().UTC()

	detail := &AsteroidDetail{
		ID:                asteroid.ID.String(),
		NeoID:             asteroid.NeoID,
		Name:              asteroid.Name,
		URL:               asteroid.URL,
		DiameterKm:        asteroid.DiameterKm,
		DiameterMinKm:     asteroid.DiameterMinKm,
		DiameterMaxKm:     asteroid.DiameterMaxKm,
		AbsoluteMagnitude: asteroid.AbsoluteMagnitude,
		IsHazardous:       asteroid.IsHazardous,
		IsSentryObject:    asteroid.IsSentryObject,
		AllApproaches:     []ApproachView{},
		CreatedAt:         asteroid.CreatedAt,
		NasaSyncedAt:      asteroid.NasaSyncedAt,
	}

	next, err := s.repo.NextApproach(ctx, asteroid.ID, now)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if next != nil {
		view := approachView(next)
		detail.NextApproach = &view
		detail.CRIScore = next.CalculatedCRI
		if next.CalculatedCRI != nil {
			level := risk.GetRiskLevel(*next.CalculatedCRI)
			detail.RiskLevel = &level
		}

		// The latest audit row carries the component breakdown.
		if riskLog, logErr := s.repo.LatestRiskLog(ctx, next.ID); logErr == nil {
			var components risk.CRIComponents
			if json.Unmarshal(riskLog.ComponentScores, &components) == nil {
				detail.CRIComponents = &components
			}
		}
	}

	approaches, err := s.repo.ApproachesForAsteroid(ctx, asteroid.ID)
	if err != nil {
		return nil, err
	}
	for i := range approaches {
		detail.AllApproaches = append(detail.AllApproaches, approachView(&approaches[i]))
	}

	return detail, nil
}

func approachView(approach *models.CloseApproach) ApproachView {
	cri := 0.0
	if approach.CalculatedCRI != nil {
		cri = *approach.CalculatedCRI
	}
	return ApproachView{
		ID:                approach.ID.String(),
		ApproachAt:        approach.ApproachAt,
		MissDistanceKm:    approach.MissDistanceKm,
		VelocityKmh:       approach.VelocityKmh,
		CalculatedCRI:     approach.CalculatedCRI,
		IsNext72hThreat:   risk.IsNext72hThreat(approach.ApproachAt, cri),
		DaysUntilApproach: risk.DaysUntilApproach(approach.ApproachAt),
	}
}

func (s *neoService) GetFeed(ctx context.Context, page, limit int, sortBy string) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("neo:feed:%d:%d:%s", page, limit, sortBy)
	var cached FeedPage
	if err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached); err == nil && len(cached.Items) > 0 {
		return &cached, nil
	}

	asteroids, err := s.repo.GetPaginated(ctx, page, limit, sortBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list asteroids: %w", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	feedPage := &FeedPage{Items: []AsteroidDetail{}, TotalCount: total, Page: page, Limit: limit}
	for i := range asteroids {
		detail, err := s.buildDetail(ctx, &asteroids[i])
		if err != nil {
			log.Printf("NEO feed: skipping asteroid %s: %v", asteroids[i].NeoID, err)
			continue
		}
		feedPage.Items = append(feedPage.Items, *detail)
	}

	if err := s.cacheRepo.SetJSON(ctx, cacheKey, feedPage, time.Minute); err != nil {
		log.Printf("NEO feed: failed to cache page: %v", err)
	}

	return feedPage, nil
}

// GetToday lists asteroids with a close approach inside the current UTC
// day, one entry per asteroid.
func (s *neoService) GetToday(ctx context.Context) ([]AsteroidDetail, error) {
	now := clock.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	approaches, err := s.repo.UpcomingApproaches(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to query today's approaches: %w", err)
	}

	items := []AsteroidDetail{}
	seen := make(map[uuid.UUID]bool)
	for i := range approaches {
		approach := &approaches[i]
		if seen[approach.AsteroidID] {
			continue
		}
		seen[approach.AsteroidID] = true

		asteroid, err := s.repo.GetByID(ctx, approach.AsteroidID)
		if err != nil {
			continue
		}
		detail, err := s.buildDetail(ctx, asteroid)
		if err != nil {
			continue
		}
		items = append(items, *detail)
	}
	return items, nil
}

func (s *neoService) GetNext72hThreats(ctx context.Context) (*ThreatReport, error) {
	now := clock.Now().UTC()

	approaches, err := s.repo.UpcomingThreats(ctx, now, now.Add(72*time.Hour), 40)
	if err != nil {
		return nil, fmt.Errorf("failed to query 72h threats: %w", err)
	}

	report := &ThreatReport{Threats: []AsteroidDetail{}}
	seen := make(map[uuid.UUID]bool)

	for i := range approaches {
		approach := &approaches[i]
		if seen[approach.AsteroidID] {
			continue
		}
		seen[approach.AsteroidID] = true

		asteroid, err := s.repo.GetByID(ctx, approach.AsteroidID)
		if err != nil {
			continue
		}
		detail, err := s.buildDetail(ctx, asteroid)
		if err != nil {
			continue
		}

		report.TotalCount++
		if detail.CRIScore != nil {
			if report.HighestCRI == nil || *detail.CRIScore > *report.HighestCRI {
				report.HighestCRI = detail.CRIScore
			}
			if *detail.CRIScore >= 80 {
				report.CriticalCount++
			}
		}
		if len(report.Threats) < 10 {
			report.Threats = append(report.Threats, *detail)
		}
	}

	return report, nil
}

func (s *neoService) Search(ctx context.Context, query string, limit int) ([]AsteroidDetail, error) {
	asteroids, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := []AsteroidDetail{}
	for i := range asteroids {
		detail, err := s.buildDetail(ctx, &asteroids[i])
		if err != nil {
			continue
		}
		results = append(results, *detail)
	}
	return results, nil
}

// ExportUpcoming writes an xlsx risk report of approaches inside the next
// N days and returns the file path.
func (s *neoService) ExportUpcoming(ctx context.Context, days int) (string, error) {
	if days < 1 || days > 30 {
		days = 7
	}
	now := clock.Now().UTC()

	approaches, err := s.repo.UpcomingApproaches(ctx, now, now.Add(time.Duration(days)*24*time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to collect upcoming approaches: %w", err)
	}

	rows := make([]utils.ApproachReportRow, 0, len(approaches))
	names := make(map[uuid.UUID]*models.Asteroid)
	for i := range approaches {
		approach := &approaches[i]
		asteroid, ok := names[approach.AsteroidID]
		if !ok {
			asteroid, err = s.repo.GetByID(ctx, approach.AsteroidID)
			if err != nil {
				continue
			}
			names[approach.AsteroidID] = asteroid
		}

		row := utils.ApproachReportRow{
			AsteroidName: asteroid.Name,
			NeoID:        asteroid.NeoID,
			ApproachAt:   approach.ApproachAt,
		}
		if approach.MissDistanceKm != nil {
			row.MissDistanceKm = *approach.MissDistanceKm
		}
		if approach.VelocityKmh != nil {
			row.VelocityKmh = *approach.VelocityKmh
		}
		if approach.CalculatedCRI != nil {
			row.CRI = *approach.CalculatedCRI
			row.RiskLevel = risk.GetRiskLevel(*approach.CalculatedCRI).Level
		}
		rows = append(rows, row)
	}

	path := filepath.Join(s.reportDir, fmt.Sprintf("risk_report_%s.xlsx", now.Format("20060102_150405")))
	if err := utils.CreateRiskReport(path, rows); err != nil {
		return "", fmt.Errorf("failed to write risk report: %w", err)
	}

	log.Printf("NEO export: wrote %d approaches to %s", len(rows), path)
	return path, nil
}
