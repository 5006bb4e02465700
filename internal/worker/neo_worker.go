package worker

import (
	"context"
	"log"
	"time"

	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/service"
)

// NEOWorker periodically synchronizes the NASA feed for the next
// SyncDaysAhead days.
type NEOWorker struct {
	service       service.NEOService
	metrics       *observability.Metrics
	interval      time.Duration
	syncDaysAhead int
	stopChan      chan struct{}
	running       bool
}

func NewNEOWorker(service service.NEOService, metrics *observability.Metrics, interval time.Duration, syncDaysAhead int) *NEOWorker {
	if syncDaysAhead < 1 || syncDaysAhead > 7 {
		syncDaysAhead = 7
	}
	return &NEOWorker{
		service:       service,
		metrics:       metrics,
		interval:      interval,
		syncDaysAhead: syncDaysAhead,
		stopChan:      make(chan struct{}),
	}
}

func (w *NEOWorker) Start() {
	if w.running {
		return
	}

	w.running = true
	log.Printf("NEO Worker started with interval %v", w.interval)

	// First sync immediately, then on the ticker.
	w.sync()

	go w.run()
}

func (w *NEOWorker) Stop() {
	if !w.running {
		return
	}

	close(w.stopChan)
	w.running = false
	log.Println("NEO Worker stopped")
}

func (w *NEOWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sync()
		case <-w.stopChan:
			return
		}
	}
}

func (w *NEOWorker) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	now := time.Now().UTC()
	startDate := now.Format("2006-01-02")
	endDate := now.AddDate(0, 0, w.syncDaysAhead).Format("2006-01-02")

	result, err := w.service.SyncFeed(ctx, startDate, endDate)
	if err != nil {
		w.metrics.WorkerRuns.WithLabelValues("neo", "error").Inc()
		log.Printf("NEO Worker sync error: %v", err)
		return
	}

	w.metrics.WorkerRuns.WithLabelValues("neo", string(result.Status)).Inc()
	log.Printf("NEO Worker: sync %s, %d asteroids, %d approaches (from_cache=%v)",
		result.Status, result.SyncedAsteroids, result.SyncedApproaches, result.FromCache)
}
