package worker

import (
	"context"
	"log"
	"time"

	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/repository"
	"cosmicwatch/internal/service"
)

// AlertWorker periodically evaluates every watching user's thresholds
// and approach windows.
type AlertWorker struct {
	alerts    service.AlertService
	watchlist repository.WatchlistRepository
	metrics   *observability.Metrics
	interval  time.Duration
	stopChan  chan struct{}
	running   bool
}

func NewAlertWorker(alerts service.AlertService, watchlist repository.WatchlistRepository, metrics *observability.Metrics, interval time.Duration) *AlertWorker {
	return &AlertWorker{
		alerts:    alerts,
		watchlist: watchlist,
		metrics:   metrics,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (w *AlertWorker) Start() {
	if w.running {
		return
	}

	w.running = true
	log.Printf("Alert Worker started with interval %v", w.interval)

	w.evaluate()

	go w.run()
}

func (w *AlertWorker) Stop() {
	if !w.running {
		return
	}

	close(w.stopChan)
	w.running = false
	log.Println("Alert Worker stopped")
}

func (w *AlertWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.evaluate()
		case <-w.stopChan:
			return
		}
	}
}

func (w *AlertWorker) evaluate() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	userIDs, err := w.watchlist.DistinctUserIDs(ctx)
	if err != nil {
		w.metrics.WorkerRuns.WithLabelValues("alert", "error").Inc()
		log.Printf("Alert Worker: failed to list watching users: %v", err)
		return
	}

	created := 0
	for _, userID := range userIDs {
		n, err := w.alerts.CheckWatchlistThresholds(ctx, userID)
		if err != nil {
			log.Printf("Alert Worker: threshold check failed for user %s: %v", userID, err)
			continue
		}
		created += n

		n, err = w.alerts.CheckApproachWindows(ctx, userID)
		if err != nil {
			log.Printf("Alert Worker: window check failed for user %s: %v", userID, err)
			continue
		}
		created += n
	}

	w.metrics.WorkerRuns.WithLabelValues("alert", "success").Inc()
	if created > 0 {
		log.Printf("Alert Worker: created %d alerts for %d users", created, len(userIDs))
	}
}
