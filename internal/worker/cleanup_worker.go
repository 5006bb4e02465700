package worker

import (
	"context"
	"log"
	"time"

	"cosmicwatch/internal/observability"
	"cosmicwatch/internal/repository"
)

// CleanupWorker prunes expired NASA API cache entries.
type CleanupWorker struct {
	apiCache repository.APICacheRepository
	metrics  *observability.Metrics
	interval time.Duration
	stopChan chan struct{}
	running  bool
}

func NewCleanupWorker(apiCache repository.APICacheRepository, metrics *observability.Metrics, interval time.Duration) *CleanupWorker {
	return &CleanupWorker{
		apiCache: apiCache,
		metrics:  metrics,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (w *CleanupWorker) Start() {
	if w.running {
		return
	}

	w.running = true
	log.Printf("Cleanup Worker started with interval %v", w.interval)

	go w.run()
}

func (w *CleanupWorker) Stop() {
	if !w.running {
		return
	}

	close(w.stopChan)
	w.running = false
	log.Println("Cleanup Worker stopped")
}

func (w *CleanupWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.cleanup()
		case <-w.stopChan:
			return
		}
	}
}

func (w *CleanupWorker) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := w.apiCache.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		w.metrics.WorkerRuns.WithLabelValues("cleanup", "error").Inc()
		log.Printf("Cleanup Worker error: %v", err)
		return
	}

	w.metrics.WorkerRuns.WithLabelValues("cleanup", "success").Inc()
	if deleted > 0 {
		log.Printf("Cleanup Worker: removed %d expired cache entries", deleted)
	}
}
