package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/sse"
)

// LowStockCounter reports the size of the low-stock listing.
type LowStockCounter interface {
	CountLowStock(ctx context.Context) (int, error)
}

// LowStockWorker periodically counts low-stock products and alerts admin
// clients when the count grows.
type LowStockWorker struct {
	counter  LowStockCounter
	notifier sse.CatalogNotifier
	metrics  *metrics.Metrics
	interval time.Duration

	last    int
	started bool
}

// NewLowStockWorker constructs a LowStockWorker.
func NewLowStockWorker(counter LowStockCounter, notifier sse.CatalogNotifier, m *metrics.Metrics, interval time.Duration) *LowStockWorker {
	return &LowStockWorker{
		counter:  counter,
		notifier: notifier,
		metrics:  m,
		interval: interval,
	}
}

// Start begins the periodic check loop and listens for context cancellation.
func (w *LowStockWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("Starting low-stock worker")

	// Run immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Low-stock worker stopped")
			return
		}
	}
}

func (w *LowStockWorker) run(ctx context.Context) {
	count, err := w.counter.CountLowStock(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count low-stock products")
		return
	}

	if w.metrics != nil {
		w.metrics.LowStockProducts.Set(float64(count))
	}

	// The first observation only sets the baseline.
	if w.started && count > w.last {
		log.Warn().Int("previous", w.last).Int("current", count).Msg("Low-stock product count increased")
		w.notifier.NotifyLowStock(count)
	}
	w.last = count
	w.started = true
}
