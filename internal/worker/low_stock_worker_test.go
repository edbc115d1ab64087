package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/sse"
)

type scriptedCounter struct {
	counts []int
	errAt  int
	calls  int
}

func (c *scriptedCounter) CountLowStock(context.Context) (int, error) {
	i := c.calls
	c.calls++
	if i == c.errAt {
		return 0, errors.New("storage down")
	}
	return c.counts[i], nil
}

type alertRecorder struct {
	sse.NopNotifier
	alerts []int
}

func (r *alertRecorder) NotifyLowStock(count int) { r.alerts = append(r.alerts, count) }

func TestLowStockWorker_AlertsOnIncrease(t *testing.T) {
	ctx := context.Background()
	counter := &scriptedCounter{counts: []int{2, 2, 3, 0, 1, 4}, errAt: 3}
	rec := &alertRecorder{}
	m := metrics.NewNop()
	w := NewLowStockWorker(counter, rec, m, time.Minute)

	for range counter.counts {
		w.run(ctx)
	}

	// 2 is the baseline, 3 rises, the failed read keeps 3, 1 drops, 4 rises.
	assert.Equal(t, []int{3, 4}, rec.alerts)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.LowStockProducts))
}

func TestLowStockWorker_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewLowStockWorker(&scriptedCounter{counts: []int{0, 0, 0, 0}, errAt: -1}, &alertRecorder{}, nil, time.Hour)

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
