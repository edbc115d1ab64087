package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeError, Outcome(errors.New("boom")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewNop()
	m.SlowServiceCalls.WithLabelValues("GetProduct").Inc()
	m.LowStockProducts.Set(4)
	m.ServiceCallDuration.WithLabelValues("GetProduct", OutcomeOK).Observe(0.02)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SlowServiceCalls.WithLabelValues("GetProduct")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `catalog_service_slow_calls_total{operation="GetProduct"} 1`)
	assert.Contains(t, string(body), "catalog_inventory_low_stock_products 4")
	assert.Contains(t, string(body), "catalog_service_call_duration_seconds_count")
}
