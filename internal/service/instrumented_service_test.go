package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/models"
)

// slowCatalog embeds ProductCatalog so only the exercised methods need a body.
type slowCatalog struct {
	ProductCatalog
	delay time.Duration
	err   error
}

func (s *slowCatalog) GetProduct(_ context.Context, id int64) (*models.ProductView, error) {
	time.Sleep(s.delay)
	if s.err != nil {
		return nil, s.err
	}
	return &models.ProductView{ID: id}, nil
}

func TestInstrumentedProductService_RecordsCalls(t *testing.T) {
	m := metrics.NewNop()
	next := &slowCatalog{}
	svc := NewInstrumentedProductService(next, m, time.Hour)

	v, err := svc.GetProduct(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.ID)

	next.err = errors.New("boom")
	_, err = svc.GetProduct(context.Background(), 7)
	assert.EqualError(t, err, "boom", "errors pass through unchanged")

	assert.Equal(t, 2, testutil.CollectAndCount(m.ServiceCallDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SlowServiceCalls.WithLabelValues("GetProduct")))
}

func TestInstrumentedProductService_FlagsSlowCalls(t *testing.T) {
	m := metrics.NewNop()
	svc := NewInstrumentedProductService(&slowCatalog{delay: 5 * time.Millisecond}, m, time.Millisecond)

	_, err := svc.GetProduct(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SlowServiceCalls.WithLabelValues("GetProduct")))
}

func TestInstrumentedCategoryService_Delegates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewInstrumentedCategoryService(f.categories, f.metrics, 0)

	created, err := svc.CreateCategory(ctx, CategoryRequest{Name: "Toys"})
	require.NoError(t, err)

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	assert.Equal(t, 2, testutil.CollectAndCount(f.metrics.ServiceCallDuration))
}
