package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/models"
	"github.com/GTDGit/catalog_api/internal/repository"
)

// DefaultSlowCallThreshold is used when no threshold is configured.
const DefaultSlowCallThreshold = time.Second

// instrumentation times a service call, logs it and records it in the
// service call histogram. Calls above slow are logged at warn level.
type instrumentation struct {
	component string
	metrics   *metrics.Metrics
	slow      time.Duration
}

func newInstrumentation(component string, m *metrics.Metrics, slow time.Duration) instrumentation {
	if slow <= 0 {
		slow = DefaultSlowCallThreshold
	}
	return instrumentation{component: component, metrics: m, slow: slow}
}

func (in instrumentation) observe(operation string, start time.Time, errp *error) {
	elapsed := time.Since(start)
	var err error
	if errp != nil {
		err = *errp
	}

	if in.metrics != nil {
		in.metrics.ServiceCallDuration.WithLabelValues(operation, metrics.Outcome(err)).Observe(elapsed.Seconds())
	}

	if err != nil {
		log.Error().Err(err).
			Str("component", in.component).
			Str("operation", operation).
			Dur("duration", elapsed).
			Msg("Service call failed")
	} else {
		log.Debug().
			Str("component", in.component).
			Str("operation", operation).
			Dur("duration", elapsed).
			Msg("Service call completed")
	}

	if elapsed > in.slow {
		if in.metrics != nil {
			in.metrics.SlowServiceCalls.WithLabelValues(operation).Inc()
		}
		log.Warn().
			Str("component", in.component).
			Str("operation", operation).
			Dur("duration", elapsed).
			Dur("threshold", in.slow).
			Msg("Slow service call")
	}
}

// InstrumentedProductService decorates a ProductCatalog with timing, logging
// and metrics.
type InstrumentedProductService struct {
	next ProductCatalog
	in   instrumentation
}

// NewInstrumentedProductService wraps next.
func NewInstrumentedProductService(next ProductCatalog, m *metrics.Metrics, slow time.Duration) *InstrumentedProductService {
	return &InstrumentedProductService{next: next, in: newInstrumentation("ProductService", m, slow)}
}

func (s *InstrumentedProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (v *models.ProductView, err error) {
	defer s.in.observe("CreateProduct", time.Now(), &err)
	return s.next.CreateProduct(ctx, req)
}

func (s *InstrumentedProductService) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (v *models.ProductView, err error) {
	defer s.in.observe("UpdateProduct", time.Now(), &err)
	return s.next.UpdateProduct(ctx, id, req)
}

func (s *InstrumentedProductService) UpdateStatus(ctx context.Context, id int64, status string) (v *models.ProductView, err error) {
	defer s.in.observe("UpdateStatus", time.Now(), &err)
	return s.next.UpdateStatus(ctx, id, status)
}

func (s *InstrumentedProductService) DeleteProduct(ctx context.Context, id int64) (err error) {
	defer s.in.observe("DeleteProduct", time.Now(), &err)
	return s.next.DeleteProduct(ctx, id)
}

func (s *InstrumentedProductService) GetProduct(ctx context.Context, id int64) (v *models.ProductView, err error) {
	defer s.in.observe("GetProduct", time.Now(), &err)
	return s.next.GetProduct(ctx, id)
}

func (s *InstrumentedProductService) GetProductBySKU(ctx context.Context, sku string) (v *models.ProductView, err error) {
	defer s.in.observe("GetProductBySKU", time.Now(), &err)
	return s.next.GetProductBySKU(ctx, sku)
}

func (s *InstrumentedProductService) ListProducts(ctx context.Context, page repository.PageRequest) (p *ProductPageView, err error) {
	defer s.in.observe("ListProducts", time.Now(), &err)
	return s.next.ListProducts(ctx, page)
}

func (s *InstrumentedProductService) FilterProducts(ctx context.Context, filter repository.ProductFilter, page repository.PageRequest) (p *ProductPageView, err error) {
	defer s.in.observe("FilterProducts", time.Now(), &err)
	return s.next.FilterProducts(ctx, filter, page)
}

func (s *InstrumentedProductService) GetFeaturedProducts(ctx context.Context, page repository.PageRequest) (p *ProductPageView, err error) {
	defer s.in.observe("GetFeaturedProducts", time.Now(), &err)
	return s.next.GetFeaturedProducts(ctx, page)
}

func (s *InstrumentedProductService) GetLowStockProducts(ctx context.Context, page repository.PageRequest) (p *ProductPageView, err error) {
	defer s.in.observe("GetLowStockProducts", time.Now(), &err)
	return s.next.GetLowStockProducts(ctx, page)
}

func (s *InstrumentedProductService) CountLowStock(ctx context.Context) (n int, err error) {
	defer s.in.observe("CountLowStock", time.Now(), &err)
	return s.next.CountLowStock(ctx)
}

// InstrumentedCategoryService decorates a CategoryCatalog with timing,
// logging and metrics.
type InstrumentedCategoryService struct {
	next CategoryCatalog
	in   instrumentation
}

// NewInstrumentedCategoryService wraps next.
func NewInstrumentedCategoryService(next CategoryCatalog, m *metrics.Metrics, slow time.Duration) *InstrumentedCategoryService {
	return &InstrumentedCategoryService{next: next, in: newInstrumentation("CategoryService", m, slow)}
}

func (s *InstrumentedCategoryService) ListCategories(ctx context.Context) (v []*models.CategoryView, err error) {
	defer s.in.observe("ListCategories", time.Now(), &err)
	return s.next.ListCategories(ctx)
}

func (s *InstrumentedCategoryService) GetCategory(ctx context.Context, id int64) (v *models.CategoryView, err error) {
	defer s.in.observe("GetCategory", time.Now(), &err)
	return s.next.GetCategory(ctx, id)
}

func (s *InstrumentedCategoryService) CreateCategory(ctx context.Context, req CategoryRequest) (v *models.CategoryView, err error) {
	defer s.in.observe("CreateCategory", time.Now(), &err)
	return s.next.CreateCategory(ctx, req)
}

func (s *InstrumentedCategoryService) UpdateCategory(ctx context.Context, id int64, req CategoryRequest) (v *models.CategoryView, err error) {
	defer s.in.observe("UpdateCategory", time.Now(), &err)
	return s.next.UpdateCategory(ctx, id, req)
}

func (s *InstrumentedCategoryService) DeleteCategory(ctx context.Context, id int64) (err error) {
	defer s.in.observe("DeleteCategory", time.Now(), &err)
	return s.next.DeleteCategory(ctx, id)
}

var (
	_ ProductCatalog  = (*ProductService)(nil)
	_ ProductCatalog  = (*InstrumentedProductService)(nil)
	_ CategoryCatalog = (*CategoryService)(nil)
	_ CategoryCatalog = (*InstrumentedCategoryService)(nil)
)
