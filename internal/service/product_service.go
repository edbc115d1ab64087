package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/models"
	"github.com/GTDGit/catalog_api/internal/repository"
	"github.com/GTDGit/catalog_api/internal/sse"
	"github.com/GTDGit/catalog_api/internal/utils"
)

// ProductCache is the product read-model cache used by the catalog services.
type ProductCache interface {
	GetByID(ctx context.Context, id int64) (*models.ProductView, bool, error)
	GetBySKU(ctx context.Context, sku string) (*models.ProductView, bool, error)
	PutByID(ctx context.Context, v *models.ProductView) error
	PutBySKU(ctx context.Context, v *models.ProductView) error
	EvictAll(ctx context.Context) error
}

// ProductCatalog is the product use-case boundary consumed by handlers and
// workers. ProductService implements it; InstrumentedProductService wraps it.
type ProductCatalog interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*models.ProductView, error)
	UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*models.ProductView, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*models.ProductView, error)
	DeleteProduct(ctx context.Context, id int64) error
	GetProduct(ctx context.Context, id int64) (*models.ProductView, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.ProductView, error)
	ListProducts(ctx context.Context, page repository.PageRequest) (*ProductPageView, error)
	FilterProducts(ctx context.Context, filter repository.ProductFilter, page repository.PageRequest) (*ProductPageView, error)
	GetFeaturedProducts(ctx context.Context, page repository.PageRequest) (*ProductPageView, error)
	GetLowStockProducts(ctx context.Context, page repository.PageRequest) (*ProductPageView, error)
	CountLowStock(ctx context.Context) (int, error)
}

// CreateProductRequest represents the request to create a new product.
type CreateProductRequest struct {
	SKU               string           `json:"sku" binding:"required,sku"`
	Name              string           `json:"name" binding:"required"`
	Description       *string          `json:"description"`
	ShortDescription  *string          `json:"shortDescription"`
	Price             decimal.Decimal  `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compareAtPrice"`
	CostPrice         *decimal.Decimal `json:"costPrice"`
	Status            string           `json:"status" binding:"required"`
	Quantity          *int             `json:"quantity" binding:"omitempty,min=0"`
	LowStockThreshold *int             `json:"lowStockThreshold" binding:"omitempty,min=0"`
	Brand             *string          `json:"brand"`
	WeightGrams       *float64         `json:"weightGrams" binding:"omitempty,min=0"`
	CategoryID        *int64           `json:"categoryId"`
	Featured          bool             `json:"featured"`
	Tags              []string         `json:"tags"`
	Images            []string         `json:"imageUrls"`
}

// UpdateProductRequest is a partial update: only non-nil fields are applied.
// The SKU cannot be changed. When Version is set it must equal the stored
// version or the update fails with a concurrency conflict.
type UpdateProductRequest struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	ShortDescription  *string          `json:"shortDescription"`
	Price             *decimal.Decimal `json:"price"`
	CompareAtPrice    *decimal.Decimal `json:"compareAtPrice"`
	CostPrice         *decimal.Decimal `json:"costPrice"`
	Status            *string          `json:"status"`
	Quantity          *int             `json:"quantity" binding:"omitempty,min=0"`
	LowStockThreshold *int             `json:"lowStockThreshold" binding:"omitempty,min=0"`
	Brand             *string          `json:"brand"`
	WeightGrams       *float64         `json:"weightGrams" binding:"omitempty,min=0"`
	CategoryID        *int64           `json:"categoryId"`
	Featured          *bool            `json:"featured"`
	Tags              *[]string        `json:"tags"`
	Images            *[]string        `json:"imageUrls"`
	Version           *int64           `json:"version"`
}

// ProductPageView is one page of product read models.
type ProductPageView struct {
	Items      []*models.ProductView `json:"items"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalItems int                   `json:"totalItems"`
	TotalPages int                   `json:"totalPages"`
}

// ProductService implements the product use cases on top of the storage
// port, the filter composer and the product cache.
type ProductService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      ProductCache
	notifier   sse.CatalogNotifier
	metrics    *metrics.Metrics
}

// NewProductService constructs a ProductService.
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	cache ProductCache,
	notifier sse.CatalogNotifier,
	m *metrics.Metrics,
) *ProductService {
	if notifier == nil {
		notifier = &sse.NopNotifier{}
	}
	return &ProductService{
		products:   products,
		categories: categories,
		cache:      cache,
		notifier:   notifier,
		metrics:    m,
	}
}

// CreateProduct validates and persists a new product.
func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.ProductView, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	if !ValidSKU(req.SKU) {
		return nil, invalid("sku %q must match CATEGORY-TYPE-VARIANT, e.g. ELEC-PHN-IP15", req.SKU)
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	if err := firstError(
		requireNotBlank("name", req.Name),
		requirePositivePrice("price", req.Price),
		requireNonNegativePrice("compareAtPrice", req.CompareAtPrice),
		requireNonNegativePrice("costPrice", req.CostPrice),
		requireNonNegative("quantity", req.Quantity),
		requireNonNegative("lowStockThreshold", req.LowStockThreshold),
	); err != nil {
		return nil, err
	}

	exists, err := s.products.ExistsBySKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: product with sku %s already exists", utils.ErrDuplicateResource, req.SKU)
	}

	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	quantity := 0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	threshold := models.DefaultLowStockThreshold
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}

	p := &models.Product{
		SKU:               req.SKU,
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		ShortDescription:  req.ShortDescription,
		Price:             req.Price,
		CompareAtPrice:    nullDecimal(req.CompareAtPrice),
		CostPrice:         nullDecimal(req.CostPrice),
		Status:            status,
		Quantity:          &quantity,
		LowStockThreshold: &threshold,
		Brand:             trimmedOrNil(req.Brand),
		WeightGrams:       req.WeightGrams,
		CategoryID:        req.CategoryID,
		Featured:          req.Featured,
		Tags:              normalizeSet(req.Tags),
		Images:            normalizeSet(req.Images),
	}

	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: product with sku %s already exists", utils.ErrDuplicateResource, req.SKU)
		}
		return nil, mapMissingCategory(err)
	}

	view := models.NewProductView(p)
	if err := s.evict(ctx); err != nil {
		return nil, err
	}
	s.notifier.NotifyProductCreated(view)
	return view, nil
}

// UpdateProduct applies a partial update to product id.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*models.ProductView, error) {
	var status models.ProductStatus
	if req.Status != nil {
		var err error
		if status, err = ParseStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		if err := requireNotBlank("name", *req.Name); err != nil {
			return nil, err
		}
	}
	if req.Price != nil {
		if err := requirePositivePrice("price", *req.Price); err != nil {
			return nil, err
		}
	}
	if err := firstError(
		requireNonNegativePrice("compareAtPrice", req.CompareAtPrice),
		requireNonNegativePrice("costPrice", req.CostPrice),
		requireNonNegative("quantity", req.Quantity),
		requireNonNegative("lowStockThreshold", req.LowStockThreshold),
	); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	p, err := s.mutate(ctx, id, func(p *models.Product) error {
		if req.Version != nil && *req.Version != p.Version {
			return fmt.Errorf("%w: product %d is at version %d, not %d",
				utils.ErrConcurrencyConflict, id, p.Version, *req.Version)
		}
		applyProductPatch(p, req, status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := models.NewProductView(p)
	if err := s.evict(ctx); err != nil {
		return nil, err
	}
	s.notifier.NotifyProductUpdated(view)
	return view, nil
}

func applyProductPatch(p *models.Product, req UpdateProductRequest, status models.ProductStatus) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.ShortDescription != nil {
		p.ShortDescription = req.ShortDescription
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.CompareAtPrice != nil {
		p.CompareAtPrice = nullDecimal(req.CompareAtPrice)
	}
	if req.CostPrice != nil {
		p.CostPrice = nullDecimal(req.CostPrice)
	}
	if status != "" {
		p.Status = status
	}
	if req.Quantity != nil {
		q := *req.Quantity
		p.Quantity = &q
	}
	if req.LowStockThreshold != nil {
		t := *req.LowStockThreshold
		p.LowStockThreshold = &t
	}
	if req.Brand != nil {
		p.Brand = trimmedOrNil(req.Brand)
	}
	if req.WeightGrams != nil {
		w := *req.WeightGrams
		p.WeightGrams = &w
	}
	if req.CategoryID != nil {
		c := *req.CategoryID
		p.CategoryID = &c
	}
	if req.Featured != nil {
		p.Featured = *req.Featured
	}
	if req.Tags != nil {
		p.Tags = normalizeSet(*req.Tags)
	}
	if req.Images != nil {
		p.Images = normalizeSet(*req.Images)
	}
}

// UpdateStatus moves product id to status. Every transition is allowed.
func (s *ProductService) UpdateStatus(ctx context.Context, id int64, status string) (*models.ProductView, error) {
	next, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	p, err := s.mutate(ctx, id, func(p *models.Product) error {
		p.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := models.NewProductView(p)
	if err := s.evict(ctx); err != nil {
		return nil, err
	}
	s.notifier.NotifyProductStatusChanged(view)
	return view, nil
}

// DeleteProduct archives product id. The row is kept and stays readable by
// id and SKU.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.mutate(ctx, id, func(p *models.Product) error {
		p.Status = models.ProductStatusArchived
		return nil
	})
	if err != nil {
		return err
	}

	view := models.NewProductView(p)
	if err := s.evict(ctx); err != nil {
		return err
	}
	s.notifier.NotifyProductArchived(view)
	return nil
}

// GetProduct returns product id through the by-id cache region.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.ProductView, error) {
	v, hit, err := s.cache.GetByID(ctx, id)
	s.recordLookup("id", hit, err)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", id).Msg("Product cache read failed, falling back to storage")
	} else if hit {
		return v, nil
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product not found with id %d", utils.ErrNotFound, id)
		}
		return nil, err
	}

	view := models.NewProductView(p)
	if err := s.cache.PutByID(ctx, view); err != nil {
		log.Warn().Err(err).Int64("product_id", id).Msg("Failed to populate product cache")
	}
	return view, nil
}

// GetProductBySKU returns the product with sku through the by-SKU cache region.
func (s *ProductService) GetProductBySKU(ctx context.Context, sku string) (*models.ProductView, error) {
	v, hit, err := s.cache.GetBySKU(ctx, sku)
	s.recordLookup("sku", hit, err)
	if err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("Product cache read failed, falling back to storage")
	} else if hit {
		return v, nil
	}

	p, err := s.products.GetBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product not found with sku %s", utils.ErrNotFound, sku)
		}
		return nil, err
	}

	view := models.NewProductView(p)
	if err := s.cache.PutBySKU(ctx, view); err != nil {
		log.Warn().Err(err).Str("sku", sku).Msg("Failed to populate product cache")
	}
	return view, nil
}

// ListProducts returns the default listing: no criteria, archived hidden.
func (s *ProductService) ListProducts(ctx context.Context, page repository.PageRequest) (*ProductPageView, error) {
	return s.find(ctx, repository.BuildProductPredicate(repository.ProductFilter{}), page)
}

// FilterProducts returns products matching every supplied criterion.
func (s *ProductService) FilterProducts(ctx context.Context, filter repository.ProductFilter, page repository.PageRequest) (*ProductPageView, error) {
	status, err := parseStatusFilter(filter.Status)
	if err != nil {
		return nil, err
	}
	filter.Status = status
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, invalid("minPrice %s is greater than maxPrice %s", filter.MinPrice, filter.MaxPrice)
	}
	return s.find(ctx, repository.BuildProductPredicate(filter), page)
}

// GetFeaturedProducts returns featured products of any status.
func (s *ProductService) GetFeaturedProducts(ctx context.Context, page repository.PageRequest) (*ProductPageView, error) {
	return s.find(ctx, repository.Predicate{}.And(repository.FeaturedCondition(true)), page)
}

// GetLowStockProducts returns products at or below their effective threshold.
func (s *ProductService) GetLowStockProducts(ctx context.Context, page repository.PageRequest) (*ProductPageView, error) {
	return s.find(ctx, repository.Predicate{}.And(repository.LowStockCondition()), page)
}

// CountLowStock returns the size of the low-stock listing.
func (s *ProductService) CountLowStock(ctx context.Context) (int, error) {
	return s.products.Count(ctx, repository.Predicate{}.And(repository.LowStockCondition()))
}

func (s *ProductService) find(ctx context.Context, pred repository.Predicate, req repository.PageRequest) (*ProductPageView, error) {
	page, err := s.products.Find(ctx, pred, req)
	if err != nil {
		return nil, err
	}
	items := make([]*models.ProductView, 0, len(page.Products))
	for i := range page.Products {
		items = append(items, models.NewProductView(&page.Products[i]))
	}
	return &ProductPageView{
		Items:      items,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalItems: page.TotalItems,
		TotalPages: page.TotalPages,
	}, nil
}

// mutate runs fn through the storage read-modify-write and maps storage
// errors to domain errors.
func (s *ProductService) mutate(ctx context.Context, id int64, fn repository.ProductMutator) (*models.Product, error) {
	p, err := s.products.Mutate(ctx, id, fn)
	var missing *repository.MissingCategoryError
	switch {
	case err == nil:
		return p, nil
	case errors.As(err, &missing):
		return nil, mapMissingCategory(missing)
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil, fmt.Errorf("%w: product not found with id %d", utils.ErrNotFound, id)
	case errors.Is(err, repository.ErrStaleVersion):
		return nil, fmt.Errorf("%w: product %d was modified concurrently", utils.ErrConcurrencyConflict, id)
	default:
		return nil, err
	}
}

func (s *ProductService) ensureCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := s.categories.GetByID(ctx, *id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return fmt.Errorf("%w: category not found with id %d", utils.ErrNotFound, *id)
		}
		return err
	}
	return nil
}

// mapMissingCategory turns a dangling category reference found by storage
// into NotFound naming the category.
func mapMissingCategory(err error) error {
	var missing *repository.MissingCategoryError
	if errors.As(err, &missing) {
		return fmt.Errorf("%w: category not found with id %d", utils.ErrNotFound, missing.ID)
	}
	return err
}

// evict clears both product cache regions after a committed write.
func (s *ProductService) evict(ctx context.Context) error {
	return evictProducts(ctx, s.cache, s.metrics)
}

func (s *ProductService) recordLookup(region string, hit bool, err error) {
	if s.metrics == nil {
		return
	}
	result := "miss"
	switch {
	case err != nil:
		result = "error"
	case hit:
		result = "hit"
	}
	s.metrics.CacheLookups.WithLabelValues(region, result).Inc()
}

func evictProducts(ctx context.Context, cache ProductCache, m *metrics.Metrics) error {
	if err := cache.EvictAll(ctx); err != nil {
		log.Error().Err(err).Msg("Product cache eviction failed after committed write")
		return fmt.Errorf("write committed but cache eviction failed: %w", err)
	}
	if m != nil {
		m.CacheEvictions.Inc()
	}
	return nil
}
