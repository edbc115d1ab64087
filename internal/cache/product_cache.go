package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/GTDGit/catalog_api/internal/models"
)

// Key prefixes of the two product regions.
const (
	ProductByIDPrefix  = "catalog:product:id:"
	ProductBySKUPrefix = "catalog:product:sku:"
)

// ProductCache stores product views in two regions, one keyed by id and one
// by SKU. Both regions are always evicted together.
type ProductCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewProductCache creates a new ProductCache. A zero ttl keeps entries until
// the next eviction.
func NewProductCache(redis *RedisClient, ttl time.Duration) *ProductCache {
	return &ProductCache{
		redis: redis,
		ttl:   ttl,
	}
}

func (c *ProductCache) keyByID(id int64) string {
	return ProductByIDPrefix + strconv.FormatInt(id, 10)
}

func (c *ProductCache) keyBySKU(sku string) string {
	return ProductBySKUPrefix + sku
}

// GetByID returns the cached view of product id. hit is false on a miss.
func (c *ProductCache) GetByID(ctx context.Context, id int64) (*models.ProductView, bool, error) {
	return c.get(ctx, c.keyByID(id))
}

// GetBySKU returns the cached view of the product with sku.
func (c *ProductCache) GetBySKU(ctx context.Context, sku string) (*models.ProductView, bool, error) {
	return c.get(ctx, c.keyBySKU(sku))
}

// PutByID stores v in the by-id region.
func (c *ProductCache) PutByID(ctx context.Context, v *models.ProductView) error {
	return c.put(ctx, c.keyByID(v.ID), v)
}

// PutBySKU stores v in the by-SKU region.
func (c *ProductCache) PutBySKU(ctx context.Context, v *models.ProductView) error {
	return c.put(ctx, c.keyBySKU(v.SKU), v)
}

// EvictAll clears both product regions.
func (c *ProductCache) EvictAll(ctx context.Context) error {
	for _, prefix := range []string{ProductByIDPrefix, ProductBySKUPrefix} {
		if _, err := c.redis.DeletePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("failed to evict product cache: %w", err)
		}
	}
	return nil
}

func (c *ProductCache) get(ctx context.Context, key string) (*models.ProductView, bool, error) {
	raw, ok, err := c.redis.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	var v models.ProductView
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal product view %s: %w", key, err)
	}
	return &v, true, nil
}

func (c *ProductCache) put(ctx context.Context, key string, v *models.ProductView) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal product view: %w", err)
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}
