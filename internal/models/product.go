package models

import (
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductStatus enumerates the lifecycle states of a product.
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusInactive ProductStatus = "INACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"

	// ProductStatusDeleted is a legacy marker. It is never assigned by the
	// service but is hidden from default listings like ARCHIVED.
	ProductStatusDeleted ProductStatus = "DELETED"
)

// ProductStatuses lists the statuses a product may be moved to.
var ProductStatuses = []ProductStatus{
	ProductStatusDraft,
	ProductStatusActive,
	ProductStatusInactive,
	ProductStatusArchived,
}

// Valid reports whether s is an assignable status.
func (s ProductStatus) Valid() bool {
	for _, v := range ProductStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Product is the persisted product row. CategoryName, Tags and Images are
// populated by the storage adapter from joined tables.
type Product struct {
	ID                int64               `db:"id"`
	SKU               string              `db:"sku"`
	Name              string              `db:"name"`
	Description       *string             `db:"description"`
	ShortDescription  *string             `db:"short_description"`
	Price             decimal.Decimal     `db:"price"`
	CompareAtPrice    decimal.NullDecimal `db:"compare_at_price"`
	CostPrice         decimal.NullDecimal `db:"cost_price"`
	Status            ProductStatus       `db:"status"`
	Quantity          *int                `db:"quantity"`
	LowStockThreshold *int                `db:"low_stock_threshold"`
	Brand             *string             `db:"brand"`
	WeightGrams       *float64            `db:"weight_grams"`
	CategoryID        *int64              `db:"category_id"`
	CategoryName      *string             `db:"category_name"`
	Featured          bool                `db:"featured"`
	Tags              pq.StringArray      `db:"tags"`
	Images            pq.StringArray      `db:"images"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
	Version           int64               `db:"version"`
}

// Clone returns a deep copy of p so callers can mutate it freely.
func (p *Product) Clone() *Product {
	c := *p
	c.Description = cloneString(p.Description)
	c.ShortDescription = cloneString(p.ShortDescription)
	c.Brand = cloneString(p.Brand)
	c.CategoryName = cloneString(p.CategoryName)
	c.Quantity = cloneInt(p.Quantity)
	c.LowStockThreshold = cloneInt(p.LowStockThreshold)
	if p.WeightGrams != nil {
		w := *p.WeightGrams
		c.WeightGrams = &w
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		c.CategoryID = &id
	}
	c.Tags = append(pq.StringArray(nil), p.Tags...)
	c.Images = append(pq.StringArray(nil), p.Images...)
	return &c
}

// ProductView is the read model returned to callers and stored in the cache.
// InStock and LowStock are derived on construction and never persisted.
type ProductView struct {
	ID                int64               `json:"id"`
	SKU               string              `json:"sku"`
	Name              string              `json:"name"`
	Description       *string             `json:"description"`
	ShortDescription  *string             `json:"shortDescription"`
	Price             decimal.Decimal     `json:"price"`
	CompareAtPrice    decimal.NullDecimal `json:"compareAtPrice"`
	CostPrice         decimal.NullDecimal `json:"costPrice"`
	Status            ProductStatus       `json:"status"`
	Quantity          *int                `json:"quantity"`
	LowStockThreshold *int                `json:"lowStockThreshold"`
	Brand             *string             `json:"brand"`
	WeightGrams       *float64            `json:"weightGrams"`
	CategoryID        *int64              `json:"categoryId"`
	CategoryName      *string             `json:"categoryName"`
	Featured          bool                `json:"featured"`
	Tags              []string            `json:"tags"`
	ImageURLs         []string            `json:"imageUrls"`
	InStock           bool                `json:"inStock"`
	LowStock          bool                `json:"lowStock"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
	Version           int64               `json:"version"`
}

// NewProductView builds the read model for p, computing the stock flags.
func NewProductView(p *Product) *ProductView {
	inStock, lowStock := StockFlags(p.Quantity, p.LowStockThreshold)
	return &ProductView{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		ShortDescription:  p.ShortDescription,
		Price:             p.Price,
		CompareAtPrice:    p.CompareAtPrice,
		CostPrice:         p.CostPrice,
		Status:            p.Status,
		Quantity:          p.Quantity,
		LowStockThreshold: p.LowStockThreshold,
		Brand:             p.Brand,
		WeightGrams:       p.WeightGrams,
		CategoryID:        p.CategoryID,
		CategoryName:      p.CategoryName,
		Featured:          p.Featured,
		Tags:              sortedSet(p.Tags),
		ImageURLs:         sortedSet(p.Images),
		InStock:           inStock,
		LowStock:          lowStock,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		Version:           p.Version,
	}
}

// sortedSet returns the distinct values of in, sorted, never nil.
func sortedSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
