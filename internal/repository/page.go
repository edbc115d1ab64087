package repository

import (
	"fmt"
	"math"
	"strings"

	"github.com/GTDGit/catalog_api/internal/models"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// SortField is a whitelisted product ordering key.
type SortField string

const (
	SortByID        SortField = "id"
	SortBySKU       SortField = "sku"
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByQuantity  SortField = "quantity"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
)

var sortColumns = map[SortField]string{
	SortByID:        "p.id",
	SortBySKU:       "p.sku",
	SortByName:      "p.name",
	SortByPrice:     "p.price",
	SortByQuantity:  "p.quantity",
	SortByCreatedAt: "p.created_at",
	SortByUpdatedAt: "p.updated_at",
}

// Sort orders a product page.
type Sort struct {
	Field SortField
	Desc  bool
}

// ParseSort parses "field" or "field,asc|desc". An empty string sorts by id.
func ParseSort(raw string) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sort{Field: SortByID}, nil
	}
	field, dir, _ := strings.Cut(raw, ",")
	s := Sort{Field: SortField(strings.TrimSpace(field))}
	if _, ok := sortColumns[s.Field]; !ok {
		return Sort{}, fmt.Errorf("unsupported sort field %q", field)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		s.Desc = true
	default:
		return Sort{}, fmt.Errorf("unsupported sort direction %q", dir)
	}
	return s, nil
}

// orderBy renders the ORDER BY clause; id breaks ties so pages are stable.
func (s Sort) orderBy() string {
	col, ok := sortColumns[s.Field]
	if !ok {
		col = "p.id"
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if col == "p.id" {
		return "p.id " + dir
	}
	return fmt.Sprintf("%s %s NULLS LAST, p.id ASC", col, dir)
}

// PageRequest asks for one page of results. Page starts at 1.
type PageRequest struct {
	Page  int
	Limit int
	Sort  Sort
}

// Normalize clamps page and limit into their accepted ranges.
func (r PageRequest) Normalize() PageRequest {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.Limit <= 0 {
		r.Limit = DefaultPageLimit
	}
	if r.Limit > MaxPageLimit {
		r.Limit = MaxPageLimit
	}
	if r.Page > MaxPage(r.Limit) {
		r.Page = MaxPage(r.Limit)
	}
	if r.Sort.Field == "" {
		r.Sort.Field = SortByID
	}
	return r
}

// MaxPage is the largest page whose offset fits in an int for the given limit.
func MaxPage(limit int) int {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return math.MaxInt / limit
}

// Offset is the number of rows skipped before the page.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// ProductPage contains one page of products and the total match count.
type ProductPage struct {
	Products   []models.Product
	TotalItems int
	TotalPages int
	Page       int
	Limit      int
}

func newProductPage(products []models.Product, total int, req PageRequest) *ProductPage {
	return &ProductPage{
		Products:   products,
		TotalItems: total,
		TotalPages: (total + req.Limit - 1) / req.Limit,
		Page:       req.Page,
		Limit:      req.Limit,
	}
}
