package repository

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/catalog_api/internal/models"
)

// ProductFilter holds the optional criteria of a product search.
// Blank strings and nil pointers contribute no constraint.
type ProductFilter struct {
	Search     string
	CategoryID *int64
	Brand      string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Status     string
	InStock    *bool
	Featured   *bool
}

// Condition is one criterion of a product predicate. SQL uses `?`
// placeholders (rebound by the caller) and refers to the products table as p.
// Match evaluates the same criterion against an in-memory row.
type Condition struct {
	Name  string
	SQL   string
	Args  []interface{}
	Match func(p *models.Product) bool
}

// Predicate is the conjunction of its conditions. An empty predicate is TRUE.
type Predicate struct {
	Conditions []Condition
}

// And returns a predicate that also requires the given conditions.
func (pr Predicate) And(conds ...Condition) Predicate {
	out := make([]Condition, 0, len(pr.Conditions)+len(conds))
	out = append(out, pr.Conditions...)
	out = append(out, conds...)
	return Predicate{Conditions: out}
}

// Where renders the predicate as a SQL boolean expression with `?`
// placeholders and returns the arguments in placeholder order.
func (pr Predicate) Where() (string, []interface{}) {
	if len(pr.Conditions) == 0 {
		return "TRUE", nil
	}
	parts := make([]string, 0, len(pr.Conditions))
	var args []interface{}
	for _, c := range pr.Conditions {
		parts = append(parts, "("+c.SQL+")")
		args = append(args, c.Args...)
	}
	return strings.Join(parts, " AND "), args
}

// Matches reports whether p satisfies every condition.
func (pr Predicate) Matches(p *models.Product) bool {
	for _, c := range pr.Conditions {
		if !c.Match(p) {
			return false
		}
	}
	return true
}

// BuildProductPredicate composes the filter into a single predicate.
// When no status is requested, archived and deleted products are excluded;
// an explicit status is matched exactly and lifts that exclusion.
func BuildProductPredicate(f ProductFilter) Predicate {
	var conds []Condition

	if term := strings.TrimSpace(f.Search); term != "" {
		conds = append(conds, SearchCondition(term))
	}
	if f.CategoryID != nil {
		conds = append(conds, CategoryCondition(*f.CategoryID))
	}
	if brand := strings.TrimSpace(f.Brand); brand != "" {
		conds = append(conds, BrandCondition(brand))
	}
	if f.MinPrice != nil {
		conds = append(conds, MinPriceCondition(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, MaxPriceCondition(*f.MaxPrice))
	}
	if status := strings.TrimSpace(f.Status); status != "" {
		conds = append(conds, StatusCondition(models.ProductStatus(status)))
	} else {
		conds = append(conds, VisibleStatusCondition())
	}
	if f.InStock != nil && *f.InStock {
		conds = append(conds, InStockCondition())
	}
	if f.Featured != nil {
		conds = append(conds, FeaturedCondition(*f.Featured))
	}

	return Predicate{Conditions: conds}
}

// SearchCondition matches term case-insensitively against the name or the
// description. A missing description is treated as an empty string.
func SearchCondition(term string) Condition {
	needle := strings.ToLower(term)
	pattern := "%" + escapeLike(needle) + "%"
	return Condition{
		Name: "search",
		SQL:  "LOWER(p.name) LIKE ? OR LOWER(COALESCE(p.description, '')) LIKE ?",
		Args: []interface{}{pattern, pattern},
		Match: func(p *models.Product) bool {
			desc := ""
			if p.Description != nil {
				desc = *p.Description
			}
			return strings.Contains(strings.ToLower(p.Name), needle) ||
				strings.Contains(strings.ToLower(desc), needle)
		},
	}
}

// CategoryCondition requires the product to reference categoryID.
func CategoryCondition(categoryID int64) Condition {
	return Condition{
		Name: "category",
		SQL:  "p.category_id = ?",
		Args: []interface{}{categoryID},
		Match: func(p *models.Product) bool {
			return p.CategoryID != nil && *p.CategoryID == categoryID
		},
	}
}

// BrandCondition matches the brand case-insensitively and exactly.
func BrandCondition(brand string) Condition {
	want := strings.ToLower(brand)
	return Condition{
		Name: "brand",
		SQL:  "LOWER(p.brand) = ?",
		Args: []interface{}{want},
		Match: func(p *models.Product) bool {
			return p.Brand != nil && strings.ToLower(*p.Brand) == want
		},
	}
}

// MinPriceCondition is an inclusive lower price bound.
func MinPriceCondition(min decimal.Decimal) Condition {
	return Condition{
		Name: "min_price",
		SQL:  "p.price >= ?",
		Args: []interface{}{min},
		Match: func(p *models.Product) bool {
			return p.Price.GreaterThanOrEqual(min)
		},
	}
}

// MaxPriceCondition is an inclusive upper price bound.
func MaxPriceCondition(max decimal.Decimal) Condition {
	return Condition{
		Name: "max_price",
		SQL:  "p.price <= ?",
		Args: []interface{}{max},
		Match: func(p *models.Product) bool {
			return p.Price.LessThanOrEqual(max)
		},
	}
}

// StatusCondition matches status exactly.
func StatusCondition(status models.ProductStatus) Condition {
	return Condition{
		Name: "status",
		SQL:  "p.status = ?",
		Args: []interface{}{string(status)},
		Match: func(p *models.Product) bool {
			return p.Status == status
		},
	}
}

// VisibleStatusCondition hides archived and deleted products.
func VisibleStatusCondition() Condition {
	return Condition{
		Name: "visible_status",
		SQL:  "p.status <> ? AND p.status <> ?",
		Args: []interface{}{string(models.ProductStatusArchived), string(models.ProductStatusDeleted)},
		Match: func(p *models.Product) bool {
			return p.Status != models.ProductStatusArchived && p.Status != models.ProductStatusDeleted
		},
	}
}

// InStockCondition requires a positive quantity.
func InStockCondition() Condition {
	return Condition{
		Name: "in_stock",
		SQL:  "p.quantity > 0",
		Match: func(p *models.Product) bool {
			return p.Quantity != nil && *p.Quantity > 0
		},
	}
}

// FeaturedCondition matches the featured flag exactly.
func FeaturedCondition(featured bool) Condition {
	return Condition{
		Name: "featured",
		SQL:  "p.featured = ?",
		Args: []interface{}{featured},
		Match: func(p *models.Product) bool {
			return p.Featured == featured
		},
	}
}

// LowStockCondition selects products at or below their effective threshold,
// using the same default as the per-item lowStock flag.
func LowStockCondition() Condition {
	return Condition{
		Name: "low_stock",
		SQL:  "p.quantity <= COALESCE(p.low_stock_threshold, ?)",
		Args: []interface{}{models.DefaultLowStockThreshold},
		Match: func(p *models.Product) bool {
			return models.IsLowStock(p.Quantity, p.LowStockThreshold)
		},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
