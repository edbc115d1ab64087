package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/catalog_api/internal/models"
	"github.com/GTDGit/catalog_api/internal/utils"
)

// skuPattern is CATEGORY-TYPE-VARIANT, e.g. ELEC-PHN-IP15.
var skuPattern = regexp.MustCompile(`^[A-Z]{2,5}-[A-Z]{2,5}-[A-Z0-9]{2,5}$`)

// ValidSKU reports whether sku has the catalog SKU format.
func ValidSKU(sku string) bool {
	return skuPattern.MatchString(sku)
}

// ParseStatus normalizes raw to an assignable product status.
func ParseStatus(raw string) (models.ProductStatus, error) {
	s := models.ProductStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", invalid("status %q must be one of DRAFT, ACTIVE, INACTIVE, ARCHIVED", raw)
	}
	return s, nil
}

// parseStatusFilter accepts every assignable status plus the legacy DELETED
// marker, which can still be listed explicitly.
func parseStatusFilter(raw string) (string, error) {
	s := models.ProductStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if s == "" || s == models.ProductStatusDeleted || s.Valid() {
		return string(s), nil
	}
	return "", invalid("unknown status filter %q", raw)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", utils.ErrValidation, fmt.Sprintf(format, args...))
}

func requirePositivePrice(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return invalid("%s must be greater than 0", field)
	}
	return nil
}

func requireNonNegativePrice(field string, d *decimal.Decimal) error {
	if d != nil && d.IsNegative() {
		return invalid("%s must not be negative", field)
	}
	return nil
}

func requireNonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return invalid("%s must not be negative", field)
	}
	return nil
}

func requireNotBlank(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// normalizeSet trims values, drops blanks and duplicates.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
