package models

// DefaultLowStockThreshold applies when a product carries no threshold.
const DefaultLowStockThreshold = 5

// StockFlags derives the presentation-only stock state of a product.
// A product with unknown quantity is neither in stock nor low on stock, and
// a product without a threshold is never flagged low.
func StockFlags(quantity, threshold *int) (inStock, lowStock bool) {
	inStock = quantity != nil && *quantity > 0
	lowStock = quantity != nil && threshold != nil && *quantity <= *threshold
	return inStock, lowStock
}

// EffectiveThreshold returns threshold or DefaultLowStockThreshold when nil.
func EffectiveThreshold(threshold *int) int {
	if threshold == nil {
		return DefaultLowStockThreshold
	}
	return *threshold
}

// IsLowStock mirrors the storage-level low-stock predicate
// quantity <= COALESCE(low_stock_threshold, 5).
func IsLowStock(quantity, threshold *int) bool {
	return quantity != nil && *quantity <= EffectiveThreshold(threshold)
}
