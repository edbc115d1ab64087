package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/GTDGit/catalog_api/internal/models"
)

// Storage-level errors. Services translate them into domain errors.
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrStaleVersion   = errors.New("stale version")
)

// MissingCategoryError reports a write referencing a category that does not
// exist, either as a product category or as a parent category.
type MissingCategoryError struct {
	ID int64
}

func (e *MissingCategoryError) Error() string {
	return fmt.Sprintf("category %d does not exist", e.ID)
}

// missingCategory maps a foreign key violation on a category reference to a
// MissingCategoryError. Other errors are returned unchanged.
func missingCategory(err error, ref *int64) error {
	if ref != nil && isForeignKeyViolation(err) {
		return &MissingCategoryError{ID: *ref}
	}
	return err
}

// ProductMutator changes a loaded product in place. Returning an error aborts
// the mutation without persisting anything.
type ProductMutator func(p *models.Product) error

// ProductRepository is the storage port for products.
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetBySKU(ctx context.Context, sku string) (*models.Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	Find(ctx context.Context, pred Predicate, req PageRequest) (*ProductPage, error)
	Count(ctx context.Context, pred Predicate) (int, error)
	// Create persists p and fills its id, timestamps and version.
	Create(ctx context.Context, p *models.Product) error
	// Mutate loads the product, applies fn and persists the result in one
	// unit of work. The write fails with ErrStaleVersion when the row changed
	// since it was loaded.
	Mutate(ctx context.Context, id int64, fn ProductMutator) (*models.Product, error)
}

// CategoryRepository is the storage port for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	// GetByName matches name case-insensitively.
	GetByName(ctx context.Context, name string) (*models.Category, error)
	ListChildren(ctx context.Context, parentID int64) ([]models.Category, error)
	Create(ctx context.Context, c *models.Category) error
	Update(ctx context.Context, c *models.Category) error
	// Delete removes the category, detaching its products and children.
	Delete(ctx context.Context, id int64) error
}
