package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/GTDGit/catalog_api/internal/database"
	"github.com/GTDGit/catalog_api/internal/models"
)

const productSelect = `
	SELECT
		p.id, p.sku, p.name, p.description, p.short_description, p.price,
		p.compare_at_price, p.cost_price, p.status, p.quantity, p.low_stock_threshold,
		p.brand, p.weight_grams, p.category_id, c.name AS category_name, p.featured,
		COALESCE((SELECT array_agg(t.tag ORDER BY t.tag) FROM product_tags t WHERE t.product_id = p.id), '{}') AS tags,
		COALESCE((SELECT array_agg(i.image_url ORDER BY i.image_url) FROM product_images i WHERE i.product_id = p.id), '{}') AS images,
		p.created_at, p.updated_at, p.version
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

// PostgresProductRepository stores products in PostgreSQL. Tags and images
// live in side tables and are aggregated into arrays on read.
type PostgresProductRepository struct {
	db *sqlx.DB
}

// NewPostgresProductRepository creates a new PostgresProductRepository.
func NewPostgresProductRepository(db *sqlx.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

// GetByID returns a single product by id.
func (r *PostgresProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	return r.getOne(ctx, r.db, "p.id = ?", id)
}

// GetBySKU returns a single product by sku.
func (r *PostgresProductRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return r.getOne(ctx, r.db, "p.sku = ?", sku)
}

// ExistsBySKU reports whether any product carries sku.
func (r *PostgresProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	const q = `SELECT EXISTS(SELECT 1 FROM products WHERE sku = $1)`
	if err := r.db.GetContext(ctx, &exists, q, sku); err != nil {
		return false, fmt.Errorf("check sku %s: %w", sku, err)
	}
	return exists, nil
}

// Find returns one page of products matching pred, plus the total count.
func (r *PostgresProductRepository) Find(ctx context.Context, pred Predicate, req PageRequest) (*ProductPage, error) {
	req = req.Normalize()
	where, args := pred.Where()

	total, err := r.count(ctx, where, args)
	if err != nil {
		return nil, err
	}

	listQuery := r.db.Rebind(productSelect + `
	WHERE ` + where + `
	ORDER BY ` + req.Sort.orderBy() + `
	LIMIT ? OFFSET ?`)
	listArgs := append(append([]interface{}{}, args...), req.Limit, req.Offset())

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, listQuery, listArgs...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return newProductPage(products, total, req), nil
}

// Count returns the number of products matching pred.
func (r *PostgresProductRepository) Count(ctx context.Context, pred Predicate) (int, error) {
	where, args := pred.Where()
	return r.count(ctx, where, args)
}

func (r *PostgresProductRepository) count(ctx context.Context, where string, args []interface{}) (int, error) {
	var total int
	q := r.db.Rebind(`SELECT COUNT(1) FROM products p WHERE ` + where)
	if err := r.db.GetContext(ctx, &total, q, args...); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

// Create inserts the product and its tags and images in one transaction.
func (r *PostgresProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `
		INSERT INTO products (
			sku, name, description, short_description, price, compare_at_price, cost_price,
			status, quantity, low_stock_threshold, brand, weight_grams, category_id, featured
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.QueryRowxContext(ctx, q,
			p.SKU, p.Name, p.Description, p.ShortDescription, p.Price, p.CompareAtPrice, p.CostPrice,
			p.Status, p.Quantity, p.LowStockThreshold, p.Brand, p.WeightGrams, p.CategoryID, p.Featured,
		).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: sku %s", ErrDuplicateKey, p.SKU)
			}
			if isForeignKeyViolation(err) {
				return missingCategory(err, p.CategoryID)
			}
			return fmt.Errorf("insert product: %w", err)
		}

		if err := replaceValues(ctx, tx, tagsTable, id, p.Tags); err != nil {
			return err
		}
		if err := replaceValues(ctx, tx, imagesTable, id, p.Images); err != nil {
			return err
		}

		saved, err := r.getOne(ctx, tx, "p.id = ?", id)
		if err != nil {
			return err
		}
		*p = *saved
		return nil
	})
}

// Mutate runs the read-modify-write cycle of one product inside a
// transaction. The update is guarded by the version read at the start.
func (r *PostgresProductRepository) Mutate(ctx context.Context, id int64, fn ProductMutator) (*models.Product, error) {
	const q = `
		UPDATE products SET
			name = $1, description = $2, short_description = $3, price = $4,
			compare_at_price = $5, cost_price = $6, status = $7, quantity = $8,
			low_stock_threshold = $9, brand = $10, weight_grams = $11, category_id = $12,
			featured = $13, version = version + 1, updated_at = NOW()
		WHERE id = $14 AND version = $15`

	var result *models.Product
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		p, err := r.getOne(ctx, tx, "p.id = ?", id)
		if err != nil {
			return err
		}
		expected := p.Version

		if err := fn(p); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, q,
			p.Name, p.Description, p.ShortDescription, p.Price,
			p.CompareAtPrice, p.CostPrice, p.Status, p.Quantity,
			p.LowStockThreshold, p.Brand, p.WeightGrams, p.CategoryID,
			p.Featured, id, expected,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return missingCategory(err, p.CategoryID)
			}
			return fmt.Errorf("update product %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update product %d: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: product %d at version %d", ErrStaleVersion, id, expected)
		}

		if err := replaceValues(ctx, tx, tagsTable, id, p.Tags); err != nil {
			return err
		}
		if err := replaceValues(ctx, tx, imagesTable, id, p.Images); err != nil {
			return err
		}

		result, err = r.getOne(ctx, tx, "p.id = ?", id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresProductRepository) getOne(ctx context.Context, q sqlx.QueryerContext, where string, args ...interface{}) (*models.Product, error) {
	query := r.db.Rebind(productSelect + ` WHERE ` + where + ` LIMIT 1`)
	var p models.Product
	if err := sqlx.GetContext(ctx, q, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

type valueTable struct {
	name   string
	column string
}

var (
	tagsTable   = valueTable{name: "product_tags", column: "tag"}
	imagesTable = valueTable{name: "product_images", column: "image_url"}
)

// replaceValues rewrites the side-table set of a product.
func replaceValues(ctx context.Context, tx *sqlx.Tx, t valueTable, productID int64, values []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+t.name+` WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("clear %s: %w", t.name, err)
	}
	if len(values) == 0 {
		return nil
	}
	q := `INSERT INTO ` + t.name + ` (product_id, ` + t.column + `)
		SELECT $1, v FROM unnest($2::text[]) AS v
		ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, q, productID, pq.Array(values)); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign_key_violation.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
