package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/catalog_api/internal/database"
	"github.com/GTDGit/catalog_api/internal/models"
)

const categoryColumns = `id, name, description, image_url, active, parent_id, created_at, updated_at`

// PostgresCategoryRepository stores categories in PostgreSQL.
type PostgresCategoryRepository struct {
	db *sqlx.DB
}

// NewPostgresCategoryRepository creates a new PostgresCategoryRepository.
func NewPostgresCategoryRepository(db *sqlx.DB) *PostgresCategoryRepository {
	return &PostgresCategoryRepository{db: db}
}

// List returns every category ordered by id.
func (r *PostgresCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	q := `SELECT ` + categoryColumns + ` FROM categories ORDER BY id`
	if err := r.db.SelectContext(ctx, &categories, q); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *PostgresCategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *PostgresCategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return r.getOne(ctx, `LOWER(name) = LOWER($1)`, name)
}

// ListChildren returns the direct children of parentID ordered by id.
func (r *PostgresCategoryRepository) ListChildren(ctx context.Context, parentID int64) ([]models.Category, error) {
	children := []models.Category{}
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE parent_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &children, q, parentID); err != nil {
		return nil, fmt.Errorf("list children of category %d: %w", parentID, err)
	}
	return children, nil
}

func (r *PostgresCategoryRepository) Create(ctx context.Context, c *models.Category) error {
	const q = `
		INSERT INTO categories (name, description, image_url, active, parent_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q, c.Name, c.Description, c.ImageURL, c.Active, c.ParentID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %s", ErrDuplicateKey, c.Name)
		}
		if isForeignKeyViolation(err) {
			return missingCategory(err, c.ParentID)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *PostgresCategoryRepository) Update(ctx context.Context, c *models.Category) error {
	const q = `
		UPDATE categories
		SET name = $1, description = $2, image_url = $3, active = $4, parent_id = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`
	err := r.db.QueryRowxContext(ctx, q, c.Name, c.Description, c.ImageURL, c.Active, c.ParentID, c.ID).
		Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRecordNotFound
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %s", ErrDuplicateKey, c.Name)
		}
		if isForeignKeyViolation(err) {
			return missingCategory(err, c.ParentID)
		}
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return nil
}

// Delete removes the category in one transaction. Its products are detached
// first so their version and updated_at move with the change; children become
// roots. The ON DELETE SET NULL foreign keys stay as a backstop.
func (r *PostgresCategoryRepository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE products
			SET category_id = NULL, version = version + 1, updated_at = NOW()
			WHERE category_id = $1`, id); err != nil {
			return fmt.Errorf("detach products of category %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET parent_id = NULL, updated_at = NOW()
			WHERE parent_id = $1`, id); err != nil {
			return fmt.Errorf("detach children of category %d: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		if n == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
}

func (r *PostgresCategoryRepository) getOne(ctx context.Context, where string, args ...interface{}) (*models.Category, error) {
	var c models.Category
	q := `SELECT ` + categoryColumns + ` FROM categories WHERE ` + where + ` LIMIT 1`
	if err := r.db.GetContext(ctx, &c, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}
