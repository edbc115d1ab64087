package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_api/internal/models"
)

var productRowColumns = []string{
	"id", "sku", "name", "description", "short_description", "price",
	"compare_at_price", "cost_price", "status", "quantity", "low_stock_threshold",
	"brand", "weight_grams", "category_id", "category_name", "featured",
	"tags", "images", "created_at", "updated_at", "version",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func productRow(rows *sqlmock.Rows, id int64, sku string, version int64) *sqlmock.Rows {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return rows.AddRow(
		id, sku, "iPhone 15", "Apple smartphone", nil, "999.00",
		nil, nil, "ACTIVE", int64(10), int64(5),
		"Apple", nil, int64(3), "Electronics", true,
		"{5g,phone}", "{}", now, now, version,
	)
}

func TestPostgresProductRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = $1 LIMIT 1")).
		WithArgs(int64(7)).
		WillReturnRows(productRow(sqlmock.NewRows(productRowColumns), 7, "ELEC-PHN-IP15", 2))

	p, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "ELEC-PHN-IP15", p.SKU)
	assert.Equal(t, "999", p.Price.String())
	assert.Equal(t, models.ProductStatusActive, p.Status)
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Electronics", *p.CategoryName)
	assert.Equal(t, pq.StringArray{"5g", "phone"}, p.Tags)
	assert.Empty(t, p.Images)
	assert.False(t, p.CompareAtPrice.Valid)
	assert.Equal(t, int64(2), p.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepository_GetBySKUNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.sku = $1 LIMIT 1")).
		WithArgs("NONE-NO-00").
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	_, err := repo.GetBySKU(context.Background(), "NONE-NO-00")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepository_FindRebindsPlaceholders(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepository(db)

	pred := BuildProductPredicate(ProductFilter{Brand: "Apple"})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM products p WHERE (LOWER(p.brand) = $1) AND (p.status <> $2 AND p.status <> $3)")).
		WithArgs("apple", "ARCHIVED", "DELETED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $4 OFFSET $5")).
		WithArgs("apple", "ARCHIVED", "DELETED", 2, 2).
		WillReturnRows(productRow(sqlmock.NewRows(productRowColumns), 9, "ELEC-PHN-IP15", 0))

	page, err := repo.Find(context.Background(), pred, PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Products, 1)
	assert.Equal(t, int64(9), page.Products[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepository_CreateDuplicateSKU(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), newProduct("ELEC-PHN-IP15", "999.00", 1))
	assert.ErrorIs(t, err, ErrDuplicateKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepository_MutateStaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = $1 LIMIT 1")).
		WithArgs(int64(7)).
		WillReturnRows(productRow(sqlmock.NewRows(productRowColumns), 7, "ELEC-PHN-IP15", 4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Mutate(context.Background(), 7, func(p *models.Product) error {
		p.Name = "iPhone 15 Pro"
		return nil
	})
	assert.ErrorIs(t, err, ErrStaleVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepository_MutateCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = $1 LIMIT 1")).
		WithArgs(int64(7)).
		WillReturnRows(productRow(sqlmock.NewRows(productRowColumns), 7, "ELEC-PHN-IP15", 4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM product_tags WHERE product_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO product_tags")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM product_images WHERE product_id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = $1 LIMIT 1")).
		WithArgs(int64(7)).
		WillReturnRows(productRow(sqlmock.NewRows(productRowColumns), 7, "ELEC-PHN-IP15", 5))
	mock.ExpectCommit()

	updated, err := repo.Mutate(context.Background(), 7, func(p *models.Product) error {
		p.Featured = false
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProductRepository_CreateMissingCategory(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(&pq.Error{Code: "23503", Message: "insert or update on table \"products\" violates foreign key constraint"})
	mock.ExpectRollback()

	p := newProduct("ELEC-PHN-IP15", "999.00", 1)
	p.CategoryID = int64Ptr(12)
	err := repo.Create(context.Background(), p)
	var missing *MissingCategoryError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, int64(12), missing.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCategoryRepository_DeleteDetachesProducts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCategoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET category_id = NULL, version = version + 1, updated_at = NOW()")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories SET parent_id = NULL")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCategoryRepository_DeleteMissingRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresCategoryRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products")).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE categories")).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM categories")).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), 9), ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
