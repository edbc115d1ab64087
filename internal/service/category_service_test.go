package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_api/internal/utils"
)

func TestCategoryCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	root, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: " Electronics "})
	require.NoError(t, err)
	assert.Equal(t, "Electronics", root.Name)
	assert.True(t, root.Active, "active defaults to true")
	assert.NotNil(t, root.SubCategories)

	phones, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "Phones", ParentID: &root.ID, Active: ptr(false)})
	require.NoError(t, err)
	assert.False(t, phones.Active)

	got, err := f.categories.GetCategory(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, got.SubCategories, 1)
	assert.Equal(t, "Phones", got.SubCategories[0].Name)

	all, err := f.categories.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Len(t, all[0].SubCategories, 1)
	assert.Empty(t, all[1].SubCategories)

	updated, err := f.categories.UpdateCategory(ctx, phones.ID, CategoryRequest{Name: "Smartphones", ParentID: &root.ID})
	require.NoError(t, err)
	assert.Equal(t, "Smartphones", updated.Name)
	assert.False(t, updated.Active, "nil active keeps the stored flag")

	_, err = f.categories.GetCategory(ctx, 999)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = f.categories.CreateCategory(ctx, CategoryRequest{Name: "Orphans", ParentID: ptr(int64(999))})
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = f.categories.CreateCategory(ctx, CategoryRequest{Name: "  "})
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = f.categories.UpdateCategory(ctx, 999, CategoryRequest{Name: "Ghost"})
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestCategoryNamesAreUniqueIgnoringCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "Books"})
	require.NoError(t, err)
	_, err = f.categories.CreateCategory(ctx, CategoryRequest{Name: "BOOKS"})
	assert.ErrorIs(t, err, utils.ErrDuplicateResource)

	other, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "Music"})
	require.NoError(t, err)
	_, err = f.categories.UpdateCategory(ctx, other.ID, CategoryRequest{Name: "books"})
	assert.ErrorIs(t, err, utils.ErrDuplicateResource)

	_, err = f.categories.UpdateCategory(ctx, first.ID, CategoryRequest{Name: "BOOKS"})
	assert.NoError(t, err)
}

func TestUpdateCategory_RejectsCycles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "A"})
	require.NoError(t, err)
	b, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)
	c, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "C", ParentID: &b.ID})
	require.NoError(t, err)

	_, err = f.categories.UpdateCategory(ctx, a.ID, CategoryRequest{Name: "A", ParentID: &a.ID})
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = f.categories.UpdateCategory(ctx, a.ID, CategoryRequest{Name: "A", ParentID: &c.ID})
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = f.categories.UpdateCategory(ctx, a.ID, CategoryRequest{Name: "A", ParentID: ptr(int64(999))})
	assert.ErrorIs(t, err, utils.ErrNotFound)

	moved, err := f.categories.UpdateCategory(ctx, c.ID, CategoryRequest{Name: "C", ParentID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, a.ID, *moved.ParentID)
}

func TestDeleteCategory_DetachesAndEvicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	parent, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "Electronics"})
	require.NoError(t, err)
	child, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "Phones", ParentID: &parent.ID})
	require.NoError(t, err)

	req := iphoneRequest()
	req.CategoryID = &parent.ID
	p, err := f.products.CreateProduct(ctx, req)
	require.NoError(t, err)

	cached, err := f.products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, cached.CategoryName)

	require.NoError(t, f.categories.DeleteCategory(ctx, parent.ID))

	got, err := f.products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.CategoryName, "cached view with the old category is gone")

	orphan, err := f.categories.GetCategory(ctx, child.ID)
	require.NoError(t, err)
	assert.Nil(t, orphan.ParentID)

	assert.ErrorIs(t, f.categories.DeleteCategory(ctx, parent.ID), utils.ErrNotFound)
}

func TestUpdateCategory_RefreshesCachedProductViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cat, err := f.categories.CreateCategory(ctx, CategoryRequest{Name: "Electronics"})
	require.NoError(t, err)
	req := iphoneRequest()
	req.CategoryID = &cat.ID
	p, err := f.products.CreateProduct(ctx, req)
	require.NoError(t, err)

	_, err = f.products.GetProductBySKU(ctx, p.SKU)
	require.NoError(t, err)

	_, err = f.categories.UpdateCategory(ctx, cat.ID, CategoryRequest{Name: "Gadgets"})
	require.NoError(t, err)

	got, err := f.products.GetProductBySKU(ctx, p.SKU)
	require.NoError(t, err)
	require.NotNil(t, got.CategoryName)
	assert.Equal(t, "Gadgets", *got.CategoryName)
}
