package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/models"
	"github.com/GTDGit/catalog_api/internal/repository"
	"github.com/GTDGit/catalog_api/internal/utils"
)

// CategoryCatalog is the category use-case boundary consumed by handlers.
type CategoryCatalog interface {
	ListCategories(ctx context.Context) ([]*models.CategoryView, error)
	GetCategory(ctx context.Context, id int64) (*models.CategoryView, error)
	CreateCategory(ctx context.Context, req CategoryRequest) (*models.CategoryView, error)
	UpdateCategory(ctx context.Context, id int64, req CategoryRequest) (*models.CategoryView, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// CategoryRequest carries the full state of a category for create and
// update. A nil Active defaults to true on create and is left unchanged on
// update; a nil ParentID makes the category a root.
type CategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	Active      *bool   `json:"active"`
	ParentID    *int64  `json:"parentId"`
}

// CategoryService implements category CRUD.
type CategoryService struct {
	categories repository.CategoryRepository
	cache      ProductCache
	metrics    *metrics.Metrics
}

// NewCategoryService constructs a CategoryService.
func NewCategoryService(categories repository.CategoryRepository, cache ProductCache, m *metrics.Metrics) *CategoryService {
	return &CategoryService{
		categories: categories,
		cache:      cache,
		metrics:    m,
	}
}

// ListCategories returns every category with its direct children.
func (s *CategoryService) ListCategories(ctx context.Context) ([]*models.CategoryView, error) {
	all, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[int64][]models.Category)
	for _, c := range all {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	views := make([]*models.CategoryView, 0, len(all))
	for i := range all {
		views = append(views, models.NewCategoryView(&all[i], children[all[i].ID]))
	}
	return views, nil
}

// GetCategory returns category id with its direct children.
func (s *CategoryService) GetCategory(ctx context.Context, id int64) (*models.CategoryView, error) {
	c, err := s.load(ctx, id, "category")
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// CreateCategory validates and persists a new category.
func (s *CategoryService) CreateCategory(ctx context.Context, req CategoryRequest) (*models.CategoryView, error) {
	name := strings.TrimSpace(req.Name)
	if err := requireNotBlank("name", name); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name, 0); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if _, err := s.load(ctx, *req.ParentID, "parent category"); err != nil {
			return nil, err
		}
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	c := &models.Category{
		Name:        name,
		Description: req.Description,
		ImageURL:    trimmedOrNil(req.ImageURL),
		Active:      active,
		ParentID:    req.ParentID,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, mapCategoryWriteError(err, name)
	}

	log.Info().Int64("category_id", c.ID).Str("name", c.Name).Msg("Category created")
	return models.NewCategoryView(c, nil), nil
}

// UpdateCategory replaces the state of category id. Product views embed the
// category name, so the product cache is evicted afterwards.
func (s *CategoryService) UpdateCategory(ctx context.Context, id int64, req CategoryRequest) (*models.CategoryView, error) {
	name := strings.TrimSpace(req.Name)
	if err := requireNotBlank("name", name); err != nil {
		return nil, err
	}

	c, err := s.load(ctx, id, "category")
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name, id); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if err := s.ensureNoCycle(ctx, id, *req.ParentID); err != nil {
			return nil, err
		}
	}

	c.Name = name
	c.Description = req.Description
	c.ImageURL = trimmedOrNil(req.ImageURL)
	if req.Active != nil {
		c.Active = *req.Active
	}
	c.ParentID = req.ParentID

	if err := s.categories.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category not found with id %d", utils.ErrNotFound, id)
		}
		return nil, mapCategoryWriteError(err, name)
	}
	if err := evictProducts(ctx, s.cache, s.metrics); err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// DeleteCategory removes category id. Its products lose their category and
// its children become roots.
func (s *CategoryService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return fmt.Errorf("%w: category not found with id %d", utils.ErrNotFound, id)
		}
		return err
	}
	log.Info().Int64("category_id", id).Msg("Category deleted")
	return evictProducts(ctx, s.cache, s.metrics)
}

func (s *CategoryService) load(ctx context.Context, id int64, what string) (*models.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s not found with id %d", utils.ErrNotFound, what, id)
		}
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) view(ctx context.Context, c *models.Category) (*models.CategoryView, error) {
	children, err := s.categories.ListChildren(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return models.NewCategoryView(c, children), nil
}

// ensureNameFree fails when another category than selfID already uses name,
// ignoring case.
func (s *CategoryService) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.categories.GetByName(ctx, name)
	switch {
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return fmt.Errorf("%w: category %q already exists", utils.ErrDuplicateResource, name)
	}
	return nil
}

// ensureNoCycle rejects parentID when it is id itself or one of its
// descendants. The walk up from parentID is bounded by the number of
// categories so a corrupted graph cannot loop forever.
func (s *CategoryService) ensureNoCycle(ctx context.Context, id, parentID int64) error {
	if parentID == id {
		return invalid("category %d cannot be its own parent", id)
	}

	all, err := s.categories.List(ctx)
	if err != nil {
		return err
	}
	parents := make(map[int64]*int64, len(all))
	for _, c := range all {
		parents[c.ID] = c.ParentID
	}
	if _, ok := parents[parentID]; !ok {
		return fmt.Errorf("%w: parent category not found with id %d", utils.ErrNotFound, parentID)
	}

	cur := parentID
	for steps := 0; steps <= len(all); steps++ {
		next := parents[cur]
		if next == nil {
			return nil
		}
		if *next == id {
			return invalid("category %d cannot be moved under its descendant %d", id, parentID)
		}
		cur = *next
	}
	return invalid("category graph above %d contains a cycle", parentID)
}

func mapCategoryWriteError(err error, name string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateKey):
		return fmt.Errorf("%w: category %q already exists", utils.ErrDuplicateResource, name)
	case errors.Is(err, repository.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", utils.ErrNotFound, err)
	}
	return mapMissingCategory(err)
}
