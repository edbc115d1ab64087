package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GTDGit/catalog_api/internal/models"
)

// MemoryStore keeps products, categories and admin users in process memory.
// One lock guards all maps so category deletion can detach products
// atomically, like the foreign keys of the PostgreSQL schema.
type MemoryStore struct {
	mu sync.RWMutex

	products     map[int64]*models.Product
	categories   map[int64]*models.Category
	admins       map[int]*models.AdminUser
	nextProduct  int64
	nextCategory int64
	nextAdmin    int
	now          func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:   make(map[int64]*models.Product),
		categories: make(map[int64]*models.Category),
		admins:     make(map[int]*models.AdminUser),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// MemoryProductRepository implements ProductRepository on a MemoryStore.
type MemoryProductRepository struct {
	s *MemoryStore
}

func NewMemoryProductRepository(s *MemoryStore) *MemoryProductRepository {
	return &MemoryProductRepository{s: s}
}

func (r *MemoryProductRepository) GetByID(_ context.Context, id int64) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return r.s.hydrate(p), nil
}

func (r *MemoryProductRepository) GetBySKU(_ context.Context, sku string) (*models.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if p := r.s.productBySKU(sku); p != nil {
		return r.s.hydrate(p), nil
	}
	return nil, ErrRecordNotFound
}

func (r *MemoryProductRepository) ExistsBySKU(_ context.Context, sku string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.productBySKU(sku) != nil, nil
}

func (r *MemoryProductRepository) Find(_ context.Context, pred Predicate, req PageRequest) (*ProductPage, error) {
	req = req.Normalize()

	r.s.mu.RLock()
	matched := make([]models.Product, 0)
	for _, p := range r.s.products {
		if pred.Matches(p) {
			matched = append(matched, *r.s.hydrate(p))
		}
	}
	r.s.mu.RUnlock()

	sortProducts(matched, req.Sort)

	total := len(matched)
	start := req.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}
	return newProductPage(matched[start:end], total, req), nil
}

func (r *MemoryProductRepository) Count(_ context.Context, pred Predicate) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.products {
		if pred.Matches(p) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryProductRepository) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.productBySKU(p.SKU) != nil {
		return fmt.Errorf("%w: sku %s", ErrDuplicateKey, p.SKU)
	}
	if err := r.s.checkCategoryRef(p.CategoryID); err != nil {
		return err
	}

	r.s.nextProduct++
	stored := p.Clone()
	stored.ID = r.s.nextProduct
	stored.CreatedAt = r.s.now()
	stored.UpdatedAt = stored.CreatedAt
	stored.Version = 0
	stored.CategoryName = nil
	r.s.products[stored.ID] = stored

	*p = *r.s.hydrate(stored)
	return nil
}

func (r *MemoryProductRepository) Mutate(_ context.Context, id int64, fn ProductMutator) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.products[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	// The write lock serialises mutations, so the version read here cannot go
	// stale before the write below.
	working := r.s.hydrate(current)
	if err := fn(working); err != nil {
		return nil, err
	}
	if err := r.s.checkCategoryRef(working.CategoryID); err != nil {
		return nil, err
	}
	working.ID = current.ID
	working.SKU = current.SKU
	working.CreatedAt = current.CreatedAt
	working.UpdatedAt = r.s.now()
	working.Version = current.Version + 1
	working.CategoryName = nil
	r.s.products[id] = working

	return r.s.hydrate(working), nil
}

// MemoryCategoryRepository implements CategoryRepository on a MemoryStore.
type MemoryCategoryRepository struct {
	s *MemoryStore
}

func NewMemoryCategoryRepository(s *MemoryStore) *MemoryCategoryRepository {
	return &MemoryCategoryRepository{s: s}
}

func (r *MemoryCategoryRepository) List(_ context.Context) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.categoriesWhere(func(*models.Category) bool { return true }), nil
}

func (r *MemoryCategoryRepository) GetByID(_ context.Context, id int64) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := *c
	return &out, nil
}

func (r *MemoryCategoryRepository) GetByName(_ context.Context, name string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if c := r.s.categoryByName(name); c != nil {
		out := *c
		return &out, nil
	}
	return nil, ErrRecordNotFound
}

func (r *MemoryCategoryRepository) ListChildren(_ context.Context, parentID int64) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.categoriesWhere(func(c *models.Category) bool {
		return c.ParentID != nil && *c.ParentID == parentID
	}), nil
}

func (r *MemoryCategoryRepository) Create(_ context.Context, c *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.categoryByName(c.Name) != nil {
		return fmt.Errorf("%w: category %s", ErrDuplicateKey, c.Name)
	}
	if err := r.s.checkCategoryRef(c.ParentID); err != nil {
		return err
	}

	r.s.nextCategory++
	c.ID = r.s.nextCategory
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	r.s.categories[c.ID] = &stored
	return nil
}

func (r *MemoryCategoryRepository) Update(_ context.Context, c *models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.categories[c.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if other := r.s.categoryByName(c.Name); other != nil && other.ID != c.ID {
		return fmt.Errorf("%w: category %s", ErrDuplicateKey, c.Name)
	}
	if err := r.s.checkCategoryRef(c.ParentID); err != nil {
		return err
	}

	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = r.s.now()
	stored := *c
	r.s.categories[c.ID] = &stored
	return nil
}

func (r *MemoryCategoryRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return ErrRecordNotFound
	}
	delete(r.s.categories, id)

	now := r.s.now()
	for _, p := range r.s.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			p.Version++
			p.UpdatedAt = now
		}
	}
	for _, c := range r.s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
			c.UpdatedAt = now
		}
	}
	return nil
}

// MemoryAdminUserRepository keeps admin accounts in a MemoryStore.
type MemoryAdminUserRepository struct {
	s *MemoryStore
}

func NewMemoryAdminUserRepository(s *MemoryStore) *MemoryAdminUserRepository {
	return &MemoryAdminUserRepository{s: s}
}

func (r *MemoryAdminUserRepository) GetByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.admins {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (r *MemoryAdminUserRepository) Create(_ context.Context, user *models.AdminUser) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.admins {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: admin %s", ErrDuplicateKey, user.Email)
		}
	}
	r.s.nextAdmin++
	user.ID = r.s.nextAdmin
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	r.s.admins[user.ID] = &stored
	return nil
}

func (r *MemoryAdminUserRepository) TouchLastLogin(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.admins[id]
	if !ok {
		return ErrRecordNotFound
	}
	now := r.s.now()
	u.LastLoginAt = &now
	u.UpdatedAt = now
	return nil
}

// hydrate returns a copy of p with the category name resolved. Callers hold mu.
func (s *MemoryStore) hydrate(p *models.Product) *models.Product {
	out := p.Clone()
	out.CategoryName = nil
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			name := c.Name
			out.CategoryName = &name
		}
	}
	return out
}

func (s *MemoryStore) productBySKU(sku string) *models.Product {
	for _, p := range s.products {
		if p.SKU == sku {
			return p
		}
	}
	return nil
}

func (s *MemoryStore) categoryByName(name string) *models.Category {
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// checkCategoryRef mirrors a foreign key check on a nullable category id.
func (s *MemoryStore) checkCategoryRef(id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := s.categories[*id]; !ok {
		return &MissingCategoryError{ID: *id}
	}
	return nil
}

func (s *MemoryStore) categoriesWhere(keep func(*models.Category) bool) []models.Category {
	out := make([]models.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortProducts orders products like Sort.orderBy: nulls last, id ascending
// as the tiebreaker.
func sortProducts(products []models.Product, s Sort) {
	cmp := productComparator(s.Field)
	sort.SliceStable(products, func(i, j int) bool {
		a, b := &products[i], &products[j]
		if s.Field == SortByID || s.Field == "" {
			if s.Desc {
				return a.ID > b.ID
			}
			return a.ID < b.ID
		}
		c, nullOrder := cmp(a, b)
		if nullOrder != 0 {
			return nullOrder < 0
		}
		if c != 0 {
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return a.ID < b.ID
	})
}

// productComparator returns a three-way comparison of field values. The
// second result is non-zero when exactly one side is null; it orders the
// non-null side first regardless of direction.
func productComparator(field SortField) func(a, b *models.Product) (int, int) {
	switch field {
	case SortBySKU:
		return func(a, b *models.Product) (int, int) { return strings.Compare(a.SKU, b.SKU), 0 }
	case SortByName:
		return func(a, b *models.Product) (int, int) { return strings.Compare(a.Name, b.Name), 0 }
	case SortByPrice:
		return func(a, b *models.Product) (int, int) { return a.Price.Cmp(b.Price), 0 }
	case SortByQuantity:
		return func(a, b *models.Product) (int, int) {
			switch {
			case a.Quantity == nil && b.Quantity == nil:
				return 0, 0
			case a.Quantity == nil:
				return 0, 1
			case b.Quantity == nil:
				return 0, -1
			}
			return compareInts(*a.Quantity, *b.Quantity), 0
		}
	case SortByCreatedAt:
		return func(a, b *models.Product) (int, int) { return a.CreatedAt.Compare(b.CreatedAt), 0 }
	case SortByUpdatedAt:
		return func(a, b *models.Product) (int, int) { return a.UpdatedAt.Compare(b.UpdatedAt), 0 }
	default:
		return func(a, b *models.Product) (int, int) { return compareInts(int(a.ID), int(b.ID)), 0 }
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
