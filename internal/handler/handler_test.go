package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_api/internal/cache"
	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/middleware"
	"github.com/GTDGit/catalog_api/internal/models"
	"github.com/GTDGit/catalog_api/internal/repository"
	"github.com/GTDGit/catalog_api/internal/service"
	"github.com/GTDGit/catalog_api/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.ErrorInfo
	Meta    utils.Meta `json:"meta"`
}

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T, checks map[string]Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	utils.SetJWTSecret("handler-secret")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewMemoryStore()
	products := repository.NewMemoryProductRepository(store)
	categories := repository.NewMemoryCategoryRepository(store)
	admins := repository.NewMemoryAdminUserRepository(store)
	pc := cache.NewProductCache(cache.NewRedisClientFrom(client), time.Minute)
	m := metrics.NewNop()

	productSvc := service.NewProductService(products, categories, pc, nil, m)
	categorySvc := service.NewCategoryService(categories, pc, m)
	authSvc := service.NewAdminAuthService(admins)
	_, err := authSvc.CreateAdmin(context.Background(), "ops@example.com", "correct-horse", "Ops")
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.LoggingMiddleware(m))
	SetupRoutes(router, &Handlers{
		Health:            NewHealthHandler(checks),
		Product:           NewProductHandler(productSvc),
		ProductManagement: NewProductManagementHandler(productSvc),
		Category:          NewCategoryHandler(categorySvc),
		Auth:              NewAuthHandler(authSvc),
	}, RouteDeps{
		JWT:          middleware.NewJWTMiddleware(),
		LoginLimiter: middleware.NewFailedLoginLimiter(5, time.Minute),
		Metrics:      m.Handler(),
	})

	s := &testServer{router: router}
	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ops@example.com", "password": "correct-horse"})
	require.Equal(t, 200, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	s.token = login.Token
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") != "" && rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func iphone() gin.H {
	return gin.H{
		"sku":               "ELEC-PHN-IP15",
		"name":              "iPhone 15",
		"price":             "999.99",
		"status":            "ACTIVE",
		"quantity":          3,
		"lowStockThreshold": 5,
		"tags":              []string{"phone"},
	}
}

func TestProductWritesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)
	s.token = ""

	rec, env := s.do(t, http.MethodPost, "/api/v1/products", iphone())
	assert.Equal(t, 401, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, 200, rec.Code)
}

func TestProductLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/products", iphone())
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var created models.ProductView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.True(t, created.InStock)
	assert.True(t, created.LowStock)
	assert.NotEmpty(t, env.Meta.RequestID)

	rec, env = s.do(t, http.MethodPost, "/api/v1/products", iphone())
	assert.Equal(t, 409, rec.Code)
	assert.Equal(t, "DUPLICATE_RESOURCE", env.Error.Code)

	bad := iphone()
	bad["sku"] = "iphone"
	rec, env = s.do(t, http.MethodPost, "/api/v1/products", bad)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/products/sku/ELEC-PHN-IP15", nil)
	assert.Equal(t, 200, rec.Code)
	rec, env = s.do(t, http.MethodGet, "/api/v1/products/999", nil)
	assert.Equal(t, 404, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	rec, env = s.do(t, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	path := "/api/v1/products/" + jsonID(created.ID)
	rec, env = s.do(t, http.MethodPut, path, gin.H{"quantity": 0, "version": 0})
	require.Equal(t, 200, rec.Code, rec.Body.String())
	var updated models.ProductView
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.False(t, updated.InStock)
	assert.Equal(t, int64(1), updated.Version)

	rec, env = s.do(t, http.MethodPut, path, gin.H{"name": "stale", "version": 0})
	assert.Equal(t, 409, rec.Code)
	assert.Equal(t, "CONCURRENCY_CONFLICT", env.Error.Code)

	rec, env = s.do(t, http.MethodPatch, path+"/status?status=bogus", nil)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	rec, _ = s.do(t, http.MethodPatch, path+"/status?status=inactive", nil)
	assert.Equal(t, 200, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, 200, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, "[]", string(env.Data))
	require.NotNil(t, env.Meta.Pagination)
	assert.Equal(t, 0, env.Meta.Pagination.TotalItems)

	rec, env = s.do(t, http.MethodGet, "/api/v1/products/filter?status=archived", nil)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, 1, env.Meta.Pagination.TotalItems)

	rec, _ = s.do(t, http.MethodGet, path, nil)
	assert.Equal(t, 200, rec.Code, "archived products stay readable by id")
}

func TestFilterQueryValidation(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/products/filter?minPrice=10&maxPrice=5", nil)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/products/filter?inStock=maybe", nil)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/products?sort=password", nil)
	assert.Equal(t, 400, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/products?limit=500&sort=price,desc", nil)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, repository.MaxPageLimit, env.Meta.Pagination.Limit)
}

func TestListingsAndPagination(t *testing.T) {
	s := newTestServer(t, nil)

	for _, sku := range []string{"ELEC-PHN-AA1", "ELEC-PHN-AA2", "ELEC-PHN-AA3"} {
		p := iphone()
		p["sku"] = sku
		p["featured"] = sku == "ELEC-PHN-AA2"
		rec, _ := s.do(t, http.MethodPost, "/api/v1/products", p)
		require.Equal(t, 201, rec.Code, rec.Body.String())
	}

	rec, env := s.do(t, http.MethodGet, "/api/v1/products?page=2&limit=2", nil)
	require.Equal(t, 200, rec.Code)
	var items []models.ProductView
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "ELEC-PHN-AA3", items[0].SKU)
	assert.Equal(t, 3, env.Meta.Pagination.TotalItems)
	assert.Equal(t, 2, env.Meta.Pagination.TotalPages)

	rec, env = s.do(t, http.MethodGet, "/api/v1/products?page=9223372036854775807&limit=100", nil)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/products?page=1000&limit=2", nil)
	require.Equal(t, 200, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Empty(t, items)
	assert.Equal(t, 3, env.Meta.Pagination.TotalItems)

	_, env = s.do(t, http.MethodGet, "/api/v1/products/featured", nil)
	assert.Equal(t, 1, env.Meta.Pagination.TotalItems)

	_, env = s.do(t, http.MethodGet, "/api/v1/products/low-stock", nil)
	assert.Equal(t, 3, env.Meta.Pagination.TotalItems)
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/categories", gin.H{"name": "Electronics"})
	require.Equal(t, 201, rec.Code, rec.Body.String())
	var parent models.CategoryView
	require.NoError(t, json.Unmarshal(env.Data, &parent))

	rec, _ = s.do(t, http.MethodPost, "/api/v1/categories", gin.H{"name": "Phones", "parentId": parent.ID})
	require.Equal(t, 201, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/v1/categories", gin.H{"name": "electronics"})
	assert.Equal(t, 409, rec.Code)
	assert.Equal(t, "DUPLICATE_RESOURCE", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/categories", gin.H{})
	assert.Equal(t, 400, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/categories/"+jsonID(parent.ID), nil)
	require.Equal(t, 200, rec.Code)
	var got models.CategoryView
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Len(t, got.SubCategories, 1)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/categories/"+jsonID(parent.ID), nil)
	assert.Equal(t, 200, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/v1/categories/"+jsonID(parent.ID), nil)
	assert.Equal(t, 404, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, nil)
	s.token = ""

	rec, env := s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "ops@example.com", "password": "wrong-password"})
	assert.Equal(t, 401, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"email": "not-an-email"})
	assert.Equal(t, 400, rec.Code)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	s := newTestServer(t, map[string]Pinger{"redis": PingFunc(func(context.Context) error { return nil })})
	rec, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, 200, rec.Code)

	s = newTestServer(t, map[string]Pinger{"database": failingPinger{}})
	rec, env := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, 503, rec.Code)
	assert.False(t, env.Success)

	rec, _ = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_http_request_duration_seconds")
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
