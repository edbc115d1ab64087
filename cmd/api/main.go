package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_api/internal/cache"
	"github.com/GTDGit/catalog_api/internal/config"
	"github.com/GTDGit/catalog_api/internal/database"
	"github.com/GTDGit/catalog_api/internal/handler"
	"github.com/GTDGit/catalog_api/internal/metrics"
	"github.com/GTDGit/catalog_api/internal/middleware"
	"github.com/GTDGit/catalog_api/internal/repository"
	"github.com/GTDGit/catalog_api/internal/service"
	"github.com/GTDGit/catalog_api/internal/sse"
	"github.com/GTDGit/catalog_api/internal/utils"
	"github.com/GTDGit/catalog_api/internal/worker"
)

// storage bundles the repositories of the selected storage driver.
type storage struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	admins     service.AdminUserStore
	db         *sqlx.DB
}

// main is the application entrypoint for the catalog API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("storage", cfg.StorageDriver).Msg("starting catalog api")
	utils.SetJWTSecret(cfg.JWTSecret)

	// 3. Open storage
	store, err := openStorage(cfg)
	if err != nil {
		log.Error().Err(err).Msg("storage initialisation failed")
		fmt.Fprintf(os.Stderr, "storage initialisation failed: %v\n", err)
		os.Exit(1)
	}
	if store.db != nil {
		defer store.db.Close()
	}

	// 4. Connect Redis
	rdb, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// 6. Initialize services
	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)
	productCache := cache.NewProductCache(rdb, cfg.Cache.TTL)

	productSvc := service.NewInstrumentedProductService(
		service.NewProductService(store.products, store.categories, productCache, notifier, m),
		m, cfg.Instrumentation.SlowCallThreshold,
	)
	categorySvc := service.NewInstrumentedCategoryService(
		service.NewCategoryService(store.categories, productCache, m),
		m, cfg.Instrumentation.SlowCallThreshold,
	)
	authSvc := service.NewAdminAuthService(store.admins)

	if cfg.SeedAdmin.Email != "" {
		seedAdmin(authSvc, cfg.SeedAdmin)
	}

	// 7. Initialize handlers
	checks := map[string]handler.Pinger{"redis": rdb}
	if store.db != nil {
		checks["database"] = handler.PingFunc(store.db.PingContext)
	}
	handlers := &handler.Handlers{
		Health:            handler.NewHealthHandler(checks),
		Product:           handler.NewProductHandler(productSvc),
		ProductManagement: handler.NewProductManagementHandler(productSvc),
		Category:          handler.NewCategoryHandler(categorySvc),
		Auth:              handler.NewAuthHandler(authSvc),
		SSE:               handler.NewSSEHandler(hub),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()
	loginLimiter := middleware.NewFailedLoginLimiter(cfg.Worker.LoginAttempts, cfg.Worker.LoginWindow)

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidators()
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware(m))
	handler.SetupRoutes(router, handlers, handler.RouteDeps{
		JWT:          jwtMw,
		LoginLimiter: loginLimiter,
		Metrics:      m.Handler(),
	})

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start workers
	go worker.NewLowStockWorker(productSvc, notifier, m, cfg.Worker.LowStockInterval).Start(ctx)
	go loginLimiter.Cleanup(ctx, time.Minute)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// openStorage connects the configured storage driver and runs migrations
// for PostgreSQL.
func openStorage(cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mem := repository.NewMemoryStore()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &storage{
			products:   repository.NewMemoryProductRepository(mem),
			categories: repository.NewMemoryCategoryRepository(mem),
			admins:     repository.NewMemoryAdminUserRepository(mem),
		}, nil
	default:
		db, err := database.Connect(&cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := runMigrations(db.DB, cfg.MigrationsDir); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		return &storage{
			products:   repository.NewPostgresProductRepository(db),
			categories: repository.NewPostgresCategoryRepository(db),
			admins:     repository.NewAdminUserRepository(db),
			db:         db,
		}, nil
	}
}

func seedAdmin(authSvc *service.AdminAuthService, seed config.SeedAdminConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	admin, err := authSvc.CreateAdmin(ctx, seed.Email, seed.Password, seed.Name)
	switch {
	case errors.Is(err, utils.ErrDuplicateResource):
		log.Debug().Str("email", seed.Email).Msg("seed admin already exists")
	case err != nil:
		log.Error().Err(err).Str("email", seed.Email).Msg("failed to seed admin")
	default:
		log.Info().Int("admin_id", admin.ID).Str("email", admin.Email).Msg("seed admin created")
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB, dir string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+dir,
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
