// Command admin creates a catalog admin account in the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_api/internal/config"
	"github.com/GTDGit/catalog_api/internal/database"
	"github.com/GTDGit/catalog_api/internal/repository"
	"github.com/GTDGit/catalog_api/internal/service"
)

func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password (min 8 characters)")
	name := flag.String("name", "Administrator", "display name")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.StorageDriver != config.StoragePostgres {
		log.Fatal().Str("storage", cfg.StorageDriver).Msg("admin accounts can only be created in postgres storage")
	}

	if err := createAdmin(&cfg.DB, *email, *password, *name); err != nil {
		log.Error().Err(err).Str("email", *email).Msg("failed to create admin")
		os.Exit(1)
	}
}

func createAdmin(dbCfg *config.DatabaseConfig, email, password, name string) error {
	db, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	authSvc := service.NewAdminAuthService(repository.NewAdminUserRepository(db))
	admin, err := authSvc.CreateAdmin(ctx, email, password, name)
	if err != nil {
		return err
	}
	log.Info().Int("admin_id", admin.ID).Str("email", admin.Email).Msg("admin created")
	return nil
}
