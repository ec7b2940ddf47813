package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"promptpilot/backend/internal/config"
	"promptpilot/backend/internal/logging"
	"promptpilot/backend/internal/repository"
	"promptpilot/backend/pkg/models"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresRunStore(pool, logger)

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	logger.Info("Schema ensured")

	// Provision the dev bypass user so local runs have an owner
	user, err := store.GetUserBySubject(ctx, "dev")
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Fatalf("Failed to look up dev user: %v", err)
		}
		user = &models.User{Subject: "dev", Email: "dev@localhost"}
		if err := store.CreateUser(ctx, user); err != nil {
			log.Fatalf("Failed to create dev user: %v", err)
		}
		logger.Info("Created dev user", "id", user.ID)
	} else {
		logger.Info("Found existing dev user", "id", user.ID)
	}

	logger.Info("Seeding complete!")
}
