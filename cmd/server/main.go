package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"shelfhub/internal/catalog"
	"shelfhub/internal/config"
	"shelfhub/internal/httpapi"
	"shelfhub/internal/live"
	"shelfhub/internal/progress"
	"shelfhub/internal/storage"
	"shelfhub/pkg/database"
	"shelfhub/pkg/models"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.IsDev())
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatal("create data dir", zap.Error(err))
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	// Seed categories when a fixture file is present.
	if seedPath := "./data/categories.json"; fileExists(seedPath) {
		categories, err := database.LoadCategoriesFromJSON(seedPath)
		if err != nil {
			logger.Fatal("load category seed", zap.Error(err))
		}
		n, err := database.SeedCategories(db, categories)
		if err != nil {
			logger.Fatal("seed categories", zap.Error(err))
		}
		logger.Info("seeded categories", zap.Int("count", n))
	}

	ctx := context.Background()

	s3Client, err := storage.NewS3Client(ctx, cfg.AWSRegion, cfg.S3Endpoint)
	if err != nil {
		logger.Fatal("init s3 client", zap.Error(err))
	}
	store := storage.NewS3Store(s3Client, cfg.AWSBucket)
	uploads := storage.NewCoordinator(store, cfg.AWSBucket, cfg.AWSRegion, logger)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	catalogSvc := catalog.NewService(db, uploads, logger, rng)

	events := make(chan models.ProgressEvent, 100)
	tracker := progress.NewTracker(db, logger, events)

	hub := live.NewHub(events, logger)
	go hub.Run()

	server := httpapi.NewServer(db, catalogSvc, tracker, uploads, hub, []byte(cfg.JWTSecret), logger)

	logger.Info("HTTP API listening", zap.String("addr", cfg.AppPort))
	if err := server.Router().Run(cfg.AppPort); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(isDev bool) (*zap.Logger, error) {
	if isDev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
