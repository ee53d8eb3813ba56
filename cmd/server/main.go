package main

import (
	"context"
	"log"
	"time"

	"statement-ingestion-backend/internal/blobstore"
	"statement-ingestion-backend/internal/config"
	"statement-ingestion-backend/internal/extraction"
	"statement-ingestion-backend/internal/logger"
	"statement-ingestion-backend/internal/models"
	"statement-ingestion-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg := config.Load()
	logg := logger.New()

	db := config.InitDB(cfg)

	db.AutoMigrate(
		&models.BankAccount{},
		&models.StatementCycle{},
		&models.StatementRecord{},
		&models.IngestionSession{},
	)

	var blobs blobstore.Store
	if cfg.StatementBucket != "" {
		gcs, err := blobstore.NewGCSStore(context.Background(), cfg.StatementBucket)
		if err != nil {
			logg.Fatal().Err(err).Str("bucket", cfg.StatementBucket).Msg("failed to open statement bucket")
		}
		defer gcs.Close()
		blobs = gcs
	} else {
		logg.Warn().Msg("STATEMENT_BUCKET not set, using in-memory document store")
		blobs = blobstore.NewMemoryStore()
	}

	extractor := extraction.NewHTTPClient(cfg.ExtractionURL)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, extractor, blobs, logg)

	r.Run(":" + cfg.Port)
}
