package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"statement-ingestion-backend/internal/blobstore"
	"statement-ingestion-backend/internal/extraction"
	handler "statement-ingestion-backend/internal/handlers"
	"statement-ingestion-backend/internal/logger"
	"statement-ingestion-backend/internal/repository"
	"statement-ingestion-backend/internal/services/session"

	"github.com/rs/zerolog"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, extractor extraction.Client, blobs blobstore.Store, log zerolog.Logger) {
	bankRepo := repository.NewBankAccountRepository(db)
	statementRepo := repository.NewStatementRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	registry := session.NewRegistry()
	deps := session.Deps{
		Extractor:  extractor,
		Blobs:      blobs,
		Statements: statementRepo,
		Cycles:     cycleRepo,
		Vouches:    statementRepo,
		Audit:      sessionRepo,
		Logger:     log,
	}

	sessionHandler := handler.NewSessionHandler(registry, bankRepo, sessionRepo, deps)
	bankHandler := handler.NewBankHandler(bankRepo)

	// Carry the logger on the request context for handlers.
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))
		c.Next()
	})

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Roster (read-only, for manual match pickers)
	api.GET("/banks", bankHandler.ListBanks)

	// Ingestion session routes
	sessions := api.Group("/sessions")
	sessions.POST("", sessionHandler.CreateSession)
	sessions.GET("/:id", sessionHandler.GetSession)
	sessions.DELETE("/:id", sessionHandler.CloseSession)
	sessions.POST("/:id/documents", sessionHandler.UploadDocuments)
	sessions.POST("/:id/process", sessionHandler.Process)
	sessions.POST("/:id/passwords/skip", sessionHandler.SkipPasswords)
	sessions.GET("/:id/cycles", sessionHandler.GetCycles)
	sessions.POST("/:id/cycles/confirm", sessionHandler.ConfirmCycles)
	sessions.GET("/:id/vouching", sessionHandler.GetVouching)
	sessions.POST("/:id/vouching/:companyId", sessionHandler.ToggleVouching)

	// Item-level routes
	items := sessions.Group("/:id/items")
	items.POST("/:index/match", sessionHandler.ManualMatch)
	items.POST("/:index/password", sessionHandler.SupplyPassword)
	items.POST("/:index/cancel", sessionHandler.Cancel)
	items.GET("/:index/document", sessionHandler.DownloadDocument)
}
