package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerledger/backend-go/internal/api"
	"github.com/sellerledger/backend-go/internal/cache"
	"github.com/sellerledger/backend-go/internal/config"
	"github.com/sellerledger/backend-go/internal/repository/postgres"
	"github.com/sellerledger/backend-go/internal/service"
	"github.com/sellerledger/backend-go/internal/storage"
	"github.com/sellerledger/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	uploadRepo := postgres.NewUploadRepository(db)
	masterRepo := postgres.NewMasterRepository(db)
	resultRepo := postgres.NewResultRepository(db)

	reportCache := cache.NewReportCache(cfg.Cache)

	var archive storage.Archive
	if cfg.Archive.Endpoint != "" {
		archive, err = storage.NewMinioArchive(cfg.Archive)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("workbook archive disabled")
			archive = nil
		}
	}

	masterService := service.NewMasterService(masterRepo, cfg.App.MasterDir)
	services := &api.Services{
		UploadService:   service.NewUploadService(uploadRepo, resultRepo, cfg.App.UploadDir),
		MasterService:   masterService,
		AnalysisService: service.NewAnalysisService(uploadRepo, masterService, resultRepo, reportCache, archive, cfg.App.ProcessedDir),
		ReportService:   service.NewReportService(uploadRepo, resultRepo, reportCache),
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
