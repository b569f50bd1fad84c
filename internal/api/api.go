package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sellerledger/backend-go/internal/api/handlers"
	"github.com/sellerledger/backend-go/internal/api/middleware"
	"github.com/sellerledger/backend-go/internal/service"
)

type Services struct {
	UploadService   *service.UploadService
	MasterService   *service.MasterService
	AnalysisService *service.AnalysisService
	ReportService   *service.ReportService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.UploadService != nil {
			uploadHandler := handlers.NewUploadHandler(services.UploadService)
			uploadGroup := apiGroup.Group("/uploads")
			{
				uploadGroup.POST("", uploadHandler.Upload)
				uploadGroup.GET("", uploadHandler.List)
				uploadGroup.DELETE("/:id", uploadHandler.Delete)
			}
		}

		if services.MasterService != nil {
			masterHandler := handlers.NewMasterHandler(services.MasterService)
			masterGroup := apiGroup.Group("/master")
			{
				masterGroup.POST("/upload", masterHandler.Upload)
				masterGroup.GET("/info", masterHandler.Info)
				masterGroup.GET("/view", masterHandler.View)
				masterGroup.POST("/save", masterHandler.Save)
				masterGroup.PATCH("/entries", masterHandler.UpdateEntries)
			}
		}

		if services.AnalysisService != nil {
			analysisHandler := handlers.NewAnalysisHandler(services.AnalysisService)
			apiGroup.GET("/analyze/:id", analysisHandler.Run)

			processedGroup := apiGroup.Group("/processed")
			{
				processedGroup.GET("", analysisHandler.List)
				processedGroup.GET("/:id/summary", analysisHandler.Summary)
				processedGroup.GET("/:id/sheets/:name", analysisHandler.Sheet)
				processedGroup.GET("/:id/orders", analysisHandler.Orders)
				processedGroup.GET("/:id/top_selling", analysisHandler.TopSelling)
				processedGroup.GET("/:id/download", analysisHandler.Download)
			}

			apiGroup.GET("/dashboard", analysisHandler.Dashboard)
		}

		if services.ReportService != nil {
			reportHandler := handlers.NewReportHandler(services.ReportService)
			apiGroup.GET("/pnl", reportHandler.Monthly)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
