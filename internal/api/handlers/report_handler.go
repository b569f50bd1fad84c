package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/service"
)

type ReportHandler struct {
	service *service.ReportService
}

func NewReportHandler(service *service.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Monthly returns the monthly P&L report for one upload. Without an uploadId
// query param the newest upload of the marketplace is used.
func (h *ReportHandler) Monthly(c *gin.Context) {
	var uploadID int64
	if raw := strings.TrimSpace(c.Query("uploadId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uploadId"})
			return
		}
		uploadID = id
	}
	marketplace := normalizeMarketplace(c.Query("marketplace"))

	report, resolvedID, err := h.service.Monthly(c.Request.Context(), uploadID, marketplace)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analyzed result for this upload"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_id":     resolvedID,
		"months":        report.Months,
		"totals":        report.Totals,
		"top_by_qty":    report.TopByQuantity,
		"top_by_profit": report.TopByProfit,
		"raw_count":     report.RawCount,
	})
}
