package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/service"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalysisHandler struct {
	service *service.AnalysisService
}

func NewAnalysisHandler(service *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return 0, false
	}
	return id, true
}

// Run analyzes one upload and streams the resulting workbook. With
// ?format=json the stored result is returned instead of the file.
func (h *AnalysisHandler) Run(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rec, workbook, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		switch err {
		case repository.ErrNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		case service.ErrNoRows:
			c.JSON(http.StatusBadRequest, gin.H{"error": "upload has no data rows"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed", "details": err.Error()})
		}
		return
	}

	if strings.EqualFold(c.Query("format"), "json") {
		c.JSON(http.StatusOK, rec)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analyzed_%d.xlsx"`, id))
	c.Data(http.StatusOK, workbookContentType, workbook)
}

func (h *AnalysisHandler) List(c *gin.Context) {
	marketplace := strings.TrimSpace(c.Query("marketplace"))
	summaries, err := h.service.List(c.Request.Context(), marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list results", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": summaries, "total": len(summaries)})
}

func (h *AnalysisHandler) Summary(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load summary", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AnalysisHandler) Sheet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	name := c.Param("name")
	rows, known, err := h.service.SheetRows(c.Request.Context(), id, name)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sheet", "details": err.Error()})
		return
	}
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sheet", "sheet": name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sheet": name, "rows": rows})
}

// Orders filters the order summary table by sku substring, exact type and
// exact date, recomputing sums over the filtered rows.
func (h *AnalysisHandler) Orders(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	filter := service.OrderFilter{
		SKU:  c.Query("sku"),
		Type: c.Query("type"),
		Date: c.Query("date"),
	}
	filtered, err := h.service.FilterOrders(c.Request.Context(), id, filter)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to filter orders", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, filtered)
}

func (h *AnalysisHandler) TopSelling(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	ranks, err := h.service.TopSelling(c.Request.Context(), id, limit)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rank skus", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_selling": ranks})
}

func (h *AnalysisHandler) Download(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	data, name, err := h.service.Workbook(c.Request.Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook", "details": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, workbookContentType, data)
}

// Dashboard returns the totals of a chosen result, defaulting to the latest
// upload of the marketplace. Returns a zeroed shape when nothing is analyzed.
func (h *AnalysisHandler) Dashboard(c *gin.Context) {
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

	totals, err := h.service.Dashboard(c.Request.Context(), uploadID, marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, totals)
}
