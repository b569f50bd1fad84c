package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerledger/backend-go/internal/domain"
	"github.com/sellerledger/backend-go/internal/engine"
	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/service"
)

type MasterHandler struct {
	service *service.MasterService
}

func NewMasterHandler(service *service.MasterService) *MasterHandler {
	return &MasterHandler{service: service}
}

// Upload replaces the marketplace's cost master with the uploaded file.
func (h *MasterHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}

	marketplace := normalizeMarketplace(c.PostForm("marketplace"))

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file", "details": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file", "details": err.Error()})
		return
	}

	info, err := h.service.Replace(c.Request.Context(), marketplace, fileHeader.Filename, data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not replace master", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *MasterHandler) Info(c *gin.Context) {
	marketplace := normalizeMarketplace(c.Query("marketplace"))
	info, err := h.service.Info(c.Request.Context(), marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load master info", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *MasterHandler) View(c *gin.Context) {
	marketplace := normalizeMarketplace(c.Query("marketplace"))
	rows, err := h.service.View(c.Request.Context(), marketplace)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "no master uploaded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load master", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "total": len(rows)})
}

type updateEntriesRequest struct {
	Marketplace string `json:"marketplace"`
	Entries     []struct {
		SKU         string  `json:"sku"`
		ProductName string  `json:"product_name"`
		UnitCost    float64 `json:"unit_cost"`
	} `json:"entries"`
}

// UpdateEntries edits individual SKUs of the current snapshot in place.
func (h *MasterHandler) UpdateEntries(c *gin.Context) {
	var req updateEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no entries to update"})
		return
	}

	marketplace := normalizeMarketplace(req.Marketplace)
	entries := make([]domain.MasterRecord, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, domain.MasterRecord{
			SKU:         e.SKU,
			ProductName: e.ProductName,
			UnitCost:    e.UnitCost,
		})
	}

	updated, err := h.service.UpdateEntries(c.Request.Context(), marketplace, entries)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "no master uploaded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update entries", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type saveMasterRequest struct {
	Marketplace string             `json:"marketplace"`
	Rows        []engine.RawRecord `json:"rows"`
}

// Save replaces the snapshot from rows edited in the UI.
func (h *MasterHandler) Save(c *gin.Context) {
	var req saveMasterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if len(req.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no rows to save"})
		return
	}

	marketplace := normalizeMarketplace(req.Marketplace)
	info, err := h.service.SaveEdited(c.Request.Context(), marketplace, req.Rows)
	if err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "no master uploaded"})
			return
		}
		if strings.Contains(err.Error(), "no usable rows") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save master", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}
