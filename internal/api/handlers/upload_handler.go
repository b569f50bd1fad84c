package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerledger/backend-go/internal/repository"
	"github.com/sellerledger/backend-go/internal/service"
)

type UploadHandler struct {
	service *service.UploadService
}

func NewUploadHandler(service *service.UploadService) *UploadHandler {
	return &UploadHandler{service: service}
}

// Upload accepts a multipart settlement file plus a marketplace field and
// ingests it. Re-uploading a file with the same original name is rejected.
func (h *UploadHandler) Upload(c *gin.Context) {
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

	upload, err := h.service.Ingest(c.Request.Context(), fileHeader.Filename, marketplace, data)
	if err == repository.ErrDuplicateFile {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file already uploaded", "filename": fileHeader.Filename})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not ingest file", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, upload)
}

func (h *UploadHandler) List(c *gin.Context) {
	marketplace := strings.TrimSpace(c.Query("marketplace"))
	uploads, err := h.service.List(c.Request.Context(), marketplace)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list uploads", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"uploads": uploads, "total": len(uploads)})
}

func (h *UploadHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if err == repository.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete upload", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func normalizeMarketplace(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "amazon"
	}
	return s
}
