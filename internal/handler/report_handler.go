package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opswindow/opswindow-api/internal/service"
	"github.com/opswindow/opswindow-api/pkg/response"
)

type reportDownloader interface {
	Download(token string) (*service.ReportDownload, error)
}

// ReportHandler serves archived approval reports through signed links.
type ReportHandler struct {
	service reportDownloader
}

// NewReportHandler builds a new handler.
func NewReportHandler(service reportDownloader) *ReportHandler {
	return &ReportHandler{service: service}
}

// Download godoc
// @Summary Download an archived approval report via signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	result, err := h.service.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.ContentType, result.File, nil)
}
