package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/models"
	"github.com/opswindow/opswindow-api/internal/service"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/response"
)

type announcementService interface {
	Create(ctx context.Context, req dto.CreateAnnouncementRequest, actor string) (*models.Announcement, error)
	Update(ctx context.Context, id string, req dto.UpdateAnnouncementRequest, actor string) (*models.Announcement, error)
	Get(ctx context.Context, id string) (*dto.AnnouncementDetail, error)
	List(ctx context.Context, req dto.AnnouncementListRequest) ([]models.Announcement, *models.Pagination, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor string) (*models.Announcement, error)
	Delete(ctx context.Context, id string) error
}

type notificationService interface {
	Dispatch(ctx context.Context, announcementID string, customerIDs []string, actor string) (*dto.DispatchResult, error)
	Remind(ctx context.Context, announcementID, actor string) (*dto.DispatchResult, error)
}

type reportExporter interface {
	Generate(ctx context.Context, announcementID, format string) (*service.ReportResult, error)
}

// AnnouncementHandler exposes the operator announcement endpoints.
type AnnouncementHandler struct {
	service       announcementService
	notifications notificationService
	reports       reportExporter
}

// NewAnnouncementHandler builds a new handler.
func NewAnnouncementHandler(service announcementService, notifications notificationService, reports reportExporter) *AnnouncementHandler {
	return &AnnouncementHandler{
		service:       service,
		notifications: notifications,
		reports:       reports,
	}
}

// Create godoc
// @Summary Create a maintenance announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body dto.CreateAnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	announcement, err := h.service.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, announcement)
}

// List godoc
// @Summary List announcements
// @Tags Announcements
// @Produce json
// @Param status query []string false "Status filter"
// @Param customer_id query string false "Customer filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	req := dto.AnnouncementListRequest{
		CustomerID: c.Query("customer_id"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 20),
	}
	if raw := c.Query("status"); raw != "" {
		req.Status = strings.Split(raw, ",")
	}
	items, pagination, err := h.service.List(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get one announcement with recipients, approvals and activity
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update a mutable announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.UpdateAnnouncementRequest true "Announcement payload"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	var req dto.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	announcement, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// UpdateStatus godoc
// @Summary Move an announcement through its lifecycle
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id}/status [patch]
func (h *AnnouncementHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	announcement, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, announcement, nil)
}

// Delete godoc
// @Summary Delete a draft announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SendNotifications godoc
// @Summary Dispatch notifications to recipients
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body dto.SendNotificationsRequest false "Recipient selection"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id}/notifications [post]
func (h *AnnouncementHandler) SendNotifications(c *gin.Context) {
	var req dto.SendNotificationsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notification payload"))
			return
		}
	}
	result, err := h.notifications.Dispatch(c.Request.Context(), c.Param("id"), req.CustomerIDs, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SendReminders godoc
// @Summary Remind recipients that have not responded
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id}/reminders [post]
func (h *AnnouncementHandler) SendReminders(c *gin.Context) {
	result, err := h.notifications.Remind(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Report godoc
// @Summary Export the approval report for an announcement
// @Tags Announcements
// @Produce octet-stream
// @Param id path string true "Announcement ID"
// @Param format query string false "pdf or csv" default(pdf)
// @Success 200 {file} binary
// @Router /announcements/{id}/report [get]
func (h *AnnouncementHandler) Report(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "pdf"))
	result, err := h.reports.Generate(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Report-Url", result.DownloadURL)
	c.Header("X-Report-Expires", result.ExpiresAt.UTC().Format(time.RFC3339))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
