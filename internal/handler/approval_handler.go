package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/models"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/response"
)

type approvalService interface {
	View(ctx context.Context, token string) (*dto.ApprovalView, error)
	Approve(ctx context.Context, token, actor string) (*models.Recipient, error)
	Reject(ctx context.Context, token, actor, reason string) (*models.Recipient, error)
}

// ApprovalHandler exposes the customer-facing approval link endpoints. These
// routes are unauthenticated; the token in the path carries the scope.
type ApprovalHandler struct {
	service approvalService
}

// NewApprovalHandler builds a new handler.
func NewApprovalHandler(service approvalService) *ApprovalHandler {
	return &ApprovalHandler{service: service}
}

// View godoc
// @Summary View the maintenance announcement behind an approval link
// @Tags Approvals
// @Produce json
// @Param token path string true "Approval token"
// @Success 200 {object} response.Envelope
// @Router /approvals/{token} [get]
func (h *ApprovalHandler) View(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Approve godoc
// @Summary Approve a maintenance window
// @Tags Approvals
// @Accept json
// @Produce json
// @Param token path string true "Approval token"
// @Param payload body dto.ApproveRequest false "Responder"
// @Success 200 {object} response.Envelope
// @Router /approvals/{token}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
			return
		}
	}
	recipient, err := h.service.Approve(c.Request.Context(), c.Param("token"), req.Actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recipient, nil)
}

// Reject godoc
// @Summary Reject a maintenance window with a reason
// @Tags Approvals
// @Accept json
// @Produce json
// @Param token path string true "Approval token"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /approvals/{token}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}
	recipient, err := h.service.Reject(c.Request.Context(), c.Param("token"), req.Actor, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recipient, nil)
}
