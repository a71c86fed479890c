package dto

import (
	"time"

	"github.com/opswindow/opswindow-api/internal/models"
)

// RejectRequest carries the mandatory rejection reason from the approval link.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
	Actor  string `json:"actor"`
}

// ApproveRequest optionally names the person responding on the customer side.
type ApproveRequest struct {
	Actor string `json:"actor"`
}

// ApprovalView is what a customer sees when opening their approval link.
type ApprovalView struct {
	AnnouncementID   string                    `json:"announcement_id"`
	Title            string                    `json:"title"`
	Description      string                    `json:"description"`
	MaintenanceType  models.MaintenanceType    `json:"maintenance_type"`
	AffectedSystems  string                    `json:"affected_systems"`
	StartAt          time.Time                 `json:"start_at"`
	EndAt            *time.Time                `json:"end_at,omitempty"`
	ApprovalDeadline *time.Time                `json:"approval_deadline,omitempty"`
	Status           models.RecipientStatus    `json:"status"`
	RespondedAt      *time.Time                `json:"responded_at,omitempty"`
	RejectionReason  *string                   `json:"rejection_reason,omitempty"`
	Lifecycle        models.AnnouncementStatus `json:"lifecycle_status"`
}
