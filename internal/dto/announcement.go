package dto

import (
	"time"

	"github.com/opswindow/opswindow-api/internal/models"
)

// CreateAnnouncementRequest describes the announcement creation payload.
type CreateAnnouncementRequest struct {
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description"`
	MaintenanceType  string     `json:"maintenance_type" validate:"required,maintenance_type"`
	AffectedSystems  string     `json:"affected_systems"`
	StartAt          time.Time  `json:"start_at" validate:"required"`
	EndAt            *time.Time `json:"end_at"`
	RequireApproval  bool       `json:"require_approval"`
	ApprovalDeadline *time.Time `json:"approval_deadline"`
	AutoProceed      bool       `json:"auto_proceed"`
	InternalNotes    string     `json:"internal_notes"`
	CustomerIDs      []string   `json:"customer_ids"`
}

// UpdateAnnouncementRequest mirrors the create payload for mutable announcements.
type UpdateAnnouncementRequest struct {
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description"`
	MaintenanceType  string     `json:"maintenance_type" validate:"required,maintenance_type"`
	AffectedSystems  string     `json:"affected_systems"`
	StartAt          time.Time  `json:"start_at" validate:"required"`
	EndAt            *time.Time `json:"end_at"`
	RequireApproval  bool       `json:"require_approval"`
	ApprovalDeadline *time.Time `json:"approval_deadline"`
	AutoProceed      bool       `json:"auto_proceed"`
	InternalNotes    string     `json:"internal_notes"`
}

// UpdateStatusRequest moves an announcement through its lifecycle.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,lifecycle_status"`
}

// SendNotificationsRequest selects recipients for a dispatch batch. An empty
// list targets every recipient not yet notified.
type SendNotificationsRequest struct {
	CustomerIDs []string `json:"customer_ids"`
}

// DispatchResult aggregates per-recipient outcomes of one notification batch.
type DispatchResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// AnnouncementDetail is the full read model for one announcement.
type AnnouncementDetail struct {
	Announcement    models.Announcement    `json:"announcement"`
	Recipients      []models.Recipient     `json:"recipients"`
	ActivityLog     []models.ActivityEntry `json:"activity_log"`
	ApprovalSummary models.ApprovalSummary `json:"approval_summary"`
}

// AnnouncementListRequest describes list filters.
type AnnouncementListRequest struct {
	Status     []string `json:"status"`
	CustomerID string   `json:"customer_id"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
}
