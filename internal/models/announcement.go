package models

import "time"

// AnnouncementStatus is the lifecycle state of a maintenance announcement.
type AnnouncementStatus string

const (
	StatusDraft      AnnouncementStatus = "DRAFT"
	StatusScheduled  AnnouncementStatus = "SCHEDULED"
	StatusSent       AnnouncementStatus = "SENT"
	StatusInProgress AnnouncementStatus = "IN_PROGRESS"
	StatusCompleted  AnnouncementStatus = "COMPLETED"
	StatusCancelled  AnnouncementStatus = "CANCELLED"
)

// Terminal reports whether no further lifecycle transition is permitted.
func (s AnnouncementStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Mutable reports whether announcement fields may still be edited.
func (s AnnouncementStatus) Mutable() bool {
	return s == StatusDraft || s == StatusScheduled || s == StatusSent
}

// MaintenanceType selects the default template text for an announcement.
type MaintenanceType string

const (
	MaintenancePatch          MaintenanceType = "PATCH"
	MaintenanceReboot         MaintenanceType = "REBOOT"
	MaintenanceSecurityUpdate MaintenanceType = "SECURITY_UPDATE"
	MaintenanceFirmware       MaintenanceType = "FIRMWARE"
	MaintenanceGeneral        MaintenanceType = "GENERAL"
)

// Announcement represents a planned maintenance window communicated to customers.
type Announcement struct {
	ID                string             `db:"id" json:"id"`
	Title             string             `db:"title" json:"title"`
	Description       string             `db:"description" json:"description"`
	MaintenanceType   MaintenanceType    `db:"maintenance_type" json:"maintenance_type"`
	AffectedSystems   string             `db:"affected_systems" json:"affected_systems"`
	StartAt           time.Time          `db:"start_at" json:"start_at"`
	EndAt             *time.Time         `db:"end_at" json:"end_at,omitempty"`
	Status            AnnouncementStatus `db:"status" json:"status"`
	RequireApproval   bool               `db:"require_approval" json:"require_approval"`
	ApprovalDeadline  *time.Time         `db:"approval_deadline" json:"approval_deadline,omitempty"`
	AutoProceed       bool               `db:"auto_proceed" json:"auto_proceed"`
	DeadlineElapsedAt *time.Time         `db:"deadline_elapsed_at" json:"deadline_elapsed_at,omitempty"`
	InternalNotes     string             `db:"internal_notes" json:"internal_notes,omitempty"`
	CreatedBy         string             `db:"created_by" json:"created_by"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter narrows announcement listings.
type AnnouncementFilter struct {
	Status     []AnnouncementStatus
	CustomerID string
	Page       int
	PageSize   int
}

// RecipientStatus is the per-customer approval state for one announcement.
type RecipientStatus string

const (
	RecipientPending  RecipientStatus = "PENDING"
	RecipientApproved RecipientStatus = "APPROVED"
	RecipientRejected RecipientStatus = "REJECTED"
)

// Recipient joins one announcement with one customer's approval record.
type Recipient struct {
	ID              string          `db:"id" json:"id"`
	AnnouncementID  string          `db:"announcement_id" json:"announcement_id"`
	CustomerID      string          `db:"customer_id" json:"customer_id"`
	CustomerName    string          `db:"customer_name" json:"customer_name"`
	Status          RecipientStatus `db:"status" json:"status"`
	NotifiedAt      *time.Time      `db:"notified_at" json:"notified_at,omitempty"`
	RespondedAt     *time.Time      `db:"responded_at" json:"responded_at,omitempty"`
	RespondedBy     *string         `db:"responded_by" json:"responded_by,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// ApprovalSummary aggregates recipient states for one announcement. When
// approval is not required every recipient is reported as implicitly approved
// without touching the ledger rows.
type ApprovalSummary struct {
	Required bool `json:"required"`
	Total    int  `json:"total"`
	Approved int  `json:"approved"`
	Rejected int  `json:"rejected"`
	Pending  int  `json:"pending"`
}

// Summarize computes the approval summary for a recipient set.
func Summarize(required bool, recipients []Recipient) ApprovalSummary {
	summary := ApprovalSummary{Required: required, Total: len(recipients)}
	if !required {
		summary.Approved = len(recipients)
		return summary
	}
	for _, r := range recipients {
		switch r.Status {
		case RecipientApproved:
			summary.Approved++
		case RecipientRejected:
			summary.Rejected++
		default:
			summary.Pending++
		}
	}
	return summary
}
