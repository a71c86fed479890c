package models

import "time"

// Activity action constants recorded against announcements.
const (
	ActivityCreated         = "CREATED"
	ActivityUpdated         = "UPDATED"
	ActivityNotified        = "NOTIFIED"
	ActivityReminded        = "REMINDED"
	ActivityApproved        = "APPROVED"
	ActivityRejected        = "REJECTED"
	ActivityStatusChanged   = "STATUS_CHANGED"
	ActivityDeadlineElapsed = "DEADLINE_ELAPSED"
)

// ActivityEntry is one append-only audit record for an announcement. Entries
// are never mutated or deleted once written.
type ActivityEntry struct {
	ID             string    `db:"id" json:"id"`
	AnnouncementID string    `db:"announcement_id" json:"announcement_id"`
	Action         string    `db:"action" json:"action"`
	Actor          string    `db:"actor" json:"actor"`
	OldValue       *string   `db:"old_value" json:"old_value,omitempty"`
	NewValue       *string   `db:"new_value" json:"new_value,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
