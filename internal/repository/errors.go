package repository

import "errors"

// Sentinel errors surfaced by state-changing repository operations. Services
// translate these into the API error taxonomy.
var (
	// ErrStatusNotAllowed is returned when the locked announcement row is not
	// in any of the statuses a transition may start from.
	ErrStatusNotAllowed = errors.New("status transition not allowed")

	// ErrNotDraft is returned when deleting an announcement that already left
	// the draft state.
	ErrNotDraft = errors.New("announcement is not in draft")

	// ErrAnnouncementFinalized is returned when a recipient operation targets
	// a completed or cancelled announcement.
	ErrAnnouncementFinalized = errors.New("announcement is finalized")

	// ErrRecipientNotPending is returned when approving or rejecting a
	// recipient that already responded.
	ErrRecipientNotPending = errors.New("recipient is not pending")
)
