package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opswindow/opswindow-api/internal/models"
)

const recipientColumns = `r.id, r.announcement_id, r.customer_id, c.name AS customer_name, r.status,
r.notified_at, r.responded_at, r.responded_by, r.rejection_reason, r.created_at`

// RecipientRepository persists the per-customer approval ledger.
type RecipientRepository struct {
	db *sqlx.DB
}

// NewRecipientRepository constructs the repository.
func NewRecipientRepository(db *sqlx.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// AddRecipients attaches customers to an announcement in pending state.
// Existing (announcement, customer) pairs are left untouched.
func (r *RecipientRepository) AddRecipients(ctx context.Context, announcementID string, customerIDs []string) error {
	if len(customerIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	const query = `INSERT INTO announcement_recipients (id, announcement_id, customer_id, status, created_at)
VALUES ($1, $2, $3, 'PENDING', $4)
ON CONFLICT (announcement_id, customer_id) DO NOTHING`
	for _, customerID := range customerIDs {
		if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), announcementID, customerID, now); err != nil {
			return fmt.Errorf("add recipient %s: %w", customerID, err)
		}
	}
	return nil
}

// ListByAnnouncement returns all recipients with customer names resolved.
func (r *RecipientRepository) ListByAnnouncement(ctx context.Context, announcementID string) ([]models.Recipient, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcement_recipients r
JOIN customers c ON c.id = r.customer_id
WHERE r.announcement_id = $1 ORDER BY c.name ASC`, recipientColumns)
	var recipients []models.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query, announcementID); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	return recipients, nil
}

// GetByPair returns the recipient row for one (announcement, customer) pair.
func (r *RecipientRepository) GetByPair(ctx context.Context, announcementID, customerID string) (*models.Recipient, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcement_recipients r
JOIN customers c ON c.id = r.customer_id
WHERE r.announcement_id = $1 AND r.customer_id = $2`, recipientColumns)
	var recipient models.Recipient
	if err := r.db.GetContext(ctx, &recipient, query, announcementID, customerID); err != nil {
		return nil, err
	}
	return &recipient, nil
}

// ListPendingNotified returns recipients eligible for a reminder: still
// pending and already notified at least once.
func (r *RecipientRepository) ListPendingNotified(ctx context.Context, announcementID string) ([]models.Recipient, error) {
	query := fmt.Sprintf(`SELECT %s FROM announcement_recipients r
JOIN customers c ON c.id = r.customer_id
WHERE r.announcement_id = $1 AND r.status = 'PENDING' AND r.notified_at IS NOT NULL
ORDER BY c.name ASC`, recipientColumns)
	var recipients []models.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query, announcementID); err != nil {
		return nil, fmt.Errorf("list pending notified recipients: %w", err)
	}
	return recipients, nil
}

// MarkNotified stamps the first-notification timestamp for a recipient.
// Reminders keep the original timestamp. Returns sql.ErrNoRows when the pair
// does not exist.
func (r *RecipientRepository) MarkNotified(ctx context.Context, announcementID, customerID string, at time.Time) error {
	const query = `UPDATE announcement_recipients SET notified_at = COALESCE(notified_at, $3)
WHERE announcement_id = $1 AND customer_id = $2`
	result, err := r.db.ExecContext(ctx, query, announcementID, customerID, at)
	if err != nil {
		return fmt.Errorf("mark recipient notified: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark recipient notified: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Approve moves a recipient from pending to approved in one transaction that
// also guards the parent announcement. Sentinels: sql.ErrNoRows (pair or
// announcement missing), ErrAnnouncementFinalized, ErrRecipientNotPending.
func (r *RecipientRepository) Approve(ctx context.Context, announcementID, customerID, actor string) (*models.Recipient, error) {
	return r.respond(ctx, announcementID, customerID, actor, models.RecipientApproved, nil)
}

// Reject is symmetric to Approve and additionally stores the reason.
func (r *RecipientRepository) Reject(ctx context.Context, announcementID, customerID, actor, reason string) (*models.Recipient, error) {
	return r.respond(ctx, announcementID, customerID, actor, models.RecipientRejected, &reason)
}

func (r *RecipientRepository) respond(ctx context.Context, announcementID, customerID, actor string, to models.RecipientStatus, reason *string) (recipient *models.Recipient, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approval transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var parentStatus models.AnnouncementStatus
	if err = tx.GetContext(ctx, &parentStatus, "SELECT status FROM announcements WHERE id = $1 FOR UPDATE", announcementID); err != nil {
		return nil, err
	}
	if parentStatus.Terminal() {
		err = fmt.Errorf("%w: status is %s", ErrAnnouncementFinalized, parentStatus)
		return nil, err
	}

	var current models.Recipient
	const lockQuery = `SELECT id, announcement_id, customer_id, status, notified_at, responded_at, responded_by, rejection_reason, created_at
FROM announcement_recipients WHERE announcement_id = $1 AND customer_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &current, lockQuery, announcementID, customerID); err != nil {
		return nil, err
	}
	if current.Status != models.RecipientPending {
		err = fmt.Errorf("%w: status is %s", ErrRecipientNotPending, current.Status)
		return nil, err
	}

	now := time.Now().UTC()
	const updateQuery = `UPDATE announcement_recipients
SET status = $1, responded_at = $2, responded_by = $3, rejection_reason = $4
WHERE id = $5`
	if _, err = tx.ExecContext(ctx, updateQuery, to, now, actor, reason, current.ID); err != nil {
		return nil, fmt.Errorf("update recipient status: %w", err)
	}

	action := models.ActivityApproved
	if to == models.RecipientRejected {
		action = models.ActivityRejected
	}
	oldStatus := string(models.RecipientPending)
	newStatus := string(to)
	if err = insertActivity(ctx, tx, &models.ActivityEntry{
		AnnouncementID: announcementID,
		Action:         action,
		Actor:          actor,
		OldValue:       &oldStatus,
		NewValue:       &newStatus,
		CreatedAt:      now,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval transaction: %w", err)
	}

	current.Status = to
	current.RespondedAt = &now
	current.RespondedBy = &actor
	current.RejectionReason = reason
	return &current, nil
}
