package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opswindow/opswindow-api/internal/models"
)

// ActivityRepository persists the append-only activity trail. There are no
// update or delete operations on purpose.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends one activity entry.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityEntry) error {
	return insertActivity(ctx, r.db, entry)
}

// ListByAnnouncement returns the trail oldest first.
func (r *ActivityRepository) ListByAnnouncement(ctx context.Context, announcementID string) ([]models.ActivityEntry, error) {
	const query = `SELECT id, announcement_id, action, actor, old_value, new_value, created_at
FROM activity_log WHERE announcement_id = $1 ORDER BY created_at ASC`
	var entries []models.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, announcementID); err != nil {
		return nil, fmt.Errorf("list activity log: %w", err)
	}
	return entries, nil
}

// insertActivity writes an activity entry using whichever executor the caller
// holds, allowing repositories to append entries inside their own transactions.
func insertActivity(ctx context.Context, ext sqlx.ExtContext, entry *models.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activity_log (id, announcement_id, action, actor, old_value, new_value, created_at)
VALUES (:id, :announcement_id, :action, :actor, :old_value, :new_value, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}
