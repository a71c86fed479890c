package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/opswindow/opswindow-api/internal/models"
)

const announcementColumns = `id, title, description, maintenance_type, affected_systems, start_at, end_at, status,
require_approval, approval_deadline, auto_proceed, deadline_elapsed_at, internal_notes, created_by, created_at, updated_at`

// AnnouncementRepository provides persistence for maintenance announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create inserts a new announcement in draft state.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	if announcement.Status == "" {
		announcement.Status = models.StatusDraft
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	announcement.UpdatedAt = now
	query := `INSERT INTO announcements (id, title, description, maintenance_type, affected_systems, start_at, end_at, status,
require_approval, approval_deadline, auto_proceed, internal_notes, created_by, created_at, updated_at)
VALUES (:id, :title, :description, :maintenance_type, :affected_systems, :start_at, :end_at, :status,
:require_approval, :approval_deadline, :auto_proceed, :internal_notes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// GetByID returns an announcement by identifier.
func (r *AnnouncementRepository) GetByID(ctx context.Context, id string) (*models.Announcement, error) {
	query := fmt.Sprintf("SELECT %s FROM announcements WHERE id = $1", announcementColumns)
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		return nil, err
	}
	return &announcement, nil
}

// List returns announcements matching the filter (latest window first).
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statuses))
	}
	if filter.CustomerID != "" {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM announcement_recipients r WHERE r.announcement_id = announcements.id AND r.customer_id = $%d)",
			len(args)+1))
		args = append(args, filter.CustomerID)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM announcements WHERE %s
ORDER BY start_at DESC, created_at DESC
LIMIT %d OFFSET %d`, announcementColumns, whereClause, size, offset)
	var announcements []models.Announcement
	if err := r.db.SelectContext(ctx, &announcements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list announcements: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM announcements WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count announcements: %w", err)
	}
	return announcements, total, nil
}

// Update modifies the editable fields of an announcement. Status moves only
// through TransitionStatus.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	query := `UPDATE announcements SET title = :title, description = :description, maintenance_type = :maintenance_type,
affected_systems = :affected_systems, start_at = :start_at, end_at = :end_at, require_approval = :require_approval,
approval_deadline = :approval_deadline, auto_proceed = :auto_proceed, internal_notes = :internal_notes, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// TransitionStatus moves the announcement to a new lifecycle status as one
// atomic step: the row is locked, the current status is checked against the
// permitted source set, and the activity entry is written in the same
// transaction. Returns ErrStatusNotAllowed when the current status is not in
// from, or sql.ErrNoRows when the announcement does not exist.
func (r *AnnouncementRepository) TransitionStatus(ctx context.Context, id string, from []models.AnnouncementStatus, to models.AnnouncementStatus, actor string) (announcement *models.Announcement, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Announcement
	lockQuery := fmt.Sprintf("SELECT %s FROM announcements WHERE id = $1 FOR UPDATE", announcementColumns)
	if err = tx.GetContext(ctx, &current, lockQuery, id); err != nil {
		return nil, err
	}

	allowed := false
	for _, status := range from {
		if current.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		err = fmt.Errorf("%w: %s -> %s", ErrStatusNotAllowed, current.Status, to)
		return nil, err
	}

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, "UPDATE announcements SET status = $1, updated_at = $2 WHERE id = $3", to, now, id); err != nil {
		return nil, fmt.Errorf("update announcement status: %w", err)
	}

	oldStatus := string(current.Status)
	newStatus := string(to)
	if err = insertActivity(ctx, tx, &models.ActivityEntry{
		AnnouncementID: id,
		Action:         models.ActivityStatusChanged,
		Actor:          actor,
		OldValue:       &oldStatus,
		NewValue:       &newStatus,
		CreatedAt:      now,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status transition: %w", err)
	}

	current.Status = to
	current.UpdatedAt = now
	return &current, nil
}

// DeleteDraft removes an announcement and, via cascading foreign keys, its
// recipients and activity log. Only draft announcements are deletable;
// ErrNotDraft is returned otherwise.
func (r *AnnouncementRepository) DeleteDraft(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin announcement delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var status models.AnnouncementStatus
	if err = tx.GetContext(ctx, &status, "SELECT status FROM announcements WHERE id = $1 FOR UPDATE", id); err != nil {
		return err
	}
	if status != models.StatusDraft {
		err = fmt.Errorf("%w: status is %s", ErrNotDraft, status)
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM announcements WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit announcement delete: %w", err)
	}
	return nil
}

// ClaimDeadlineElapsed stamps deadline_elapsed_at on every announcement whose
// approval deadline has passed with auto-proceed set and pending recipients
// remaining, and returns the claimed rows. The stamp makes the claim
// idempotent across watcher runs.
func (r *AnnouncementRepository) ClaimDeadlineElapsed(ctx context.Context, now time.Time) ([]models.Announcement, error) {
	query := fmt.Sprintf(`UPDATE announcements SET deadline_elapsed_at = $1, updated_at = $1
WHERE require_approval AND auto_proceed
  AND approval_deadline IS NOT NULL AND approval_deadline <= $1
  AND deadline_elapsed_at IS NULL
  AND status IN ('SCHEDULED', 'SENT')
  AND EXISTS (SELECT 1 FROM announcement_recipients r WHERE r.announcement_id = announcements.id AND r.status = 'PENDING')
RETURNING %s`, announcementColumns)
	var claimed []models.Announcement
	if err := r.db.SelectContext(ctx, &claimed, query, now); err != nil {
		return nil, fmt.Errorf("claim elapsed deadlines: %w", err)
	}
	return claimed, nil
}
