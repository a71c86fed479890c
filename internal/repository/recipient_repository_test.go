package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/opswindow/opswindow-api/internal/models"
)

func recipientLockRows(status models.RecipientStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "announcement_id", "customer_id", "status", "notified_at", "responded_at", "responded_by", "rejection_reason", "created_at",
	}).AddRow("rec-1", "ann-1", "cus-1", status, nil, nil, nil, nil, time.Now())
}

func TestRecipientRepositoryAddRecipients(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO announcement_recipients")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO announcement_recipients")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.AddRecipients(context.Background(), "ann-1", []string{"cus-1", "cus-2"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryAddRecipientsEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	require.NoError(t, repo.AddRecipients(context.Background(), "ann-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryMarkNotifiedKeepsFirstTimestamp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("SET notified_at = COALESCE(notified_at, $3)")).
		WithArgs("ann-1", "cus-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkNotified(context.Background(), "ann-1", "cus-1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryMarkNotifiedMissingPair(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	at := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("SET notified_at = COALESCE(notified_at, $3)")).
		WithArgs("ann-1", "cus-9", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkNotified(context.Background(), "ann-1", "cus-9", at)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryApprove(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM announcements WHERE id = $1 FOR UPDATE")).
		WithArgs("ann-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("SENT"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM announcement_recipients WHERE announcement_id = $1 AND customer_id = $2 FOR UPDATE")).
		WithArgs("ann-1", "cus-1").
		WillReturnRows(recipientLockRows(models.RecipientPending))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE announcement_recipients")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	recipient, err := repo.Approve(context.Background(), "ann-1", "cus-1", "jane@acme.example")
	require.NoError(t, err)
	require.Equal(t, models.RecipientApproved, recipient.Status)
	require.NotNil(t, recipient.RespondedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryApproveAlreadyDecided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM announcements WHERE id = $1 FOR UPDATE")).
		WithArgs("ann-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("SENT"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM announcement_recipients WHERE announcement_id = $1 AND customer_id = $2 FOR UPDATE")).
		WithArgs("ann-1", "cus-1").
		WillReturnRows(recipientLockRows(models.RecipientRejected))
	mock.ExpectRollback()

	_, err := repo.Approve(context.Background(), "ann-1", "cus-1", "jane@acme.example")
	require.ErrorIs(t, err, ErrRecipientNotPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryRejectOnFinalizedAnnouncement(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM announcements WHERE id = $1 FOR UPDATE")).
		WithArgs("ann-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))
	mock.ExpectRollback()

	_, err := repo.Reject(context.Background(), "ann-1", "cus-1", "jane@acme.example", "too risky")
	require.ErrorIs(t, err, ErrAnnouncementFinalized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryRejectStoresReason(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM announcements WHERE id = $1 FOR UPDATE")).
		WithArgs("ann-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("SENT"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM announcement_recipients WHERE announcement_id = $1 AND customer_id = $2 FOR UPDATE")).
		WithArgs("ann-1", "cus-1").
		WillReturnRows(recipientLockRows(models.RecipientPending))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE announcement_recipients")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_log")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	recipient, err := repo.Reject(context.Background(), "ann-1", "cus-1", "jane@acme.example", "conflicts with billing run")
	require.NoError(t, err)
	require.Equal(t, models.RecipientRejected, recipient.Status)
	require.NotNil(t, recipient.RejectionReason)
	require.Equal(t, "conflicts with billing run", *recipient.RejectionReason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientRepositoryListPendingNotified(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRecipientRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "announcement_id", "customer_id", "customer_name", "status", "notified_at", "responded_at", "responded_by", "rejection_reason", "created_at",
	}).AddRow("rec-1", "ann-1", "cus-1", "Acme", "PENDING", now, nil, nil, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("r.status = 'PENDING' AND r.notified_at IS NOT NULL")).
		WithArgs("ann-1").
		WillReturnRows(rows)

	recipients, err := repo.ListPendingNotified(context.Background(), "ann-1")
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	require.Equal(t, "Acme", recipients[0].CustomerName)
	require.NoError(t, mock.ExpectationsWereMet())
}
