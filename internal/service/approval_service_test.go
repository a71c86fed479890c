package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswindow/opswindow-api/internal/models"
	"github.com/opswindow/opswindow-api/internal/repository"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
)

type stubTokenParser struct {
	claims *models.ApprovalClaims
	err    error
}

func (s *stubTokenParser) ParseApprovalToken(string) (*models.ApprovalClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

type stubLedger struct {
	recipient  *models.Recipient
	approveErr error
	rejectErr  error

	approvedBy string
	rejectedBy string
	reason     string
}

func (s *stubLedger) GetByPair(context.Context, string, string) (*models.Recipient, error) {
	return s.recipient, nil
}

func (s *stubLedger) Approve(_ context.Context, _, _, actor string) (*models.Recipient, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	s.approvedBy = actor
	out := *s.recipient
	out.Status = models.RecipientApproved
	return &out, nil
}

func (s *stubLedger) Reject(_ context.Context, _, _, actor, reason string) (*models.Recipient, error) {
	if s.rejectErr != nil {
		return nil, s.rejectErr
	}
	s.rejectedBy = actor
	s.reason = reason
	out := *s.recipient
	out.Status = models.RecipientRejected
	out.RejectionReason = &reason
	return &out, nil
}

func approvalFixture() (*stubTokenParser, *stubLedger, *stubAnnouncementRepo) {
	parser := &stubTokenParser{claims: &models.ApprovalClaims{AnnouncementID: "ann-1", CustomerID: "cus-1"}}
	ledger := &stubLedger{recipient: &models.Recipient{
		AnnouncementID: "ann-1",
		CustomerID:     "cus-1",
		Status:         models.RecipientPending,
	}}
	announcement := draftAnnouncement()
	announcement.Status = models.StatusSent
	repo := &stubAnnouncementRepo{announcement: announcement}
	return parser, ledger, repo
}

func TestApprovalView(t *testing.T) {
	parser, ledger, repo := approvalFixture()
	svc := NewApprovalService(parser, ledger, repo, &stubCache{}, nil, nil)

	view, err := svc.View(context.Background(), "token")

	require.NoError(t, err)
	assert.Equal(t, "ann-1", view.AnnouncementID)
	assert.Equal(t, models.RecipientPending, view.Status)
	assert.Equal(t, models.StatusSent, view.Lifecycle)
	assert.Empty(t, view.RejectionReason)
}

func TestApprovalViewInvalidToken(t *testing.T) {
	parser := &stubTokenParser{err: appErrors.ErrUnauthorized}
	svc := NewApprovalService(parser, &stubLedger{}, &stubAnnouncementRepo{}, &stubCache{}, nil, nil)

	_, err := svc.View(context.Background(), "garbage")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestApproveRecordsResponse(t *testing.T) {
	parser, ledger, repo := approvalFixture()
	cache := &stubCache{}
	svc := NewApprovalService(parser, ledger, repo, cache, nil, nil)

	recipient, err := svc.Approve(context.Background(), "token", "jane@acme.example")

	require.NoError(t, err)
	assert.Equal(t, models.RecipientApproved, recipient.Status)
	assert.Equal(t, "jane@acme.example", ledger.approvedBy)
	assert.Contains(t, cache.deleted, repository.AnnouncementDetailKey("ann-1"))
}

func TestApproveDefaultsActorToCustomer(t *testing.T) {
	parser, ledger, repo := approvalFixture()
	svc := NewApprovalService(parser, ledger, repo, &stubCache{}, nil, nil)

	_, err := svc.Approve(context.Background(), "token", "  ")

	require.NoError(t, err)
	assert.Equal(t, "cus-1", ledger.approvedBy)
}

func TestApproveAlreadyDecided(t *testing.T) {
	parser, ledger, repo := approvalFixture()
	ledger.approveErr = repository.ErrRecipientNotPending
	svc := NewApprovalService(parser, ledger, repo, &stubCache{}, nil, nil)

	_, err := svc.Approve(context.Background(), "token", "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestRejectRequiresReason(t *testing.T) {
	parser, ledger, repo := approvalFixture()
	svc := NewApprovalService(parser, ledger, repo, &stubCache{}, nil, nil)

	_, err := svc.Reject(context.Background(), "token", "", "   ")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRejectRecordsReason(t *testing.T) {
	parser, ledger, repo := approvalFixture()
	svc := NewApprovalService(parser, ledger, repo, &stubCache{}, nil, nil)

	recipient, err := svc.Reject(context.Background(), "token", "jane@acme.example", "conflicts with billing run")

	require.NoError(t, err)
	assert.Equal(t, models.RecipientRejected, recipient.Status)
	assert.Equal(t, "conflicts with billing run", ledger.reason)
}

func TestRejectOnFinalizedAnnouncement(t *testing.T) {
	parser, ledger, repo := approvalFixture()
	ledger.rejectErr = repository.ErrAnnouncementFinalized
	svc := NewApprovalService(parser, ledger, repo, &stubCache{}, nil, nil)

	_, err := svc.Reject(context.Background(), "token", "", "too risky")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

type stubDeadlineClaimer struct {
	claimed []models.Announcement
	err     error
}

func (s *stubDeadlineClaimer) ClaimDeadlineElapsed(context.Context, time.Time) ([]models.Announcement, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.claimed, nil
}

func TestDeadlineProcessRecordsEvents(t *testing.T) {
	claimer := &stubDeadlineClaimer{claimed: []models.Announcement{
		{ID: "ann-1", Title: "Database patching"},
		{ID: "ann-2", Title: "Firmware rollout"},
	}}
	activity := &stubActivityLog{}
	cache := &stubCache{}
	svc := NewDeadlineService(claimer, activity, cache, nil, nil)

	count, err := svc.Process(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, activity.entries, 2)
	assert.Equal(t, models.ActivityDeadlineElapsed, activity.entries[0].Action)
	assert.Equal(t, "system", activity.entries[0].Actor)
	assert.Len(t, cache.deleted, 2)
}

func TestDeadlineProcessNothingClaimed(t *testing.T) {
	svc := NewDeadlineService(&stubDeadlineClaimer{}, &stubActivityLog{}, &stubCache{}, nil, nil)

	count, err := svc.Process(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
}
