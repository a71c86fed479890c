package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswindow/opswindow-api/internal/models"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/notify"
)

type stubRecipientStore struct {
	recipients []models.Recipient
	pending    []models.Recipient

	mu       sync.Mutex
	notified []string
}

func (s *stubRecipientStore) ListByAnnouncement(context.Context, string) ([]models.Recipient, error) {
	return s.recipients, nil
}

func (s *stubRecipientStore) ListPendingNotified(context.Context, string) ([]models.Recipient, error) {
	return s.pending, nil
}

func (s *stubRecipientStore) MarkNotified(_ context.Context, _, customerID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified = append(s.notified, customerID)
	return nil
}

type stubContactStore struct {
	contacts map[string][]models.CustomerContact
}

func (s *stubContactStore) ListContacts(_ context.Context, customerID string) ([]models.CustomerContact, error) {
	return s.contacts[customerID], nil
}

type stubDispatcher struct {
	configured bool
	failFor    map[string]bool

	mu   sync.Mutex
	sent []notify.Summary
}

func (s *stubDispatcher) IsConfigured() bool { return s.configured }

func (s *stubDispatcher) Send(_ context.Context, contact notify.Contact, summary notify.Summary) error {
	if s.failFor[contact.Endpoint] {
		return errors.New("endpoint refused")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, summary)
	return nil
}

type stubLifecycle struct {
	dispatched []string
}

func (s *stubLifecycle) MarkDispatched(_ context.Context, id, _ string) error {
	s.dispatched = append(s.dispatched, id)
	return nil
}

type stubTokenIssuer struct{}

func (stubTokenIssuer) IssueApprovalToken(announcementID, customerID string, _ time.Duration) (string, error) {
	return announcementID + "." + customerID, nil
}

func contact(customerID string) models.CustomerContact {
	return models.CustomerContact{
		CustomerID: customerID,
		Endpoint:   "https://push.example.com/" + customerID,
		P256dh:     "key",
		Auth:       "auth",
	}
}

func scheduledAnnouncement() *models.Announcement {
	a := draftAnnouncement()
	a.Status = models.StatusScheduled
	return a
}

func newNotificationService(repo *stubAnnouncementRepo, recipients *stubRecipientStore, contacts *stubContactStore, dispatcher *stubDispatcher, lifecycle *stubLifecycle, activity *stubActivityLog) *NotificationService {
	return NewNotificationService(repo, recipients, contacts, dispatcher, lifecycle, activity, stubTokenIssuer{},
		nil, "https://status.example.com", time.Hour, 2, nil)
}

func TestDispatchNotifiesPendingRecipients(t *testing.T) {
	repo := &stubAnnouncementRepo{announcement: scheduledAnnouncement()}
	recipients := &stubRecipientStore{recipients: []models.Recipient{
		{CustomerID: "cus-1", Status: models.RecipientPending},
		{CustomerID: "cus-2", Status: models.RecipientPending},
	}}
	contacts := &stubContactStore{contacts: map[string][]models.CustomerContact{
		"cus-1": {contact("cus-1")},
		"cus-2": {contact("cus-2")},
	}}
	dispatcher := &stubDispatcher{configured: true}
	lifecycle := &stubLifecycle{}
	activity := &stubActivityLog{}
	svc := newNotificationService(repo, recipients, contacts, dispatcher, lifecycle, activity)

	result, err := svc.Dispatch(context.Background(), "ann-1", nil, "ops@example.com")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Zero(t, result.Failed)
	assert.ElementsMatch(t, []string{"cus-1", "cus-2"}, recipients.notified)
	assert.Equal(t, []string{"ann-1"}, lifecycle.dispatched)
	assert.Len(t, activity.entries, 2)
	for _, summary := range dispatcher.sent {
		assert.True(t, strings.HasPrefix(summary.ApprovalURL, "https://status.example.com/approvals/"))
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	repo := &stubAnnouncementRepo{announcement: scheduledAnnouncement()}
	recipients := &stubRecipientStore{recipients: []models.Recipient{
		{CustomerID: "cus-1", Status: models.RecipientPending},
		{CustomerID: "cus-2", Status: models.RecipientPending},
	}}
	contacts := &stubContactStore{contacts: map[string][]models.CustomerContact{
		"cus-1": {contact("cus-1")},
		"cus-2": {contact("cus-2")},
	}}
	dispatcher := &stubDispatcher{configured: true, failFor: map[string]bool{"https://push.example.com/cus-2": true}}
	lifecycle := &stubLifecycle{}
	svc := newNotificationService(repo, recipients, contacts, dispatcher, lifecycle, &stubActivityLog{})

	result, err := svc.Dispatch(context.Background(), "ann-1", nil, "ops@example.com")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"cus-1"}, recipients.notified)
	assert.Equal(t, []string{"ann-1"}, lifecycle.dispatched)
}

func TestDispatchFailsWithoutContacts(t *testing.T) {
	repo := &stubAnnouncementRepo{announcement: scheduledAnnouncement()}
	recipients := &stubRecipientStore{recipients: []models.Recipient{
		{CustomerID: "cus-1", Status: models.RecipientPending},
	}}
	dispatcher := &stubDispatcher{configured: true}
	lifecycle := &stubLifecycle{}
	svc := newNotificationService(repo, recipients, &stubContactStore{}, dispatcher, lifecycle, &stubActivityLog{})

	result, err := svc.Dispatch(context.Background(), "ann-1", nil, "ops@example.com")

	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, lifecycle.dispatched)
}

func TestDispatchRejectsNonRecipient(t *testing.T) {
	repo := &stubAnnouncementRepo{announcement: scheduledAnnouncement()}
	recipients := &stubRecipientStore{recipients: []models.Recipient{
		{CustomerID: "cus-1", Status: models.RecipientPending},
	}}
	svc := newNotificationService(repo, recipients, &stubContactStore{}, &stubDispatcher{configured: true}, &stubLifecycle{}, &stubActivityLog{})

	_, err := svc.Dispatch(context.Background(), "ann-1", []string{"cus-9"}, "ops@example.com")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDispatchRefusedForTerminalAnnouncement(t *testing.T) {
	announcement := scheduledAnnouncement()
	announcement.Status = models.StatusCancelled
	repo := &stubAnnouncementRepo{announcement: announcement}
	svc := newNotificationService(repo, &stubRecipientStore{}, &stubContactStore{}, &stubDispatcher{configured: true}, &stubLifecycle{}, &stubActivityLog{})

	_, err := svc.Dispatch(context.Background(), "ann-1", nil, "ops@example.com")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestDispatchRequiresConfiguredChannel(t *testing.T) {
	repo := &stubAnnouncementRepo{announcement: scheduledAnnouncement()}
	svc := newNotificationService(repo, &stubRecipientStore{}, &stubContactStore{}, &stubDispatcher{configured: false}, &stubLifecycle{}, &stubActivityLog{})

	_, err := svc.Dispatch(context.Background(), "ann-1", nil, "ops@example.com")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDependencyFailure.Code, appErrors.FromError(err).Code)
}

func TestRemindTargetsPendingNotifiedOnly(t *testing.T) {
	now := time.Now()
	repo := &stubAnnouncementRepo{announcement: scheduledAnnouncement()}
	recipients := &stubRecipientStore{pending: []models.Recipient{
		{CustomerID: "cus-1", Status: models.RecipientPending, NotifiedAt: &now},
	}}
	contacts := &stubContactStore{contacts: map[string][]models.CustomerContact{
		"cus-1": {contact("cus-1")},
	}}
	dispatcher := &stubDispatcher{configured: true}
	lifecycle := &stubLifecycle{}
	activity := &stubActivityLog{}
	svc := newNotificationService(repo, recipients, contacts, dispatcher, lifecycle, activity)

	result, err := svc.Remind(context.Background(), "ann-1", "ops@example.com")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Empty(t, recipients.notified)
	assert.Empty(t, lifecycle.dispatched)
	require.Len(t, dispatcher.sent, 1)
	assert.True(t, dispatcher.sent[0].Reminder)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, models.ActivityReminded, activity.entries[0].Action)
}

func TestRemindNoPendingIsNoop(t *testing.T) {
	repo := &stubAnnouncementRepo{announcement: scheduledAnnouncement()}
	dispatcher := &stubDispatcher{configured: true}
	svc := newNotificationService(repo, &stubRecipientStore{}, &stubContactStore{}, dispatcher, &stubLifecycle{}, &stubActivityLog{})

	result, err := svc.Remind(context.Background(), "ann-1", "ops@example.com")

	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Empty(t, dispatcher.sent)
}
