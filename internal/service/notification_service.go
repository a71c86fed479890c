package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/models"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/fanout"
	"github.com/opswindow/opswindow-api/pkg/notify"
)

type recipientStore interface {
	ListByAnnouncement(ctx context.Context, announcementID string) ([]models.Recipient, error)
	ListPendingNotified(ctx context.Context, announcementID string) ([]models.Recipient, error)
	MarkNotified(ctx context.Context, announcementID, customerID string, at time.Time) error
}

type contactStore interface {
	ListContacts(ctx context.Context, customerID string) ([]models.CustomerContact, error)
}

type announcementLookup interface {
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
}

type dispatchLifecycle interface {
	MarkDispatched(ctx context.Context, id, actor string) error
}

type approvalTokenIssuer interface {
	IssueApprovalToken(announcementID, customerID string, ttl time.Duration) (string, error)
}

// NotificationService fans a maintenance summary out to recipient contacts.
// Failures never abort the batch; each recipient succeeds or fails on its own.
type NotificationService struct {
	announcements announcementLookup
	recipients    recipientStore
	contacts      contactStore
	dispatcher    notify.Dispatcher
	lifecycle     dispatchLifecycle
	activity      activityLog
	tokens        approvalTokenIssuer
	metrics       *MetricsService
	linkBaseURL   string
	tokenTTL      time.Duration
	concurrency   int
	logger        *zap.Logger
}

// NewNotificationService wires the dispatcher to the recipient ledger.
func NewNotificationService(announcements announcementLookup, recipients recipientStore, contacts contactStore, dispatcher notify.Dispatcher, lifecycle dispatchLifecycle, activity activityLog, tokens approvalTokenIssuer, metrics *MetricsService, linkBaseURL string, tokenTTL time.Duration, concurrency int, logger *zap.Logger) *NotificationService {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		announcements: announcements,
		recipients:    recipients,
		contacts:      contacts,
		dispatcher:    dispatcher,
		lifecycle:     lifecycle,
		activity:      activity,
		tokens:        tokens,
		metrics:       metrics,
		linkBaseURL:   linkBaseURL,
		tokenTTL:      tokenTTL,
		concurrency:   concurrency,
		logger:        logger,
	}
}

// Dispatch sends the maintenance summary to the selected recipients. An empty
// customer list targets every recipient not yet notified. After the first
// successful delivery the announcement moves to SENT.
func (s *NotificationService) Dispatch(ctx context.Context, announcementID string, customerIDs []string, actor string) (*dto.DispatchResult, error) {
	announcement, targets, err := s.resolveTargets(ctx, announcementID, customerIDs)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return &dto.DispatchResult{}, nil
	}

	result, delivered := s.deliver(ctx, announcement, targets, false)

	now := time.Now().UTC()
	for _, recipient := range delivered {
		if err := s.recipients.MarkNotified(ctx, announcementID, recipient.CustomerID, now); err != nil {
			s.logger.Warn("failed to mark recipient notified",
				zap.String("announcement_id", announcementID),
				zap.String("customer_id", recipient.CustomerID),
				zap.Error(err))
		}
		if err := s.activity.Create(ctx, &models.ActivityEntry{
			AnnouncementID: announcementID,
			Action:         models.ActivityNotified,
			Actor:          actor,
			NewValue:       strPtr(recipient.CustomerID),
		}); err != nil {
			s.logger.Warn("failed to record notification activity", zap.String("announcement_id", announcementID), zap.Error(err))
		}
	}

	if result.Sent > 0 {
		if err := s.lifecycle.MarkDispatched(ctx, announcementID, actor); err != nil {
			s.logger.Warn("failed to advance announcement after dispatch", zap.String("announcement_id", announcementID), zap.Error(err))
		}
	}
	return result, nil
}

// Remind re-notifies recipients that were notified but have not responded.
// Reminders never touch notified_at or the lifecycle status.
func (s *NotificationService) Remind(ctx context.Context, announcementID, actor string) (*dto.DispatchResult, error) {
	announcement, err := s.loadDispatchable(ctx, announcementID)
	if err != nil {
		return nil, err
	}
	targets, err := s.recipients.ListPendingNotified(ctx, announcementID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending recipients")
	}
	if len(targets) == 0 {
		return &dto.DispatchResult{}, nil
	}

	result, reminded := s.deliver(ctx, announcement, targets, true)
	for _, recipient := range reminded {
		if err := s.activity.Create(ctx, &models.ActivityEntry{
			AnnouncementID: announcementID,
			Action:         models.ActivityReminded,
			Actor:          actor,
			NewValue:       strPtr(recipient.CustomerID),
		}); err != nil {
			s.logger.Warn("failed to record reminder activity", zap.String("announcement_id", announcementID), zap.Error(err))
		}
	}
	return result, nil
}

func (s *NotificationService) resolveTargets(ctx context.Context, announcementID string, customerIDs []string) (*models.Announcement, []models.Recipient, error) {
	announcement, err := s.loadDispatchable(ctx, announcementID)
	if err != nil {
		return nil, nil, err
	}

	all, err := s.recipients.ListByAnnouncement(ctx, announcementID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipients")
	}

	if len(customerIDs) == 0 {
		var targets []models.Recipient
		for _, r := range all {
			if r.NotifiedAt == nil {
				targets = append(targets, r)
			}
		}
		return announcement, targets, nil
	}

	byCustomer := make(map[string]models.Recipient, len(all))
	for _, r := range all {
		byCustomer[r.CustomerID] = r
	}
	targets := make([]models.Recipient, 0, len(customerIDs))
	for _, id := range customerIDs {
		recipient, ok := byCustomer[id]
		if !ok {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("customer %s is not a recipient of this announcement", id))
		}
		targets = append(targets, recipient)
	}
	return announcement, targets, nil
}

func (s *NotificationService) loadDispatchable(ctx context.Context, announcementID string) (*models.Announcement, error) {
	announcement, err := s.announcements.GetByID(ctx, announcementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if announcement.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("announcement is %s and can no longer be dispatched", announcement.Status))
	}
	if s.dispatcher == nil || !s.dispatcher.IsConfigured() {
		return nil, appErrors.Clone(appErrors.ErrDependencyFailure, "notification channel is not configured")
	}
	return announcement, nil
}

// deliver pushes to every contact of every target recipient and returns the
// batch tally plus the recipients with at least one successful delivery.
func (s *NotificationService) deliver(ctx context.Context, announcement *models.Announcement, targets []models.Recipient, reminder bool) (*dto.DispatchResult, []models.Recipient) {
	var mu sync.Mutex
	var delivered []models.Recipient

	kind := "initial"
	if reminder {
		kind = "reminder"
	}

	tasks := make([]fanout.Task, len(targets))
	for i, recipient := range targets {
		recipient := recipient
		tasks[i] = func(ctx context.Context) error {
			summary, err := s.buildSummary(announcement, recipient, reminder)
			if err != nil {
				return err
			}
			contacts, err := s.contacts.ListContacts(ctx, recipient.CustomerID)
			if err != nil {
				return fmt.Errorf("list contacts for %s: %w", recipient.CustomerID, err)
			}
			if len(contacts) == 0 {
				return fmt.Errorf("customer %s has no registered contacts", recipient.CustomerID)
			}

			ok := false
			for _, contact := range contacts {
				err := s.dispatcher.Send(ctx, notify.Contact{
					Endpoint: contact.Endpoint,
					P256dh:   contact.P256dh,
					Auth:     contact.Auth,
				}, summary)
				if err != nil {
					s.logger.Warn("push delivery failed",
						zap.String("announcement_id", announcement.ID),
						zap.String("customer_id", recipient.CustomerID),
						zap.String("contact", contact.Label),
						zap.Error(err))
					continue
				}
				ok = true
			}
			if !ok {
				return fmt.Errorf("no contact of customer %s accepted the notification", recipient.CustomerID)
			}
			mu.Lock()
			delivered = append(delivered, recipient)
			mu.Unlock()
			return nil
		}
	}

	errs := fanout.Run(ctx, tasks, s.concurrency)
	result := &dto.DispatchResult{}
	for _, err := range errs {
		if err != nil {
			result.Failed++
			s.metrics.IncNotification(false, reminder)
			continue
		}
		result.Sent++
		s.metrics.IncNotification(true, reminder)
	}
	s.logger.Info("notification batch finished",
		zap.String("announcement_id", announcement.ID),
		zap.String("kind", kind),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, delivered
}

func (s *NotificationService) buildSummary(announcement *models.Announcement, recipient models.Recipient, reminder bool) (notify.Summary, error) {
	summary := notify.Summary{
		Title:           announcement.Title,
		Body:            announcement.Description,
		MaintenanceType: string(announcement.MaintenanceType),
		AffectedSystems: announcement.AffectedSystems,
		StartAt:         announcement.StartAt,
		Reminder:        reminder,
	}
	if announcement.EndAt != nil {
		summary.EndAt = *announcement.EndAt
	}
	if announcement.RequireApproval && s.tokens != nil {
		token, err := s.tokens.IssueApprovalToken(announcement.ID, recipient.CustomerID, s.approvalTokenTTL(announcement))
		if err != nil {
			return notify.Summary{}, fmt.Errorf("issue approval token: %w", err)
		}
		summary.ApprovalURL = fmt.Sprintf("%s/approvals/%s", s.linkBaseURL, token)
	}
	return summary, nil
}

// approvalTokenTTL keeps approval links alive until the deadline when one is
// set, with the configured TTL as floor so late reminders still resolve.
func (s *NotificationService) approvalTokenTTL(announcement *models.Announcement) time.Duration {
	ttl := s.tokenTTL
	if announcement.ApprovalDeadline != nil {
		if until := time.Until(*announcement.ApprovalDeadline); until > ttl {
			ttl = until
		}
	}
	return ttl
}

func strPtr(s string) *string {
	return &s
}
