package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/models"
	"github.com/opswindow/opswindow-api/internal/repository"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
)

type approvalTokenParser interface {
	ParseApprovalToken(token string) (*models.ApprovalClaims, error)
}

type approvalLedger interface {
	GetByPair(ctx context.Context, announcementID, customerID string) (*models.Recipient, error)
	Approve(ctx context.Context, announcementID, customerID, actor string) (*models.Recipient, error)
	Reject(ctx context.Context, announcementID, customerID, actor, reason string) (*models.Recipient, error)
}

// ApprovalService handles the customer-facing approval link flow. Every
// operation starts from an opaque token; the service never trusts IDs sent by
// the customer directly.
type ApprovalService struct {
	tokens        approvalTokenParser
	ledger        approvalLedger
	announcements announcementLookup
	cache         detailCache
	metrics       *MetricsService
	logger        *zap.Logger
}

// NewApprovalService wires the approval link flow.
func NewApprovalService(tokens approvalTokenParser, ledger approvalLedger, announcements announcementLookup, cache detailCache, metrics *MetricsService, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		tokens:        tokens,
		ledger:        ledger,
		announcements: announcements,
		cache:         cache,
		metrics:       metrics,
		logger:        logger,
	}
}

// View resolves an approval token into what the customer may see.
func (s *ApprovalService) View(ctx context.Context, token string) (*dto.ApprovalView, error) {
	_, recipient, announcement, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	return &dto.ApprovalView{
		AnnouncementID:   announcement.ID,
		Title:            announcement.Title,
		Description:      announcement.Description,
		MaintenanceType:  announcement.MaintenanceType,
		AffectedSystems:  announcement.AffectedSystems,
		StartAt:          announcement.StartAt,
		EndAt:            announcement.EndAt,
		ApprovalDeadline: announcement.ApprovalDeadline,
		Status:           recipient.Status,
		RespondedAt:      recipient.RespondedAt,
		RejectionReason:  recipient.RejectionReason,
		Lifecycle:        announcement.Status,
	}, nil
}

// Approve records the customer's approval.
func (s *ApprovalService) Approve(ctx context.Context, token, actor string) (*models.Recipient, error) {
	claims, _, _, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	recipient, err := s.ledger.Approve(ctx, claims.AnnouncementID, claims.CustomerID, actorOrDefault(actor, claims.CustomerID))
	if err != nil {
		return nil, s.mapLedgerError(err)
	}
	s.metrics.IncApproval("approved")
	s.invalidate(ctx, claims.AnnouncementID)
	return recipient, nil
}

// Reject records the customer's rejection with its mandatory reason.
func (s *ApprovalService) Reject(ctx context.Context, token, actor, reason string) (*models.Recipient, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}
	claims, _, _, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	recipient, err := s.ledger.Reject(ctx, claims.AnnouncementID, claims.CustomerID, actorOrDefault(actor, claims.CustomerID), reason)
	if err != nil {
		return nil, s.mapLedgerError(err)
	}
	s.metrics.IncApproval("rejected")
	s.invalidate(ctx, claims.AnnouncementID)
	return recipient, nil
}

func (s *ApprovalService) resolve(ctx context.Context, token string) (*models.ApprovalClaims, *models.Recipient, *models.Announcement, error) {
	claims, err := s.tokens.ParseApprovalToken(token)
	if err != nil {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "approval link is invalid or expired")
	}
	recipient, err := s.ledger.GetByPair(ctx, claims.AnnouncementID, claims.CustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "approval record not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load approval record")
	}
	announcement, err := s.announcements.GetByID(ctx, claims.AnnouncementID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return claims, recipient, announcement, nil
}

func (s *ApprovalService) mapLedgerError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "approval record not found")
	case errors.Is(err, repository.ErrRecipientNotPending):
		return appErrors.Wrap(err, appErrors.ErrInvalidState.Code, appErrors.ErrInvalidState.Status, "this approval has already been decided")
	case errors.Is(err, repository.ErrAnnouncementFinalized):
		return appErrors.Wrap(err, appErrors.ErrInvalidState.Code, appErrors.ErrInvalidState.Status, "the announcement is closed and no longer accepts responses")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record response")
	}
}

func (s *ApprovalService) invalidate(ctx context.Context, announcementID string) {
	if s.cache != nil {
		s.cache.Delete(ctx, repository.AnnouncementDetailKey(announcementID))
	}
}

func actorOrDefault(actor, fallback string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return fallback
	}
	return actor
}
