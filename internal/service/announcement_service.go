package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opswindow/opswindow-api/internal/dto"
	"github.com/opswindow/opswindow-api/internal/models"
	"github.com/opswindow/opswindow-api/internal/repository"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
	"github.com/opswindow/opswindow-api/pkg/export"
)

type announcementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	Update(ctx context.Context, announcement *models.Announcement) error
	TransitionStatus(ctx context.Context, id string, from []models.AnnouncementStatus, to models.AnnouncementStatus, actor string) (*models.Announcement, error)
	DeleteDraft(ctx context.Context, id string) error
}

type announcementRecipients interface {
	AddRecipients(ctx context.Context, announcementID string, customerIDs []string) error
	ListByAnnouncement(ctx context.Context, announcementID string) ([]models.Recipient, error)
}

type activityLog interface {
	Create(ctx context.Context, entry *models.ActivityEntry) error
	ListByAnnouncement(ctx context.Context, announcementID string) ([]models.ActivityEntry, error)
}

type detailCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

// transitionSources maps each operator-reachable target status to the
// statuses a manual transition may start from. DRAFT is absent: nothing moves
// back into draft. SENT is absent too: it is entered only through
// MarkDispatched once a notification batch has actually gone out.
var transitionSources = map[models.AnnouncementStatus][]models.AnnouncementStatus{
	models.StatusScheduled:  {models.StatusDraft},
	models.StatusInProgress: {models.StatusScheduled, models.StatusSent},
	models.StatusCompleted:  {models.StatusInProgress},
	models.StatusCancelled:  {models.StatusDraft, models.StatusScheduled, models.StatusSent, models.StatusInProgress},
}

func knownStatus(status models.AnnouncementStatus) bool {
	switch status {
	case models.StatusDraft, models.StatusScheduled, models.StatusSent, models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
		return true
	default:
		return false
	}
}

// AnnouncementService owns the announcement lifecycle and the aggregate read
// model. Pending approvals never block IN_PROGRESS or COMPLETED: the operator
// override for urgent work is deliberate.
type AnnouncementService struct {
	repo       announcementRepository
	recipients announcementRecipients
	activity   activityLog
	cache      detailCache
	cacheTTL   time.Duration
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAnnouncementService constructs the service and registers the custom
// payload validations.
func NewAnnouncementService(repo announcementRepository, recipients announcementRecipients, activity activityLog, cache detailCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{
		repo:       repo,
		recipients: recipients,
		activity:   activity,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
	svc.validator.RegisterValidation("maintenance_type", func(fl validator.FieldLevel) bool {
		switch models.MaintenanceType(strings.ToUpper(fl.Field().String())) {
		case models.MaintenancePatch, models.MaintenanceReboot, models.MaintenanceSecurityUpdate, models.MaintenanceFirmware, models.MaintenanceGeneral:
			return true
		default:
			return false
		}
	})
	svc.validator.RegisterValidation("lifecycle_status", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementStatus(strings.ToUpper(fl.Field().String())) {
		case models.StatusDraft, models.StatusScheduled, models.StatusSent, models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
			return true
		default:
			return false
		}
	})
	return svc
}

// Create registers a new announcement in draft state with its recipient set.
func (s *AnnouncementService) Create(ctx context.Context, req dto.CreateAnnouncementRequest, actor string) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if err := validateWindow(req.StartAt, req.EndAt, req.RequireApproval, req.ApprovalDeadline, req.AutoProceed); err != nil {
		return nil, err
	}

	announcement := &models.Announcement{
		Title:            req.Title,
		Description:      req.Description,
		MaintenanceType:  models.MaintenanceType(strings.ToUpper(req.MaintenanceType)),
		AffectedSystems:  req.AffectedSystems,
		StartAt:          req.StartAt,
		EndAt:            req.EndAt,
		Status:           models.StatusDraft,
		RequireApproval:  req.RequireApproval,
		ApprovalDeadline: req.ApprovalDeadline,
		AutoProceed:      req.AutoProceed,
		InternalNotes:    req.InternalNotes,
		CreatedBy:        actor,
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	if err := s.recipients.AddRecipients(ctx, announcement.ID, req.CustomerIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach recipients")
	}
	if err := s.activity.Create(ctx, &models.ActivityEntry{
		AnnouncementID: announcement.ID,
		Action:         models.ActivityCreated,
		Actor:          actor,
	}); err != nil {
		s.logger.Warn("failed to record creation activity", zap.String("announcement_id", announcement.ID), zap.Error(err))
	}
	return announcement, nil
}

// Update modifies an announcement while it is still mutable.
func (s *AnnouncementService) Update(ctx context.Context, id string, req dto.UpdateAnnouncementRequest, actor string) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if err := validateWindow(req.StartAt, req.EndAt, req.RequireApproval, req.ApprovalDeadline, req.AutoProceed); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if !existing.Status.Mutable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("announcement is not editable in status %s", existing.Status))
	}

	existing.Title = req.Title
	existing.Description = req.Description
	existing.MaintenanceType = models.MaintenanceType(strings.ToUpper(req.MaintenanceType))
	existing.AffectedSystems = req.AffectedSystems
	existing.StartAt = req.StartAt
	existing.EndAt = req.EndAt
	existing.RequireApproval = req.RequireApproval
	existing.ApprovalDeadline = req.ApprovalDeadline
	existing.AutoProceed = req.AutoProceed
	existing.InternalNotes = req.InternalNotes

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	if err := s.activity.Create(ctx, &models.ActivityEntry{
		AnnouncementID: id,
		Action:         models.ActivityUpdated,
		Actor:          actor,
	}); err != nil {
		s.logger.Warn("failed to record update activity", zap.String("announcement_id", id), zap.Error(err))
	}
	s.invalidate(ctx, id)
	return existing, nil
}

// Get returns the full read model for one announcement, served from the
// detail cache when warm.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*dto.AnnouncementDetail, error) {
	key := repository.AnnouncementDetailKey(id)
	if s.cache != nil {
		var cached dto.AnnouncementDetail
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	recipients, err := s.recipients.ListByAnnouncement(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recipients")
	}
	entries, err := s.activity.ListByAnnouncement(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity log")
	}

	detail := &dto.AnnouncementDetail{
		Announcement:    *announcement,
		Recipients:      recipients,
		ActivityLog:     entries,
		ApprovalSummary: models.Summarize(announcement.RequireApproval, recipients),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, detail, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache announcement detail", zap.String("announcement_id", id), zap.Error(err))
		}
	}
	return detail, nil
}

// List returns announcements with pagination.
func (s *AnnouncementService) List(ctx context.Context, req dto.AnnouncementListRequest) ([]models.Announcement, *models.Pagination, error) {
	filter := models.AnnouncementFilter{
		CustomerID: req.CustomerID,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	for _, raw := range req.Status {
		status := models.AnnouncementStatus(strings.ToUpper(raw))
		if !knownStatus(status) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status filter %q", raw))
		}
		filter.Status = append(filter.Status, status)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return rows, pagination, nil
}

// UpdateStatus performs an operator lifecycle transition.
func (s *AnnouncementService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor string) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	target := models.AnnouncementStatus(strings.ToUpper(req.Status))
	if target == models.StatusSent {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "SENT is entered by dispatching notifications, not by a manual transition")
	}
	sources, ok := transitionSources[target]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("no transition leads to %s", target))
	}
	if target == models.StatusScheduled {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
		}
		if existing.Title == "" || existing.StartAt.IsZero() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "scheduling requires a title and a start time")
		}
	}

	announcement, err := s.repo.TransitionStatus(ctx, id, sources, target, actor)
	if err != nil {
		return nil, s.mapTransitionError(err, target)
	}

	s.metrics.IncTransition(string(target))
	s.invalidate(ctx, id)
	return announcement, nil
}

// MarkDispatched moves a draft or scheduled announcement to SENT after the
// first successful notification dispatch. Announcements already at SENT or
// beyond are left alone, so repeated dispatch batches stay idempotent.
func (s *AnnouncementService) MarkDispatched(ctx context.Context, id, actor string) error {
	_, err := s.repo.TransitionStatus(ctx, id, []models.AnnouncementStatus{models.StatusDraft, models.StatusScheduled}, models.StatusSent, actor)
	if err != nil {
		if errors.Is(err, repository.ErrStatusNotAllowed) {
			return nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark announcement sent")
	}
	s.metrics.IncTransition(string(models.StatusSent))
	s.invalidate(ctx, id)
	return nil
}

// Delete removes a draft announcement together with its recipients and trail.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		if errors.Is(err, repository.ErrNotDraft) {
			return appErrors.Clone(appErrors.ErrInvalidTransition, "only draft announcements can be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	s.invalidate(ctx, id)
	return nil
}

// BuildApprovalReport assembles the export dataset for one announcement.
func (s *AnnouncementService) BuildApprovalReport(ctx context.Context, id string) (export.Dataset, *models.Announcement, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return export.Dataset{}, nil, err
	}

	dataset := export.Dataset{Headers: []string{"Customer", "Status", "Notified", "Responded", "Reason"}}
	for _, recipient := range detail.Recipients {
		row := map[string]string{
			"Customer":  recipient.CustomerName,
			"Status":    string(recipient.Status),
			"Notified":  formatTime(recipient.NotifiedAt),
			"Responded": formatTime(recipient.RespondedAt),
			"Reason":    "",
		}
		if recipient.RejectionReason != nil {
			row["Reason"] = *recipient.RejectionReason
		}
		if !detail.Announcement.RequireApproval {
			row["Status"] = "APPROVED (implicit)"
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset, &detail.Announcement, nil
}

func (s *AnnouncementService) mapTransitionError(err error, target models.AnnouncementStatus) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	if errors.Is(err, repository.ErrStatusNotAllowed) {
		return appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status,
			fmt.Sprintf("cannot transition to %s", target))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
}

func (s *AnnouncementService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Delete(ctx, repository.AnnouncementDetailKey(id))
	}
}

func validateWindow(startAt time.Time, endAt *time.Time, requireApproval bool, deadline *time.Time, autoProceed bool) error {
	if endAt != nil && !endAt.After(startAt) {
		return appErrors.Clone(appErrors.ErrValidation, "end_at must be after start_at")
	}
	if deadline != nil && !requireApproval {
		return appErrors.Clone(appErrors.ErrValidation, "approval_deadline requires require_approval")
	}
	if autoProceed && !requireApproval {
		return appErrors.Clone(appErrors.ErrValidation, "auto_proceed requires require_approval")
	}
	if deadline != nil && deadline.After(startAt) {
		return appErrors.Clone(appErrors.ErrValidation, "approval_deadline must not be after start_at")
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
