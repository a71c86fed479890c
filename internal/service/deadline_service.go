package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opswindow/opswindow-api/internal/models"
	"github.com/opswindow/opswindow-api/internal/repository"
	appErrors "github.com/opswindow/opswindow-api/pkg/errors"
)

type deadlineClaimer interface {
	ClaimDeadlineElapsed(ctx context.Context, now time.Time) ([]models.Announcement, error)
}

// DeadlineService sweeps announcements whose approval deadline passed with
// responses still outstanding. The sweep only records the deadline_elapsed
// event; it never moves the lifecycle, leaving the go or no-go call with the
// operator.
type DeadlineService struct {
	claimer  deadlineClaimer
	activity activityLog
	cache    detailCache
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewDeadlineService constructs the sweep.
func NewDeadlineService(claimer deadlineClaimer, activity activityLog, cache detailCache, metrics *MetricsService, logger *zap.Logger) *DeadlineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{
		claimer:  claimer,
		activity: activity,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Process claims announcements with an elapsed deadline and records the event
// for each. The claim stamps deadline_elapsed_at in the same statement, so
// overlapping sweeps never double-report.
func (s *DeadlineService) Process(ctx context.Context) (int, error) {
	claimed, err := s.claimer.ClaimDeadlineElapsed(ctx, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim elapsed deadlines")
	}
	for _, announcement := range claimed {
		if err := s.activity.Create(ctx, &models.ActivityEntry{
			AnnouncementID: announcement.ID,
			Action:         models.ActivityDeadlineElapsed,
			Actor:          "system",
		}); err != nil {
			s.logger.Warn("failed to record deadline event", zap.String("announcement_id", announcement.ID), zap.Error(err))
		}
		if s.cache != nil {
			s.cache.Delete(ctx, repository.AnnouncementDetailKey(announcement.ID))
		}
		s.logger.Info("approval deadline elapsed",
			zap.String("announcement_id", announcement.ID),
			zap.String("title", announcement.Title))
	}
	if len(claimed) > 0 {
		s.metrics.AddDeadlinesElapsed(len(claimed))
	}
	return len(claimed), nil
}
