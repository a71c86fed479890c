package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type deadlineProcessor interface {
	Process(ctx context.Context) (int, error)
}

// DeadlineWatcher runs the approval deadline sweep on a cron schedule.
type DeadlineWatcher struct {
	engine    *cron.Cron
	deadlines deadlineProcessor
	spec      string
	logger    *zap.Logger
}

// NewDeadlineWatcher builds the watcher. The schedule accepts standard cron
// syntax or the descriptors cron/v3 understands, e.g. "@every 5m".
func NewDeadlineWatcher(deadlines deadlineProcessor, spec string, logger *zap.Logger) *DeadlineWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineWatcher{
		engine:    cron.New(cron.WithLocation(time.UTC)),
		deadlines: deadlines,
		spec:      spec,
		logger:    logger,
	}
}

// Start registers the sweep job and starts the cron engine.
func (w *DeadlineWatcher) Start() error {
	_, err := w.engine.AddFunc(w.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		count, err := w.deadlines.Process(ctx)
		if err != nil {
			w.logger.Error("deadline sweep failed", zap.Error(err))
			return
		}
		if count > 0 {
			w.logger.Info("deadline sweep finished", zap.Int("elapsed", count))
		}
	})
	if err != nil {
		return err
	}
	w.engine.Start()
	w.logger.Info("deadline watcher started", zap.String("spec", w.spec))
	return nil
}

// Stop halts the cron engine and waits for a running sweep to finish.
func (w *DeadlineWatcher) Stop() {
	ctx := w.engine.Stop()
	<-ctx.Done()
	w.logger.Info("deadline watcher stopped")
}
