package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type reportCleaner interface {
	Cleanup(ttl time.Duration) ([]string, error)
}

// ReportJanitor removes expired report files from the archive on a cron
// schedule. A zero ttl hands the retention decision to the cleaner.
type ReportJanitor struct {
	engine  *cron.Cron
	reports reportCleaner
	spec    string
	logger  *zap.Logger
}

// NewReportJanitor builds the janitor.
func NewReportJanitor(reports reportCleaner, spec string, logger *zap.Logger) *ReportJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportJanitor{
		engine:  cron.New(cron.WithLocation(time.UTC)),
		reports: reports,
		spec:    spec,
		logger:  logger,
	}
}

// Start registers the cleanup job and starts the cron engine.
func (j *ReportJanitor) Start() error {
	_, err := j.engine.AddFunc(j.spec, func() {
		if _, err := j.reports.Cleanup(0); err != nil {
			j.logger.Error("report cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	j.engine.Start()
	j.logger.Info("report janitor started", zap.String("spec", j.spec))
	return nil
}

// Stop halts the cron engine and waits for a running cleanup to finish.
func (j *ReportJanitor) Stop() {
	ctx := j.engine.Stop()
	<-ctx.Done()
	j.logger.Info("report janitor stopped")
}
