package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const jobTimeout = 2 * time.Minute

// DailyCloser runs the end-of-day close.
type DailyCloser interface {
	Run(ctx context.Context, now time.Time) (models.DailyReport, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	closer   DailyCloser
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a new scheduler instance. The schedule is a standard five-field
// cron expression evaluated in loc.
func NewScheduler(schedule string, loc *time.Location, closer DailyCloser, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		closer:   closer,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the daily close and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runDailyClose); err != nil {
		return fmt.Errorf("schedule daily close %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyClose() {
	s.logger.Info("running daily close")
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := s.closer.Run(ctx, s.now())
	if err != nil {
		s.logger.Error("daily close failed", zap.Error(err))
		return
	}
	s.logger.Info("daily close sent", zap.Time("date", report.Date))
}
