package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/autoorder/autoorder/pkg/storage"
)

// retention is how long generated files stay on disk before the nightly
// cleanup removes them.
const retention = 7 * 24 * time.Hour

// Scheduler manages background jobs: nightly cleanup of generated files
// and any recurring order sends registered at wire-up.
type Scheduler struct {
	cron   *cron.Cron
	store  storage.Storage
	mailer *Mailer
	logger *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(store storage.Storage, mailer *Mailer, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:   c,
		store:  store,
		mailer: mailer,
		logger: logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Stored file cleanup: runs daily at 3:00 AM
	if s.store != nil {
		if _, err := s.cron.AddFunc("0 3 * * *", s.purgeStoredFiles); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// AddRecurringSend registers a cron-scheduled order send. next builds the
// order at fire time so the attachment is always the latest generated file.
func (s *Scheduler) AddRecurringSend(schedule string, next func(ctx context.Context) (Order, error)) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		order, err := next(ctx)
		if err != nil {
			s.logger.Error("failed to prepare recurring order", slog.Any("error", err))
			return
		}
		if err := s.mailer.SendOrder(ctx, order); err != nil {
			s.logger.Error("failed to send recurring order", slog.Any("error", err))
		}
	})
	return err
}

// purgeStoredFiles removes uploads and generated workbooks past retention.
func (s *Scheduler) purgeStoredFiles() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	purged, err := s.store.Purge(ctx, retention)
	if err != nil {
		s.logger.Error("stored file cleanup failed", slog.Any("error", err))
		return
	}
	if purged > 0 {
		s.logger.Info("stored file cleanup finished", slog.Int("purged", purged))
	}
}
