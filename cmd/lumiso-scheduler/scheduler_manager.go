package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/downloads"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/reminders"
)

type Schedules struct {
	Reminders       string
	DownloadJobs    string
	DownloadCleanup string
}

// SchedulerManager runs the periodic work: due session reminders, pending
// download jobs and expired job cleanup. One tick of each never overlaps
// with itself; cron skips a run while the previous one is still going.
type SchedulerManager struct {
	logger            *slog.Logger
	reminderProcessor *reminders.Processor
	downloadProcessor *downloads.Processor
	schedules         Schedules
	cron              *cron.Cron
}

func NewSchedulerManager(
	logger *slog.Logger,
	reminderProcessor *reminders.Processor,
	downloadProcessor *downloads.Processor,
	schedules Schedules,
) *SchedulerManager {
	return &SchedulerManager{
		logger:            logger.With("module", "lumiso-scheduler"),
		reminderProcessor: reminderProcessor,
		downloadProcessor: downloadProcessor,
		schedules:         schedules,
	}
}

func (s *SchedulerManager) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := s.cron.AddFunc(s.schedules.Reminders, func() {
		s.runReminders(ctx)
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(s.schedules.DownloadJobs, func() {
		s.runDownloadJobs(ctx)
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(s.schedules.DownloadCleanup, func() {
		s.runDownloadCleanup(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started",
		"reminders", s.schedules.Reminders,
		"download_jobs", s.schedules.DownloadJobs,
		"download_cleanup", s.schedules.DownloadCleanup)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	s.logger.InfoContext(ctx, "Shutting down scheduler...")

	<-s.cron.Stop().Done()

	return nil
}

func (s *SchedulerManager) runReminders(ctx context.Context) {
	result, err := s.reminderProcessor.Run(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Reminder run failed", "error", err)

		return
	}

	if result.Processed > 0 {
		s.logger.InfoContext(ctx, "Reminder run finished",
			"processed", result.Processed,
			"triggered", result.Triggered,
			"failed", result.Failed)
	}
}

func (s *SchedulerManager) runDownloadJobs(ctx context.Context) {
	processed, err := s.downloadProcessor.ProcessPending(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Download job run failed", "error", err)

		return
	}

	if processed > 0 {
		s.logger.InfoContext(ctx, "Download job run finished", "processed", processed)
	}
}

func (s *SchedulerManager) runDownloadCleanup(ctx context.Context) {
	cleaned, err := s.downloadProcessor.CleanupExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Download cleanup failed", "error", err)

		return
	}

	if cleaned > 0 {
		s.logger.InfoContext(ctx, "Download cleanup finished", "cleaned", cleaned)
	}
}
