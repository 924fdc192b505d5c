package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	"github.com/noah-isme/boutique-booking-api/pkg/config"
)

type reminderRepository interface {
	ListDueForReminder(ctx context.Context, windowStart, windowEnd time.Time, marker string) ([]models.Appointment, error)
	MarkReminderSent(ctx context.Context, id, marker string) error
}

// ReminderService sweeps for appointments crossing the configured
// time-before-start thresholds and requests one notification per
// (appointment, threshold) pair. The marker is written after the dispatch
// call returns, success or failure, so a broken transport can never cause a
// retry storm: the trade-off is send-at-most-once.
type ReminderService struct {
	repo     reminderRepository
	notifier notificationDispatcher
	metrics  *MetricsService
	cfg      config.RemindersConfig
	logger   *zap.Logger
}

// NewReminderService constructs the sweep service.
func NewReminderService(repo reminderRepository, notifier notificationDispatcher, metrics *MetricsService, cfg config.RemindersConfig, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 15 * time.Minute
	}
	return &ReminderService{repo: repo, notifier: notifier, metrics: metrics, cfg: cfg, logger: logger}
}

// RunSweep processes every configured threshold once for the given instant
// and returns how many reminders were requested. Thresholds are independent;
// an appointment can match 24h and 2h in different sweeps. Re-running the
// sweep for the same instant requests nothing new.
func (s *ReminderService) RunSweep(ctx context.Context, now time.Time) (int, error) {
	requested := 0
	var firstErr error

	for _, threshold := range s.cfg.Thresholds {
		marker := ReminderMarker(threshold)
		windowStart := now.Add(threshold - s.cfg.Tolerance)
		windowEnd := now.Add(threshold)

		due, err := s.repo.ListDueForReminder(ctx, windowStart, windowEnd, marker)
		if err != nil {
			s.logger.Sugar().Errorw("reminder sweep query failed", "threshold", threshold.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		kind := ReminderKind(threshold)
		for i := range due {
			appt := due[i]
			s.notifier.Request(ctx, kind, models.SnapshotOf(&appt))

			// Mark regardless of the dispatch outcome; the dispatch call has
			// returned and this threshold must never fire twice.
			if err := s.repo.MarkReminderSent(ctx, appt.ID, marker); err != nil {
				s.logger.Sugar().Errorw("failed to mark reminder sent",
					"appointment_id", appt.ID, "marker", marker, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			requested++
			s.metrics.RecordReminderSent(marker)
		}
	}
	return requested, firstErr
}

// Start boots a goroutine that runs the sweep on a fixed interval until the
// context is cancelled.
func (s *ReminderService) Start(ctx context.Context) {
	if !s.cfg.Enabled || s.cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.SweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunSweep(ctx, time.Now().UTC()); err != nil {
					s.logger.Sugar().Warnw("reminder sweep finished with errors", "error", err)
				}
			}
		}
	}()
}

// ReminderMarker derives the reminder-state marker for a threshold,
// SENT_24H for 24h and SENT_90M for sub-hour offsets.
func ReminderMarker(threshold time.Duration) string {
	return "SENT_" + thresholdLabel(threshold)
}

// ReminderKind derives the notification kind for a threshold.
func ReminderKind(threshold time.Duration) models.NotificationKind {
	return models.NotificationKind("REMINDER_" + thresholdLabel(threshold))
}

func thresholdLabel(threshold time.Duration) string {
	if threshold%time.Hour == 0 {
		return fmt.Sprintf("%dH", int(threshold/time.Hour))
	}
	return fmt.Sprintf("%dM", int(threshold/time.Minute))
}
