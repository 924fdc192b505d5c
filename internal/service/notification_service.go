package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	"github.com/noah-isme/boutique-booking-api/pkg/config"
	"github.com/noah-isme/boutique-booking-api/pkg/jobs"
)

// Sender delivers a single notification over a concrete channel. Email and
// SMS transports live behind this boundary; the core only requests delivery.
type Sender interface {
	Send(ctx context.Context, kind models.NotificationKind, snapshot models.AppointmentSnapshot) error
}

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	UpdateStatus(ctx context.Context, id string, status models.NotificationStatus, detail string) error
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error)
}

type notificationPayload struct {
	recordID string
	kind     models.NotificationKind
	snapshot models.AppointmentSnapshot
}

// NotificationService records outbound notification requests and hands them
// to a worker pool for delivery. Request never fails the caller: by the time
// it runs, the state change that produced the notification has committed.
type NotificationService struct {
	store  notificationStore
	sender Sender
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the dispatcher with its worker queue.
func NewNotificationService(store notificationStore, sender Sender, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{store: store, sender: sender, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.dispatch, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return svc
}

// Start boots the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Request records the outbound event and schedules delivery before
// returning. Delivery itself is asynchronous; enqueue or storage failures
// are logged and never surfaced to the caller.
func (s *NotificationService) Request(ctx context.Context, kind models.NotificationKind, snapshot models.AppointmentSnapshot) {
	record := &models.Notification{
		AppointmentID: snapshot.AppointmentID,
		Kind:          kind,
		Recipient:     snapshot.CustomerEmail,
	}
	if err := s.store.Create(ctx, record); err != nil {
		s.logger.Sugar().Errorw("failed to record outbound notification",
			"appointment_id", snapshot.AppointmentID, "kind", kind, "error", err)
	}

	err := s.queue.Enqueue(jobs.Job{
		ID:      record.ID,
		Type:    string(kind),
		Payload: notificationPayload{recordID: record.ID, kind: kind, snapshot: snapshot},
	})
	if err != nil {
		s.logger.Sugar().Errorw("failed to enqueue notification",
			"appointment_id", snapshot.AppointmentID, "kind", kind, "error", err)
		s.markOutcome(ctx, record.ID, models.NotificationStatusFailed, err.Error())
	}
}

// ListByAppointment exposes the outbound history for staff views.
func (s *NotificationService) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error) {
	return s.store.ListByAppointment(ctx, appointmentID)
}

func (s *NotificationService) dispatch(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationPayload)
	if !ok {
		s.logger.Sugar().Errorw("notification job carried unexpected payload", "job_id", job.ID)
		return nil
	}

	if err := s.sender.Send(ctx, payload.kind, payload.snapshot); err != nil {
		// Delivery failures are terminal for the record: it stays FAILED and
		// is never redelivered automatically. Staff resend by acting on the
		// appointment again.
		s.markOutcome(ctx, payload.recordID, models.NotificationStatusFailed, err.Error())
		s.logger.Sugar().Warnw("notification delivery failed",
			"appointment_id", payload.snapshot.AppointmentID, "kind", payload.kind, "error", err)
		return nil
	}

	s.markOutcome(ctx, payload.recordID, models.NotificationStatusSent, "")
	return nil
}

func (s *NotificationService) markOutcome(ctx context.Context, id string, status models.NotificationStatus, detail string) {
	if id == "" {
		return
	}
	if err := s.store.UpdateStatus(ctx, id, status, detail); err != nil {
		s.logger.Sugar().Warnw("failed to record notification outcome", "notification_id", id, "error", err)
	}
}

// LogSender is the default Sender: it only logs the request. Real transports
// replace it at wiring time.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a logging sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the notification request.
func (s *LogSender) Send(_ context.Context, kind models.NotificationKind, snapshot models.AppointmentSnapshot) error {
	s.logger.Sugar().Infow("notification dispatched",
		"kind", kind,
		"appointment_id", snapshot.AppointmentID,
		"recipient", snapshot.CustomerEmail,
		"starts_at", snapshot.DatetimeStart,
	)
	return nil
}
