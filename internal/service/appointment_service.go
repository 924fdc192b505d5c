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

	"github.com/noah-isme/boutique-booking-api/internal/models"
	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
)

type appointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	UpdateStatus(ctx context.Context, appt *models.Appointment) error
	Reschedule(ctx context.Context, appt *models.Appointment) error
	UpdateAssignee(ctx context.Context, id string, userID *string) error
}

type calendarProjector interface {
	OnAppointmentCreated(ctx context.Context, appt *models.Appointment) error
	OnAppointmentWindowChanged(ctx context.Context, appt *models.Appointment) error
	OnAppointmentTerminated(ctx context.Context, appt *models.Appointment) error
}

type notificationDispatcher interface {
	Request(ctx context.Context, kind models.NotificationKind, snapshot models.AppointmentSnapshot)
}

// allowedTransitions is the lifecycle state table. RESCHEDULED keeps the
// slot booked and stays staff-actionable; CANCELLED, COMPLETED and NO_SHOW
// are terminal.
var allowedTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentStatusPending: {
		models.AppointmentStatusConfirmed,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusRescheduled,
	},
	models.AppointmentStatusConfirmed: {
		models.AppointmentStatusRescheduled,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusCompleted,
		models.AppointmentStatusNoShow,
	},
	models.AppointmentStatusRescheduled: {
		models.AppointmentStatusConfirmed,
		models.AppointmentStatusRescheduled,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusCompleted,
		models.AppointmentStatusNoShow,
	},
}

var terminalStatuses = map[models.AppointmentStatus]bool{
	models.AppointmentStatusCancelled: true,
	models.AppointmentStatusCompleted: true,
	models.AppointmentStatusNoShow:    true,
}

// AppointmentService owns the appointment lifecycle: admission control on
// create, the transition table, calendar reconciliation and outbound
// notifications. Notification delivery is best-effort and never reverses a
// committed transition.
type AppointmentService struct {
	repo         appointmentRepository
	projector    calendarProjector
	notifier     notificationDispatcher
	metrics      *MetricsService
	validator    *validator.Validate
	slotDuration time.Duration
	logger       *zap.Logger
}

// NewAppointmentService constructs the service.
func NewAppointmentService(repo appointmentRepository, projector calendarProjector, notifier notificationDispatcher, metrics *MetricsService, validate *validator.Validate, slotDuration time.Duration, logger *zap.Logger) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if slotDuration <= 0 {
		slotDuration = time.Hour
	}
	svc := &AppointmentService{
		repo:         repo,
		projector:    projector,
		notifier:     notifier,
		metrics:      metrics,
		validator:    validate,
		slotDuration: slotDuration,
		logger:       logger,
	}
	svc.validator.RegisterValidation("servicetype", func(fl validator.FieldLevel) bool {
		return models.ValidServiceType(models.ServiceType(strings.ToUpper(fl.Field().String())))
	})
	return svc
}

// CreateAppointmentRequest describes a booking request.
type CreateAppointmentRequest struct {
	CustomerName  string    `json:"customer_name" validate:"required"`
	CustomerEmail string    `json:"customer_email" validate:"required,email"`
	CustomerPhone string    `json:"customer_phone" validate:"required"`
	ServiceType   string    `json:"service_type" validate:"required,servicetype"`
	DatetimeStart time.Time `json:"datetime_start" validate:"required"`
	Notes         string    `json:"notes"`
}

// TransitionRequest describes a staff-driven status change. DatetimeStart is
// supplied only for reschedules.
type TransitionRequest struct {
	Status        string     `json:"status" validate:"required"`
	DatetimeStart *time.Time `json:"datetime_start"`
}

// Create admits a booking request. The slot check and the insert are atomic
// in the repository; on conflict the caller receives SLOT_CONFLICT, distinct
// from validation failures, so a different time can be offered.
func (s *AppointmentService) Create(ctx context.Context, req CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.DatetimeStart.Before(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "datetime_start must be in the future")
	}

	start := req.DatetimeStart.UTC()
	appt := &models.Appointment{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ServiceType:   models.ServiceType(strings.ToUpper(req.ServiceType)),
		DatetimeStart: start,
		DatetimeEnd:   start.Add(s.slotDuration),
		Status:        models.AppointmentStatusPending,
		Notes:         req.Notes,
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		if errors.Is(err, appErrors.ErrSlotConflict) {
			s.metrics.RecordSlotConflict()
			return nil, appErrors.ErrSlotConflict
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}
	s.metrics.RecordBookingCreated(string(appt.ServiceType))

	if err := s.projector.OnAppointmentCreated(ctx, appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "appointment booked but calendar projection failed")
	}

	s.notifier.Request(ctx, models.NotificationBookingReceived, models.SnapshotOf(appt))
	return appt, nil
}

// Get returns an appointment by id.
func (s *AppointmentService) Get(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appt, nil
}

// List returns appointments with pagination.
func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	appts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return appts, pagination, nil
}

// Transition applies a staff-driven status change. Window changes re-run the
// conflict check excluding the appointment's own row and reconcile the
// mirrored calendar event before any notification is requested.
func (s *AppointmentService) Transition(ctx context.Context, id string, req TransitionRequest) (*models.Appointment, error) {
	newStatus := models.AppointmentStatus(strings.ToUpper(req.Status))
	switch newStatus {
	case models.AppointmentStatusPending, models.AppointmentStatusConfirmed,
		models.AppointmentStatusRescheduled, models.AppointmentStatusCancelled,
		models.AppointmentStatusCompleted, models.AppointmentStatusNoShow:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
	}

	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(appt.Status, newStatus) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition appointment from %s to %s", appt.Status, newStatus))
	}

	if newStatus == models.AppointmentStatusRescheduled && req.DatetimeStart == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rescheduling requires a new datetime_start")
	}
	if req.DatetimeStart != nil && newStatus != models.AppointmentStatusRescheduled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "datetime_start may only change on a reschedule")
	}

	statusChanged := appt.Status != newStatus
	appt.Status = newStatus

	if req.DatetimeStart != nil {
		start := req.DatetimeStart.UTC()
		appt.DatetimeStart = start
		appt.DatetimeEnd = start.Add(s.slotDuration)

		if err := s.repo.Reschedule(ctx, appt); err != nil {
			if errors.Is(err, appErrors.ErrSlotConflict) {
				s.metrics.RecordSlotConflict()
				return nil, appErrors.ErrSlotConflict
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule appointment")
		}
		if err := s.projector.OnAppointmentWindowChanged(ctx, appt); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "appointment rescheduled but calendar reconciliation failed")
		}
	} else {
		if err := s.repo.UpdateStatus(ctx, appt); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment status")
		}
		if terminalStatuses[newStatus] {
			if err := s.projector.OnAppointmentTerminated(ctx, appt); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "appointment closed but calendar reconciliation failed")
			}
		}
	}
	s.metrics.RecordTransition(string(newStatus))

	// A repeat reschedule keeps the RESCHEDULED status but still moves the
	// window, so the customer is notified in that case too.
	if statusChanged || req.DatetimeStart != nil {
		if kind, ok := transitionNotification(newStatus); ok {
			s.notifier.Request(ctx, kind, models.SnapshotOf(appt))
		}
	}
	return appt, nil
}

// AssignRep sets the responsible staff member. This is a plain field update
// outside the status table and triggers no notification.
func (s *AppointmentService) AssignRep(ctx context.Context, id string, userID *string) (*models.Appointment, error) {
	appt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAssignee(ctx, id, userID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign appointment")
	}
	appt.AssignedUserID = userID
	return appt, nil
}

func transitionAllowed(from, to models.AppointmentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func transitionNotification(status models.AppointmentStatus) (models.NotificationKind, bool) {
	switch status {
	case models.AppointmentStatusConfirmed:
		return models.NotificationBookingConfirmed, true
	case models.AppointmentStatusCancelled:
		return models.NotificationBookingCancelled, true
	case models.AppointmentStatusRescheduled:
		return models.NotificationBookingRescheduled, true
	default:
		return "", false
	}
}
