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

type calendarRepository interface {
	ListRange(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error)
	GetByID(ctx context.Context, id string) (*models.CalendarEvent, error)
	GetByAppointmentID(ctx context.Context, appointmentID string) (*models.CalendarEvent, error)
	Create(ctx context.Context, event *models.CalendarEvent) error
	UpdateWindow(ctx context.Context, event *models.CalendarEvent) error
	Delete(ctx context.Context, id string) error
	DeleteByAppointmentID(ctx context.Context, appointmentID string) error
}

type rangeCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const calendarCachePattern = "calendar:range:*"

// CalendarService maintains the mirrored event per occupying appointment and
// the staff-owned PERSONAL/BLOCKED entries, and answers range queries over
// both. Mirrored events are written synchronously with every lifecycle step
// that changes an appointment's window or closes it out, so calendar views
// never drift from the appointment table.
type CalendarService struct {
	repo      calendarRepository
	cache     rangeCache
	cacheTTL  time.Duration
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewCalendarService constructs the service. cache may be nil.
func NewCalendarService(repo calendarRepository, cache rangeCache, cacheTTL time.Duration, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, metrics: metrics, logger: logger}
}

// OnAppointmentCreated materializes the mirrored APPOINTMENT event.
func (s *CalendarService) OnAppointmentCreated(ctx context.Context, appt *models.Appointment) error {
	event := &models.CalendarEvent{
		AppointmentID: &appt.ID,
		Title:         appointmentTitle(appt),
		StartTime:     appt.DatetimeStart,
		EndTime:       appt.DatetimeEnd,
		EventType:     models.CalendarEventTypeAppointment,
		Notes:         appt.Notes,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return err
	}
	s.invalidateRangeCache(ctx)
	return nil
}

// OnAppointmentWindowChanged rewrites the mirrored event's interval to the
// appointment's new window. A missing mirror is recreated rather than
// treated as an error, healing drift instead of reporting it.
func (s *CalendarService) OnAppointmentWindowChanged(ctx context.Context, appt *models.Appointment) error {
	event, err := s.repo.GetByAppointmentID(ctx, appt.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.OnAppointmentCreated(ctx, appt)
		}
		return err
	}
	event.Title = appointmentTitle(appt)
	event.StartTime = appt.DatetimeStart
	event.EndTime = appt.DatetimeEnd
	if err := s.repo.UpdateWindow(ctx, event); err != nil {
		return err
	}
	s.invalidateRangeCache(ctx)
	return nil
}

// OnAppointmentTerminated removes the mirrored event once the appointment
// leaves the occupying set. The appointment row itself is retained, so the
// uniform policy here is deletion.
func (s *CalendarService) OnAppointmentTerminated(ctx context.Context, appt *models.Appointment) error {
	if err := s.repo.DeleteByAppointmentID(ctx, appt.ID); err != nil {
		return err
	}
	s.invalidateRangeCache(ctx)
	return nil
}

// QueryRange returns every event intersecting [start, end), merged across
// appointment-derived and manual rows, with a short-lived Redis cache in
// front of the table.
func (s *CalendarService) QueryRange(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error) {
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}

	key := fmt.Sprintf("calendar:range:%d:%d", start.Unix(), end.Unix())
	if s.cache != nil {
		var cached []models.CalendarEvent
		lookup := time.Now()
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true, time.Since(lookup))
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("calendar cache lookup failed", "key", key, "error", err)
		}
		s.metrics.RecordCacheOperation(false, time.Since(lookup))
	}

	events, err := s.repo.ListRange(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query calendar range")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, events, s.cacheTTL); err != nil {
			s.logger.Sugar().Warnw("calendar cache write failed", "key", key, "error", err)
		}
	}
	return events, nil
}

// CreateEventRequest describes a staff-created PERSONAL or BLOCKED entry.
type CreateEventRequest struct {
	OwnerUserID string    `json:"owner_user_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	EventType   string    `json:"event_type" validate:"required"`
	Notes       string    `json:"notes"`
	Location    string    `json:"location"`
}

// CreatePersonalEvent registers a PERSONAL or BLOCKED calendar entry. These
// rows never pass through the appointment lifecycle and impose no slot
// admission control.
func (s *CalendarService) CreatePersonalEvent(ctx context.Context, req CreateEventRequest) (*models.CalendarEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	eventType := models.CalendarEventType(strings.ToUpper(req.EventType))
	if eventType != models.CalendarEventTypePersonal && eventType != models.CalendarEventTypeBlocked {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event_type must be PERSONAL or BLOCKED")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	owner := req.OwnerUserID
	event := &models.CalendarEvent{
		Title:       req.Title,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		EventType:   eventType,
		OwnerUserID: &owner,
		Notes:       req.Notes,
		Location:    req.Location,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar event")
	}
	s.invalidateRangeCache(ctx)
	return event, nil
}

// DeleteEvent removes a PERSONAL or BLOCKED entry. APPOINTMENT mirrors are
// forbidden here; they disappear only when the underlying appointment is
// terminated.
func (s *CalendarService) DeleteEvent(ctx context.Context, id string) error {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "calendar event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar event")
	}
	if event.EventType == models.CalendarEventTypeAppointment {
		return appErrors.Clone(appErrors.ErrForbidden, "appointment events are removed by terminating the appointment")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete calendar event")
	}
	s.invalidateRangeCache(ctx)
	return nil
}

func (s *CalendarService) invalidateRangeCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, calendarCachePattern); err != nil {
		s.logger.Sugar().Warnw("calendar cache invalidation failed", "error", err)
	}
}

func appointmentTitle(appt *models.Appointment) string {
	label := strings.ReplaceAll(strings.ToLower(string(appt.ServiceType)), "_", " ")
	return fmt.Sprintf("%s (%s)", appt.CustomerName, label)
}
