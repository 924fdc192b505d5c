package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/boutique-booking-api/internal/models"
)

const calendarColumns = `id, appointment_id, title, start_time, end_time, event_type, owner_user_id, notes, location, created_at, updated_at`

// CalendarRepository persists calendar events.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository constructs a calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListRange returns all events intersecting the half-open range [start, end),
// appointment-derived and manual rows alike.
func (r *CalendarRepository) ListRange(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events
WHERE start_time < $2 AND end_time > $1
ORDER BY start_time ASC`, calendarColumns)
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, start, end); err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return events, nil
}

// GetByID fetches a calendar event.
func (r *CalendarRepository) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE id = $1`, calendarColumns)
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByAppointmentID fetches the mirrored event for an appointment.
func (r *CalendarRepository) GetByAppointmentID(ctx context.Context, appointmentID string) (*models.CalendarEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM calendar_events WHERE appointment_id = $1`, calendarColumns)
	var event models.CalendarEvent
	if err := r.db.GetContext(ctx, &event, query, appointmentID); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts a calendar event.
func (r *CalendarRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now
	const query = `INSERT INTO calendar_events (id, appointment_id, title, start_time, end_time, event_type, owner_user_id, notes, location, created_at, updated_at)
VALUES (:id, :appointment_id, :title, :start_time, :end_time, :event_type, :owner_user_id, :notes, :location, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create calendar event: %w", err)
	}
	return nil
}

// UpdateWindow rewrites the event's interval (and title) after a reschedule.
func (r *CalendarRepository) UpdateWindow(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calendar_events SET title = :title, start_time = :start_time, end_time = :end_time, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update calendar event window: %w", err)
	}
	return nil
}

// Delete removes an event by id.
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

// DeleteByAppointmentID removes the mirrored event once its appointment
// leaves the occupying set.
func (r *CalendarRepository) DeleteByAppointmentID(ctx context.Context, appointmentID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE appointment_id = $1", appointmentID); err != nil {
		return fmt.Errorf("delete mirrored calendar event: %w", err)
	}
	return nil
}
