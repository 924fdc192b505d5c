package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
)

const appointmentColumns = `id, customer_name, customer_email, customer_phone, service_type, datetime_start, datetime_end, status, assigned_user_id, notes, reminders_sent, created_at, updated_at`

// AppointmentRepository persists appointments. The conflict-check-then-write
// sequences run inside a transaction and are additionally guarded by the
// no_overlapping_active_appointments exclusion constraint, so two writers
// racing for the same window cannot both commit.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const overlapQuery = `SELECT COUNT(*) FROM appointments
WHERE status = ANY($1)
  AND datetime_start < $2
  AND datetime_end > $3
  AND ($4 = '' OR id <> $4)`

// CountOverlapping returns how many occupying appointments intersect the
// half-open interval [start, end). Touching endpoints do not count.
// excludeID lets a reschedule ignore the appointment's own row.
func (r *AppointmentRepository) CountOverlapping(ctx context.Context, start, end time.Time, excludeID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, overlapQuery, occupyingStatusArray(), end, start, excludeID); err != nil {
		return 0, fmt.Errorf("count overlapping appointments: %w", err)
	}
	return count, nil
}

// Create inserts the appointment if its window is free, returning
// ErrSlotConflict otherwise. The overlap check and the insert share one
// transaction; the exclusion constraint catches writers racing in between.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	if appt.RemindersSent == nil {
		appt.RemindersSent = pq.StringArray{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create appointment: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	if err := tx.GetContext(ctx, &count, overlapQuery, occupyingStatusArray(), appt.DatetimeEnd, appt.DatetimeStart, ""); err != nil {
		return fmt.Errorf("check slot availability: %w", err)
	}
	if count > 0 {
		return appErrors.ErrSlotConflict
	}

	const query = `INSERT INTO appointments (id, customer_name, customer_email, customer_phone, service_type, datetime_start, datetime_end, status, assigned_user_id, notes, reminders_sent, created_at, updated_at)
VALUES (:id, :customer_name, :customer_email, :customer_phone, :service_type, :datetime_start, :datetime_end, :status, :assigned_user_id, :notes, :reminders_sent, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, appt); err != nil {
		if isExclusionViolation(err) {
			return appErrors.ErrSlotConflict
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isExclusionViolation(err) {
			return appErrors.ErrSlotConflict
		}
		return fmt.Errorf("commit create appointment: %w", err)
	}
	return nil
}

// GetByID fetches an appointment.
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// List returns appointments matching filters, newest start first.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statuses))
	}
	if filter.StartFrom != nil {
		where = append(where, fmt.Sprintf("datetime_start >= $%d", len(args)+1))
		args = append(args, *filter.StartFrom)
	}
	if filter.StartTo != nil {
		where = append(where, fmt.Sprintf("datetime_start < $%d", len(args)+1))
		args = append(args, *filter.StartTo)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s ORDER BY datetime_start DESC LIMIT %d OFFSET %d`,
		appointmentColumns, whereClause, size, offset)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM appointments WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	return appts, total, nil
}

// UpdateStatus persists a status-only transition.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments SET status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// Reschedule moves the appointment window, failing with ErrSlotConflict when
// the new window intersects another occupying appointment. Check and update
// share one transaction, mirroring Create.
func (r *AppointmentRepository) Reschedule(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reschedule: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var count int
	if err := tx.GetContext(ctx, &count, overlapQuery, occupyingStatusArray(), appt.DatetimeEnd, appt.DatetimeStart, appt.ID); err != nil {
		return fmt.Errorf("check reschedule availability: %w", err)
	}
	if count > 0 {
		return appErrors.ErrSlotConflict
	}

	const query = `UPDATE appointments SET datetime_start = :datetime_start, datetime_end = :datetime_end, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, appt); err != nil {
		if isExclusionViolation(err) {
			return appErrors.ErrSlotConflict
		}
		return fmt.Errorf("reschedule appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isExclusionViolation(err) {
			return appErrors.ErrSlotConflict
		}
		return fmt.Errorf("commit reschedule: %w", err)
	}
	return nil
}

// UpdateAssignee sets or clears the staff member responsible.
func (r *AppointmentRepository) UpdateAssignee(ctx context.Context, id string, userID *string) error {
	const query = `UPDATE appointments SET assigned_user_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update appointment assignee: %w", err)
	}
	return nil
}

// ListDueForReminder selects occupying appointments whose start falls inside
// [windowStart, windowEnd] and which have not yet recorded the marker.
func (r *AppointmentRepository) ListDueForReminder(ctx context.Context, windowStart, windowEnd time.Time, marker string) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments
WHERE status = ANY($1)
  AND datetime_start >= $2
  AND datetime_start <= $3
  AND NOT ($4 = ANY(reminders_sent))
ORDER BY datetime_start ASC`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, occupyingStatusArray(), windowStart, windowEnd, marker); err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return appts, nil
}

// MarkReminderSent records the threshold marker. The guard in the WHERE
// clause keeps the append idempotent under overlapping sweeps.
func (r *AppointmentRepository) MarkReminderSent(ctx context.Context, id, marker string) error {
	const query = `UPDATE appointments
SET reminders_sent = array_append(reminders_sent, $2), updated_at = $3
WHERE id = $1 AND NOT ($2 = ANY(reminders_sent))`
	if _, err := r.db.ExecContext(ctx, query, id, marker, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func occupyingStatusArray() interface{} {
	statuses := make([]string, len(models.OccupyingStatuses))
	for i, s := range models.OccupyingStatuses {
		statuses[i] = string(s)
	}
	return pq.Array(statuses)
}

// isExclusionViolation detects SQLSTATE 23P01 raised by the overlapping-window
// exclusion constraint.
func isExclusionViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23P01"
}
