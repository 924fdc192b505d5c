package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/boutique-booking-api/internal/models"
)

func newCalendarRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func calendarRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "appointment_id", "title", "start_time", "end_time", "event_type",
		"owner_user_id", "notes", "location", "created_at", "updated_at",
	})
}

func TestCalendarRepositoryListRange(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	eventStart := start.Add(10 * time.Hour)
	rows := calendarRows().
		AddRow("event-1", sql.NullString{String: "appt-1", Valid: true}, "Ada Customer (in store)",
			eventStart, eventStart.Add(time.Hour), "APPOINTMENT",
			sql.NullString{}, "", "", start, start).
		AddRow("event-2", sql.NullString{}, "Inventory",
			eventStart.Add(2*time.Hour), eventStart.Add(3*time.Hour), "BLOCKED",
			sql.NullString{String: "staff-1", Valid: true}, "", "back office", start, start)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE start_time < $2 AND end_time > $1")).
		WithArgs(start, end).
		WillReturnRows(rows)

	events, err := repo.ListRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.CalendarEventTypeAppointment, events[0].EventType)
	require.NotNil(t, events[0].AppointmentID)
	assert.Equal(t, "appt-1", *events[0].AppointmentID)
	assert.Nil(t, events[1].AppointmentID)
	require.NotNil(t, events[1].OwnerUserID)
	assert.Equal(t, "staff-1", *events[1].OwnerUserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryGetByAppointmentIDNone(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE appointment_id = $1")).
		WithArgs("appt-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByAppointmentID(context.Background(), "appt-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCalendarRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	apptID := "appt-1"
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	event := &models.CalendarEvent{
		AppointmentID: &apptID,
		Title:         "Ada Customer (in store)",
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		EventType:     models.CalendarEventTypeAppointment,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calendar_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryUpdateWindow(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	start := time.Date(2025, 3, 11, 10, 0, 0, 0, time.UTC)
	event := &models.CalendarEvent{
		ID:        "event-1",
		Title:     "Ada Customer (in store)",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		EventType: models.CalendarEventTypeAppointment,
	}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE calendar_events SET title")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateWindow(context.Background(), event))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryDeleteByAppointmentID(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM calendar_events WHERE appointment_id = $1")).
		WithArgs("appt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteByAppointmentID(context.Background(), "appt-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
