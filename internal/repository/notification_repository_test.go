package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/boutique-booking-api/internal/models"
)

func newNotificationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
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

func TestNotificationRepositoryCreateDefaultsQueued(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.Notification{
		AppointmentID: "appt-1",
		Kind:          models.NotificationBookingReceived,
		Recipient:     "ada@example.com",
	}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, models.NotificationStatusQueued, record.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET status = $2")).
		WithArgs("ntf-1", string(models.NotificationStatusFailed), "smtp unreachable", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "ntf-1", models.NotificationStatusFailed, "smtp unreachable")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryListByAppointment(t *testing.T) {
	db, mock, cleanup := newNotificationRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "appointment_id", "kind", "recipient", "status", "detail", "created_at", "updated_at"}).
		AddRow("ntf-1", "appt-1", "BOOKING_RECEIVED", "ada@example.com", "SENT", "", now, now).
		AddRow("ntf-2", "appt-1", "BOOKING_CONFIRMED", "ada@example.com", "SENT", "", now.Add(time.Hour), now.Add(time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE appointment_id = $1")).
		WithArgs("appt-1").
		WillReturnRows(rows)

	items, err := repo.ListByAppointment(context.Background(), "appt-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.NotificationBookingReceived, items[0].Kind)
	assert.Equal(t, models.NotificationStatusSent, items[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
