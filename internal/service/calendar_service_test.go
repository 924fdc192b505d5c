package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
)

type calendarRepoStub struct {
	events      map[string]*models.CalendarEvent
	nextID      int
	updateCalls int
	deleteCalls int
}

func newCalendarRepoStub() *calendarRepoStub {
	return &calendarRepoStub{events: map[string]*models.CalendarEvent{}}
}

func (r *calendarRepoStub) ListRange(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error) {
	var out []models.CalendarEvent
	for _, e := range r.events {
		if e.StartTime.Before(end) && e.EndTime.After(start) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *calendarRepoStub) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (r *calendarRepoStub) GetByAppointmentID(ctx context.Context, appointmentID string) (*models.CalendarEvent, error) {
	for _, e := range r.events {
		if e.AppointmentID != nil && *e.AppointmentID == appointmentID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *calendarRepoStub) Create(ctx context.Context, event *models.CalendarEvent) error {
	r.nextID++
	event.ID = fmt.Sprintf("event-%d", r.nextID)
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *calendarRepoStub) UpdateWindow(ctx context.Context, event *models.CalendarEvent) error {
	r.updateCalls++
	copied := *event
	r.events[event.ID] = &copied
	return nil
}

func (r *calendarRepoStub) Delete(ctx context.Context, id string) error {
	r.deleteCalls++
	delete(r.events, id)
	return nil
}

func (r *calendarRepoStub) DeleteByAppointmentID(ctx context.Context, appointmentID string) error {
	for id, e := range r.events {
		if e.AppointmentID != nil && *e.AppointmentID == appointmentID {
			delete(r.events, id)
		}
	}
	return nil
}

type rangeCacheStub struct {
	entries     map[string][]byte
	invalidated int
}

func newRangeCacheStub() *rangeCacheStub {
	return &rangeCacheStub{entries: map[string][]byte{}}
}

func (c *rangeCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *rangeCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *rangeCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated++
	c.entries = map[string][]byte{}
	return nil
}

func mirrorTestAppointment() *models.Appointment {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	return &models.Appointment{
		ID:            "appt-1",
		CustomerName:  "Ada Customer",
		CustomerEmail: "ada@example.com",
		ServiceType:   models.ServiceTypeVideoCall,
		DatetimeStart: start,
		DatetimeEnd:   start.Add(time.Hour),
		Status:        models.AppointmentStatusPending,
	}
}

func TestCalendarMirrorsAppointmentCreation(t *testing.T) {
	repo := newCalendarRepoStub()
	cache := newRangeCacheStub()
	svc := NewCalendarService(repo, cache, time.Minute, nil, nil, nil)
	appt := mirrorTestAppointment()

	require.NoError(t, svc.OnAppointmentCreated(context.Background(), appt))

	event, err := repo.GetByAppointmentID(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, models.CalendarEventTypeAppointment, event.EventType)
	assert.Equal(t, appt.DatetimeStart, event.StartTime)
	assert.Equal(t, appt.DatetimeEnd, event.EndTime)
	assert.Equal(t, "Ada Customer (video call)", event.Title)
	assert.Equal(t, 1, cache.invalidated)
}

func TestCalendarReconcilesWindowChange(t *testing.T) {
	repo := newCalendarRepoStub()
	svc := NewCalendarService(repo, nil, time.Minute, nil, nil, nil)
	appt := mirrorTestAppointment()
	require.NoError(t, svc.OnAppointmentCreated(context.Background(), appt))

	appt.DatetimeStart = appt.DatetimeStart.Add(24 * time.Hour)
	appt.DatetimeEnd = appt.DatetimeEnd.Add(24 * time.Hour)
	require.NoError(t, svc.OnAppointmentWindowChanged(context.Background(), appt))

	assert.Equal(t, 1, repo.updateCalls)
	event, err := repo.GetByAppointmentID(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, appt.DatetimeStart, event.StartTime)
	assert.Equal(t, appt.DatetimeEnd, event.EndTime)
}

func TestCalendarRecreatesMissingMirror(t *testing.T) {
	repo := newCalendarRepoStub()
	svc := NewCalendarService(repo, nil, time.Minute, nil, nil, nil)
	appt := mirrorTestAppointment()

	// No mirror exists yet; a window change should heal by recreating it.
	require.NoError(t, svc.OnAppointmentWindowChanged(context.Background(), appt))
	event, err := repo.GetByAppointmentID(context.Background(), "appt-1")
	require.NoError(t, err)
	assert.Equal(t, appt.DatetimeStart, event.StartTime)
	assert.Zero(t, repo.updateCalls)
}

func TestCalendarRemovesMirrorOnTermination(t *testing.T) {
	repo := newCalendarRepoStub()
	svc := NewCalendarService(repo, nil, time.Minute, nil, nil, nil)
	appt := mirrorTestAppointment()
	require.NoError(t, svc.OnAppointmentCreated(context.Background(), appt))

	require.NoError(t, svc.OnAppointmentTerminated(context.Background(), appt))
	_, err := repo.GetByAppointmentID(context.Background(), "appt-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCalendarQueryRangeCaches(t *testing.T) {
	repo := newCalendarRepoStub()
	cache := newRangeCacheStub()
	svc := NewCalendarService(repo, cache, time.Minute, nil, nil, nil)
	appt := mirrorTestAppointment()
	require.NoError(t, svc.OnAppointmentCreated(context.Background(), appt))

	start := appt.DatetimeStart.Add(-time.Hour)
	end := appt.DatetimeEnd.Add(time.Hour)
	events, err := svc.QueryRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// Second query is served from the cache even after the repo is emptied
	// behind its back.
	repo.events = map[string]*models.CalendarEvent{}
	events, err = svc.QueryRange(context.Background(), start, end)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestCalendarQueryRangeRejectsInvertedWindow(t *testing.T) {
	svc := NewCalendarService(newCalendarRepoStub(), nil, time.Minute, nil, nil, nil)
	now := time.Now().UTC()
	_, err := svc.QueryRange(context.Background(), now, now)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarCreatePersonalEvent(t *testing.T) {
	repo := newCalendarRepoStub()
	svc := NewCalendarService(repo, nil, time.Minute, nil, nil, nil)

	start := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	event, err := svc.CreatePersonalEvent(context.Background(), CreateEventRequest{
		OwnerUserID: "staff-1",
		Title:       "Lunch",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		EventType:   "PERSONAL",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CalendarEventTypePersonal, event.EventType)
	require.NotNil(t, event.OwnerUserID)
	assert.Equal(t, "staff-1", *event.OwnerUserID)
	assert.Nil(t, event.AppointmentID)
}

func TestCalendarCreateEventValidation(t *testing.T) {
	svc := NewCalendarService(newCalendarRepoStub(), nil, time.Minute, nil, nil, nil)
	start := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)

	base := CreateEventRequest{
		OwnerUserID: "staff-1",
		Title:       "Inventory",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		EventType:   "BLOCKED",
	}

	bad := base
	bad.EventType = "APPOINTMENT"
	_, err := svc.CreatePersonalEvent(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	bad = base
	bad.EndTime = start.Add(-time.Hour)
	_, err = svc.CreatePersonalEvent(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	bad = base
	bad.OwnerUserID = ""
	_, err = svc.CreatePersonalEvent(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCalendarDeleteEventGuardsMirrors(t *testing.T) {
	repo := newCalendarRepoStub()
	svc := NewCalendarService(repo, nil, time.Minute, nil, nil, nil)
	appt := mirrorTestAppointment()
	require.NoError(t, svc.OnAppointmentCreated(context.Background(), appt))

	mirror, err := repo.GetByAppointmentID(context.Background(), "appt-1")
	require.NoError(t, err)

	err = svc.DeleteEvent(context.Background(), mirror.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.deleteCalls)

	err = svc.DeleteEvent(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCalendarDeletePersonalEvent(t *testing.T) {
	repo := newCalendarRepoStub()
	svc := NewCalendarService(repo, nil, time.Minute, nil, nil, nil)

	start := time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)
	event, err := svc.CreatePersonalEvent(context.Background(), CreateEventRequest{
		OwnerUserID: "staff-1",
		Title:       "Lunch",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		EventType:   "PERSONAL",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(context.Background(), event.ID))
	assert.Equal(t, 1, repo.deleteCalls)
}
