package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	"github.com/noah-isme/boutique-booking-api/internal/service"
	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
)

type appointmentServiceMock struct {
	createResp       *models.Appointment
	createErr        error
	getResp          *models.Appointment
	getErr           error
	listResp         []models.Appointment
	listErr          error
	transitionResp   *models.Appointment
	transitionErr    error
	assignResp       *models.Appointment
	assignErr        error
	lastFilter       models.AppointmentFilter
	lastTransition   service.TransitionRequest
	createCalled     bool
	transitionCalled bool
	assignCalled     bool
}

func (m *appointmentServiceMock) Create(ctx context.Context, req service.CreateAppointmentRequest) (*models.Appointment, error) {
	m.createCalled = true
	return m.createResp, m.createErr
}

func (m *appointmentServiceMock) Get(ctx context.Context, id string) (*models.Appointment, error) {
	return m.getResp, m.getErr
}

func (m *appointmentServiceMock) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, nil, m.listErr
	}
	return m.listResp, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.listResp)}, nil
}

func (m *appointmentServiceMock) Transition(ctx context.Context, id string, req service.TransitionRequest) (*models.Appointment, error) {
	m.transitionCalled = true
	m.lastTransition = req
	return m.transitionResp, m.transitionErr
}

func (m *appointmentServiceMock) AssignRep(ctx context.Context, id string, userID *string) (*models.Appointment, error) {
	m.assignCalled = true
	return m.assignResp, m.assignErr
}

type availabilityServiceMock struct {
	slots []service.Slot
	err   error
}

func (m *availabilityServiceMock) DaySlots(ctx context.Context, day time.Time) ([]service.Slot, error) {
	return m.slots, m.err
}

type notificationHistoryMock struct {
	items []models.Notification
}

func (m *notificationHistoryMock) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error) {
	return m.items, nil
}

func sampleAppointment() *models.Appointment {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	return &models.Appointment{
		ID:            "appt-1",
		CustomerName:  "Ada Customer",
		CustomerEmail: "ada@example.com",
		ServiceType:   models.ServiceTypeInStore,
		DatetimeStart: start,
		DatetimeEnd:   start.Add(time.Hour),
		Status:        models.AppointmentStatusPending,
	}
}

func newAppointmentHandlerTest(mockSvc *appointmentServiceMock) *AppointmentHandler {
	return NewAppointmentHandler(mockSvc, &availabilityServiceMock{}, &notificationHistoryMock{})
}

func TestAppointmentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appointmentServiceMock{createResp: sampleAppointment()}
	handler := newAppointmentHandlerTest(mockSvc)

	payload, _ := json.Marshal(service.CreateAppointmentRequest{
		CustomerName:  "Ada Customer",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+3161234567",
		ServiceType:   "IN_STORE",
		DatetimeStart: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
}

func TestAppointmentHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appointmentServiceMock{}
	handler := newAppointmentHandlerTest(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString(`{"customer_name":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.createCalled)
}

func TestAppointmentHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appointmentServiceMock{createErr: appErrors.ErrSlotConflict}
	handler := newAppointmentHandlerTest(mockSvc)

	payload, _ := json.Marshal(service.CreateAppointmentRequest{
		CustomerName:  "Ada Customer",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+3161234567",
		ServiceType:   "IN_STORE",
		DatetimeStart: time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SLOT_CONFLICT", body.Error.Code)
}

func TestAppointmentHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appointmentServiceMock{listResp: []models.Appointment{*sampleAppointment()}}
	handler := newAppointmentHandlerTest(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet,
		"/appointments?status=pending,confirmed&from=2025-03-10T00:00:00Z&page=2&page_size=10", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.AppointmentStatus{
		models.AppointmentStatusPending,
		models.AppointmentStatusConfirmed,
	}, mockSvc.lastFilter.Statuses)
	require.NotNil(t, mockSvc.lastFilter.StartFrom)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.PageSize)
}

func TestAppointmentHandlerListBadTimestamp(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAppointmentHandlerTest(&appointmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/appointments?from=yesterday", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerTransitionInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appointmentServiceMock{transitionErr: appErrors.ErrInvalidTransition}
	handler := newAppointmentHandlerTest(mockSvc)

	payload, _ := json.Marshal(service.TransitionRequest{Status: "COMPLETED"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}
	req, _ := http.NewRequest(http.MethodPatch, "/appointments/appt-1/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Transition(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_TRANSITION", body.Error.Code)
	assert.True(t, mockSvc.transitionCalled)
}

func TestAppointmentHandlerTransitionOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	confirmed := sampleAppointment()
	confirmed.Status = models.AppointmentStatusConfirmed
	mockSvc := &appointmentServiceMock{transitionResp: confirmed}
	handler := newAppointmentHandlerTest(mockSvc)

	payload, _ := json.Marshal(service.TransitionRequest{Status: "CONFIRMED"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}
	req, _ := http.NewRequest(http.MethodPatch, "/appointments/appt-1/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Transition(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONFIRMED", mockSvc.lastTransition.Status)
}

func TestAppointmentHandlerAssignNullClears(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &appointmentServiceMock{assignResp: sampleAppointment()}
	handler := newAppointmentHandlerTest(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}
	req, _ := http.NewRequest(http.MethodPatch, "/appointments/appt-1/assignee", bytes.NewBufferString(`{"user_id":null}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Assign(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.assignCalled)
}

func TestAppointmentHandlerAvailability(t *testing.T) {
	gin.SetMode(gin.TestMode)
	slotStart := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	availability := &availabilityServiceMock{slots: []service.Slot{
		{Start: slotStart, End: slotStart.Add(time.Hour), Available: true},
	}}
	handler := NewAppointmentHandler(&appointmentServiceMock{}, availability, &notificationHistoryMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/appointments/availability?date=2025-03-10", nil)
	c.Request = req

	handler.Availability(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAppointmentHandlerAvailabilityBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newAppointmentHandlerTest(&appointmentServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/appointments/availability?date=today", nil)
	c.Request = req

	handler.Availability(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerNotifications(t *testing.T) {
	gin.SetMode(gin.TestMode)
	history := &notificationHistoryMock{items: []models.Notification{{
		ID:            "ntf-1",
		AppointmentID: "appt-1",
		Kind:          models.NotificationBookingConfirmed,
		Status:        models.NotificationStatusSent,
	}}}
	handler := NewAppointmentHandler(&appointmentServiceMock{}, &availabilityServiceMock{}, history)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "appt-1"}}
	req, _ := http.NewRequest(http.MethodGet, "/appointments/appt-1/notifications", nil)
	c.Request = req

	handler.Notifications(c)
	require.Equal(t, http.StatusOK, w.Code)
}
