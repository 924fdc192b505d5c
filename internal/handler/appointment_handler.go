package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	"github.com/noah-isme/boutique-booking-api/internal/service"
	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
	"github.com/noah-isme/boutique-booking-api/pkg/response"
)

type appointmentService interface {
	Create(ctx context.Context, req service.CreateAppointmentRequest) (*models.Appointment, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
	Transition(ctx context.Context, id string, req service.TransitionRequest) (*models.Appointment, error)
	AssignRep(ctx context.Context, id string, userID *string) (*models.Appointment, error)
}

type availabilityService interface {
	DaySlots(ctx context.Context, day time.Time) ([]service.Slot, error)
}

type notificationHistory interface {
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error)
}

// AppointmentHandler exposes the booking lifecycle endpoints.
type AppointmentHandler struct {
	service       appointmentService
	availability  availabilityService
	notifications notificationHistory
}

// NewAppointmentHandler constructs the handler.
func NewAppointmentHandler(svc appointmentService, availability availabilityService, notifications notificationHistory) *AppointmentHandler {
	return &AppointmentHandler{service: svc, availability: availability, notifications: notifications}
}

// Create handles POST /appointments.
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req service.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	appt, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// List handles GET /appointments.
func (h *AppointmentHandler) List(c *gin.Context) {
	filter := models.AppointmentFilter{}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(strings.ToUpper(s))
			if s != "" {
				filter.Statuses = append(filter.Statuses, models.AppointmentStatus(s))
			}
		}
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
			return
		}
		utc := t.UTC()
		filter.StartFrom = &utc
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
			return
		}
		utc := t.UTC()
		filter.StartTo = &utc
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	appts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appts, pagination)
}

// Get handles GET /appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Transition handles PATCH /appointments/:id/status.
func (h *AppointmentHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	appt, err := h.service.Transition(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

type assignRequest struct {
	UserID *string `json:"user_id"`
}

// Assign handles PATCH /appointments/:id/assignee. A null user_id clears the
// assignment.
func (h *AppointmentHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	appt, err := h.service.AssignRep(c.Request.Context(), c.Param("id"), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Availability handles GET /appointments/availability?date=YYYY-MM-DD. The
// listing is advisory; admission control re-checks at commit time.
func (h *AppointmentHandler) Availability(c *gin.Context) {
	day, err := parseDateParam(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	slots, err := h.availability.DaySlots(c.Request.Context(), day)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Notifications handles GET /appointments/:id/notifications.
func (h *AppointmentHandler) Notifications(c *gin.Context) {
	items, err := h.notifications.ListByAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
