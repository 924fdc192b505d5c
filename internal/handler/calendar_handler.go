package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	"github.com/noah-isme/boutique-booking-api/internal/service"
	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
	"github.com/noah-isme/boutique-booking-api/pkg/response"
)

type calendarService interface {
	QueryRange(ctx context.Context, start, end time.Time) ([]models.CalendarEvent, error)
	CreatePersonalEvent(ctx context.Context, req service.CreateEventRequest) (*models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, id string) error
}

// CalendarHandler exposes the calendar endpoints.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(svc calendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Query handles GET /calendar?start=&end= (RFC3339).
func (h *CalendarHandler) Query(c *gin.Context) {
	start, err := parseTimeParam(c, "start")
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseTimeParam(c, "end")
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.service.QueryRange(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// CreateEvent handles POST /calendar/events for PERSONAL/BLOCKED entries.
func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	if req.OwnerUserID == "" {
		if staff := staffIDFromRequest(c); staff != nil {
			req.OwnerUserID = *staff
		}
	}
	event, err := h.service.CreatePersonalEvent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// DeleteEvent handles DELETE /calendar/events/:id.
func (h *CalendarHandler) DeleteEvent(c *gin.Context) {
	if err := h.service.DeleteEvent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
