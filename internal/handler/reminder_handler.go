package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
	"github.com/noah-isme/boutique-booking-api/pkg/response"
)

type reminderSweeper interface {
	RunSweep(ctx context.Context, now time.Time) (int, error)
}

// ReminderHandler exposes the sweep trigger for external schedulers. Sweeps
// are idempotent per the reminder-marker rule, so cron overlap is harmless.
type ReminderHandler struct {
	service reminderSweeper
}

// NewReminderHandler constructs the handler.
func NewReminderHandler(svc reminderSweeper) *ReminderHandler {
	return &ReminderHandler{service: svc}
}

type sweepRequest struct {
	Now *time.Time `json:"now"`
}

// Sweep handles POST /reminders/sweep. The body may pin the sweep instant;
// it defaults to the current time.
func (h *ReminderHandler) Sweep(c *gin.Context) {
	var req sweepRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
			return
		}
	}
	now := time.Now().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}
	requested, err := h.service.RunSweep(c.Request.Context(), now)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reminder sweep finished with errors"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"requested": requested, "now": now}, nil)
}
