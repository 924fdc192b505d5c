package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
)

const staffIDHeader = "X-Staff-ID"

// staffIDFromRequest returns the acting staff member's id, if the binding
// layer supplied one. Authentication itself happens upstream of this core.
func staffIDFromRequest(c *gin.Context) *string {
	id := c.GetHeader(staffIDHeader)
	if id == "" {
		return nil
	}
	return &id
}

// parseTimeParam reads an RFC3339 timestamp query parameter.
func parseTimeParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, name+" is required (RFC3339)")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, name+" must be RFC3339")
	}
	return t.UTC(), nil
}

// parseDateParam reads a YYYY-MM-DD query parameter.
func parseDateParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, name+" is required (YYYY-MM-DD)")
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, name+" must be YYYY-MM-DD")
	}
	return t, nil
}
