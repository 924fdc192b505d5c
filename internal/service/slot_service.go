package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/boutique-booking-api/internal/models"
	"github.com/noah-isme/boutique-booking-api/pkg/config"
	appErrors "github.com/noah-isme/boutique-booking-api/pkg/errors"
)

type overlapCounter interface {
	CountOverlapping(ctx context.Context, start, end time.Time, excludeID string) (int, error)
}

type appointmentLister interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
}

// SlotService answers "is this interval free" questions over the shared
// service slot. A positive answer outside a write transaction is advisory
// only; the repository re-validates at commit time.
type SlotService struct {
	counter overlapCounter
	lister  appointmentLister
	cfg     config.BookingConfig
	logger  *zap.Logger
}

// NewSlotService constructs the slot service.
func NewSlotService(counter overlapCounter, lister appointmentLister, cfg config.BookingConfig, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlotDuration <= 0 {
		cfg.SlotDuration = time.Hour
	}
	return &SlotService{counter: counter, lister: lister, cfg: cfg, logger: logger}
}

// SlotDuration returns the fixed length of every appointment.
func (s *SlotService) SlotDuration() time.Duration {
	return s.cfg.SlotDuration
}

// IsConflicting reports whether [start, end) overlaps any occupying
// appointment other than excludeID. Touching endpoints do not conflict.
func (s *SlotService) IsConflicting(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	count, err := s.counter.CountOverlapping(ctx, start, end, excludeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
	}
	return count > 0, nil
}

// Slot is one bookable interval of an operating day.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// DaySlots expands the operating hours of the given calendar day into
// fixed-duration slots and flags the ones intersecting an occupying
// appointment. The listing is advisory; booking re-checks at commit.
func (s *SlotService) DaySlots(ctx context.Context, day time.Time) ([]Slot, error) {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}

	year, month, date := day.In(loc).Date()
	open := time.Date(year, month, date, s.cfg.OpenHour, 0, 0, 0, loc)
	close := time.Date(year, month, date, s.cfg.CloseHour, 0, 0, 0, loc)
	if !close.After(open) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "operating hours are not configured")
	}

	from := open.UTC()
	to := close.UTC()
	occupied, _, err := s.lister.List(ctx, models.AppointmentFilter{
		Statuses:  models.OccupyingStatuses,
		StartFrom: &from,
		StartTo:   &to,
		PageSize:  200,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booked slots")
	}

	var slots []Slot
	for cursor := open; !cursor.Add(s.cfg.SlotDuration).After(close); cursor = cursor.Add(s.cfg.SlotDuration) {
		slot := Slot{Start: cursor.UTC(), End: cursor.Add(s.cfg.SlotDuration).UTC(), Available: true}
		for i := range occupied {
			if Overlaps(slot.Start, slot.End, occupied[i].DatetimeStart, occupied[i].DatetimeEnd) {
				slot.Available = false
				break
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
