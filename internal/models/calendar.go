package models

import "time"

// CalendarEventType enumerates calendar block kinds.
type CalendarEventType string

const (
	CalendarEventTypeAppointment CalendarEventType = "APPOINTMENT"
	CalendarEventTypePersonal    CalendarEventType = "PERSONAL"
	CalendarEventTypeBlocked     CalendarEventType = "BLOCKED"
)

// CalendarEvent is a materialized time-block painted by calendar views.
// APPOINTMENT rows mirror an appointment's window and are owned by the
// lifecycle; PERSONAL and BLOCKED rows are plain staff-owned entries.
type CalendarEvent struct {
	ID            string            `db:"id" json:"id"`
	AppointmentID *string           `db:"appointment_id" json:"appointment_id,omitempty"`
	Title         string            `db:"title" json:"title"`
	StartTime     time.Time         `db:"start_time" json:"start_time"`
	EndTime       time.Time         `db:"end_time" json:"end_time"`
	EventType     CalendarEventType `db:"event_type" json:"event_type"`
	OwnerUserID   *string           `db:"owner_user_id" json:"owner_user_id,omitempty"`
	Notes         string            `db:"notes" json:"notes"`
	Location      string            `db:"location" json:"location"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}
