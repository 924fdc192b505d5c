package models

import (
	"time"

	"github.com/lib/pq"
)

// ServiceType enumerates the bookable session kinds.
type ServiceType string

const (
	ServiceTypeInStore   ServiceType = "IN_STORE"
	ServiceTypeVideoCall ServiceType = "VIDEO_CALL"
	ServiceTypeSourcing  ServiceType = "SOURCING"
)

// AppointmentStatus enumerates lifecycle states.
type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed   AppointmentStatus = "CONFIRMED"
	AppointmentStatusRescheduled AppointmentStatus = "RESCHEDULED"
	AppointmentStatusCancelled   AppointmentStatus = "CANCELLED"
	AppointmentStatusCompleted   AppointmentStatus = "COMPLETED"
	AppointmentStatusNoShow      AppointmentStatus = "NO_SHOW"
)

// Reminder markers recorded once a threshold notification has been requested.
const (
	ReminderMarker24H = "SENT_24H"
	ReminderMarker2H  = "SENT_2H"
)

// OccupyingStatuses are the states that hold the shared time resource.
// RESCHEDULED stays in the set: a rescheduled appointment keeps its (new)
// window booked until staff confirm, cancel or close it out.
var OccupyingStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusRescheduled,
}

// Appointment is a request to occupy the shared service slot for one session.
// Rows are never deleted; terminal states are kept for reporting.
type Appointment struct {
	ID             string            `db:"id" json:"id"`
	CustomerName   string            `db:"customer_name" json:"customer_name"`
	CustomerEmail  string            `db:"customer_email" json:"customer_email"`
	CustomerPhone  string            `db:"customer_phone" json:"customer_phone"`
	ServiceType    ServiceType       `db:"service_type" json:"service_type"`
	DatetimeStart  time.Time         `db:"datetime_start" json:"datetime_start"`
	DatetimeEnd    time.Time         `db:"datetime_end" json:"datetime_end"`
	Status         AppointmentStatus `db:"status" json:"status"`
	AssignedUserID *string           `db:"assigned_user_id" json:"assigned_user_id,omitempty"`
	Notes          string            `db:"notes" json:"notes"`
	RemindersSent  pq.StringArray    `db:"reminders_sent" json:"reminders_sent"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// Occupying reports whether the appointment currently holds the slot.
func (a *Appointment) Occupying() bool {
	return IsOccupyingStatus(a.Status)
}

// IsOccupyingStatus reports whether a status holds the shared resource.
func IsOccupyingStatus(status AppointmentStatus) bool {
	for _, s := range OccupyingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// HasReminder reports whether the marker for a threshold was already recorded.
func (a *Appointment) HasReminder(marker string) bool {
	for _, m := range a.RemindersSent {
		if m == marker {
			return true
		}
	}
	return false
}

// ValidServiceType reports whether the value belongs to the closed enumeration.
func ValidServiceType(value ServiceType) bool {
	switch value {
	case ServiceTypeInStore, ServiceTypeVideoCall, ServiceTypeSourcing:
		return true
	default:
		return false
	}
}

// AppointmentFilter narrows down appointment listings.
type AppointmentFilter struct {
	Statuses  []AppointmentStatus
	StartFrom *time.Time
	StartTo   *time.Time
	Page      int
	PageSize  int
}
