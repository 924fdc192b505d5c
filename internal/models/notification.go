package models

import "time"

// NotificationKind enumerates outbound message types.
type NotificationKind string

const (
	NotificationBookingReceived    NotificationKind = "BOOKING_RECEIVED"
	NotificationBookingConfirmed   NotificationKind = "BOOKING_CONFIRMED"
	NotificationBookingCancelled   NotificationKind = "BOOKING_CANCELLED"
	NotificationBookingRescheduled NotificationKind = "BOOKING_RESCHEDULED"
	NotificationReminder24H        NotificationKind = "REMINDER_24H"
	NotificationReminder2H         NotificationKind = "REMINDER_2H"
)

// NotificationStatus tracks dispatch progress of an outbound record.
type NotificationStatus string

const (
	NotificationStatusQueued NotificationStatus = "QUEUED"
	NotificationStatusSent   NotificationStatus = "SENT"
	NotificationStatusFailed NotificationStatus = "FAILED"
)

// Notification is an outbound event recorded after a committed state change.
// Delivery is best-effort; a FAILED row never reverses the transition that
// produced it.
type Notification struct {
	ID            string             `db:"id" json:"id"`
	AppointmentID string             `db:"appointment_id" json:"appointment_id"`
	Kind          NotificationKind   `db:"kind" json:"kind"`
	Recipient     string             `db:"recipient" json:"recipient"`
	Status        NotificationStatus `db:"status" json:"status"`
	Detail        string             `db:"detail" json:"detail,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// AppointmentSnapshot carries the fields a notification template needs,
// captured at enqueue time so later mutations do not alter the message.
type AppointmentSnapshot struct {
	AppointmentID string            `json:"appointment_id"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CustomerPhone string            `json:"customer_phone"`
	ServiceType   ServiceType       `json:"service_type"`
	DatetimeStart time.Time         `json:"datetime_start"`
	DatetimeEnd   time.Time         `json:"datetime_end"`
	Status        AppointmentStatus `json:"status"`
}

// SnapshotOf captures the notification-relevant fields of an appointment.
func SnapshotOf(a *Appointment) AppointmentSnapshot {
	return AppointmentSnapshot{
		AppointmentID: a.ID,
		CustomerName:  a.CustomerName,
		CustomerEmail: a.CustomerEmail,
		CustomerPhone: a.CustomerPhone,
		ServiceType:   a.ServiceType,
		DatetimeStart: a.DatetimeStart,
		DatetimeEnd:   a.DatetimeEnd,
		Status:        a.Status,
	}
}
