package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/boutique-booking-api/internal/models"
)

// NotificationRepository records outbound notification requests and their
// dispatch outcome.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a QUEUED notification record.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	if n.Status == "" {
		n.Status = models.NotificationStatusQueued
	}
	const query = `INSERT INTO notifications (id, appointment_id, kind, recipient, status, detail, created_at, updated_at)
VALUES (:id, :appointment_id, :kind, :recipient, :status, :detail, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// UpdateStatus records the dispatch outcome.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id string, status models.NotificationStatus, detail string) error {
	const query = `UPDATE notifications SET status = $2, detail = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, detail, time.Now().UTC()); err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	return nil
}

// ListByAppointment returns all notification records for an appointment,
// oldest first.
func (r *NotificationRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error) {
	const query = `SELECT id, appointment_id, kind, recipient, status, detail, created_at, updated_at
FROM notifications WHERE appointment_id = $1 ORDER BY created_at ASC`
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, appointmentID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}
