package store

import (
	"context"
	"time"

	"github.com/mrcolv86/bierserv/internal/models"
)

// CreateNotification creates a write-once notification record
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, message, type, read)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, n, query, n.RecipientID, n.Message, n.Type)
}

// GetNotifications retrieves notifications visible to a recipient: rows
// addressed to them plus broadcast rows (NULL recipient), newest first.
func (s *Store) GetNotifications(ctx context.Context, recipientID int64, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE recipient_id IS NULL OR recipient_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		recipientID, limit)
	return notifications, err
}

// MarkNotificationRead flags a notification as read
func (s *Store) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = TRUE WHERE id = $1", id)
	return err
}

// AddDailySales adds an order's amount to the daily sales aggregate for the
// given day. Used by the reporting worker; idempotency is handled upstream
// by the consumer's processed-event check.
func (s *Store) AddDailySales(ctx context.Context, day time.Time, amount float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_sales (day, order_count, total_amount)
		VALUES ($1, 1, $2)
		ON CONFLICT (day) DO UPDATE
		SET order_count = daily_sales.order_count + 1,
		    total_amount = daily_sales.total_amount + $2`,
		day, amount)
	return err
}

// GetDailySales retrieves sales aggregates between two days inclusive
func (s *Store) GetDailySales(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	var rows []models.DailySales
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM daily_sales WHERE day BETWEEN $1 AND $2 ORDER BY day", from, to)
	return rows, err
}

// IsEventProcessed checks if a broker event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks a broker event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
