// Package postgres stores in-app notifications.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xhris2006/moninvest/internal/notify"
)

const defaultTable = "notifications"

// Store writes and reads in-app notifications.
type Store struct {
	db    *sql.DB
	table string
}

// Option customizes the store.
type Option func(*Store)

// WithTable overrides the notifications table name.
func WithTable(table string) Option {
	return func(s *Store) {
		if table != "" {
			s.table = table
		}
	}
}

// NewStore constructs a notification store.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	store := &Store{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Name identifies the channel in metrics and logs.
func (s *Store) Name() string { return "in_app" }

// Notify stores an in-app notification.
func (s *Store) Notify(ctx context.Context, userID int64, title, body string) error {
	query := fmt.Sprintf(`
INSERT INTO %s (user_id, title, body, read, created_at)
VALUES ($1, $2, $3, false, $4)`, s.table)

	_, err := s.db.ExecContext(ctx, query, userID, title, body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (s *Store) ListByUser(ctx context.Context, userID int64, limit int) ([]notify.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, user_id, title, body, read, created_at
FROM %s
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`, s.table)

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []notify.Notification
	for rows.Next() {
		var n notify.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead marks the user's notification as read.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID int64) error {
	query := fmt.Sprintf(`UPDATE %s SET read = true WHERE id = $1 AND user_id = $2`, s.table)
	_, err := s.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
