package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xhris2006/moninvest/internal/eventing"
)

const defaultDLQTable = "dead_letter_events"

// DLQStore records events that could not be delivered.
type DLQStore struct {
	db    *sql.DB
	table string
}

// DLQOption customizes the store.
type DLQOption func(*DLQStore)

// WithDLQTable overrides the table name.
func WithDLQTable(table string) DLQOption {
	return func(s *DLQStore) {
		if table != "" {
			s.table = table
		}
	}
}

// NewDLQStore constructs a postgres dead-letter store.
func NewDLQStore(db *sql.DB, opts ...DLQOption) (*DLQStore, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	store := &DLQStore{db: db, table: defaultDLQTable}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// RecordFailure stores the envelope with the failure reason.
func (s *DLQStore) RecordFailure(ctx context.Context, env eventing.Envelope, cause error) error {
	payload := env.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	query := fmt.Sprintf(`
INSERT INTO %s (event_id, event_type, user_id, payload, failure_reason, failed_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (event_id) DO UPDATE SET failure_reason = EXCLUDED.failure_reason, failed_at = EXCLUDED.failed_at`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		env.EventID,
		env.EventType,
		env.UserID,
		[]byte(payload),
		reason,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record dead letter event: %w", err)
	}
	return nil
}
