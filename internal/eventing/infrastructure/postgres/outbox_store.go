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

const defaultOutboxTable = "event_outbox"

// OutboxStore persists envelopes for at-least-once dispatch.
type OutboxStore struct {
	db    *sql.DB
	table string
}

// OutboxOption customizes the store.
type OutboxOption func(*OutboxStore)

// WithOutboxTable overrides the table name.
func WithOutboxTable(table string) OutboxOption {
	return func(s *OutboxStore) {
		if table != "" {
			s.table = table
		}
	}
}

// NewOutboxStore constructs a postgres outbox store.
func NewOutboxStore(db *sql.DB, opts ...OutboxOption) (*OutboxStore, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	store := &OutboxStore{db: db, table: defaultOutboxTable}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Insert stores one envelope in pending state.
func (s *OutboxStore) Insert(ctx context.Context, env eventing.Envelope) (string, error) {
	payload := env.Payload
	if payload == nil {
		payload = json.RawMessage("{}")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (event_id, event_type, occurred_at, correlation_id, user_id, schema_version, payload, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
ON CONFLICT (event_id) DO NOTHING`, s.table)

	_, err := s.db.ExecContext(ctx, query,
		env.EventID,
		env.EventType,
		env.OccurredAt.UTC(),
		nullString(env.CorrelationID),
		env.UserID,
		env.SchemaVersion,
		[]byte(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert outbox event: %w", err)
	}
	return env.EventID, nil
}

// ListPending returns pending envelopes oldest first.
func (s *OutboxStore) ListPending(ctx context.Context, limit int) ([]eventing.OutboxRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT event_id, event_type, occurred_at, COALESCE(correlation_id, ''), user_id, schema_version, payload
FROM %s
WHERE status = 'pending'
ORDER BY created_at ASC
LIMIT $1`, s.table)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox events: %w", err)
	}
	defer rows.Close()

	var records []eventing.OutboxRecord
	for rows.Next() {
		var env eventing.Envelope
		var payload []byte
		if err := rows.Scan(
			&env.EventID,
			&env.EventType,
			&env.OccurredAt,
			&env.CorrelationID,
			&env.UserID,
			&env.SchemaVersion,
			&payload,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		env.Payload = json.RawMessage(payload)
		records = append(records, eventing.OutboxRecord{ID: env.EventID, Envelope: env})
	}
	return records, rows.Err()
}

// MarkSent transitions an event to sent.
func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, "sent")
}

// MarkFailed transitions an event to failed.
func (s *OutboxStore) MarkFailed(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, "failed")
}

func (s *OutboxStore) setStatus(ctx context.Context, id, status string) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = $2 WHERE event_id = $3`, s.table)
	_, err := s.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update outbox event status: %w", err)
	}
	return nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
