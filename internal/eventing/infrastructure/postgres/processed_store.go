package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultProcessedTable = "processed_events"

// ProcessedStore tracks per-consumer processed event ids.
type ProcessedStore struct {
	db    *sql.DB
	table string
}

// ProcessedOption customizes the store.
type ProcessedOption func(*ProcessedStore)

// WithProcessedTable overrides the table name.
func WithProcessedTable(table string) ProcessedOption {
	return func(s *ProcessedStore) {
		if table != "" {
			s.table = table
		}
	}
}

// NewProcessedStore constructs a postgres processed-events store.
func NewProcessedStore(db *sql.DB, opts ...ProcessedOption) (*ProcessedStore, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	store := &ProcessedStore{db: db, table: defaultProcessedTable}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// HasProcessed reports whether the consumer already handled the event.
func (s *ProcessedStore) HasProcessed(ctx context.Context, eventID, consumerName string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE event_id = $1 AND consumer_name = $2`, s.table)
	var one int
	err := s.db.QueryRowContext(ctx, query, eventID, consumerName).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed event: %w", err)
	}
	return true, nil
}

// MarkProcessed records the event as handled by the consumer.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, eventID, consumerName string) error {
	query := fmt.Sprintf(`
INSERT INTO %s (event_id, consumer_name, processed_at)
VALUES ($1, $2, $3)
ON CONFLICT (event_id, consumer_name) DO NOTHING`, s.table)
	_, err := s.db.ExecContext(ctx, query, eventID, consumerName, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark processed event: %w", err)
	}
	return nil
}
