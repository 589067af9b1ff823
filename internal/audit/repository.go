package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const defaultTable = "audit_logs"

// Repository persists audit entries in postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// Option customizes the repository.
type Option func(*Repository)

// WithTable overrides the audit table name.
func WithTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("audit: nil db")
	}
	repo := &Repository{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// Log writes one audit entry. Missing id and timestamp are filled in.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if entry.Action == "" {
		return errors.New("audit: empty action")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = NewID(entry.Action, entry.ResourceID, entry.OccurredAt)
	}

	var metadata []byte
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
		metadata = raw
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, occurred_at, actor, role, action, resource_type, resource_id, metadata, payload_digest, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO NOTHING`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OccurredAt.UTC(),
		entry.Actor,
		entry.Role,
		entry.Action,
		entry.ResourceType,
		entry.ResourceID,
		metadata,
		entry.PayloadDigest,
		entry.IP,
		entry.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
