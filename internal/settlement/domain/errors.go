package domain

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind classifies per-pass settlement failures.
type ErrorKind string

const (
	// ErrorKindValidation covers malformed pass rows; the pass is skipped.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindDataIntegrity covers referential failures such as a
	// missing user row behind a pass.
	ErrorKindDataIntegrity ErrorKind = "data_integrity"
	// ErrorKindTransientStorage covers connection-level storage faults
	// that a later run may succeed on.
	ErrorKindTransientStorage ErrorKind = "transient_storage"
	// ErrorKindUnknown is everything else.
	ErrorKindUnknown ErrorKind = "unknown"
)

// Classify maps an error to its settlement error kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	if errors.Is(err, ErrInvalidPrincipal) || errors.Is(err, ErrInvalidRate) {
		return ErrorKindValidation
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorKindTransientStorage
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23503":
			// foreign key violation: the pass points at a missing row
			return ErrorKindDataIntegrity
		case pgErr.Code == "23505":
			return ErrorKindDataIntegrity
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08":
			// connection exception class
			return ErrorKindTransientStorage
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			// serialization failure, deadlock
			return ErrorKindTransientStorage
		}
	}
	return ErrorKindUnknown
}
