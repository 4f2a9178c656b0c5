package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-tax/internal/platform/db"
)

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore remembers client request keys so retried submissions are
// rejected instead of enqueued twice.
type IdempotencyStore struct {
	db  db.DBTX
	now func() time.Time
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(conn db.DBTX) *IdempotencyStore {
	return &IdempotencyStore{db: conn, now: time.Now}
}

// CheckAndInsert claims key for module. A key already claimed, by any module,
// yields ErrIdempotencyConflict.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.db == nil {
		return errors.New("idempotency store not initialised")
	}
	details := map[string]string{}
	if key == "" {
		details["key"] = "required"
	}
	if module == "" {
		details["module"] = "required"
	}
	if len(details) > 0 {
		return NewValidationError(errors.New("invalid idempotency key"), details)
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO NOTHING`, key, module, s.now().UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("idempotency: claim %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a key so a failed request can be retried.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key)
	return err
}

// Cleanup removes keys older than retention. A non-positive retention is a no-op.
func (s *IdempotencyStore) Cleanup(ctx context.Context, retention time.Duration) error {
	if s == nil || s.db == nil || retention <= 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().UTC().Add(-retention))
	return err
}
