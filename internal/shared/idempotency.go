package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIdempotencyConflict indicates the key was already reserved, i.e. the
// guarded operation already ran.
var ErrIdempotencyConflict = errors.New("idempotent operation already processed")

// IdempotencyStore reserves processed keys in reconcile_keys so that the
// same guest snapshot is never merged into a server cart twice.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// Reserve claims the key, returning ErrIdempotencyConflict when it was
// claimed before.
func (s *IdempotencyStore) Reserve(ctx context.Context, key, scope string) error {
	if s == nil || s.pool == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if scope == "" {
		return errors.New("idempotency scope required")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO reconcile_keys (key, scope, created_at) VALUES ($1, $2, $3)`, key, scope, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Release removes a key, used to roll back a reservation whose operation
// failed partway so it can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM reconcile_keys WHERE key = $1`, key)
	return err
}

// Cleanup removes reservations older than the retention window.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil || s.pool == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM reconcile_keys WHERE created_at < $1`, cutoff)
	return err
}
