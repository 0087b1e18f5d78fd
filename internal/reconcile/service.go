// Package reconcile merges a guest session's locally accumulated cart and
// favorites into the authenticated actor's server-side equivalents. The merge
// is an explicit, inspectable step with its own result type so it can be
// retried and tested independently of authentication.
package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-shop/meridian/internal/gueststore"
	"github.com/meridian-shop/meridian/internal/shared"
)

// ServerCart is the server-side cart upsert endpoint, additive on quantity
// per (product, size) key.
type ServerCart interface {
	UpsertCartLine(ctx context.Context, token string, line gueststore.CartLine) error
}

// ServerFavorites is the server-side favorites add endpoint, idempotent per
// product. Implementations signal a tolerated duplicate with
// shared.ErrAlreadyExists.
type ServerFavorites interface {
	AddFavorite(ctx context.Context, token string, fav gueststore.Favorite) error
}

// Summary reports one merge run: counts submitted, tolerated duplicates and
// failures. The caller decides whether a partial failure is worth surfacing.
type Summary struct {
	CartSubmitted      int  `json:"cart_submitted"`
	CartFailed         int  `json:"cart_failed"`
	FavoritesSubmitted int  `json:"favorites_submitted"`
	FavoritesDuplicate int  `json:"favorites_duplicate"`
	FavoritesFailed    int  `json:"favorites_failed"`
	Cleared            bool `json:"cleared"`
	AlreadyMerged      bool `json:"already_merged"`
	// Deferred means the merge never ran to completion (an infrastructure
	// fault around the guest store); the data remains and a retry is needed.
	// Set by the session machine, not by Merge itself.
	Deferred bool `json:"deferred,omitempty"`
}

// Failed returns the total number of failed submissions.
func (s Summary) Failed() int {
	return s.CartFailed + s.FavoritesFailed
}

// Partial reports whether some items failed to migrate and remain in the
// guest store.
func (s Summary) Partial() bool {
	return s.Failed() > 0
}

// IdempotencyGuard reserves merge keys so the same snapshot is never
// submitted twice. *shared.IdempotencyStore implements it.
type IdempotencyGuard interface {
	Reserve(ctx context.Context, key, scope string) error
	Release(ctx context.Context, key string) error
}

// Service runs the merge. The idempotency guard is optional; when configured
// it stops the same snapshot from being merged twice (e.g. two tabs racing
// through sign-in).
type Service struct {
	cart        ServerCart
	favorites   ServerFavorites
	idempotency IdempotencyGuard
	logger      *slog.Logger
}

// NewService constructs the reconciliation service.
func NewService(cart ServerCart, favorites ServerFavorites, idempotency IdempotencyGuard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cart: cart, favorites: favorites, idempotency: idempotency, logger: logger}
}

const idempotencyScope = "reconcile"

func snapshotKey(actorID int64, snap gueststore.Snapshot) string {
	data, _ := json.Marshal(snap)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%d:%x", actorID, sum[:16])
}

// Merge submits every guest cart line and favorite to the server, waits for
// all of them, and clears the guest store only when nothing genuinely
// failed. Failed items stay behind so a later attempt can retry them; a
// partial outcome is reported in the Summary, not as an error. The returned
// error is reserved for infrastructure faults around the guest store itself.
func (s *Service) Merge(ctx context.Context, token string, actorID int64, store *gueststore.Store) (Summary, error) {
	var summary Summary

	snap, err := store.ReadAll(ctx)
	if err != nil {
		return summary, err
	}
	if snap.Empty() {
		// Common case: nothing accumulated, zero network calls.
		return summary, nil
	}

	key := snapshotKey(actorID, snap)
	if s.idempotency != nil {
		switch err := s.idempotency.Reserve(ctx, key, idempotencyScope); {
		case errors.Is(err, shared.ErrIdempotencyConflict):
			// This exact snapshot was merged before; don't double-add.
			summary.AlreadyMerged = true
			if err := store.Clear(ctx); err != nil {
				return summary, err
			}
			summary.Cleared = true
			return summary, nil
		case err != nil:
			// The guard is advisory; a broken guard must not block sign-in.
			s.logger.Warn("reconcile idempotency reserve", slog.Any("error", err))
		}
	}

	lineErrs := make([]error, len(snap.CartLines))
	favErrs := make([]error, len(snap.Favorites))

	// All submissions are independent and run concurrently in flight; no
	// assumption is made about completion order, and an individual failure
	// must not abort the rest, so every goroutine returns nil.
	g, gctx := errgroup.WithContext(ctx)
	for i, line := range snap.CartLines {
		i, line := i, line
		g.Go(func() error {
			lineErrs[i] = s.cart.UpsertCartLine(gctx, token, line)
			return nil
		})
	}
	for i, fav := range snap.Favorites {
		i, fav := i, fav
		g.Go(func() error {
			favErrs[i] = s.favorites.AddFavorite(gctx, token, fav)
			return nil
		})
	}
	_ = g.Wait()

	var residual gueststore.Snapshot
	for i, line := range snap.CartLines {
		if lineErrs[i] != nil {
			summary.CartFailed++
			residual.CartLines = append(residual.CartLines, line)
			continue
		}
		summary.CartSubmitted++
	}
	for i, fav := range snap.Favorites {
		switch {
		case favErrs[i] == nil:
			summary.FavoritesSubmitted++
		case errors.Is(favErrs[i], shared.ErrAlreadyExists):
			summary.FavoritesDuplicate++
		default:
			summary.FavoritesFailed++
			residual.Favorites = append(residual.Favorites, fav)
		}
	}

	if summary.Failed() == 0 {
		if err := store.Clear(ctx); err != nil {
			return summary, err
		}
		summary.Cleared = true
		return summary, nil
	}

	// The reservation must not outlive an incomplete merge: release it
	// before touching the store, so that even if writing the residual fails
	// the next attempt re-merges instead of hitting the conflict branch and
	// clearing data that never reached the server.
	if s.idempotency != nil {
		if err := s.idempotency.Release(ctx, key); err != nil {
			s.logger.Warn("reconcile idempotency release", slog.Any("error", err))
		}
	}
	// Keep exactly the failed items so nothing is lost and a retry only
	// re-submits what is still pending.
	if err := store.Replace(ctx, residual); err != nil {
		return summary, err
	}
	s.logger.Warn("reconcile partial failure",
		slog.Int("cart_failed", summary.CartFailed),
		slog.Int("favorites_failed", summary.FavoritesFailed))
	return summary, nil
}
