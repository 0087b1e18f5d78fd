// Package gueststore provides durable scratch storage for an unauthenticated
// actor's cart and favorites, isolated from the authenticated actor's
// server-side equivalents.
package gueststore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meridian-shop/meridian/internal/shared"
)

// KeyPrefix namespaces guest blobs in the shared KV.
const KeyPrefix = "guest_state:"

// Key builds the storage key for one guest session.
func Key(sessionID string) string {
	return KeyPrefix + sessionID
}

// Store is the local guest store for a single guest session. Every mutator
// does read-modify-persist before returning, so a returned mutation is never
// lost to a reload. The mutex keeps interleaved UI-triggered mutations from
// racing each other into an inconsistent persisted snapshot.
type Store struct {
	mu  sync.Mutex
	kv  KV
	key string
	now func() time.Time
}

// New binds a store to its session key.
func New(kv KV, sessionID string) *Store {
	return &Store{kv: kv, key: Key(sessionID), now: time.Now}
}

func (s *Store) load(ctx context.Context) (Snapshot, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("gueststore: load: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("gueststore: decode: %w", err)
	}
	return snap, nil
}

func (s *Store) persist(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("gueststore: encode: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("gueststore: persist: %w", err)
	}
	return nil
}

// AddCartLine upserts by (productID, sizeID). An existing line has the
// quantity added, not replaced. Quantity must be positive; validation runs
// before any persistence side effect.
func (s *Store) AddCartLine(ctx context.Context, productID int64, sizeID *int64, quantity int) error {
	if quantity <= 0 {
		return shared.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range snap.CartLines {
		if snap.CartLines[i].SameKey(productID, sizeID) {
			snap.CartLines[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		snap.CartLines = append(snap.CartLines, CartLine{ProductID: productID, SizeID: sizeID, Quantity: quantity})
	}
	return s.persist(ctx, snap)
}

// RemoveCartLine removes the matching line. Absence is a no-op, not an error.
func (s *Store) RemoveCartLine(ctx context.Context, productID int64, sizeID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := snap.CartLines[:0]
	for _, line := range snap.CartLines {
		if !line.SameKey(productID, sizeID) {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(snap.CartLines) {
		return nil
	}
	snap.CartLines = kept
	return s.persist(ctx, snap)
}

// AddFavorite upserts by product id. Re-adding refreshes the snapshot but
// keeps the original AddedAt, so a duplicate add is not a move-to-top.
func (s *Store) AddFavorite(ctx context.Context, product ProductSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range snap.Favorites {
		if snap.Favorites[i].ProductID == product.ID {
			snap.Favorites[i].Product = product
			found = true
			break
		}
	}
	if !found {
		snap.Favorites = append(snap.Favorites, Favorite{ProductID: product.ID, Product: product, AddedAt: s.now()})
	}
	return s.persist(ctx, snap)
}

// RemoveFavorite removes by product id. Absence is a no-op.
func (s *Store) RemoveFavorite(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := snap.Favorites[:0]
	for _, fav := range snap.Favorites {
		if fav.ProductID != productID {
			kept = append(kept, fav)
		}
	}
	if len(kept) == len(snap.Favorites) {
		return nil
	}
	snap.Favorites = kept
	return s.persist(ctx, snap)
}

// ReadAll returns the current snapshot without mutating it.
func (s *Store) ReadAll(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Replace overwrites the snapshot wholesale. The reconciler uses it to leave
// only the items that failed to migrate.
func (s *Store) Replace(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Empty() {
		return s.clearLocked(ctx)
	}
	return s.persist(ctx, snap)
}

// Clear empties both collections. Called once reconciliation completes or
// the guest explicitly discards guest data.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("gueststore: clear: %w", err)
	}
	return nil
}

// HasAnyData reports whether either collection is non-empty. The session
// machine uses it as a cheap short-circuit before reconciliation.
func (s *Store) HasAnyData(ctx context.Context) (bool, error) {
	snap, err := s.ReadAll(ctx)
	if err != nil {
		return false, err
	}
	return !snap.Empty(), nil
}
