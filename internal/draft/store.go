// Package draft keeps best-effort copies of in-progress offers so a buyer
// can pick up where they left off.
package draft

import (
	"context"
	"errors"
	"time"

	"github.com/evcraddock/offer-form/internal/offer"
)

// ErrNotFound is returned when no draft exists for an id.
var ErrNotFound = errors.New("draft not found")

// DefaultWindow is how long a draft stays eligible for restore.
const DefaultWindow = 24 * time.Hour

// Snapshot is a saved record and when it was saved.
type Snapshot struct {
	Record  offer.Record `json:"record"`
	SavedAt time.Time    `json:"savedAt"`
}

// Store persists the latest snapshot per draft id.
type Store interface {
	Save(ctx context.Context, id string, s Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// Restore loads the draft for id when it was saved less than window before
// now. A stale draft is deleted and reported as ErrNotFound.
func Restore(ctx context.Context, store Store, id string, window time.Duration, now time.Time) (offer.Record, error) {
	s, err := store.Load(ctx, id)
	if err != nil {
		return offer.Record{}, err
	}

	if now.Sub(s.SavedAt) >= window {
		// Best effort: the store's own expiry covers a failed delete.
		_ = store.Delete(ctx, id)
		return offer.Record{}, ErrNotFound
	}

	if len(s.Record.Buyers) == 0 {
		s.Record.Buyers = []offer.Buyer{offer.NewBuyer(now)}
	}
	return s.Record, nil
}
