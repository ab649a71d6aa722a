package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-kasir/internal/cart"
)

// ErrNotFound is returned when no draft exists or the stored blob cannot be
// restored. A corrupt draft is indistinguishable from a missing one: the
// store never hands back a partially restored cart.
var ErrNotFound = errors.New("draft: not found")

// DefaultKey is the single well-known slot an in-progress sale is parked in.
// One draft per terminal, last write wins.
const DefaultKey = "checkout:draft"

// Draft is the persisted form of an in-progress sale.
type Draft struct {
	Cart    cart.Cart `json:"cart"`
	SavedAt time.Time `json:"savedAt"`
}

// Store persists the draft slot in Redis as one JSON blob.
type Store struct {
	Client *redis.Client
	Key    string
	Now    func() time.Time
}

func (s *Store) key() string {
	if s == nil || s.Key == "" {
		return DefaultKey
	}
	return s.Key
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Save overwrites the draft slot with the current cart state.
func (s *Store) Save(ctx context.Context, c *cart.Cart) error {
	if s == nil || s.Client == nil {
		return errors.New("draft: store not configured")
	}
	if c == nil {
		return errors.New("draft: nil cart")
	}
	payload := Draft{Cart: *c.Clone(), SavedAt: s.now().UTC()}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("draft: encode: %w", err)
	}
	return s.Client.Set(ctx, s.key(), data, 0).Err()
}

// Load restores the persisted draft. Missing, unparseable, or structurally
// invalid payloads all surface as ErrNotFound.
func (s *Store) Load(ctx context.Context) (*cart.Cart, time.Time, error) {
	if s == nil || s.Client == nil {
		return nil, time.Time{}, errors.New("draft: store not configured")
	}
	data, err := s.Client.Get(ctx, s.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("draft: load: %w", err)
	}
	var payload Draft
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	restored := payload.Cart
	if !restored.Valid() {
		return nil, time.Time{}, fmt.Errorf("%w: stored draft fails cart invariants", ErrNotFound)
	}
	return &restored, payload.SavedAt, nil
}

// Clear removes the draft slot. Clearing an empty slot is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return errors.New("draft: store not configured")
	}
	return s.Client.Del(ctx, s.key()).Err()
}
