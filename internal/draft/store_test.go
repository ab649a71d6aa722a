package draft_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/draft"
	"github.com/noah-isme/backend-kasir/internal/money"
)

func newStore(t *testing.T) (*draft.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	fixed := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	return &draft.Store{Client: client, Now: func() time.Time { return fixed }}, mr
}

func TestRoundTrip(t *testing.T) {
	carts := map[string]func(t *testing.T) *cart.Cart{
		"empty": func(t *testing.T) *cart.Cart { return cart.New() },
		"items with percent discount": func(t *testing.T) *cart.Cart {
			c := cart.New()
			require.NoError(t, c.AddItem("A", "Beans", money.FromMinorUnits(10000), 5))
			require.NoError(t, c.AddItem("B", "Rice", money.FromMinorUnits(5000), 2))
			require.NoError(t, c.SetDiscount(cart.Discount{Kind: cart.DiscountPercent, PercentBps: 1000}))
			return c
		},
		"fixed discount card customer": func(t *testing.T) *cart.Cart {
			c := cart.New()
			require.NoError(t, c.AddItem("A", "Beans", money.FromMinorUnits(10000), 5))
			require.NoError(t, c.SetDiscount(cart.Discount{Kind: cart.DiscountFixed, Value: 2500}))
			c.SetCustomer("cust-42")
			c.SetPaymentMethod(cart.PaymentCard)
			return c
		},
	}
	for name, build := range carts {
		t.Run(name, func(t *testing.T) {
			store, _ := newStore(t)
			ctx := context.Background()
			original := build(t)

			require.NoError(t, store.Save(ctx, original))
			restored, savedAt, err := store.Load(ctx)
			require.NoError(t, err)
			require.Equal(t, *original, *restored)
			require.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), savedAt)
		})
	}
}

func TestLoadMissingDraft(t *testing.T) {
	store, _ := newStore(t)
	_, _, err := store.Load(context.Background())
	require.ErrorIs(t, err, draft.ErrNotFound)
}

func TestLoadCorruptDraft(t *testing.T) {
	store, mr := newStore(t)
	mr.Set(draft.DefaultKey, "{not json")
	_, _, err := store.Load(context.Background())
	require.ErrorIs(t, err, draft.ErrNotFound)
}

func TestLoadForeignPayload(t *testing.T) {
	store, mr := newStore(t)
	// Parses as JSON but violates cart invariants.
	mr.Set(draft.DefaultKey, `{"cart":{"items":[{"productId":"A","qty":-2}]},"savedAt":"2025-06-01T09:30:00Z"}`)
	_, _, err := store.Load(context.Background())
	require.ErrorIs(t, err, draft.ErrNotFound)
}

func TestLastWriteWins(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	first := cart.New()
	require.NoError(t, first.AddItem("A", "Beans", money.FromMinorUnits(10000), 5))
	require.NoError(t, store.Save(ctx, first))

	second := cart.New()
	require.NoError(t, second.AddItem("B", "Rice", money.FromMinorUnits(5000), 5))
	require.NoError(t, store.Save(ctx, second))

	restored, _, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, *second, *restored)
}

func TestClear(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, cart.New()))
	require.NoError(t, store.Clear(ctx))
	_, _, err := store.Load(ctx)
	require.ErrorIs(t, err, draft.ErrNotFound)

	require.NoError(t, store.Clear(ctx), "clearing an empty slot is a no-op")
}
