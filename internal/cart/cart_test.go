package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/cart"
)

func TestNewCartDefaults(t *testing.T) {
	c := cart.New()
	require.True(t, c.IsEmpty())
	require.Equal(t, cart.WalkIn, c.CustomerRef)
	require.Equal(t, cart.PaymentCash, c.PaymentMethod)
	require.Equal(t, cart.DiscountPercent, c.Discount.Kind)
	require.True(t, c.Valid())
}

func TestAddItemOutOfStock(t *testing.T) {
	c := cart.New()
	err := c.AddItem("A", "Beans", 10000, 0)
	require.ErrorIs(t, err, cart.ErrOutOfStock)
	require.True(t, c.IsEmpty(), "rejected add must not mutate the cart")
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddItem("A", "Beans", 10000, 2))
	require.NoError(t, c.AddItem("A", "Beans", 10000, 2))

	item, ok := c.Find("A")
	require.True(t, ok)
	require.Equal(t, 2, item.Qty)
	require.Len(t, c.Items, 1, "same product must not duplicate a line")

	err := c.AddItem("A", "Beans", 10000, 2)
	require.ErrorIs(t, err, cart.ErrStockExceeded)
	item, _ = c.Find("A")
	require.Equal(t, 2, item.Qty, "rejected increment must leave quantity unchanged")
}

func TestAddItemRefreshesStockSnapshot(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddItem("A", "Beans", 10000, 1))

	// Stock grew on a restock between adds; the new snapshot wins.
	require.NoError(t, c.AddItem("A", "Beans", 10000, 5))
	item, _ := c.Find("A")
	require.Equal(t, 2, item.Qty)
	require.Equal(t, 5, item.AvailableStock)
}

func TestSetQuantity(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddItem("A", "Beans", 10000, 5))

	require.NoError(t, c.SetQuantity("A", 4))
	item, _ := c.Find("A")
	require.Equal(t, 4, item.Qty)

	err := c.SetQuantity("A", 6)
	require.ErrorIs(t, err, cart.ErrStockExceeded)
	item, _ = c.Find("A")
	require.Equal(t, 4, item.Qty, "rejected quantity must leave the line unchanged")

	require.NoError(t, c.SetQuantity("A", 0))
	require.True(t, c.IsEmpty(), "zero quantity removes the line")

	err = c.SetQuantity("missing", 3)
	require.ErrorIs(t, err, cart.ErrItemNotFound)

	require.NoError(t, c.SetQuantity("missing", 0), "non-positive quantity on an absent product mirrors RemoveItem")
}

func TestStockInvariantHolds(t *testing.T) {
	c := cart.New()
	ops := []func() error{
		func() error { return c.AddItem("A", "Beans", 10000, 3) },
		func() error { return c.AddItem("A", "Beans", 10000, 3) },
		func() error { return c.SetQuantity("A", 3) },
		func() error { return c.AddItem("A", "Beans", 10000, 3) },
		func() error { return c.SetQuantity("A", 9) },
		func() error { return c.AddItem("B", "Rice", 5000, 1) },
		func() error { return c.AddItem("B", "Rice", 5000, 1) },
	}
	for _, op := range ops {
		_ = op()
		for _, it := range c.Items {
			require.LessOrEqual(t, it.Qty, it.AvailableStock)
			require.GreaterOrEqual(t, it.Qty, 1)
		}
	}
}

func TestRemoveItem(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddItem("A", "Beans", 10000, 3))
	require.NoError(t, c.AddItem("B", "Rice", 5000, 3))

	c.RemoveItem("A")
	_, ok := c.Find("A")
	require.False(t, ok)
	require.Len(t, c.Items, 1)

	c.RemoveItem("A") // absent: no-op
	require.Len(t, c.Items, 1)
}

func TestSetDiscountClamps(t *testing.T) {
	c := cart.New()

	require.NoError(t, c.SetDiscount(cart.Discount{Kind: cart.DiscountPercent, PercentBps: 15000}))
	require.Equal(t, int64(10000), c.Discount.PercentBps, "percent above 100 clamps to 100")

	err := c.SetDiscount(cart.Discount{Kind: cart.DiscountPercent, PercentBps: -500})
	require.ErrorIs(t, err, cart.ErrInvalidDiscount)
	require.Equal(t, int64(10000), c.Discount.PercentBps, "rejected discount leaves prior value")

	err = c.SetDiscount(cart.Discount{Kind: cart.DiscountFixed, Value: -5})
	require.ErrorIs(t, err, cart.ErrInvalidDiscount)

	require.NoError(t, c.SetDiscount(cart.Discount{Kind: cart.DiscountFixed, Value: 30000}))
	require.Equal(t, cart.DiscountFixed, c.Discount.Kind)

	err = c.SetDiscount(cart.Discount{Kind: cart.DiscountKind("bogus")})
	require.ErrorIs(t, err, cart.ErrInvalidDiscount)
}

func TestClearResetsEverything(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddItem("A", "Beans", 10000, 3))
	require.NoError(t, c.SetDiscount(cart.Discount{Kind: cart.DiscountFixed, Value: 500}))
	c.SetCustomer("cust-1")
	c.SetPaymentMethod(cart.PaymentCard)

	c.Clear()
	require.True(t, c.IsEmpty())
	require.Equal(t, cart.WalkIn, c.CustomerRef)
	require.Equal(t, cart.PaymentCash, c.PaymentMethod)
	require.Equal(t, cart.Discount{Kind: cart.DiscountPercent}, c.Discount)
}

func TestCloneDoesNotAlias(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.AddItem("A", "Beans", 10000, 3))
	clone := c.Clone()
	require.NoError(t, c.SetQuantity("A", 2))
	item, _ := clone.Find("A")
	require.Equal(t, 1, item.Qty)
}

func TestValidRejectsCorruptState(t *testing.T) {
	cases := map[string]*cart.Cart{
		"duplicate product": {
			Items: []cart.LineItem{
				{ProductID: "A", Qty: 1, AvailableStock: 1},
				{ProductID: "A", Qty: 1, AvailableStock: 1},
			},
			CustomerRef:   cart.WalkIn,
			Discount:      cart.Discount{Kind: cart.DiscountPercent},
			PaymentMethod: cart.PaymentCash,
		},
		"zero quantity": {
			Items:         []cart.LineItem{{ProductID: "A", Qty: 0, AvailableStock: 1}},
			CustomerRef:   cart.WalkIn,
			Discount:      cart.Discount{Kind: cart.DiscountPercent},
			PaymentMethod: cart.PaymentCash,
		},
		"unknown payment method": {
			CustomerRef:   cart.WalkIn,
			Discount:      cart.Discount{Kind: cart.DiscountPercent},
			PaymentMethod: cart.PaymentMethod("crypto"),
		},
		"percent out of range": {
			CustomerRef:   cart.WalkIn,
			Discount:      cart.Discount{Kind: cart.DiscountPercent, PercentBps: 20000},
			PaymentMethod: cart.PaymentCash,
		},
		"empty customer ref": {
			Discount:      cart.Discount{Kind: cart.DiscountPercent},
			PaymentMethod: cart.PaymentCash,
		},
	}
	for name, c := range cases {
		if c.Valid() {
			t.Fatalf("%s: expected invalid", name)
		}
	}
}
