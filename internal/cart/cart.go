package cart

import (
	"errors"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// ErrOutOfStock is returned when a product with zero available stock is added.
var ErrOutOfStock = errors.New("cart: product out of stock")

// ErrStockExceeded is returned when a quantity change would exceed the
// available stock captured at the last successful mutation.
var ErrStockExceeded = errors.New("cart: quantity exceeds available stock")

// ErrInvalidDiscount is returned for negative discount input.
var ErrInvalidDiscount = errors.New("cart: invalid discount")

// ErrItemNotFound is returned when a quantity change names a product that is
// not in the cart.
var ErrItemNotFound = errors.New("cart: item not in cart")

// WalkIn is the customer reference for a sale with no registered customer.
const WalkIn = "walk-in"

// PaymentMethod enumerates how the customer pays.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// DiscountKind selects how the discount amount is interpreted.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percentage"
	DiscountFixed   DiscountKind = "fixed"
)

// Discount is the cart-level discount. Percent discounts carry basis points
// (10% == 1000 bps, capped at 10000); fixed discounts carry a money amount
// which is clamped to the subtotal when the cart is priced.
type Discount struct {
	Kind       DiscountKind `json:"kind"`
	PercentBps int64        `json:"percentBps"`
	Value      money.Money  `json:"value"`
}

// LineItem is one product entry in the cart. AvailableStock is the stock
// figure captured at the last successful mutation touching this line; it is
// advisory and revalidated against live stock at finalize time.
type LineItem struct {
	ProductID      string      `json:"productId"`
	Name           string      `json:"name"`
	UnitPrice      money.Money `json:"unitPrice"`
	Qty            int         `json:"qty"`
	AvailableStock int         `json:"availableStock"`
}

// Cart is the mutable state of one in-progress sale. It is owned by exactly
// one checkout session and mutated on a single sequential control flow, so it
// carries no locking of its own. Every mutator validates before it writes:
// a rejected operation leaves the cart exactly as it was.
type Cart struct {
	Items         []LineItem    `json:"items"`
	CustomerRef   string        `json:"customerRef"`
	Discount      Discount      `json:"discount"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// New returns an empty cart for a walk-in cash sale.
func New() *Cart {
	return &Cart{
		CustomerRef:   WalkIn,
		Discount:      Discount{Kind: DiscountPercent},
		PaymentMethod: PaymentCash,
	}
}

// AddItem adds one unit of a product. An existing line is incremented instead
// of duplicated; its stock figure is refreshed from the provided snapshot
// before the bound is checked.
func (c *Cart) AddItem(productID, name string, unitPrice money.Money, availableStock int) error {
	if availableStock < 0 {
		availableStock = 0
	}
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if c.Items[i].Qty+1 > availableStock {
			return ErrStockExceeded
		}
		c.Items[i].Qty++
		c.Items[i].AvailableStock = availableStock
		return nil
	}
	if availableStock < 1 {
		return ErrOutOfStock
	}
	c.Items = append(c.Items, LineItem{
		ProductID:      productID,
		Name:           name,
		UnitPrice:      unitPrice,
		Qty:            1,
		AvailableStock: availableStock,
	})
	return nil
}

// SetQuantity replaces a line's quantity. A non-positive quantity removes the
// line (absent product included, matching RemoveItem's no-op); a quantity
// above the captured stock is rejected, and a positive quantity for a product
// not in the cart returns ErrItemNotFound.
func (c *Cart) SetQuantity(productID string, qty int) error {
	if qty <= 0 {
		c.RemoveItem(productID)
		return nil
	}
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if qty > c.Items[i].AvailableStock {
			return ErrStockExceeded
		}
		c.Items[i].Qty = qty
		return nil
	}
	return ErrItemNotFound
}

// RemoveItem deletes a line. Removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID string) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear resets the cart to its initial state.
func (c *Cart) Clear() {
	c.Items = nil
	c.CustomerRef = WalkIn
	c.Discount = Discount{Kind: DiscountPercent}
	c.PaymentMethod = PaymentCash
}

// SetDiscount validates and stores the discount. Negative input is rejected;
// percent discounts above 100% are clamped to 100%.
func (c *Cart) SetDiscount(d Discount) error {
	switch d.Kind {
	case DiscountPercent:
		if d.PercentBps < 0 {
			return ErrInvalidDiscount
		}
		if d.PercentBps > 10000 {
			d.PercentBps = 10000
		}
		c.Discount = Discount{Kind: DiscountPercent, PercentBps: d.PercentBps}
		return nil
	case DiscountFixed:
		if d.Value < 0 {
			return ErrInvalidDiscount
		}
		c.Discount = Discount{Kind: DiscountFixed, Value: d.Value}
		return nil
	default:
		return ErrInvalidDiscount
	}
}

// SetCustomer attaches a customer reference. An empty reference means walk-in.
func (c *Cart) SetCustomer(ref string) {
	if ref == "" {
		ref = WalkIn
	}
	c.CustomerRef = ref
}

// SetPaymentMethod records how the sale will be paid.
func (c *Cart) SetPaymentMethod(m PaymentMethod) {
	c.PaymentMethod = m
}

// IsEmpty reports whether the cart has no line items.
func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Find returns the line for a product if present.
func (c *Cart) Find(productID string) (LineItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

// Clone returns a deep copy. Snapshots handed to the draft store or the
// presentation layer must not alias the live item slice.
func (c *Cart) Clone() *Cart {
	out := *c
	if c.Items != nil {
		out.Items = make([]LineItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return &out
}

// Valid reports whether a deserialized cart satisfies the structural
// invariants: unique product ids, positive quantities, non-negative prices
// and a recognised discount kind and payment method.
func (c *Cart) Valid() bool {
	if c == nil {
		return false
	}
	seen := make(map[string]struct{}, len(c.Items))
	for _, it := range c.Items {
		if it.ProductID == "" || it.Qty < 1 || it.UnitPrice < 0 || it.AvailableStock < 0 {
			return false
		}
		if _, dup := seen[it.ProductID]; dup {
			return false
		}
		seen[it.ProductID] = struct{}{}
	}
	switch c.Discount.Kind {
	case DiscountPercent:
		if c.Discount.PercentBps < 0 || c.Discount.PercentBps > 10000 {
			return false
		}
	case DiscountFixed:
		if c.Discount.Value < 0 {
			return false
		}
	default:
		return false
	}
	switch c.PaymentMethod {
	case PaymentCash, PaymentCard:
	default:
		return false
	}
	return c.CustomerRef != ""
}
