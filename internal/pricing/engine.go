package pricing

import (
	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// DefaultTaxBps is the statutory 18% sales tax in basis points.
const DefaultTaxBps = 1800

// Snapshot aggregates computed pricing components. It is derived on every
// query and never stored: the cart view, the receipt and the finalize payload
// all price through the same code path so the three can never drift.
type Snapshot struct {
	Subtotal    money.Money `json:"subtotal"`
	Discount    money.Money `json:"discount"`
	TaxableBase money.Money `json:"taxableBase"`
	Tax         money.Money `json:"tax"`
	Total       money.Money `json:"total"`
}

// Price computes cart totals. Items are summed in insertion order, the
// discount is clamped to the subtotal, and tax applies to the discounted
// base. Pure function: identical carts always price to identical snapshots.
func Price(c *cart.Cart, taxBps int64) Snapshot {
	var subtotal money.Money
	if c != nil {
		for _, it := range c.Items {
			if it.Qty <= 0 {
				continue
			}
			subtotal = subtotal.Add(it.UnitPrice.MulQty(it.Qty))
		}
	}

	var discount money.Money
	if c != nil {
		switch c.Discount.Kind {
		case cart.DiscountFixed:
			discount = c.Discount.Value
		default:
			discount = subtotal.ApplyBps(c.Discount.PercentBps)
		}
	}
	if discount.Cmp(subtotal) > 0 {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}

	taxable := subtotal.Sub(discount)
	if taxable < 0 {
		taxable = 0
	}
	if taxBps < 0 {
		taxBps = 0
	}
	tax := taxable.ApplyBps(taxBps)

	return Snapshot{
		Subtotal:    subtotal,
		Discount:    discount,
		TaxableBase: taxable,
		Tax:         tax,
		Total:       taxable.Add(tax),
	}
}
