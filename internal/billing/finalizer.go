package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/stock"
)

// ErrEmptyCart is returned when finalizing a cart without line items.
var ErrEmptyCart = errors.New("billing: cart is empty")

// StatusCompleted is the terminal status stamped on every emitted request.
const StatusCompleted = "Completed"

// InsufficientStockError reports the first line item whose live stock no
// longer covers its quantity.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("billing: insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// TransactionItem is one line of the finalized bill.
type TransactionItem struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
	Subtotal  money.Money `json:"subtotal"`
}

// TransactionRequest is the immutable payload handed to the transaction
// service. Field names match the service contract and must not change.
type TransactionRequest struct {
	CustomerID  *string           `json:"customerId"`
	Items       []TransactionItem `json:"items"`
	Subtotal    money.Money       `json:"subtotal"`
	Discount    money.Money       `json:"discount"`
	Tax         money.Money       `json:"tax"`
	Total       money.Money       `json:"total"`
	PaymentMode string            `json:"paymentMode"`
	Status      string            `json:"status"`
}

// Finalize revalidates the cart against live stock and assembles the
// transaction payload. It is the single choke point before submission: every
// line is re-checked because the advisory figures captured during the session
// may be stale by now. The cart is never mutated here; on any error the
// caller can adjust and retry without re-entering items.
func Finalize(c *cart.Cart, live stock.Ledger, taxBps int64) (TransactionRequest, error) {
	if c == nil || c.IsEmpty() {
		return TransactionRequest{}, ErrEmptyCart
	}
	for _, it := range c.Items {
		available := live.Available(it.ProductID)
		if available < it.Qty {
			return TransactionRequest{}, &InsufficientStockError{
				ProductID: it.ProductID,
				Requested: it.Qty,
				Available: available,
			}
		}
	}

	summary := pricing.Price(c, taxBps)

	items := make([]TransactionItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, TransactionItem{
			ProductID: it.ProductID,
			Quantity:  it.Qty,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.UnitPrice.MulQty(it.Qty),
		})
	}

	var customerID *string
	if c.CustomerRef != "" && c.CustomerRef != cart.WalkIn {
		ref := c.CustomerRef
		customerID = &ref
	}

	return TransactionRequest{
		CustomerID:  customerID,
		Items:       items,
		Subtotal:    summary.Subtotal,
		Discount:    summary.Discount,
		Tax:         summary.Tax,
		Total:       summary.Total,
		PaymentMode: strings.ToUpper(string(c.PaymentMethod)),
		Status:      StatusCompleted,
	}, nil
}
