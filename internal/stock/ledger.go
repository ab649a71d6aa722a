package stock

// Ledger is a point-in-time view of available stock per product. Reads are
// advisory only: another terminal may sell the same stock between a cart
// mutation and finalize, so the authoritative check always happens again
// against a fresh snapshot inside the finalizer.
type Ledger map[string]int

// Snapshot builds a ledger from product quantities.
func Snapshot(quantities map[string]int) Ledger {
	l := make(Ledger, len(quantities))
	for id, qty := range quantities {
		if id == "" {
			continue
		}
		if qty < 0 {
			qty = 0
		}
		l[id] = qty
	}
	return l
}

// Available returns the last-known stock for a product. Unknown products
// report zero.
func (l Ledger) Available(productID string) int {
	if l == nil {
		return 0
	}
	return l[productID]
}
