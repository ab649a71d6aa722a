package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/backend"
	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/draft"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/stock"
)

// ErrUnknownProduct is returned when a product id is not in the catalog.
var ErrUnknownProduct = errors.New("checkout: unknown product")

// Backend is the slice of the store backend the checkout session consumes.
type Backend interface {
	ListProducts(ctx context.Context) ([]backend.Product, error)
	ListCustomers(ctx context.Context) ([]backend.Customer, error)
	CreateCustomer(ctx context.Context, in backend.NewCustomer) (backend.Customer, error)
	CreateTransaction(ctx context.Context, req billing.TransactionRequest) (backend.Transaction, error)
}

// View is what the terminal UI renders after every operation: the cart plus
// a freshly derived pricing snapshot. Totals are never stored.
type View struct {
	Cart    cart.Cart        `json:"cart"`
	Pricing pricing.Snapshot `json:"pricing"`
}

// Result is the outcome of a successful finalize+submit cycle.
type Result struct {
	Transaction backend.Transaction        `json:"transaction"`
	Request     billing.TransactionRequest `json:"request"`
	Pricing     pricing.Snapshot           `json:"pricing"`
}

// Service owns the single in-progress sale of one terminal. The cart itself
// is a plain value object; the mutex only serialises the HTTP boundary so
// cart mutations keep running on one logical control flow.
type Service struct {
	Backend     Backend
	Drafts      *draft.Store
	TaxBps      int64
	SnapshotTTL time.Duration
	Logger      zerolog.Logger
	Now         func() time.Time

	mu          sync.Mutex
	cart        *cart.Cart
	catalog     map[string]backend.Product
	ledger      stock.Ledger
	refreshedAt time.Time
}

// NewService constructs a checkout session with an empty cart.
func NewService(b Backend, drafts *draft.Store, taxBps int64, logger zerolog.Logger) *Service {
	if taxBps <= 0 {
		taxBps = pricing.DefaultTaxBps
	}
	return &Service{
		Backend:     b,
		Drafts:      drafts,
		TaxBps:      taxBps,
		SnapshotTTL: 30 * time.Second,
		Logger:      logger,
		Now:         time.Now,
		cart:        cart.New(),
	}
}

// View returns the current cart and its derived totals.
func (s *Service) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// AddItem adds one unit of a catalog product to the sale.
func (s *Service) AddItem(ctx context.Context, productID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshCatalogLocked(ctx, false); err != nil {
		return s.viewLocked(), err
	}
	product, ok := s.catalog[productID]
	if !ok {
		return s.viewLocked(), fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	err := s.cart.AddItem(product.ID, product.Name, money.FromMinorUnits(product.SellingPrice), s.ledger.Available(product.ID))
	obs.ObserveCartOp("add_item", err)
	if err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

// SetQuantity replaces the quantity of a line item.
func (s *Service) SetQuantity(productID string, qty int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cart.SetQuantity(productID, qty)
	obs.ObserveCartOp("set_quantity", err)
	if err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

// RemoveItem deletes a line item.
func (s *Service) RemoveItem(productID string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.RemoveItem(productID)
	obs.ObserveCartOp("remove_item", nil)
	return s.viewLocked()
}

// Clear abandons the in-progress sale.
func (s *Service) Clear() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	obs.ObserveCartOp("clear", nil)
	return s.viewLocked()
}

// SetDiscount applies the bill-level discount.
func (s *Service) SetDiscount(d cart.Discount) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.cart.SetDiscount(d)
	obs.ObserveCartOp("set_discount", err)
	if err != nil {
		return s.viewLocked(), err
	}
	return s.viewLocked(), nil
}

// SetCustomer attaches a customer reference; empty means walk-in.
func (s *Service) SetCustomer(ref string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetCustomer(ref)
	return s.viewLocked()
}

// SetPaymentMethod records how the sale will be paid.
func (s *Service) SetPaymentMethod(m cart.PaymentMethod) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.SetPaymentMethod(m)
	return s.viewLocked()
}

// SaveDraft parks the in-progress sale in the draft slot.
func (s *Service) SaveDraft(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.Drafts.Save(ctx, s.cart)
	obs.ObserveDraftOp("save", err)
	return err
}

// RestoreDraft replaces the current cart with the persisted draft. The prior
// cart is discarded: loading a draft over an active sale is an explicit
// cashier action.
func (s *Service) RestoreDraft(ctx context.Context) (View, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	restored, savedAt, err := s.Drafts.Load(ctx)
	obs.ObserveDraftOp("restore", err)
	if err != nil {
		return s.viewLocked(), time.Time{}, err
	}
	s.cart = restored
	return s.viewLocked(), savedAt, nil
}

// Finalize revalidates the sale against live stock, submits the transaction,
// and clears the cart only after the backend accepted it. On any failure the
// cart is left intact so the cashier can adjust and retry.
func (s *Service) Finalize(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Always a fresh snapshot here: this is the single choke point where
	// stale advisory figures are caught.
	if err := s.refreshCatalogLocked(ctx, true); err != nil {
		obs.ObserveFinalize(0, err)
		return Result{}, err
	}
	req, err := billing.Finalize(s.cart, s.ledger, s.TaxBps)
	if err != nil {
		obs.ObserveFinalize(0, err)
		return Result{}, err
	}
	summary := pricing.Price(s.cart, s.TaxBps)

	tx, err := s.Backend.CreateTransaction(ctx, req)
	if err != nil {
		obs.ObserveFinalize(0, err)
		return Result{}, err
	}
	obs.ObserveFinalize(req.Total.Minor(), nil)

	s.cart.Clear()
	if s.Drafts != nil {
		if err := s.Drafts.Clear(ctx); err != nil {
			s.Logger.Warn().Err(err).Msg("clear draft after finalize")
		}
	}
	s.Logger.Info().
		Str("transaction_id", tx.ID).
		Str("total", req.Total.Format()).
		Str("payment_mode", req.PaymentMode).
		Msg("bill_finalized")

	return Result{Transaction: tx, Request: req, Pricing: summary}, nil
}

// Customers lists registered customers for attachment to the sale.
func (s *Service) Customers(ctx context.Context) ([]backend.Customer, error) {
	return s.Backend.ListCustomers(ctx)
}

// RegisterCustomer creates a customer at the counter.
func (s *Service) RegisterCustomer(ctx context.Context, in backend.NewCustomer) (backend.Customer, error) {
	return s.Backend.CreateCustomer(ctx, in)
}

func (s *Service) viewLocked() View {
	return View{Cart: *s.cart.Clone(), Pricing: pricing.Price(s.cart, s.TaxBps)}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// refreshCatalogLocked pulls the product catalog and rebuilds the stock
// ledger. Mutating calls tolerate a snapshot up to SnapshotTTL old; finalize
// forces a fresh one.
func (s *Service) refreshCatalogLocked(ctx context.Context, force bool) error {
	if !force && s.catalog != nil && s.now().Sub(s.refreshedAt) < s.SnapshotTTL {
		return nil
	}
	products, err := s.Backend.ListProducts(ctx)
	if err != nil {
		return err
	}
	catalog := make(map[string]backend.Product, len(products))
	quantities := make(map[string]int, len(products))
	for _, p := range products {
		catalog[p.ID] = p
		quantities[p.ID] = p.Quantity
	}
	s.catalog = catalog
	s.ledger = stock.Snapshot(quantities)
	s.refreshedAt = s.now()
	return nil
}
