package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-kasir/internal/backend"
	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/draft"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Handler exposes the checkout session over HTTP for the terminal UI.
// FinalizeGuards are extra middleware (idempotency, rate limit) applied to
// the finalize route only.
type Handler struct {
	Svc            *Service
	Validate       *validator.Validate
	FinalizeGuards []func(http.Handler) http.Handler
}

// NewHandler constructs a Handler with its request validator.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New()}
}

// Routes mounts the checkout API on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{productID}", h.SetQuantity)
	r.Delete("/items/{productID}", h.RemoveItem)
	r.Put("/discount", h.SetDiscount)
	r.Put("/customer", h.SetCustomer)
	r.Put("/payment-method", h.SetPaymentMethod)
	r.Post("/draft", h.SaveDraft)
	r.Post("/draft/restore", h.RestoreDraft)
	r.With(h.FinalizeGuards...).Post("/finalize", h.Finalize)
	r.Get("/customers", h.ListCustomers)
	r.Post("/customers", h.CreateCustomer)
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type quantityRequest struct {
	Qty int `json:"qty"`
}

type discountRequest struct {
	Kind   string      `json:"kind" validate:"required,oneof=percentage fixed"`
	Amount json.Number `json:"amount" validate:"required"`
}

type customerRequest struct {
	CustomerID string `json:"customerId"`
}

type paymentRequest struct {
	Method string `json:"method" validate:"required,oneof=cash card"`
}

type newCustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

// Get returns the cart with freshly derived totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	common.JSONData(w, http.StatusOK, h.Svc.View())
}

// AddItem adds one unit of a product to the sale.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.AddItem(r.Context(), payload.ProductID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var payload quantityRequest
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.SetQuantity(chi.URLParam(r, "productID"), payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	common.JSONData(w, http.StatusOK, h.Svc.RemoveItem(chi.URLParam(r, "productID")))
}

// Clear abandons the in-progress sale.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	common.JSONData(w, http.StatusOK, h.Svc.Clear())
}

// SetDiscount applies a percentage or fixed discount to the bill.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	var payload discountRequest
	if !h.decode(w, r, &payload) {
		return
	}
	d, err := parseDiscount(payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	view, err := h.Svc.SetDiscount(d)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, view)
}

// SetCustomer attaches a customer; an empty id reverts to walk-in.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	var payload customerRequest
	if !h.decode(w, r, &payload) {
		return
	}
	common.JSONData(w, http.StatusOK, h.Svc.SetCustomer(payload.CustomerID))
}

// SetPaymentMethod selects cash or card.
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var payload paymentRequest
	if !h.decode(w, r, &payload) {
		return
	}
	common.JSONData(w, http.StatusOK, h.Svc.SetPaymentMethod(cart.PaymentMethod(payload.Method)))
}

// SaveDraft parks the sale in the single draft slot.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.SaveDraft(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{"saved": true})
}

// RestoreDraft loads the draft over the current cart.
func (h *Handler) RestoreDraft(w http.ResponseWriter, r *http.Request) {
	view, savedAt, err := h.Svc.RestoreDraft(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"cart":    view.Cart,
		"pricing": view.Pricing,
		"savedAt": savedAt.Format(time.RFC3339),
	})
}

// Finalize submits the bill; the cart survives any failure for retry.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.Finalize(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, result)
}

// ListCustomers proxies the customer directory for the attach dialog.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Svc.Customers(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, customers)
}

// CreateCustomer registers a customer at the counter.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var payload newCustomerRequest
	if !h.decode(w, r, &payload) {
		return
	}
	created, err := h.Svc.RegisterCustomer(r.Context(), backend.NewCustomer{
		Name:  payload.Name,
		Email: payload.Email,
		Phone: payload.Phone,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, created)
}

func parseDiscount(payload discountRequest) (cart.Discount, error) {
	switch cart.DiscountKind(payload.Kind) {
	case cart.DiscountPercent:
		bps, err := money.BpsFromPercent(payload.Amount.String())
		if err != nil {
			return cart.Discount{}, cart.ErrInvalidDiscount
		}
		return cart.Discount{Kind: cart.DiscountPercent, PercentBps: bps}, nil
	case cart.DiscountFixed:
		value, err := money.FromMajorUnits(payload.Amount.String())
		if err != nil {
			return cart.Discount{}, cart.ErrInvalidDiscount
		}
		return cart.Discount{Kind: cart.DiscountFixed, Value: value}, nil
	default:
		return cart.Discount{}, cart.ErrInvalidDiscount
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "request validation failed", err.Error())
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var insufficient *billing.InsufficientStockError
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "product is out of stock", nil)
	case errors.Is(err, cart.ErrStockExceeded):
		common.JSONError(w, http.StatusConflict, "STOCK_EXCEEDED", "quantity exceeds available stock", nil)
	case errors.Is(err, cart.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "product is not in the cart", nil)
	case errors.Is(err, cart.ErrInvalidDiscount):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_DISCOUNT", "discount is invalid", nil)
	case errors.Is(err, billing.ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.As(err, &insufficient):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "live stock no longer covers the cart",
			map[string]any{"productId": insufficient.ProductID, "requested": insufficient.Requested, "available": insufficient.Available})
	case errors.Is(err, draft.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "DRAFT_NOT_FOUND", "no saved draft", nil)
	case errors.Is(err, ErrUnknownProduct):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product is not in the catalog", nil)
	case errors.Is(err, backend.ErrSubmitFailed):
		common.JSONError(w, http.StatusBadGateway, "TRANSACTION_SUBMIT_FAILED", "transaction service rejected the bill; cart preserved", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
