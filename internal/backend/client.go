package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/resilience"
)

// ErrSubmitFailed is returned when the transaction service rejects or never
// receives a finalized bill. The caller keeps the cart intact for retry.
var ErrSubmitFailed = errors.New("backend: transaction submit failed")

// Product is the catalog payload the terminal consumes. Prices are integer
// minor units; Quantity is the stock figure the ledger snapshots.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SellingPrice int64  `json:"sellingPrice"`
	Category     string `json:"category"`
	Quantity     int    `json:"quantity"`
}

// Customer is the customer service payload.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// NewCustomer is the creation payload for the customer service.
type NewCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Transaction is the record returned by the transaction service after a
// successful submit.
type Transaction struct {
	ID        string    `json:"id"`
	Total     int64     `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config groups client construction parameters.
type Config struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Logger      zerolog.Logger
}

// Client talks to the store backend over JSON/HTTPS. Reads retry behind a
// circuit breaker; the transaction write path gets a single attempt plus an
// idempotency key so a network flake can never double-submit a bill.
type Client struct {
	baseURL string
	token   string
	reads   resilience.HTTPClient
	writes  resilience.HTTPClient
	logger  zerolog.Logger
}

// NewClient constructs a Client from configuration.
func NewClient(cfg Config) *Client {
	httpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("store-backend").
		WithLogger(cfg.Logger)
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		reads: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     breaker,
			MaxAttempts: attempts,
			BaseBackoff: cfg.BaseBackoff,
			Jitter:      0.2,
			Timeout:     timeout,
		},
		writes: resilience.HTTPClient{
			Client:      httpClient,
			Breaker:     breaker,
			MaxAttempts: 1,
			Timeout:     timeout,
		},
		logger: cfg.Logger,
	}
}

// ListProducts fetches the product catalog, the source of stock snapshots.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.get(ctx, "/api/products", &out)
	obs.ObserveBackendRequest("products", err)
	if err != nil {
		return nil, fmt.Errorf("backend: list products: %w", err)
	}
	return out, nil
}

// ListCustomers fetches registered customers for attaching to a sale.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	err := c.get(ctx, "/api/customers", &out)
	obs.ObserveBackendRequest("customers", err)
	if err != nil {
		return nil, fmt.Errorf("backend: list customers: %w", err)
	}
	return out, nil
}

// CreateCustomer registers a new customer at the counter.
func (c *Client) CreateCustomer(ctx context.Context, in NewCustomer) (Customer, error) {
	var out Customer
	err := c.post(ctx, c.writes, "/api/customers", in, &out, nil)
	obs.ObserveBackendRequest("customers_create", err)
	if err != nil {
		return Customer{}, fmt.Errorf("backend: create customer: %w", err)
	}
	return out, nil
}

// CreateTransaction submits a finalized bill. This is the single write path
// for completed sales; any failure is wrapped in ErrSubmitFailed.
func (c *Client) CreateTransaction(ctx context.Context, req billing.TransactionRequest) (Transaction, error) {
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	var out Transaction
	err := c.post(ctx, c.writes, "/api/transactions", req, &out, headers)
	obs.ObserveBackendRequest("transactions", err)
	if err != nil {
		c.logger.Error().Err(err).Msg("transaction submit failed")
		return Transaction{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	return out, nil
}

// Ping probes the backend with a lightweight catalog read. Used by the
// readiness endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/products", nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	resp, err := c.reads.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeData(resp, nil)
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	resp, err := c.reads.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeData(resp, dst)
}

func (c *Client) post(ctx context.Context, via resilience.HTTPClient, path string, body, dst any, headers map[string]string) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := via.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeData(resp, dst)
}

func (c *Client) decorate(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeData(resp *http.Response, dst any) error {
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	if dst == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, dst)
	}
	// Some deployments return the payload bare.
	return json.Unmarshal(raw, dst)
}
