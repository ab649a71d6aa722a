package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/backend"
	"github.com/noah-isme/backend-kasir/internal/billing"
)

func newClient(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(backend.Config{
		BaseURL: srv.URL,
		Token:   "terminal-token",
		Logger:  zerolog.Nop(),
	})
}

func TestListProducts(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/products", r.URL.Path)
		require.Equal(t, "Bearer terminal-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []backend.Product{
			{ID: "A", Name: "Beans", SellingPrice: 10000, Category: "grocery", Quantity: 7},
		}})
	}))

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "A", products[0].ID)
	require.Equal(t, int64(10000), products[0].SellingPrice)
	require.Equal(t, 7, products[0].Quantity)
}

func TestListProductsBarePayload(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]backend.Product{{ID: "A", Quantity: 1}})
	}))
	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
}

func TestReadsRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []backend.Product{{ID: "A", Quantity: 1}}})
	}))

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, int32(2), calls.Load())
}

func TestCreateTransaction(t *testing.T) {
	var seen billing.TransactionRequest
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/transactions", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": backend.Transaction{ID: "tx-1", Status: "Completed"}})
	}))

	req := billing.TransactionRequest{
		Items:       []billing.TransactionItem{{ProductID: "A", Quantity: 2, UnitPrice: 10000, Subtotal: 20000}},
		Subtotal:    20000,
		Total:       23600,
		PaymentMode: "CASH",
		Status:      billing.StatusCompleted,
	}
	tx, err := client.CreateTransaction(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "tx-1", tx.ID)
	require.Nil(t, seen.CustomerID, "walk-in must serialize customerId as null")
	require.Equal(t, "CASH", seen.PaymentMode)
	require.Equal(t, billing.StatusCompleted, seen.Status)
}

func TestCreateTransactionDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.CreateTransaction(context.Background(), billing.TransactionRequest{Status: billing.StatusCompleted})
	require.ErrorIs(t, err, backend.ErrSubmitFailed)
	require.Equal(t, int32(1), calls.Load(), "writes must not be replayed by the client")
}

func TestCreateCustomer(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in backend.NewCustomer
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "Ayu", in.Name)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": backend.Customer{ID: "cust-9", Name: in.Name}})
	}))

	created, err := client.CreateCustomer(context.Background(), backend.NewCustomer{Name: "Ayu"})
	require.NoError(t, err)
	require.Equal(t, "cust-9", created.ID)
}
