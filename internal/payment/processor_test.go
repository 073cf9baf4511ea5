package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/chapinin777/drkpaypal-wallet-sub000/internal/errors"
)

func TestProcessor_CreateOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	amount := decimal.NewFromInt(100)

	t.Run("order is created with basic auth and returns the approval url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/orders", r.URL.Path)

			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client-id", user)
			assert.Equal(t, "client-secret", pass)

			var body createOrderRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, userID, body.UserID)
			assert.Equal(t, "USD", body.Currency)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(Order{
				OrderID:     "order-1",
				ApprovalURL: "https://processor.example/approve/order-1",
			})
		}))
		defer server.Close()

		processor := NewProcessor(server.URL, "client-id", "client-secret")
		order, err := processor.CreateOrder(ctx, userID, amount, "usd")
		assert.NoError(t, err)
		assert.Equal(t, "order-1", order.OrderID)
		assert.Equal(t, "https://processor.example/approve/order-1", order.ApprovalURL)
	})

	t.Run("missing credentials fail before any request", func(t *testing.T) {
		processor := NewProcessor("http://127.0.0.1:1", "", "")
		_, err := processor.CreateOrder(ctx, userID, amount, "USD")
		appErr, ok := err.(*errors.Error)
		assert.True(t, ok)
		assert.Equal(t, errors.ExternalDependency, appErr.Type)
	})

	t.Run("non-2xx response is a dependency failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		processor := NewProcessor(server.URL, "client-id", "client-secret")
		_, err := processor.CreateOrder(ctx, userID, amount, "USD")
		appErr, ok := err.(*errors.Error)
		assert.True(t, ok)
		assert.Equal(t, errors.ExternalDependency, appErr.Type)
		assert.True(t, appErr.Retryable())
	})

	t.Run("response without an order id is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(Order{ApprovalURL: "https://processor.example/approve"})
		}))
		defer server.Close()

		processor := NewProcessor(server.URL, "client-id", "client-secret")
		_, err := processor.CreateOrder(ctx, userID, amount, "USD")
		appErr, ok := err.(*errors.Error)
		assert.True(t, ok)
		assert.Equal(t, errors.ExternalDependency, appErr.Type)
	})
}
