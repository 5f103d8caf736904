//go:build unit

package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stayhub/internal/domain/money"
	"stayhub/internal/infra/gateway"
	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPaymentGateway_Authorize(t *testing.T) {
	ctx := context.Background()
	req := shared.AuthorizeRequest{
		Amount:         money.MustFromCents(36000),
		GuestID:        uuid.New(),
		BookingID:      uuid.New(),
		IdempotencyKey: "tok-1",
	}

	t.Run("sends the charge with idempotency and auth headers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payments", r.URL.Path)
			assert.Equal(t, "tok-1", r.Header.Get("Idempotency-Key"))
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.EqualValues(t, 36000, body["amount_cents"])
			assert.Equal(t, req.BookingID.String(), body["reference"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"payment_id":"pay_123","status":"captured"}`))
		}))
		defer srv.Close()

		g := gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentConfig{BaseURL: srv.URL + "/", APIKey: "sk_test"})
		auth, err := g.Authorize(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "pay_123", auth.PaymentID)
	})

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"402 is a decline", http.StatusPaymentRequired, `{"error":"card_declined"}`, shared.ErrPaymentDeclined},
		{"422 is a decline", http.StatusUnprocessableEntity, `{"error":"invalid_card"}`, shared.ErrPaymentDeclined},
		{"429 is transient", http.StatusTooManyRequests, ``, shared.ErrGatewayUnavailable},
		{"503 is transient", http.StatusServiceUnavailable, ``, shared.ErrGatewayUnavailable},
		{"missing payment id is transient", http.StatusOK, `{}`, shared.ErrGatewayUnavailable},
		{"garbage body is transient", http.StatusOK, `{`, shared.ErrGatewayUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentConfig{BaseURL: srv.URL}).Authorize(ctx, req)
			assert.True(t, errs.Is(err, tt.wantErr), "got %v", err)
		})
	}

	t.Run("timeouts are transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()

		g := gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
		_, err := g.Authorize(ctx, req)
		assert.True(t, errs.Is(err, shared.ErrGatewayUnavailable), "got %v", err)
	})

	t.Run("unexpected statuses are neither declines nor transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentConfig{BaseURL: srv.URL}).Authorize(ctx, req)
		require.Error(t, err)
		assert.False(t, errs.Is(err, shared.ErrPaymentDeclined))
		assert.False(t, errs.Is(err, shared.ErrGatewayUnavailable))
	})
}

func TestHTTPPaymentGateway_Refund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_9/refunds", r.URL.Path)
		assert.Equal(t, "b1:refund", r.Header.Get("Idempotency-Key"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentConfig{BaseURL: srv.URL}).Refund(context.Background(), shared.RefundRequest{
		PaymentID:      "pay_9",
		Amount:         money.MustFromCents(20000),
		IdempotencyKey: "b1:refund",
	})
	assert.NoError(t, err)
}

func TestSandboxPaymentGateway(t *testing.T) {
	ctx := context.Background()
	g := gateway.NewSandboxPaymentGateway()
	req := shared.AuthorizeRequest{Amount: money.MustFromCents(1000), IdempotencyKey: "k1"}

	first, err := g.Authorize(ctx, req)
	require.NoError(t, err)
	again, err := g.Authorize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.PaymentID, again.PaymentID)
	assert.Equal(t, 1, g.Authorizations())

	g.FailNext(1)
	_, err = g.Authorize(ctx, shared.AuthorizeRequest{Amount: money.MustFromCents(1000), IdempotencyKey: "k2"})
	assert.ErrorIs(t, err, shared.ErrGatewayUnavailable)

	g.DeclineAmount(500)
	_, err = g.Authorize(ctx, shared.AuthorizeRequest{Amount: money.MustFromCents(500), IdempotencyKey: "k3"})
	assert.True(t, errs.Is(err, shared.ErrPaymentDeclined))

	require.NoError(t, g.Refund(ctx, shared.RefundRequest{PaymentID: first.PaymentID, Amount: money.MustFromCents(400), IdempotencyKey: "r1"}))
	require.NoError(t, g.Refund(ctx, shared.RefundRequest{PaymentID: first.PaymentID, Amount: money.MustFromCents(900), IdempotencyKey: "r1"}))
	cents, ok := g.Refunded("r1")
	assert.True(t, ok)
	assert.Equal(t, int64(400), cents)
}

func TestHTTPPaymentGateway_RequestBuildFailureKeepsStack(t *testing.T) {
	g := gateway.NewHTTPPaymentGateway(gateway.HTTPPaymentConfig{BaseURL: "http://bad host"})

	_, err := g.Authorize(context.Background(), shared.AuthorizeRequest{
		Amount:         money.MustFromCents(100),
		GuestID:        uuid.New(),
		BookingID:      uuid.New(),
		IdempotencyKey: "tok-2",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create request")
	assert.False(t, errs.Is(err, shared.ErrGatewayUnavailable))
	assert.Contains(t, strings.Join(errs.ExtractStackLines(err, 0), "\n"), "payment_http.go")
}
