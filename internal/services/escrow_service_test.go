package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"

	"github.com/javajoker/duka-backend/internal/config"
)

// fakeStripe serves the PaymentIntent endpoints the escrow service calls.
type fakeStripe struct {
	mu       sync.Mutex
	status   string
	form     map[string]string
	requests []string
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	if err := r.ParseForm(); err == nil {
		f.form = make(map[string]string)
		for k := range r.PostForm {
			f.form[k] = r.PostForm.Get(k)
		}
	}

	switch r.Method + " " + r.URL.Path {
	case "POST /v1/payment_intents":
		f.status = "requires_payment_method"
	case "POST /v1/payment_intents/pi_123/cancel":
		f.status = "canceled"
	case "POST /v1/payment_intents/pi_123/capture":
		f.status = "succeeded"
	case "GET /v1/payment_intents/pi_123":
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"no such route"}}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"pi_123","object":"payment_intent","status":%q,"client_secret":"pi_123_secret_456"}`, f.status)
}

func (f *fakeStripe) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newTestStripeEscrow(t *testing.T) (*StripeEscrowService, *fakeStripe) {
	t.Helper()
	api := &fakeStripe{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	cfg := config.PaymentConfig{StripeSecretKey: "sk_test_duka", CodeDigits: 6}
	return newStripeEscrowService(cfg, backend), api
}

func TestStripeEscrowHandsBackClientSecret(t *testing.T) {
	escrow, api := newTestStripeEscrow(t)
	orderID := uuid.New()

	hold, err := escrow.GenerateCode(context.Background(), EscrowRequest{
		OrderID:  orderID,
		Amount:   1500,
		Currency: "kes",
		Phone:    "+254712345678",
	})
	require.NoError(t, err)

	assert.Len(t, hold.Code, 6)
	assert.Equal(t, ProviderStripe, hold.Provider)
	assert.Equal(t, "pi_123", hold.Reference)
	assert.Equal(t, "pi_123_secret_456", hold.ClientSecret)

	assert.Equal(t, "manual", api.form["capture_method"])
	assert.Equal(t, "1500", api.form["amount"])
	assert.Equal(t, "kes", api.form["currency"])
	assert.Equal(t, orderID.String(), api.form["metadata[order_id]"])
}

func TestStripeEscrowCapturesOnlyAuthorisedHolds(t *testing.T) {
	escrow, api := newTestStripeEscrow(t)
	_, err := escrow.GenerateCode(context.Background(), EscrowRequest{OrderID: uuid.New(), Amount: 800, Currency: "kes"})
	require.NoError(t, err)

	err = escrow.Capture(context.Background(), "pi_123")
	assert.ErrorIs(t, err, ErrHoldNotAuthorized)
	assert.NotContains(t, api.calls(), "POST /v1/payment_intents/pi_123/capture")

	api.mu.Lock()
	api.status = string(stripe.PaymentIntentStatusRequiresCapture)
	api.mu.Unlock()

	require.NoError(t, escrow.Capture(context.Background(), "pi_123"))
	assert.Contains(t, api.calls(), "POST /v1/payment_intents/pi_123/capture")

	assert.Error(t, escrow.Capture(context.Background(), ""))
}

func TestStripeEscrowVoidCancelsIntent(t *testing.T) {
	escrow, api := newTestStripeEscrow(t)

	require.NoError(t, escrow.Void(context.Background(), EscrowHold{Provider: ProviderStripe}))
	assert.Empty(t, api.calls())

	require.NoError(t, escrow.Void(context.Background(), EscrowHold{Provider: ProviderStripe, Reference: "pi_123"}))
	assert.Equal(t, []string{"POST /v1/payment_intents/pi_123/cancel"}, api.calls())
	assert.Equal(t, "abandoned", api.form["cancellation_reason"])
}
