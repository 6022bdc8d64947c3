// internal/services/escrow_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/javajoker/duka-backend/internal/config"
	"github.com/javajoker/duka-backend/internal/utils"
)

const (
	ProviderMock   = "mock"
	ProviderStripe = "stripe"
)

// EscrowRequest asks the payment side to hold an order's funds.
type EscrowRequest struct {
	OrderID  uuid.UUID
	Amount   int64
	Currency string
	Phone    string
}

// EscrowHold is what the buyer walks away with: the release code they hand
// to the delivery agent, plus the provider's reference for the held funds.
// ClientSecret is handed to the buyer's device to authorise a card hold.
type EscrowHold struct {
	Code         string `json:"-"`
	Provider     string `json:"provider"`
	Reference    string `json:"reference,omitempty"`
	ClientSecret string `json:"-"`
}

// ErrHoldNotAuthorized is returned when funds are released before the buyer
// has authorised the card hold.
var ErrHoldNotAuthorized = errors.New("payment hold not authorised")

// EscrowService generates release codes and settles held funds. Void gives
// back a hold whose order was never placed.
type EscrowService interface {
	GenerateCode(ctx context.Context, req EscrowRequest) (*EscrowHold, error)
	Void(ctx context.Context, hold EscrowHold) error
	Capture(ctx context.Context, reference string) error
}

func NewEscrowService(cfg *config.Config) EscrowService {
	if cfg.Payment.Provider == ProviderStripe {
		return NewStripeEscrowService(cfg.Payment)
	}
	return NewMockEscrowService(cfg.Payment.CodeDigits, cfg.Payment.MockDelay)
}

// MockEscrowService stands in for the pay-on-delivery provider: it waits a
// moment and returns a random numeric code.
type MockEscrowService struct {
	digits int
	delay  time.Duration
}

func NewMockEscrowService(digits int, delay time.Duration) *MockEscrowService {
	return &MockEscrowService{digits: digits, delay: delay}
}

func (s *MockEscrowService) GenerateCode(ctx context.Context, req EscrowRequest) (*EscrowHold, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	code, err := utils.GenerateNumericCode(s.digits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate release code: %w", err)
	}
	return &EscrowHold{Code: code, Provider: ProviderMock}, nil
}

func (s *MockEscrowService) Void(ctx context.Context, hold EscrowHold) error {
	return nil
}

func (s *MockEscrowService) Capture(ctx context.Context, reference string) error {
	return nil
}

// StripeEscrowService holds card funds with a manual-capture PaymentIntent.
// The buyer's device confirms the intent with the returned client secret and
// the funds are captured when the buyer's code is presented on delivery.
type StripeEscrowService struct {
	digits  int
	intents paymentintent.Client
}

func NewStripeEscrowService(cfg config.PaymentConfig) *StripeEscrowService {
	stripe.Key = cfg.StripeSecretKey
	return newStripeEscrowService(cfg, stripe.GetBackend(stripe.APIBackend))
}

func newStripeEscrowService(cfg config.PaymentConfig, backend stripe.Backend) *StripeEscrowService {
	return &StripeEscrowService{
		digits:  cfg.CodeDigits,
		intents: paymentintent.Client{B: backend, Key: cfg.StripeSecretKey},
	}
}

func (s *StripeEscrowService) GenerateCode(ctx context.Context, req EscrowRequest) (*EscrowHold, error) {
	code, err := utils.GenerateNumericCode(s.digits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate release code: %w", err)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.OrderID.String())
	params.AddMetadata("buyer_phone", req.Phone)

	pi, err := s.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment hold: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":       req.OrderID,
		"payment_intent": pi.ID,
		"status":         pi.Status,
	}).Info("Escrow hold created")

	return &EscrowHold{
		Code:         code,
		Provider:     ProviderStripe,
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
	}, nil
}

func (s *StripeEscrowService) Void(ctx context.Context, hold EscrowHold) error {
	if hold.Reference == "" {
		return nil
	}
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := s.intents.Cancel(hold.Reference, params); err != nil {
		return fmt.Errorf("failed to cancel payment hold: %w", err)
	}
	logrus.WithField("payment_intent", hold.Reference).Info("Escrow hold voided")
	return nil
}

func (s *StripeEscrowService) Capture(ctx context.Context, reference string) error {
	if reference == "" {
		return fmt.Errorf("missing payment reference")
	}

	getParams := &stripe.PaymentIntentParams{}
	getParams.Context = ctx
	pi, err := s.intents.Get(reference, getParams)
	if err != nil {
		return fmt.Errorf("failed to retrieve payment hold: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusRequiresCapture {
		return fmt.Errorf("%w: status %s", ErrHoldNotAuthorized, pi.Status)
	}

	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if _, err := s.intents.Capture(reference, params); err != nil {
		return fmt.Errorf("failed to capture payment: %w", err)
	}
	return nil
}
