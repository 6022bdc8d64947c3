// internal/session/checkout.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/navigation"
	"github.com/javajoker/duka-backend/internal/services"
	"github.com/javajoker/duka-backend/internal/utils"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrSessionClosed      = errors.New("session closed")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrOrderNotRecorded   = errors.New("order could not be recorded")
)

const orderWriteTimeout = 5 * time.Second

// CodeGenerator is the payment collaborator issuing release codes. Void
// gives back a hold whose order was never placed.
type CodeGenerator interface {
	GenerateCode(ctx context.Context, req services.EscrowRequest) (*services.EscrowHold, error)
	Void(ctx context.Context, hold services.EscrowHold) error
}

// OrderRecorder keeps placed orders for order history and release.
type OrderRecorder interface {
	CreateOrder(ctx context.Context, in services.CreateOrderInput) (*models.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
}

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type CheckoutRequest struct {
	Phone    string  `json:"phone" validate:"required,ke_phone"`
	Location string  `json:"location" validate:"required,min=2,max=200"`
	UserID   *string `json:"-"`
}

type Receipt struct {
	OrderID      uuid.UUID               `json:"order_id"`
	Code         string                  `json:"code"`
	ClientSecret string                  `json:"client_secret,omitempty"`
	Presentation navigation.Presentation `json:"presentation"`
	Total        int64                   `json:"total"`
	ItemCount    int                     `json:"item_count"`
	State        navigation.State        `json:"state"`
}

// guard runs fn only while the owning session is open.
type guard interface {
	runIfOpen(fn func()) bool
}

type CheckoutConfig struct {
	Currency   string
	Timeout    time.Duration
	OrderTopic string
	SessionID  uuid.UUID
	DeviceID   string
}

// Orchestrator turns the cart into a held order.
type Orchestrator struct {
	cfg     CheckoutConfig
	cart    *CartStore
	prefs   *PreferenceStore
	machine *navigation.Machine
	codes   CodeGenerator
	orders  OrderRecorder
	events  Publisher
	guard   guard
	logger  *logrus.Entry

	pending atomic.Bool
}

func NewOrchestrator(cfg CheckoutConfig, cart *CartStore, prefs *PreferenceStore, machine *navigation.Machine,
	codes CodeGenerator, orders OrderRecorder, events Publisher, g guard, logger *logrus.Entry) *Orchestrator {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{
		cfg:     cfg,
		cart:    cart,
		prefs:   prefs,
		machine: machine,
		codes:   codes,
		orders:  orders,
		events:  events,
		guard:   g,
		logger:  logger,
	}
}

// Checkout requests a release code for the current cart. The order is
// stored before the buyer sees the code; once it is, the cart is emptied and
// the success UI is chosen from the checkout mode at that moment, not from
// when the request started. Only one checkout runs per session at a time.
func (o *Orchestrator) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if !o.pending.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer o.pending.Store(false)

	phone, _ := utils.NormalizePhone(req.Phone)

	lines := o.cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var total int64
	count := 0
	for _, l := range lines {
		total += l.Subtotal()
		count += l.Quantity
	}

	orderID := uuid.New()
	codeCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		codeCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	hold, err := o.codes.GenerateCode(codeCtx, services.EscrowRequest{
		OrderID:  orderID,
		Amount:   total,
		Currency: o.cfg.Currency,
		Phone:    phone,
	})
	if err != nil {
		return nil, fmt.Errorf("generate release code: %w", err)
	}

	// From here on a hold exists; cleanup must not be undone by the request
	// going away.
	bg := context.WithoutCancel(ctx)
	log := o.logger.WithField("order_id", orderID)

	if !o.runIfOpen(func() {}) {
		log.Warn("Release code arrived after session closed, dropping")
		o.void(bg, log, *hold)
		return nil, ErrSessionClosed
	}

	if err := o.persist(bg, orderID, phone, req, lines, total, count, hold); err != nil {
		log.WithError(err).Error("Failed to record order")
		o.void(bg, log, *hold)
		return nil, fmt.Errorf("%w: %v", ErrOrderNotRecorded, err)
	}

	receipt := &Receipt{
		OrderID:      orderID,
		Code:         hold.Code,
		ClientSecret: hold.ClientSecret,
		Total:        total,
		ItemCount:    count,
	}
	applied := o.runIfOpen(func() {
		o.cart.Clear()
		receipt.Presentation, receipt.State = o.machine.CompleteCheckout(hold.Code)
	})
	if !applied {
		log.Warn("Session closed while recording order, canceling")
		o.cancel(bg, log, orderID, *hold)
		return nil, ErrSessionClosed
	}

	if err := o.prefs.Save(bg, phone, req.Location); err != nil {
		log.WithError(err).Warn("Failed to remember checkout details")
	}
	o.publish(bg, log, orderID, phone, req, lines, total, count)

	log.WithFields(logrus.Fields{
		"items":        count,
		"total":        total,
		"presentation": receipt.Presentation.String(),
	}).Info("Checkout completed")

	return receipt, nil
}

func (o *Orchestrator) persist(ctx context.Context, orderID uuid.UUID, phone string, req CheckoutRequest,
	lines []CartLine, total int64, count int, hold *services.EscrowHold) error {
	if o.orders == nil {
		return nil
	}

	orderLines := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		orderLines = append(orderLines, models.OrderLine{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			SellerID:  l.Product.SellerID,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
		})
	}

	wctx, cancel := context.WithTimeout(ctx, orderWriteTimeout)
	defer cancel()
	_, err := o.orders.CreateOrder(wctx, services.CreateOrderInput{
		ID:        orderID,
		SessionID: o.cfg.SessionID,
		DeviceID:  o.cfg.DeviceID,
		UserID:    req.UserID,
		Phone:     phone,
		Location:  req.Location,
		Lines:     orderLines,
		ItemCount: count,
		Total:     total,
		Currency:  o.cfg.Currency,
		Hold:      *hold,
		Code:      hold.Code,
	})
	return err
}

func (o *Orchestrator) void(ctx context.Context, log *logrus.Entry, hold services.EscrowHold) {
	wctx, cancel := context.WithTimeout(ctx, orderWriteTimeout)
	defer cancel()
	if err := o.codes.Void(wctx, hold); err != nil {
		log.WithError(err).Error("Failed to void payment hold")
	}
}

func (o *Orchestrator) cancel(ctx context.Context, log *logrus.Entry, orderID uuid.UUID, hold services.EscrowHold) {
	if o.orders != nil {
		wctx, cancel := context.WithTimeout(ctx, orderWriteTimeout)
		err := o.orders.CancelOrder(wctx, orderID)
		cancel()
		if err != nil {
			log.WithError(err).Error("Failed to cancel order")
		}
	}
	o.void(ctx, log, hold)
}

func (o *Orchestrator) publish(ctx context.Context, log *logrus.Entry, orderID uuid.UUID, phone string, req CheckoutRequest,
	lines []CartLine, total int64, count int) {
	if o.events == nil {
		return
	}

	sellers := make([]string, 0, len(lines))
	seen := make(map[string]bool)
	for _, l := range lines {
		if !seen[l.Product.SellerID] {
			seen[l.Product.SellerID] = true
			sellers = append(sellers, l.Product.SellerID)
		}
	}

	wctx, cancel := context.WithTimeout(ctx, orderWriteTimeout)
	defer cancel()
	err := o.events.PublishEvent(wctx, o.cfg.OrderTopic, orderID.String(), services.OrderPlacedEvent{
		OrderID:   orderID.String(),
		SessionID: o.cfg.SessionID.String(),
		Phone:     phone,
		Location:  req.Location,
		ItemCount: count,
		Total:     total,
		Currency:  o.cfg.Currency,
		SellerIDs: sellers,
		PlacedAt:  time.Now(),
	})
	if err != nil {
		log.WithError(err).Warn("Failed to publish order event")
	}
}

func (o *Orchestrator) runIfOpen(fn func()) bool {
	if o.guard == nil {
		fn()
		return true
	}
	return o.guard.runIfOpen(fn)
}
