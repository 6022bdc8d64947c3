package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/services"
)

func product(id string, price int64, seller string) models.Product {
	return models.Product{
		ID:           models.ProductID(id),
		Name:         "Item " + id,
		SellerID:     "seller-" + seller,
		SellerName:   "Seller " + seller,
		SellerHandle: seller,
		Price:        price,
		Type:         models.MediaTypeImage,
		Status:       models.ProductStatusActive,
	}
}

type fakeSource struct {
	mu       sync.Mutex
	products []models.Product
	err      error
	gate     chan struct{}
}

func (f *fakeSource) ListActive(ctx context.Context) ([]models.Product, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products, f.err
}

func (f *fakeSource) set(products []models.Product, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = products
	f.err = err
}

type fakeCodes struct {
	code    string
	err     error
	gate    chan struct{}
	started chan struct{}

	calls  atomic.Int32
	mu     sync.Mutex
	voided []services.EscrowHold
}

func (f *fakeCodes) GenerateCode(ctx context.Context, req services.EscrowRequest) (*services.EscrowHold, error) {
	if f.calls.Add(1) == 1 && f.started != nil {
		close(f.started)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &services.EscrowHold{Code: f.code, Provider: services.ProviderMock, Reference: "hold-" + req.OrderID.String()}, nil
}

func (f *fakeCodes) Void(ctx context.Context, hold services.EscrowHold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voided = append(f.voided, hold)
	return nil
}

func (f *fakeCodes) voidedHolds() []services.EscrowHold {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.EscrowHold(nil), f.voided...)
}

type fakeOrders struct {
	mu       sync.Mutex
	inputs   []services.CreateOrderInput
	canceled []uuid.UUID
	err      error
	// onCreate runs after an order is stored, outside the lock.
	onCreate func()
}

func (f *fakeOrders) CreateOrder(ctx context.Context, in services.CreateOrderInput) (*models.Order, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	hook := f.onCreate
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	order := &models.Order{Phone: in.Phone, Total: in.Total, Status: models.OrderStatusHeld}
	order.ID = in.ID
	return order, nil
}

func (f *fakeOrders) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, orderID)
	return nil
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}
