// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/utils"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidReleaseCode = errors.New("invalid release code")
	ErrOrderNotHeld       = errors.New("order is not awaiting release")
)

type OrderService struct {
	db     *gorm.DB
	escrow EscrowService
}

type CreateOrderInput struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	DeviceID  string
	UserID    *string
	Phone     string
	Location  string
	Lines     []models.OrderLine
	ItemCount int
	Total     int64
	Currency  string
	Hold      EscrowHold
	Code      string
}

type ReleaseOrderRequest struct {
	Code string `json:"code" validate:"required,numeric,min=4,max=10"`
}

func NewOrderService(db *gorm.DB, escrow EscrowService) *OrderService {
	return &OrderService{db: db, escrow: escrow}
}

// CreateOrder stores an order in the held state. Only a hash of the release
// code is kept.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	hash, err := utils.HashReleaseCode(in.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash release code: %w", err)
	}

	lines := make([]interface{}, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, map[string]interface{}{
			"product_id": l.ProductID.String(),
			"name":       l.Name,
			"seller_id":  l.SellerID,
			"price":      l.Price,
			"quantity":   l.Quantity,
		})
	}

	order := &models.Order{
		SessionID:        in.SessionID,
		DeviceID:         in.DeviceID,
		UserID:           in.UserID,
		Phone:            in.Phone,
		Location:         in.Location,
		Lines:            models.JSONB{"items": lines},
		ItemCount:        in.ItemCount,
		Total:            in.Total,
		Currency:         in.Currency,
		ReleaseCodeHash:  hash,
		PaymentProvider:  in.Hold.Provider,
		PaymentReference: in.Hold.Reference,
		Status:           models.OrderStatusHeld,
	}
	order.ID = in.ID

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"items":    order.ItemCount,
		"total":    order.Total,
	}).Info("Order placed")

	return order, nil
}

// ListForDevice returns the orders placed from deviceID with phone. Both
// must match so a phone number alone never exposes another buyer's orders.
func (s *OrderService) ListForDevice(ctx context.Context, deviceID, phone string, params utils.PaginationParams) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("device_id = ? AND phone = ?", deviceID, phone)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "total"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	return orders, total, nil
}

// CancelOrder marks a held order canceled. Released orders are left alone.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderStatusHeld).
		Update("status", models.OrderStatusCanceled)
	if result.Error != nil {
		return fmt.Errorf("failed to cancel order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotHeld
	}

	logrus.WithField("order_id", orderID).Info("Order canceled")
	return nil
}

// Release checks the buyer's code at hand-over and settles the held funds.
func (s *OrderService) Release(ctx context.Context, orderID uuid.UUID, code string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if order.Status != models.OrderStatusHeld {
		return nil, ErrOrderNotHeld
	}
	if !utils.CheckReleaseCode(order.ReleaseCodeHash, code) {
		logrus.WithField("order_id", order.ID).Warn("Release code mismatch")
		return nil, ErrInvalidReleaseCode
	}

	if order.PaymentProvider == ProviderStripe {
		if err := s.escrow.Capture(ctx, order.PaymentReference); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	order.Status = models.OrderStatusReleased
	order.ReleasedAt = &now
	if err := s.db.WithContext(ctx).Save(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	logrus.WithField("order_id", order.ID).Info("Escrow released")
	return &order, nil
}
