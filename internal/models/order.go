// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Order struct {
	BaseModel
	SessionID        uuid.UUID   `json:"session_id" gorm:"type:uuid;index"`
	DeviceID         string      `json:"device_id" gorm:"size:64;index"`
	UserID           *string     `json:"user_id,omitempty" gorm:"size:64;index"`
	Phone            string      `json:"phone" gorm:"size:20;not null;index"`
	Location         string      `json:"location" gorm:"size:255;not null"`
	Lines            JSONB       `json:"lines" gorm:"type:jsonb;not null"`
	ItemCount        int         `json:"item_count" gorm:"not null"`
	Total            int64       `json:"total" gorm:"not null"`
	Currency         string      `json:"currency" gorm:"size:3;not null"`
	ReleaseCodeHash  string      `json:"-" gorm:"size:60;not null"`
	PaymentProvider  string      `json:"payment_provider" gorm:"size:20"`
	PaymentReference string      `json:"payment_reference,omitempty" gorm:"size:255"`
	Status           OrderStatus `json:"status" gorm:"type:varchar(20);default:'held';index"`
	ReleasedAt       *time.Time  `json:"released_at,omitempty"`
}

// OrderLine is the per-product snapshot stored inside Order.Lines.
type OrderLine struct {
	ProductID ProductID `json:"product_id"`
	Name      string    `json:"name"`
	SellerID  string    `json:"seller_id"`
	Price     int64     `json:"price"`
	Quantity  int       `json:"quantity"`
}
