// internal/models/product.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ProductID is the backend-assigned product identifier. Older catalog
// documents carry numeric ids, newer ones alphanumeric strings; both decode
// to the same string form so lookups never depend on the stored type.
type ProductID string

func (id ProductID) String() string {
	return string(id)
}

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

type Product struct {
	ID           ProductID      `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name         string         `json:"name" gorm:"size:255;not null"`
	Description  string         `json:"description" gorm:"type:text"`
	SellerID     string         `json:"seller_id" gorm:"size:64;not null;index"`
	SellerName   string         `json:"seller_name" gorm:"size:255;not null"`
	SellerHandle string         `json:"seller_handle" gorm:"size:64;not null;index"`
	MediaURL     string         `json:"media_url" gorm:"type:text;not null"`
	Type         MediaType      `json:"type" gorm:"type:varchar(10);not null;default:'image'"`
	Price        int64          `json:"price" gorm:"not null"`
	Tags         pq.StringArray `json:"tags" gorm:"type:text[]"`
	Status       ProductStatus  `json:"status" gorm:"type:varchar(20);default:'active';index"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Seller is the seller context shown on the seller-profile view.
type Seller struct {
	Name   string `json:"name" validate:"required,max=255"`
	Handle string `json:"handle" validate:"required,handle"`
}
