// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/utils"
)

var ErrProductNotFound = errors.New("product not found")

type ProductService struct {
	db     *gorm.DB
	events EventPublisher
	topic  string
}

// SellerIdentity is the authenticated seller creating a post.
type SellerIdentity struct {
	ID     string `validate:"required,max=64"`
	Name   string `validate:"required,max=255"`
	Handle string `validate:"required,handle"`
}

type CreateProductRequest struct {
	Name        string           `form:"name" json:"name" validate:"required,min=2,max=255"`
	Description string           `form:"description" json:"description" validate:"max=2000"`
	Price       int64            `form:"price" json:"price" validate:"required,min=1"`
	Type        models.MediaType `form:"type" json:"type" validate:"required,oneof=image video"`
	Tags        []string         `form:"tags" json:"tags,omitempty" validate:"max=10,dive,max=32"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	SellerHandle string
}

func NewProductService(db *gorm.DB, events EventPublisher, topic string) *ProductService {
	return &ProductService{db: db, events: events, topic: topic}
}

// ListActive returns the whole feed catalog, newest first.
func (s *ProductService) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("status = ?", models.ProductStatusActive).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, "id = ?", id.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

func (s *ProductService) SearchProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Product{}).Where("status = ?", models.ProductStatusActive)
	if params.SellerHandle != "" {
		query = query.Where("seller_handle = ?", params.SellerHandle)
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(seller_name) LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{"created_at", "price", "name"})
	query = utils.ApplyPagination(query, params.PaginationParams)
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("database error: %w", err)
	}

	return products, total, nil
}

// CreateProduct publishes a seller post whose media is already uploaded.
func (s *ProductService) CreateProduct(ctx context.Context, seller SellerIdentity, req *CreateProductRequest, mediaURL string) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := utils.ValidateStruct(seller); err != nil {
		return nil, fmt.Errorf("invalid seller identity: %w", err)
	}
	if mediaURL == "" {
		return nil, errors.New("media is required")
	}

	id, err := utils.GenerateRandomString(20)
	if err != nil {
		return nil, fmt.Errorf("failed to generate product id: %w", err)
	}

	product := &models.Product{
		ID:           models.ProductID(id),
		Name:         strings.TrimSpace(req.Name),
		Description:  strings.TrimSpace(req.Description),
		SellerID:     seller.ID,
		SellerName:   seller.Name,
		SellerHandle: seller.Handle,
		MediaURL:     mediaURL,
		Type:         req.Type,
		Price:        req.Price,
		Tags:         req.Tags,
		Status:       models.ProductStatusActive,
	}

	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	event := ProductCreatedEvent{
		ProductID:    product.ID.String(),
		SellerID:     product.SellerID,
		SellerHandle: product.SellerHandle,
		Type:         string(product.Type),
		Price:        product.Price,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.events.PublishEvent(ctx, s.topic, product.SellerID, event); err != nil {
		logrus.WithError(err).WithField("product_id", product.ID).Warn("Failed to publish product event")
	}

	return product, nil
}
