// internal/handlers/product.go
package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/duka-backend/internal/i18n"
	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/navigation"
	"github.com/javajoker/duka-backend/internal/services"
	"github.com/javajoker/duka-backend/internal/utils"
)

type ProductCatalog interface {
	SearchProducts(ctx context.Context, params services.ProductSearchParams) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error)
	CreateProduct(ctx context.Context, seller services.SellerIdentity, req *services.CreateProductRequest, mediaURL string) (*models.Product, error)
}

type MediaStore interface {
	UploadMedia(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*services.UploadResult, error)
	DeleteFile(ctx context.Context, key string) error
}

type ProductHandler struct {
	productService ProductCatalog
	storageService MediaStore
	baseURL        string
}

func NewProductHandler(productService ProductCatalog, storageService MediaStore, baseURL string) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		storageService: storageService,
		baseURL:        baseURL,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
		SellerHandle:     strings.TrimPrefix(c.Query("seller"), "@"),
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product":   product,
		"share_url": navigation.ShareURL(h.baseURL, product.ID),
	})
}

// GET /products/:id/share
func (h *ProductHandler) GetShareLink(c *gin.Context) {
	product, ok := h.loadProduct(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product_id": product.ID,
		"url":        navigation.ShareURL(h.baseURL, product.ID),
		"title":      product.Name,
	})
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	claims, ok := utils.GetClaimsFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateProductRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	file, header, err := c.Request.FormFile("media")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileRequired), nil)
		return
	}
	defer file.Close()

	upload, err := h.storageService.UploadMedia(c.Request.Context(), file, header)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileUploadFailed), err.Error())
		return
	}
	// The stored bytes decide the media type, not the form field.
	req.Type = upload.MediaType

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		h.discardUpload(c, upload)
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	seller := services.SellerIdentity{
		ID:     claims.UserID,
		Name:   claims.DisplayName,
		Handle: claims.Username,
	}
	if seller.Name == "" {
		seller.Name = seller.Handle
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), seller, &req, upload.URL)
	if err != nil {
		h.discardUpload(c, upload)
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyProductCreated),
		"product":   product,
		"share_url": navigation.ShareURL(h.baseURL, product.ID),
	})
}

func (h *ProductHandler) loadProduct(c *gin.Context) (*models.Product, bool) {
	id := models.ProductID(strings.TrimSpace(c.Param("id")))
	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			utils.NotFoundResponse(c, "product")
			return nil, false
		}
		utils.InternalErrorResponse(c, err.Error())
		return nil, false
	}
	return product, true
}

func (h *ProductHandler) discardUpload(c *gin.Context, upload *services.UploadResult) {
	if err := h.storageService.DeleteFile(c.Request.Context(), upload.Key); err != nil {
		logrus.WithError(err).WithField("key", upload.Key).Warn("Failed to remove orphaned upload")
	}
}
