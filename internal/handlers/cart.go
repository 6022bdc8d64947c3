// internal/handlers/cart.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/duka-backend/internal/i18n"
	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/session"
	"github.com/javajoker/duka-backend/internal/utils"
)

type CartHandler struct {
	manager *session.Manager
}

func NewCartHandler(manager *session.Manager) *CartHandler {
	return &CartHandler{manager: manager}
}

type AddCartItemRequest struct {
	ProductID models.ProductID `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"omitempty,min=1,max=99"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=99"`
}

type CartResponse struct {
	Lines     []session.CartLine `json:"lines"`
	ItemCount int                `json:"item_count"`
	Total     int64              `json:"total"`
}

func cartResponse(cart *session.CartStore) CartResponse {
	lines := cart.Lines()
	if lines == nil {
		lines = []session.CartLine{}
	}
	return CartResponse{Lines: lines, ItemCount: cart.ItemCount(), Total: cart.Total()}
}

// GET /sessions/:id/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	utils.SuccessResponse(c, cartResponse(s.Cart))
}

// POST /sessions/:id/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, found := s.Catalog.Lookup(req.ProductID)
	if !found {
		utils.NotFoundResponse(c, "product")
		return
	}
	if err := s.Cart.AddItem(product, req.Quantity); err != nil {
		respondCartError(c, err)
		return
	}
	utils.SuccessResponse(c, cartResponse(s.Cart))
}

// PUT /sessions/:id/cart/items/:productId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.Cart.UpdateQuantity(models.ProductID(c.Param("productId")), *req.Quantity); err != nil {
		respondCartError(c, err)
		return
	}
	utils.SuccessResponse(c, cartResponse(s.Cart))
}

// POST /sessions/:id/cart/items/:productId/decrement
func (h *CartHandler) DecrementItem(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.Cart.Decrement(models.ProductID(c.Param("productId"))); err != nil {
		respondCartError(c, err)
		return
	}
	utils.SuccessResponse(c, cartResponse(s.Cart))
}

// DELETE /sessions/:id/cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.Cart.RemoveItem(models.ProductID(c.Param("productId"))); err != nil {
		respondCartError(c, err)
		return
	}
	utils.SuccessResponse(c, cartResponse(s.Cart))
}

// DELETE /sessions/:id/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	s.Cart.Clear()
	utils.SuccessResponse(c, cartResponse(s.Cart))
}

func respondCartError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	switch {
	case errors.Is(err, session.ErrLineNotFound):
		utils.NotFoundResponse(c, "cart")
	case errors.Is(err, session.ErrInvalidQuantity):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartInvalidQuantity), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
