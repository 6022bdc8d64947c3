// internal/handlers/order.go
package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/duka-backend/internal/i18n"
	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/services"
	"github.com/javajoker/duka-backend/internal/utils"
)

type OrderReleaser interface {
	Release(ctx context.Context, orderID uuid.UUID, code string) (*models.Order, error)
}

type OrderHandler struct {
	orders OrderReleaser
}

func NewOrderHandler(orders OrderReleaser) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// POST /orders/:id/release
func (h *OrderHandler) Release(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "order")
		return
	}

	var req services.ReleaseOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.Release(c.Request.Context(), id, req.Code)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrOrderNotFound):
		utils.NotFoundResponse(c, "order")
		return
	case errors.Is(err, services.ErrInvalidReleaseCode):
		utils.UnprocessableResponse(c, "INVALID_CODE", i18n.T(lang, i18n.KeyOrderInvalidCode), nil)
		return
	case errors.Is(err, services.ErrOrderNotHeld):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyOrderNotHeld))
		return
	case errors.Is(err, services.ErrHoldNotAuthorized):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyOrderHoldNotAuthorized))
		return
	default:
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderReleased),
		"order":   order,
	})
}
