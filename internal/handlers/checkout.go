// internal/handlers/checkout.go
package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/duka-backend/internal/i18n"
	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/session"
	"github.com/javajoker/duka-backend/internal/utils"
)

// OrderLister serves a buyer's order history.
type OrderLister interface {
	ListForDevice(ctx context.Context, deviceID, phone string, params utils.PaginationParams) ([]models.Order, int64, error)
}

type CheckoutHandler struct {
	manager *session.Manager
	orders  OrderLister
}

func NewCheckoutHandler(manager *session.Manager, orders OrderLister) *CheckoutHandler {
	return &CheckoutHandler{manager: manager, orders: orders}
}

type PreferencesRequest struct {
	Phone    string `json:"phone" validate:"omitempty,ke_phone"`
	Location string `json:"location" validate:"max=200"`
}

// POST /sessions/:id/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}

	var req session.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		req.UserID = &userID
	}

	receipt, err := s.Checkout.Checkout(c.Request.Context(), req)
	if err != nil {
		if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
			utils.ValidationErrorResponse(c, validationErrors)
			return
		}
		switch {
		case errors.Is(err, session.ErrEmptyCart):
			utils.UnprocessableResponse(c, "CART_EMPTY", i18n.T(lang, i18n.KeyCartEmpty), nil)
		case errors.Is(err, session.ErrCheckoutInProgress):
			utils.ConflictResponse(c, i18n.T(lang, i18n.KeyCheckoutInProgress))
		case errors.Is(err, session.ErrOrderNotRecorded):
			c.Error(err)
			utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyCheckoutOrderFailed))
		case errors.Is(err, session.ErrSessionClosed):
			utils.NotFoundResponse(c, "session")
		case errors.Is(err, context.DeadlineExceeded):
			utils.GatewayTimeoutResponse(c, i18n.T(lang, i18n.KeyCheckoutCodeTimeout))
		default:
			c.Error(err)
			utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyCheckoutCodeFailed))
		}
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCheckoutSuccess),
		"receipt": receipt,
	})
}

// GET /sessions/:id/preferences
func (h *CheckoutHandler) GetPreferences(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	utils.SuccessResponse(c, s.Prefs.Get())
}

// PUT /sessions/:id/preferences
func (h *CheckoutHandler) UpdatePreferences(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req PreferencesRequest
	if !bindJSON(c, &req) {
		return
	}

	phone := req.Phone
	if normalized, ok := utils.NormalizePhone(phone); ok {
		phone = normalized
	}
	if err := s.Prefs.Save(c.Request.Context(), phone, req.Location); err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyPreferencesSaved),
		"preferences": s.Prefs.Get(),
	})
}

// GET /sessions/:id/orders
func (h *CheckoutHandler) ListOrders(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	phone := s.Prefs.Get().SavedPhone
	if phone == "" || h.orders == nil {
		utils.PaginatedResponse(c, utils.CreatePaginationResult([]models.Order{}, 0, params))
		return
	}

	orders, total, err := h.orders.ListForDevice(c.Request.Context(), s.DeviceID, phone, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}
