// internal/handlers/session.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/duka-backend/internal/i18n"
	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/navigation"
	"github.com/javajoker/duka-backend/internal/session"
	"github.com/javajoker/duka-backend/internal/utils"
)

type SessionHandler struct {
	manager *session.Manager
}

func NewSessionHandler(manager *session.Manager) *SessionHandler {
	return &SessionHandler{manager: manager}
}

type OpenSessionRequest struct {
	DeviceID string `json:"device_id" validate:"omitempty,max=64"`
	URL      string `json:"url" validate:"max=2048"`
}

type URLRequest struct {
	URL string `json:"url" validate:"max=2048"`
}

type NavigateRequest struct {
	View string `json:"view" validate:"required"`
}

type TabRequest struct {
	Tab string `json:"tab" validate:"required"`
}

type ConnectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

type SessionResponse struct {
	Session session.Snapshot `json:"session"`
	Feed    session.Feed     `json:"feed"`
}

// POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req OpenSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	open := session.OpenRequest{DeviceID: req.DeviceID, URL: req.URL}
	if userID, ok := utils.GetUserIDFromContext(c); ok {
		open.UserID = &userID
	}

	s, err := h.manager.Open(c.Request.Context(), open)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, SessionResponse{Session: s.Snapshot(), Feed: s.Feed()})
}

// GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	utils.SuccessResponse(c, SessionResponse{Session: s.Snapshot(), Feed: s.Feed()})
}

// DELETE /sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || h.manager.Close(id) != nil {
		utils.NotFoundResponse(c, "session")
		return
	}
	utils.SuccessResponse(c, gin.H{"closed": true})
}

// POST /sessions/:id/deeplink
func (h *SessionHandler) DeepLink(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req URLRequest
	if !bindJSON(c, &req) {
		return
	}
	s.DeepLink(req.URL)
	respondSession(c, s)
}

// POST /sessions/:id/history
func (h *SessionHandler) History(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req URLRequest
	if !bindJSON(c, &req) {
		return
	}
	s.History(req.URL)
	respondSession(c, s)
}

// POST /sessions/:id/back
func (h *SessionHandler) Back(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	_, exit := s.PressBack()
	utils.SuccessResponse(c, gin.H{
		"session":  s.Snapshot(),
		"exit_app": exit,
	})
}

// POST /sessions/:id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req NavigateRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := navigation.ParseView(req.View)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyNavigationUnknownView, req.View), nil)
		return
	}

	_, err = s.Machine.Navigate(view)
	respondTransition(c, s, err)
}

// POST /sessions/:id/search
func (h *SessionHandler) OpenSearch(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	_, err := s.Machine.OpenSearch()
	respondTransition(c, s, err)
}

// DELETE /sessions/:id/search
func (h *SessionHandler) CloseSearch(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	s.Machine.CloseSearch()
	respondSession(c, s)
}

// POST /sessions/:id/seller
func (h *SessionHandler) SelectSeller(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var seller models.Seller
	if !bindJSON(c, &seller) {
		return
	}
	_, err := s.Machine.SelectSeller(seller)
	respondTransition(c, s, err)
}

// DELETE /sessions/:id/seller
func (h *SessionHandler) LeaveSeller(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	s.Machine.LeaveSellerProfile()
	respondSession(c, s)
}

// POST /sessions/:id/seller/posts/:productId
func (h *SessionHandler) SelectSellerPost(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	post, found := s.Catalog.Lookup(models.ProductID(c.Param("productId")))
	if !found {
		utils.NotFoundResponse(c, "product")
		return
	}
	_, err := s.Machine.SelectSellerPost(post)
	respondTransition(c, s, err)
}

// POST /sessions/:id/tab
func (h *SessionHandler) SetTab(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req TabRequest
	if !bindJSON(c, &req) {
		return
	}

	tab, err := navigation.ParseFeedTab(req.Tab)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyNavigationUnknownTab, req.Tab), nil)
		return
	}

	_, err = s.Machine.SetFeedTab(tab)
	respondTransition(c, s, err)
}

// POST /sessions/:id/connectivity
func (h *SessionHandler) SetConnectivity(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	var req ConnectivityRequest
	if !bindJSON(c, &req) {
		return
	}

	st := s.Machine.SetConnectivity(*req.Online)
	resp := gin.H{"session": s.Snapshot()}
	if st.Advisory {
		resp["advisory"] = i18n.T(utils.GetLangFromContext(c), i18n.KeyConnectivityOffline)
	}
	utils.SuccessResponse(c, resp)
}

// POST /sessions/:id/advisory/dismiss
func (h *SessionHandler) DismissAdvisory(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	s.Machine.DismissAdvisory()
	respondSession(c, s)
}

// POST /sessions/:id/success/dismiss
func (h *SessionHandler) DismissSuccess(c *gin.Context) {
	s, ok := lookupSession(c, h.manager)
	if !ok {
		return
	}
	s.Machine.DismissSuccess()
	respondSession(c, s)
}

func lookupSession(c *gin.Context, manager *session.Manager) (*session.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, "session")
		return nil, false
	}
	s, err := manager.Get(id)
	if err != nil {
		utils.NotFoundResponse(c, "session")
		return nil, false
	}
	return s, true
}

func respondSession(c *gin.Context, s *session.Session) {
	utils.SuccessResponse(c, SessionResponse{Session: s.Snapshot(), Feed: s.Feed()})
}

// respondTransition reports a rejected feed action with the unchanged state
// so the client can re-render.
func respondTransition(c *gin.Context, s *session.Session, err error) {
	lang := utils.GetLangFromContext(c)
	switch {
	case err == nil:
		respondSession(c, s)
	case errors.Is(err, navigation.ErrSuppressed):
		utils.UnprocessableResponse(c, "NAVIGATION_SUPPRESSED", i18n.T(lang, i18n.KeyNavigationSuppressed), s.Snapshot())
	case errors.Is(err, navigation.ErrInvalidTransition):
		utils.UnprocessableResponse(c, "INVALID_TRANSITION", i18n.T(lang, i18n.KeyNavigationInvalid), s.Snapshot())
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}

// bindJSON decodes and validates the body, writing the error response on
// failure. An empty body decodes as the zero value.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(req); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
			return false
		}
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}
