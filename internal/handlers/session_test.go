package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/duka-backend/internal/config"
	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/services"
	"github.com/javajoker/duka-backend/internal/session"
)

type SessionAPITestSuite struct {
	suite.Suite
	router  *gin.Engine
	manager *session.Manager
	orders  *fakeOrders
}

func (suite *SessionAPITestSuite) SetupTest() {
	suite.orders = &fakeOrders{}
	suite.manager = session.NewManager(session.Dependencies{
		Products:   &fakeCatalog{products: []models.Product{kiondo, sufuria}},
		KV:         services.NewMemoryStore(),
		Codes:      services.NewMockEscrowService(6, 0),
		Orders:     suite.orders,
		Events:     services.NewEventPublisher(nil),
		Session:    config.SessionConfig{},
		Currency:   "kes",
		OrderTopic: "order.placed",
	})

	sessionHandler := NewSessionHandler(suite.manager)
	cartHandler := NewCartHandler(suite.manager)
	checkoutHandler := NewCheckoutHandler(suite.manager, suite.orders)

	suite.router = gin.New()
	suite.router.POST("/sessions", sessionHandler.CreateSession)
	s := suite.router.Group("/sessions/:id")
	{
		s.GET("", sessionHandler.GetSession)
		s.DELETE("", sessionHandler.DeleteSession)
		s.POST("/deeplink", sessionHandler.DeepLink)
		s.POST("/back", sessionHandler.Back)
		s.POST("/navigate", sessionHandler.Navigate)
		s.POST("/tab", sessionHandler.SetTab)
		s.POST("/seller", sessionHandler.SelectSeller)
		s.POST("/seller/posts/:productId", sessionHandler.SelectSellerPost)
		s.POST("/connectivity", sessionHandler.SetConnectivity)
		s.POST("/advisory/dismiss", sessionHandler.DismissAdvisory)
		s.POST("/success/dismiss", sessionHandler.DismissSuccess)
		s.GET("/cart", cartHandler.GetCart)
		s.POST("/cart/items", cartHandler.AddItem)
		s.PUT("/cart/items/:productId", cartHandler.UpdateItem)
		s.POST("/cart/items/:productId/decrement", cartHandler.DecrementItem)
		s.DELETE("/cart/items/:productId", cartHandler.RemoveItem)
		s.GET("/preferences", checkoutHandler.GetPreferences)
		s.PUT("/preferences", checkoutHandler.UpdatePreferences)
		s.POST("/checkout", checkoutHandler.Checkout)
		s.GET("/orders", checkoutHandler.ListOrders)
	}
}

func (suite *SessionAPITestSuite) TearDownTest() {
	suite.manager.Shutdown()
}

// open starts a session at url and waits for its catalog to settle.
func (suite *SessionAPITestSuite) open(url string) string {
	return suite.openOn("device-1", url)
}

func (suite *SessionAPITestSuite) openOn(deviceID, url string) string {
	w := call(suite.router, http.MethodPost, "/sessions", gin.H{"device_id": deviceID, "url": url})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var view sessionView
	decode(suite.T(), w, &view)

	s, err := suite.manager.Get(view.Session.ID)
	suite.Require().NoError(err)
	waitFor(suite.T(), s.Ready())
	return "/sessions/" + view.Session.ID.String()
}

func (suite *SessionAPITestSuite) TestSharedLinkRendersSingleProduct() {
	base := suite.open("https://duka.app/p/abc123")

	w := call(suite.router, http.MethodGet, base, nil)
	suite.Equal(http.StatusOK, w.Code)

	var view sessionView
	decode(suite.T(), w, &view)
	suite.True(view.Session.State.CheckoutMode)
	suite.Equal("abc123", view.Session.State.CheckoutProductID)
	suite.Require().Len(view.Feed.Products, 1)
	suite.Equal(kiondo.ID, view.Feed.Products[0].ID)
	suite.False(view.Feed.Pending)
}

func (suite *SessionAPITestSuite) TestUnknownSession() {
	suite.Equal(http.StatusNotFound, call(suite.router, http.MethodGet, "/sessions/not-a-uuid", nil).Code)
	suite.Equal(http.StatusNotFound, call(suite.router, http.MethodGet, "/sessions/"+uuid.NewString(), nil).Code)

	base := suite.open("https://duka.app/")
	suite.Equal(http.StatusOK, call(suite.router, http.MethodDelete, base, nil).Code)
	suite.Equal(http.StatusNotFound, call(suite.router, http.MethodGet, base, nil).Code)
	suite.Equal(http.StatusNotFound, call(suite.router, http.MethodDelete, base, nil).Code)
}

func (suite *SessionAPITestSuite) TestCheckoutModeSuppressesFeedActions() {
	base := suite.open("https://duka.app/p/abc123")

	w := call(suite.router, http.MethodPost, base+"/tab", gin.H{"tab": "shop"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("NAVIGATION_SUPPRESSED", errorCode(suite.T(), w))

	w = call(suite.router, http.MethodPost, base+"/seller", gin.H{"name": "Amina", "handle": "amina"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)

	suite.Equal(http.StatusBadRequest, call(suite.router, http.MethodPost, base+"/tab", gin.H{"tab": "trending"}).Code)
	suite.Equal(http.StatusBadRequest, call(suite.router, http.MethodPost, base+"/navigate", gin.H{"view": "teleport"}).Code)
	suite.Equal(http.StatusBadRequest, call(suite.router, http.MethodPost, base+"/navigate", nil).Code)
}

func (suite *SessionAPITestSuite) TestDeepLinkThenBackExits() {
	base := suite.open("https://duka.app/")

	var view sessionView
	w := call(suite.router, http.MethodPost, base+"/deeplink", gin.H{"url": "https://duka.app/#/p/abc123"})
	suite.Require().Equal(http.StatusOK, w.Code)
	decode(suite.T(), w, &view)
	suite.True(view.Session.State.CheckoutMode)
	suite.Len(view.Feed.Products, 1)

	var back struct {
		ExitApp bool `json:"exit_app"`
	}
	decode(suite.T(), call(suite.router, http.MethodPost, base+"/back", nil), &back)
	suite.False(back.ExitApp)

	decode(suite.T(), call(suite.router, http.MethodGet, base, nil), &view)
	suite.False(view.Session.State.CheckoutMode)
	suite.Equal("/", view.Session.URL)

	decode(suite.T(), call(suite.router, http.MethodPost, base+"/back", nil), &back)
	suite.True(back.ExitApp)
}

func (suite *SessionAPITestSuite) TestNavigateAndConnectivity() {
	base := suite.open("https://duka.app/")

	var view sessionView
	w := call(suite.router, http.MethodPost, base+"/navigate", gin.H{"view": "cart"})
	suite.Require().Equal(http.StatusOK, w.Code)
	decode(suite.T(), w, &view)
	suite.Equal("cart", view.Session.State.View)

	var conn struct {
		Advisory string `json:"advisory"`
	}
	w = call(suite.router, http.MethodPost, base+"/connectivity", gin.H{"online": false})
	suite.Require().Equal(http.StatusOK, w.Code)
	decode(suite.T(), w, &conn)
	suite.NotEmpty(conn.Advisory)

	decode(suite.T(), call(suite.router, http.MethodPost, base+"/advisory/dismiss", nil), &view)
	suite.False(view.Session.State.Advisory)
	suite.False(view.Session.State.Online)

	suite.Equal(http.StatusBadRequest, call(suite.router, http.MethodPost, base+"/connectivity", gin.H{}).Code)
}

func (suite *SessionAPITestSuite) TestCartLifecycle() {
	base := suite.open("https://duka.app/")

	var cart CartResponse
	w := call(suite.router, http.MethodPost, base+"/cart/items", gin.H{"product_id": "1001", "quantity": 2})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	decode(suite.T(), w, &cart)
	suite.Equal(2, cart.ItemCount)
	suite.Equal(int64(1600), cart.Total)

	suite.Equal(http.StatusNotFound, call(suite.router, http.MethodPost, base+"/cart/items", gin.H{"product_id": "missing"}).Code)
	suite.Equal(http.StatusBadRequest, call(suite.router, http.MethodPost, base+"/cart/items", gin.H{"product_id": "1001", "quantity": -1}).Code)

	decode(suite.T(), call(suite.router, http.MethodPost, base+"/cart/items/1001/decrement", nil), &cart)
	suite.Equal(1, cart.ItemCount)

	suite.Equal(http.StatusBadRequest, call(suite.router, http.MethodPut, base+"/cart/items/1001", gin.H{}).Code)

	w = call(suite.router, http.MethodPut, base+"/cart/items/1001", gin.H{"quantity": 0})
	suite.Require().Equal(http.StatusOK, w.Code)
	decode(suite.T(), w, &cart)
	suite.Empty(cart.Lines)

	suite.Equal(http.StatusNotFound, call(suite.router, http.MethodDelete, base+"/cart/items/1001", nil).Code)
}

func (suite *SessionAPITestSuite) TestCheckoutFromFeedShowsSuccessView() {
	base := suite.open("https://duka.app/")

	w := call(suite.router, http.MethodPost, base+"/checkout", gin.H{"phone": "0712345678", "location": "Kilimani"})
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("CART_EMPTY", errorCode(suite.T(), w))

	call(suite.router, http.MethodPost, base+"/cart/items", gin.H{"product_id": "abc123", "quantity": 2})

	w = call(suite.router, http.MethodPost, base+"/checkout", gin.H{"phone": "12345", "location": "Kilimani"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("VALIDATION_ERROR", errorCode(suite.T(), w))

	var result struct {
		Receipt struct {
			Code         string `json:"code"`
			Presentation string `json:"presentation"`
			Total        int64  `json:"total"`
			State        struct {
				View string `json:"view"`
			} `json:"state"`
		} `json:"receipt"`
	}
	w = call(suite.router, http.MethodPost, base+"/checkout", gin.H{"phone": "0712 345 678", "location": "Kilimani"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	decode(suite.T(), w, &result)
	suite.Len(result.Receipt.Code, 6)
	suite.Equal("view", result.Receipt.Presentation)
	suite.Equal("success", result.Receipt.State.View)
	suite.Equal(int64(3000), result.Receipt.Total)

	var cart CartResponse
	decode(suite.T(), call(suite.router, http.MethodGet, base+"/cart", nil), &cart)
	suite.Zero(cart.ItemCount)

	var prefs session.Preferences
	decode(suite.T(), call(suite.router, http.MethodGet, base+"/preferences", nil), &prefs)
	suite.Equal("+254712345678", prefs.SavedPhone)
	suite.Equal("Kilimani", prefs.SavedLocation)

	var orders []models.Order
	decode(suite.T(), call(suite.router, http.MethodGet, base+"/orders", nil), &orders)
	suite.Require().Len(orders, 1)
	suite.Equal(int64(3000), orders[0].Total)

	var view sessionView
	decode(suite.T(), call(suite.router, http.MethodPost, base+"/success/dismiss", nil), &view)
	suite.Equal("feed", view.Session.State.View)
}

func (suite *SessionAPITestSuite) TestCheckoutInSharedLinkShowsModal() {
	base := suite.open("https://duka.app/p/abc123")
	call(suite.router, http.MethodPost, base+"/cart/items", gin.H{"product_id": "abc123"})

	var result struct {
		Receipt struct {
			Presentation string `json:"presentation"`
			State        struct {
				CheckoutMode bool `json:"checkout_mode"`
				SuccessModal bool `json:"success_modal"`
			} `json:"state"`
		} `json:"receipt"`
	}
	w := call(suite.router, http.MethodPost, base+"/checkout", gin.H{"phone": "+254112345678", "location": "Nyali, Mombasa"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	decode(suite.T(), w, &result)
	suite.Equal("modal", result.Receipt.Presentation)
	suite.True(result.Receipt.State.CheckoutMode)
	suite.True(result.Receipt.State.SuccessModal)
}

func (suite *SessionAPITestSuite) TestPreferences() {
	base := suite.open("https://duka.app/")

	var orders []models.Order
	decode(suite.T(), call(suite.router, http.MethodGet, base+"/orders", nil), &orders)
	suite.Empty(orders)

	suite.Equal(http.StatusBadRequest, call(suite.router, http.MethodPut, base+"/preferences", gin.H{"phone": "555"}).Code)

	var saved struct {
		Preferences session.Preferences `json:"preferences"`
	}
	w := call(suite.router, http.MethodPut, base+"/preferences", gin.H{"phone": "0712345678", "location": "Ruaka"})
	suite.Require().Equal(http.StatusOK, w.Code)
	decode(suite.T(), w, &saved)
	suite.Equal("+254712345678", saved.Preferences.SavedPhone)
	suite.Equal("Ruaka", saved.Preferences.SavedLocation)
}

func (suite *SessionAPITestSuite) TestOrdersAreScopedToDevice() {
	buyer := suite.openOn("device-1", "https://duka.app/")
	call(suite.router, http.MethodPost, buyer+"/cart/items", gin.H{"product_id": "abc123"})
	w := call(suite.router, http.MethodPost, buyer+"/checkout", gin.H{"phone": "0712345678", "location": "Kilimani"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	other := suite.openOn("device-2", "https://duka.app/")
	w = call(suite.router, http.MethodPut, other+"/preferences", gin.H{"phone": "0712345678"})
	suite.Require().Equal(http.StatusOK, w.Code)

	var orders []models.Order
	w = call(suite.router, http.MethodGet, other+"/orders", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	decode(suite.T(), w, &orders)
	suite.Empty(orders)

	decode(suite.T(), call(suite.router, http.MethodGet, buyer+"/orders", nil), &orders)
	suite.Require().Len(orders, 1)
	suite.Equal("device-1", orders[0].DeviceID)
}

func (suite *SessionAPITestSuite) TestCheckoutKeepsCartWhenOrderStoreFails() {
	base := suite.open("https://duka.app/")
	call(suite.router, http.MethodPost, base+"/cart/items", gin.H{"product_id": "1001", "quantity": 3})

	suite.orders.createErr = errors.New("connection refused")
	w := call(suite.router, http.MethodPost, base+"/checkout", gin.H{"phone": "0712345678", "location": "Kilimani"})
	suite.Equal(http.StatusInternalServerError, w.Code)
	suite.Equal("INTERNAL_ERROR", errorCode(suite.T(), w))

	var cart CartResponse
	decode(suite.T(), call(suite.router, http.MethodGet, base+"/cart", nil), &cart)
	suite.Equal(3, cart.ItemCount)

	var view sessionView
	decode(suite.T(), call(suite.router, http.MethodGet, base, nil), &view)
	suite.Equal("feed", view.Session.State.View)
}

func (suite *SessionAPITestSuite) TestSellerPostMustBelongToSeller() {
	base := suite.open("https://duka.app/")

	w := call(suite.router, http.MethodPost, base+"/seller", gin.H{"name": "Amina", "handle": "amina"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = call(suite.router, http.MethodPost, base+"/seller/posts/1001", nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.Equal("INVALID_TRANSITION", errorCode(suite.T(), w))

	suite.Equal(http.StatusNotFound, call(suite.router, http.MethodPost, base+"/seller/posts/missing", nil).Code)

	var view sessionView
	w = call(suite.router, http.MethodPost, base+"/seller/posts/abc123", nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	decode(suite.T(), w, &view)
	suite.Equal("feed", view.Session.State.View)
	suite.Equal("shop", view.Session.State.FeedTab)
}

func (suite *SessionAPITestSuite) TestDeadDeepLinkResetsAddress() {
	base := suite.open("https://duka.app/")

	var view sessionView
	w := call(suite.router, http.MethodPost, base+"/deeplink", gin.H{"url": "https://duka.app/p/sold-out"})
	suite.Require().Equal(http.StatusOK, w.Code)
	decode(suite.T(), w, &view)
	suite.False(view.Session.State.CheckoutMode)
	suite.Equal("/", view.Session.URL)
}

func TestSessionAPITestSuite(t *testing.T) {
	suite.Run(t, new(SessionAPITestSuite))
}

func TestConcurrentCheckoutConflicts(t *testing.T) {
	codes := &gatedCodes{started: make(chan struct{}), gate: make(chan struct{})}
	orders := &fakeOrders{}
	manager := session.NewManager(session.Dependencies{
		Products: &fakeCatalog{products: []models.Product{kiondo}},
		KV:       services.NewMemoryStore(),
		Codes:    codes,
		Orders:   orders,
		Currency: "kes",
	})
	t.Cleanup(manager.Shutdown)

	r := gin.New()
	r.POST("/sessions", NewSessionHandler(manager).CreateSession)
	r.POST("/sessions/:id/cart/items", NewCartHandler(manager).AddItem)
	r.POST("/sessions/:id/checkout", NewCheckoutHandler(manager, orders).Checkout)

	var view sessionView
	decode(t, call(r, http.MethodPost, "/sessions", gin.H{"device_id": "device-1", "url": "https://duka.app/"}), &view)
	s, err := manager.Get(view.Session.ID)
	require.NoError(t, err)
	waitFor(t, s.Ready())
	base := "/sessions/" + view.Session.ID.String()
	call(r, http.MethodPost, base+"/cart/items", gin.H{"product_id": "abc123"})

	body := gin.H{"phone": "0712345678", "location": "Kilimani"}
	first := make(chan int, 1)
	go func() {
		first <- call(r, http.MethodPost, base+"/checkout", body).Code
	}()
	<-codes.started

	w := call(r, http.MethodPost, base+"/checkout", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))

	close(codes.gate)
	assert.Equal(t, http.StatusCreated, <-first)
	assert.Len(t, orders.created, 1)
}
