package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/services"
	"github.com/javajoker/duka-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	kiondo = models.Product{
		ID:           "abc123",
		Name:         "Kiondo basket",
		SellerID:     "seller-amina",
		SellerName:   "Amina",
		SellerHandle: "amina",
		Price:        1500,
		Type:         models.MediaTypeImage,
		Status:       models.ProductStatusActive,
	}
	sufuria = models.Product{
		ID:           "1001",
		Name:         "Sufuria set",
		SellerID:     "seller-baraka",
		SellerName:   "Baraka",
		SellerHandle: "baraka",
		Price:        800,
		Type:         models.MediaTypeVideo,
		Status:       models.ProductStatusActive,
	}
)

// fakeCatalog serves both the session catalog load and the product routes.
type fakeCatalog struct {
	products []models.Product
	created  []services.SellerIdentity
}

func (f *fakeCatalog) ListActive(ctx context.Context) ([]models.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) SearchProducts(ctx context.Context, params services.ProductSearchParams) ([]models.Product, int64, error) {
	var out []models.Product
	for _, p := range f.products {
		if params.SellerHandle == "" || p.SellerHandle == params.SellerHandle {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, services.ErrProductNotFound
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, seller services.SellerIdentity, req *services.CreateProductRequest, mediaURL string) (*models.Product, error) {
	f.created = append(f.created, seller)
	return &models.Product{
		ID:           "new-post",
		Name:         req.Name,
		SellerID:     seller.ID,
		SellerName:   seller.Name,
		SellerHandle: seller.Handle,
		MediaURL:     mediaURL,
		Type:         req.Type,
		Price:        req.Price,
	}, nil
}

type fakeMedia struct {
	deleted []string
}

func (f *fakeMedia) UploadMedia(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*services.UploadResult, error) {
	return &services.UploadResult{
		Key:       "products/" + header.Filename,
		URL:       "/uploads/products/" + header.Filename,
		MediaType: models.MediaTypeImage,
	}, nil
}

func (f *fakeMedia) DeleteFile(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

// fakeOrders records placed orders and answers history and release calls.
type fakeOrders struct {
	mu         sync.Mutex
	created    []services.CreateOrderInput
	canceled   []uuid.UUID
	createErr  error
	releaseErr error
}

func (f *fakeOrders) CreateOrder(ctx context.Context, in services.CreateOrderInput) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &models.Order{Phone: in.Phone, Total: in.Total, Status: models.OrderStatusHeld}, nil
}

func (f *fakeOrders) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, orderID)
	return nil
}

func (f *fakeOrders) ListForDevice(ctx context.Context, deviceID, phone string, params utils.PaginationParams) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, in := range f.created {
		if in.DeviceID == deviceID && in.Phone == phone {
			out = append(out, models.Order{DeviceID: in.DeviceID, Phone: in.Phone, Total: in.Total, Status: models.OrderStatusHeld})
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) Release(ctx context.Context, orderID uuid.UUID, code string) (*models.Order, error) {
	if f.releaseErr != nil {
		return nil, f.releaseErr
	}
	return &models.Order{Status: models.OrderStatusReleased}, nil
}

// gatedCodes holds every code request until gate is closed.
type gatedCodes struct {
	started chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (g *gatedCodes) GenerateCode(ctx context.Context, req services.EscrowRequest) (*services.EscrowHold, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &services.EscrowHold{Code: "123456", Provider: services.ProviderMock}, nil
}

func (g *gatedCodes) Void(ctx context.Context, hold services.EscrowHold) error {
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func call(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode(t, w, nil)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

type sessionView struct {
	Session struct {
		ID        uuid.UUID `json:"id"`
		URL       string    `json:"url"`
		CartItems int       `json:"cart_items"`
		State     struct {
			View              string `json:"view"`
			CheckoutMode      bool   `json:"checkout_mode"`
			CheckoutProductID string `json:"checkout_product_id"`
			SuccessModal      bool   `json:"success_modal"`
			FeedTab           string `json:"feed_tab"`
			Online            bool   `json:"online"`
			Advisory          bool   `json:"advisory"`
		} `json:"state"`
	} `json:"session"`
	Feed struct {
		Products []models.Product `json:"products"`
		Pending  bool             `json:"pending"`
	} `json:"feed"`
}

func waitFor(t *testing.T, ready <-chan struct{}) {
	t.Helper()
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("catalog never settled")
	}
}
