package router

import (
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/duka-backend/internal/config"
	"github.com/javajoker/duka-backend/internal/handlers"
	"github.com/javajoker/duka-backend/internal/models"
	"github.com/javajoker/duka-backend/internal/services"
	"github.com/javajoker/duka-backend/internal/session"
	"github.com/javajoker/duka-backend/internal/utils"
)

type stubProducts struct{}

func (stubProducts) SearchProducts(ctx context.Context, params services.ProductSearchParams) ([]models.Product, int64, error) {
	return []models.Product{}, 0, nil
}

func (stubProducts) GetProduct(ctx context.Context, id models.ProductID) (*models.Product, error) {
	return nil, services.ErrProductNotFound
}

func (stubProducts) CreateProduct(ctx context.Context, seller services.SellerIdentity, req *services.CreateProductRequest, mediaURL string) (*models.Product, error) {
	return nil, nil
}

type stubOrders struct{}

func (stubOrders) ListForDevice(ctx context.Context, deviceID, phone string, params utils.PaginationParams) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (stubOrders) Release(ctx context.Context, orderID uuid.UUID, code string) (*models.Order, error) {
	return nil, services.ErrOrderNotFound
}

type stubMedia struct{}

func (stubMedia) UploadMedia(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*services.UploadResult, error) {
	return nil, nil
}

func (stubMedia) DeleteFile(ctx context.Context, key string) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := session.NewManager(session.Dependencies{
		KV:    services.NewMemoryStore(),
		Codes: services.NewMockEscrowService(6, 0),
	})
	t.Cleanup(manager.Shutdown)

	cfg := &config.Config{
		JWT:      config.JWTConfig{SecretKey: "router-test"},
		I18n:     config.I18nConfig{DefaultLocale: "en"},
		Frontend: config.FrontendConfig{BaseURL: "https://duka.app"},
	}

	r := Initialize(nil, cfg, Services{
		Products: stubProducts{},
		Storage:  stubMedia{},
		Orders:   stubOrders{},
		Sessions: manager,
		Health:   map[string]handlers.Pinger{"kv": services.NewMemoryStore()},
	})
	return r, manager
}

func TestRoutes(t *testing.T) {
	r, manager := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/v1/products", "", http.StatusOK},
		{http.MethodGet, "/v1/products/abc123", "", http.StatusNotFound},
		{http.MethodPost, "/v1/products", "", http.StatusUnauthorized},
		{http.MethodPost, "/v1/sessions", `{"url":"https://duka.app/p/abc123"}`, http.StatusCreated},
		{http.MethodGet, "/v1/sessions/" + uuid.NewString() + "/cart", "", http.StatusNotFound},
		{http.MethodPost, "/v1/orders/" + uuid.NewString() + "/release", `{"code":"482913"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	assert.Equal(t, 1, manager.Count())
}

func TestSellerOnlyUpload(t *testing.T) {
	r, _ := newTestRouter(t)

	token, err := utils.GenerateJWT("buyer-1", "wanjiku", "", utils.RoleBuyer, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
