package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/javajoker/duka-backend/internal/services"
)

func TestReleaseOrder(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		body   gin.H
		err    error
		status int
		code   string
	}{
		{"released", uuid.NewString(), gin.H{"code": "482913"}, nil, http.StatusOK, ""},
		{"bad id", "order-1", gin.H{"code": "482913"}, nil, http.StatusNotFound, "NOT_FOUND"},
		{"non numeric code", uuid.NewString(), gin.H{"code": "48a913"}, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing code", uuid.NewString(), gin.H{}, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown order", uuid.NewString(), gin.H{"code": "482913"}, services.ErrOrderNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"wrong code", uuid.NewString(), gin.H{"code": "000000"}, services.ErrInvalidReleaseCode, http.StatusUnprocessableEntity, "INVALID_CODE"},
		{"already released", uuid.NewString(), gin.H{"code": "482913"}, services.ErrOrderNotHeld, http.StatusConflict, "CONFLICT"},
		{"card not authorised", uuid.NewString(), gin.H{"code": "482913"}, fmt.Errorf("%w: status requires_payment_method", services.ErrHoldNotAuthorized), http.StatusConflict, "CONFLICT"},
		{"store failure", uuid.NewString(), gin.H{"code": "482913"}, errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOrderHandler(&fakeOrders{releaseErr: tt.err})
			r := gin.New()
			r.POST("/orders/:id/release", h.Release)

			w := call(r, http.MethodPost, "/orders/"+tt.id+"/release", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, w))
			}
		})
	}
}

func TestHealth(t *testing.T) {
	healthy := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	r := gin.New()
	r.GET("/ok", NewHealthHandler(map[string]Pinger{"database": healthy}, func() int { return 3 }).Health)
	r.GET("/degraded", NewHealthHandler(map[string]Pinger{"database": healthy, "kv": down}, nil).Health)

	w := call(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sessions":3`)

	w = call(r, http.MethodGet, "/degraded", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}
