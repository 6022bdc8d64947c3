// internal/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/duka-backend/internal/i18n"
)

// Pinger is a backend the health check probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks   map[string]Pinger
	sessions func() int
}

func NewHealthHandler(checks map[string]Pinger, sessions func() int) *HealthHandler {
	return &HealthHandler{checks: checks, sessions: sessions}
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := gin.H{
		"status":       "ok",
		"timestamp":    time.Now().UTC(),
		"dependencies": deps,
		"locales":      i18n.GetSupportedLanguages(),
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if h.sessions != nil {
		body["sessions"] = h.sessions()
	}
	c.JSON(status, body)
}
