// internal/middleware/logging.go
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/duka-backend/internal/models"
)

// Body fields never written to the audit log.
var redactedFields = map[string]bool{
	"code":     true,
	"phone":    true,
	"location": true,
}

func AuditLogMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for GET requests and health checks
		if c.Request.Method == "GET" || c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		// Uploads are not buffered
		var requestBody []byte
		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			requestBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		var userID *string
		if uid := c.GetString("user_id"); uid != "" {
			userID = &uid
		}

		auditLog := &models.AuditLog{
			UserID:       userID,
			SessionID:    extractSessionID(c.Request.URL.Path),
			Action:       c.Request.Method + " " + c.FullPath(),
			ResourceType: extractResourceType(c.Request.URL.Path),
			NewValues:    auditPayload(requestBody),
			Status:       c.Writer.Status(),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
		}

		// Save audit log asynchronously
		if db != nil {
			go func() {
				if err := db.Create(auditLog).Error; err != nil {
					logrus.WithError(err).Error("Failed to create audit log")
				}
			}()
		}

		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": duration.Milliseconds(),
			"ip":       c.ClientIP(),
			"user_id":  c.GetString("user_id"),
		}).Info("Request processed")
	}
}

// auditPayload decodes a JSON request body with sensitive fields masked.
func auditPayload(body []byte) models.JSONB {
	if len(body) == 0 {
		return nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	for field := range data {
		if redactedFields[field] {
			data[field] = "[redacted]"
		}
	}
	return models.JSONB(data)
}

func extractResourceType(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "v1" {
		return parts[1]
	}
	if len(parts) >= 1 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}

func extractSessionID(path string) *uuid.UUID {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] != "sessions" {
			continue
		}
		if id, err := uuid.Parse(parts[i+1]); err == nil {
			return &id
		}
	}
	return nil
}

// RequestLogger logs every request through logrus, GETs included.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("errors", c.Errors.String()).Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}
