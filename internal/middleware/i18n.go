// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/duka-backend/internal/i18n"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := defaultLang

		// Handle cases like "sw-KE,sw;q=0.9,en;q=0.8"
		if header := c.GetHeader("Accept-Language"); header != "" {
			first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
			switch base := strings.ToLower(strings.SplitN(strings.ReplaceAll(first, "_", "-"), "-", 2)[0]); {
			case base == "sw":
				lang = "sw"
			case base == "en":
				lang = "en"
			case i18n.IsSupported(base):
				lang = base
			}
		}

		c.Set("lang", lang)
		c.Next()
	}
}
