package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS middleware handles Cross-Origin Resource Sharing.
// Allowed origins are read from the CORS_ORIGINS environment variable
// (comma-separated). Falls back to http://localhost:3000 for development.
func CORS() gin.HandlerFunc {
	originsStr := os.Getenv("CORS_ORIGINS")
	if originsStr == "" {
		originsStr = "http://localhost:3000"
	}

	cfg := cors.Config{
		AllowMethods: []string{"POST", "OPTIONS", "GET", "PUT", "DELETE", "PATCH"},
		AllowHeaders: []string{
			"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token",
			"Authorization", "Idempotency-Key", "X-Request-ID", "Accept", "Origin",
			"Cache-Control", "X-Requested-With",
		},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}

	var origins []string
	wildcard := false
	for _, o := range strings.Split(originsStr, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
			continue
		}
		if o != "" {
			origins = append(origins, o)
		}
	}

	if wildcard {
		cfg.AllowAllOrigins = true
		// Wildcard origins and credentials are mutually exclusive.
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}
