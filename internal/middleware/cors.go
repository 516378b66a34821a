package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultCORSMaxAge is how long browsers may cache a preflight answer.
const DefaultCORSMaxAge = 10 * time.Minute

// CORSConfig controls which browser origins may read the health endpoints.
// Methods and headers are fixed: the endpoints are read-only and
// unauthenticated, so credentials are never allowed.
type CORSConfig struct {
	// AllowOrigins lists the allowed origins. Empty allows every origin.
	AllowOrigins []string

	// MaxAge bounds the preflight cache. Zero uses DefaultCORSMaxAge.
	MaxAge time.Duration
}

// DefaultCORSConfig allows every origin.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{MaxAge: DefaultCORSMaxAge}
}

// CORS returns a CORS middleware limited to read-only requests.
// Cache-Control is exposed so dashboards can see that reports are never cached.
func CORS(config CORSConfig) echo.MiddlewareFunc {
	origins := config.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultCORSMaxAge
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderAccept, echo.HeaderXRequestID},
		ExposeHeaders: []string{echo.HeaderXRequestID, echo.HeaderCacheControl},
		MaxAge:        int(maxAge / time.Second),
	})
}
