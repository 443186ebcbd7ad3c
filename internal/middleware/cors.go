package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins may read the public API cross-origin. "*" allows all.
	// Example: ["https://desa-sukamaju.id"]
	AllowedOrigins []string
}

// CORS returns middleware for the public read-only API under /api/. The
// admin panel is same-origin and never needs it. Credentials are never
// allowed: the public API does not read cookies.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			origin := req.Header.Get("Origin")
			if origin == "" || !(allowAll || originSet[origin]) {
				// Same-origin or not allowed; the browser enforces the rest.
				return next(c)
			}

			res.Header().Set("Access-Control-Allow-Origin", origin)
			res.Header().Add("Vary", "Origin")

			if req.Method == http.MethodOptions {
				res.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
				res.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
				res.Header().Set("Access-Control-Max-Age", "3600")
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
