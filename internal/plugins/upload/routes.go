package upload

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the upload routes on the admin group, which already
// runs the role gate. maxBody bounds the multipart request of Create and
// submitLimit throttles transfers.
func RegisterRoutes(admin *echo.Group, h *Handler, maxBody int64, submitLimit echo.MiddlewareFunc) {
	g := admin.Group("/uploads")

	g.GET("/new", h.New)
	g.POST("", h.Create, bodyLimit(maxBody))
	g.GET("/preview", h.Preview)
	g.GET("/:id", h.Show)
	g.POST("/:id/submit", h.Submit, submitLimit)
	g.POST("/:id/retry", h.Retry)
	g.DELETE("/:id", h.Cancel)
}

// bodyLimit rejects request bodies above maxBytes, with a 10% margin for
// multipart encoding overhead.
func bodyLimit(maxBytes int64) echo.MiddlewareFunc {
	limit := maxBytes + maxBytes/10
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().ContentLength > limit {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body too large; maximum is %d MB", maxBytes/(1024*1024)))
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, limit)
			return next(c)
		}
	}
}
