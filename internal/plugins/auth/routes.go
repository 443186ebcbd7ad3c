package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up login and logout on the given Echo instance. These
// routes are public; the gate itself is exported for other plugins to use
// on their route groups. loginLimit guards POST /admin/login against
// credential stuffing.
func RegisterRoutes(e *echo.Echo, h *Handler, loginLimit echo.MiddlewareFunc) {
	e.GET("/admin/login", h.LoginForm)
	e.POST("/admin/login", h.Login, loginLimit)
	e.POST("/admin/logout", h.Logout)
}
