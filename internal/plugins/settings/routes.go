package settings

import "github.com/labstack/echo/v4"

// RegisterRoutes sets up the settings form on the admin group. The group
// carries the role gate; requireManage limits these routes to admins.
func RegisterRoutes(admin *echo.Group, h *Handler, requireManage echo.MiddlewareFunc) {
	admin.GET("/settings", h.Edit, requireManage)
	admin.POST("/settings", h.Update, requireManage)
}
