package audit

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the activity page on the admin group. The group
// already carries the role gate; requireManage limits the page to admins.
func RegisterRoutes(admin *echo.Group, h *Handler, requireManage echo.MiddlewareFunc) {
	admin.GET("/activity", h.Activity, requireManage)
}
