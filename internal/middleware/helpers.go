package middleware

import (
	"context"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout data (identity, role, CSRF token, site name)
// from the Echo context into the context.Context the page components read.
// Set once at startup in app/routes.go so this package never imports the
// plugins.
var LayoutInjector func(echo.Context, context.Context) context.Context

// IsHTMX reports whether the request was issued by HTMX and is not a boosted
// navigation. Boosted requests expect a full page.
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true" &&
		c.Request().Header.Get("HX-Boosted") != "true"
}

// Render writes component with the given status after running the
// LayoutInjector.
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}
