package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/metrics"
)

// Recovery turns a panicking handler into a 500 handled by the central
// error handler. The stack goes to the log only.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic recovered",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
						slog.String("request_id", GetRequestID(c)),
					)
					metrics.RecordError("http.panic", "panic")
					returnErr = apperror.NewInternal(fmt.Errorf("panic: %v", r))
				}
			}()
			return next(c)
		}
	}
}
