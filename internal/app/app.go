// Package app is the application bootstrap and dependency injection root.
// It creates and holds the shared infrastructure (DB pool, Redis client,
// upstream API client, Echo instance) and wires the plugins together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/siddesa/portal/internal/apiclient"
	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/config"
	"github.com/siddesa/portal/internal/middleware"
	"github.com/siddesa/portal/internal/plugins/audit"
	"github.com/siddesa/portal/internal/plugins/settings"
	"github.com/siddesa/portal/internal/plugins/upload"
	"github.com/siddesa/portal/internal/templates/pages"
)

// apiTimeout bounds every JSON call to the village API.
const apiTimeout = 15 * time.Second

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	Config *config.Config

	// DB is the MariaDB pool for the activity log. Nil when disabled.
	DB *sql.DB

	// Redis backs the settings cache. Nil means the in-memory store.
	Redis *redis.Client

	// API is the village REST API client.
	API *apiclient.Client

	// Settings is the site settings cache every public page reads.
	Settings *settings.Cache

	// Activity records admin actions.
	Activity audit.Service

	// Uploads holds the in-flight upload jobs; main runs its janitor.
	Uploads *upload.Registry

	Echo *echo.Echo
}

// New creates the App and configures the Echo server with global
// middleware and error handling. db and rdb may be nil.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	api := apiclient.New(cfg.APIBaseURL, apiTimeout)

	var store settings.Store = settings.NewMemoryStore()
	if rdb != nil {
		store = settings.NewRedisStore(rdb, settings.DefaultKeyPrefix)
	}

	var activity audit.Service = audit.Discard{}
	if db != nil {
		activity = audit.NewService(audit.NewRepository(db))
	}

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		API:      api,
		Settings: settings.NewCache(store, api, cfg.Settings.Version, cfg.Settings.MaxAge),
		Activity: activity,
		Uploads:  upload.NewRegistry(cfg.Upload.JobTTL),
		Echo:     e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	e.Static("/static", "static")

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders())

	// CSRF reads form fields, which parses multipart bodies, so the body
	// cap has to come first. Upload routes apply their own tighter limit.
	a.Echo.Use(echomw.BodyLimit(bodyLimitString(a.Config.Upload.BodyLimitMB)))

	a.Echo.Use(middleware.CSRF())
}

// bodyLimitString formats the global request cap for echo's BodyLimit,
// leaving room for multipart framing around the largest allowed file.
func bodyLimitString(mb int64) string {
	return fmt.Sprintf("%dM", mb+mb/10+1)
}

// errorHandler maps domain errors (AppError) to HTTP responses: JSON for
// API and JSON-accepting requests, an error page otherwise. Browser 401s
// are sent to the login page.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = apperror.SafeMessage(appErr)
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
				slog.String("request_id", middleware.GetRequestID(c)),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
			slog.String("request_id", middleware.GetRequestID(c)),
		)
	}

	if isAPIRequest(c) || wantsJSON(c) {
		_ = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	loginPath := a.Config.Auth.LoginPath
	if middleware.IsHTMX(c) {
		if code == http.StatusUnauthorized {
			c.Response().Header().Set("HX-Redirect", loginPath)
			_ = c.NoContent(http.StatusNoContent)
			return
		}
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}

	if code == http.StatusUnauthorized {
		_ = c.Redirect(http.StatusSeeOther, loginPath)
		return
	}

	_ = middleware.Render(c, code, pages.ErrorPage(code, message))
}

// defaultErrorMessage returns a user-facing message for status codes that
// arrive without one.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "Permintaan tidak valid."
	case http.StatusUnauthorized:
		return "Silakan masuk terlebih dahulu."
	case http.StatusForbidden:
		return "Anda tidak memiliki akses ke halaman ini."
	case http.StatusNotFound:
		return "Halaman tidak ditemukan."
	case http.StatusMethodNotAllowed:
		return "Aksi ini tidak diizinkan."
	case http.StatusConflict:
		return "Aksi ini bertentangan dengan keadaan saat ini."
	case http.StatusRequestEntityTooLarge:
		return "Ukuran file terlalu besar."
	case http.StatusUnprocessableEntity:
		return "Data yang dikirim tidak dapat diproses."
	case http.StatusTooManyRequests:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."
	case http.StatusBadGateway:
		return "Server desa memberikan respons yang tidak valid."
	case http.StatusServiceUnavailable:
		return "Layanan sedang tidak tersedia."
	default:
		return "Terjadi kesalahan. Silakan coba lagi."
	}
}

func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// healthCheck pings the optional backing stores. The village API is not
// checked: the portal degrades to cached settings without it.
func (a *App) healthCheck(ctx context.Context) map[string]string {
	status := map[string]string{}
	if a.DB != nil {
		status["database"] = "ok"
		if err := a.DB.PingContext(ctx); err != nil {
			status["database"] = err.Error()
		}
	}
	if a.Redis != nil {
		status["redis"] = "ok"
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
		}
	}
	return status
}

// Start begins listening for HTTP requests on the configured port. It
// returns http.ErrServerClosed after Shutdown.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting portal server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}
