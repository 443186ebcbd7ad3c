package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/config"
	"github.com/siddesa/portal/internal/metrics"
	"github.com/siddesa/portal/internal/middleware"
	"github.com/siddesa/portal/internal/plugins/audit"
	"github.com/siddesa/portal/internal/plugins/auth"
	"github.com/siddesa/portal/internal/plugins/settings"
	"github.com/siddesa/portal/internal/plugins/upload"
	"github.com/siddesa/portal/internal/templates/layouts"
	"github.com/siddesa/portal/internal/templates/pages"
)

// RegisterRoutes wires the plugins and sets up every route. This is the
// single place where routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo
	cfg := a.Config

	gate := auth.NewGate(auth.NewDecoder(cfg.Auth.JWTSecret), auth.GateConfig{
		TokenCookie: cfg.Auth.TokenCookie,
		RoleCookie:  cfg.Auth.RoleCookie,
		LoginPath:   cfg.Auth.LoginPath,
	})
	middleware.LayoutInjector = a.layoutInjector(gate)

	// --- Public ---

	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Landing(a.Settings.GetSettings(c.Request().Context())))
	})

	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		status := a.healthCheck(ctx)
		for _, v := range status {
			if v != "ok" {
				return c.JSON(http.StatusServiceUnavailable, status)
			}
		}
		status["status"] = "ok"
		return c.JSON(http.StatusOK, status)
	})

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	api := e.Group("/api/v1", middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins}))
	api.GET("/site-settings", a.siteSettings)
	api.OPTIONS("/site-settings", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	auth.RegisterRoutes(e, auth.NewHandler(a.API, gate, cfg.Auth.CookieTTL), middleware.RateLimit(10, time.Minute))

	// --- Admin panel ---

	admin := e.Group("/admin", gate.Middleware())
	requireManage := gate.RequireRoles(nil, "")

	admin.GET("", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, auth.DefaultRoleRedirect)
	})
	admin.GET("/news", a.adminHome)

	settingsSvc := settings.NewService(a.API, a.Settings, a.Activity)
	settings.RegisterRoutes(admin, settings.NewHandler(settingsSvc), requireManage)

	audit.RegisterRoutes(admin, audit.NewHandler(a.Activity), requireManage)

	uploadSvc := upload.NewService(
		upload.Config{
			APIBaseURL: cfg.APIBaseURL,
			HardLimit:  config.Bytes(cfg.Upload.HardLimitMB),
			WarnSize:   config.Bytes(cfg.Upload.WarnMB),
		},
		a.Uploads,
		upload.NewCompressor(upload.CompressOptions{
			MaxSizeMB:    cfg.Upload.MaxSizeMB,
			MaxDimension: cfg.Upload.MaxDimension,
			Quality:      cfg.Upload.Quality,
		}),
		upload.NewTransport(nil, cfg.Upload.Timeout),
		upload.NewAPISubmitter(a.API, settingsSvc),
		a.Activity,
	)
	upload.RegisterRoutes(admin, upload.NewHandler(uploadSvc),
		cfg.Upload.BodyLimitMB<<20, middleware.RateLimit(20, time.Minute))
}

// siteSettings serves the cached settings snapshot to the public site.
func (a *App) siteSettings(c echo.Context) error {
	snap, src := a.Settings.Lookup(c.Request().Context())
	c.Response().Header().Set("X-Settings-Source", string(src))
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return c.JSON(http.StatusOK, snap)
}

// adminHome is the landing page of every role.
func (a *App) adminHome(c echo.Context) error {
	id := auth.GetIdentity(c)
	if id == nil {
		return echo.NewHTTPError(http.StatusUnauthorized)
	}
	var actions []pages.QuickAction
	for _, k := range upload.AllowedKinds(id) {
		actions = append(actions, pages.QuickAction{
			Href:  "/admin/uploads/new?kind=" + string(k),
			Label: "Unggah " + k.Label(),
		})
	}
	return middleware.Render(c, http.StatusOK, pages.AdminHome(id.DisplayName(), actions))
}

// layoutInjector copies identity, CSRF token, active path and site name
// into the render context. The site name comes from the settings cache so
// the page title follows the village's configuration.
func (a *App) layoutInjector(gate *auth.Gate) func(echo.Context, context.Context) context.Context {
	return func(c echo.Context, ctx context.Context) context.Context {
		ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
		ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)
		ctx = layouts.SetSiteName(ctx, a.Settings.GetSettings(ctx).General.SiteName)

		if id := auth.GetIdentity(c); id != nil {
			ctx = layouts.SetIsAuthenticated(ctx, true)
			ctx = layouts.SetUserName(ctx, id.DisplayName())
			ctx = layouts.SetRole(ctx, id.Role)
			ctx = layouts.SetCanManage(ctx, gate.CheckRole(c, auth.DefaultAllowedRoles...).IsAllowed)
		}
		return ctx
	}
}
