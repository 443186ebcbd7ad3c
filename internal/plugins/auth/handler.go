package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/apiclient"
	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/middleware"
)

// Authenticator exchanges credentials for an upstream token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*apiclient.LoginResponse, error)
}

// Handler handles login and logout. Handlers are thin: they bind the
// request, call the upstream API, and set or clear cookies.
type Handler struct {
	api       Authenticator
	gate      *Gate
	cookieTTL time.Duration
}

// NewHandler creates a new auth handler.
func NewHandler(api Authenticator, gate *Gate, cookieTTL time.Duration) *Handler {
	return &Handler{api: api, gate: gate, cookieTTL: cookieTTL}
}

// LoginForm renders the login page (GET /admin/login).
func (h *Handler) LoginForm(c echo.Context) error {
	// Already logged in: skip the form.
	if h.gate.CheckRole(c).Role != "" {
		return c.Redirect(http.StatusSeeOther, DefaultRoleRedirect)
	}
	return middleware.Render(c, http.StatusOK,
		LoginPage(middleware.GetCSRFToken(c), "", "", c.QueryParam("next")))
}

// Login processes the login form submission (POST /admin/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)
	csrfToken := middleware.GetCSRFToken(c)

	if req.Username == "" || req.Password == "" {
		return middleware.Render(c, http.StatusUnprocessableEntity,
			LoginPage(csrfToken, req.Username, "Username and password are required", req.Next))
	}

	resp, err := h.api.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return middleware.Render(c, http.StatusUnauthorized,
				LoginPage(csrfToken, req.Username, "Invalid credentials", req.Next))
		}
		slog.Warn("login request failed",
			slog.String("username", req.Username),
			slog.Any("error", err),
		)
		return middleware.Render(c, http.StatusBadGateway,
			LoginPage(csrfToken, req.Username, "Login is unavailable right now. Please try again.", req.Next))
	}

	identity := h.gate.Decoder().DecodeSession(resp.Token)
	if identity == nil {
		return apperror.NewBadGateway("The login service returned an unusable token.", nil)
	}

	h.setCookies(c, resp.Token, identity.Role)

	slog.Info("admin logged in",
		slog.Uint64("user_id", identity.UserID),
		slog.String("role", identity.Role),
	)
	return c.Redirect(http.StatusSeeOther, safeNext(req.Next))
}

// Logout clears the token and role cookies (POST /admin/logout).
func (h *Handler) Logout(c echo.Context) error {
	h.gate.clearCookies(c)
	return c.Redirect(http.StatusSeeOther, h.gate.cfg.LoginPath)
}

// setCookies stores the token (HttpOnly) and the legacy role mirror.
func (h *Handler) setCookies(c echo.Context, token, role string) {
	req := c.Request()
	secure := req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https"
	maxAge := int(h.cookieTTL.Seconds())

	c.SetCookie(&http.Cookie{
		Name:     h.gate.cfg.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	if h.gate.cfg.RoleCookie != "" {
		c.SetCookie(&http.Cookie{
			Name:     h.gate.cfg.RoleCookie,
			Value:    role,
			Path:     "/",
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   maxAge,
		})
	}
}

// safeNext only follows local admin paths after login.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/admin/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "://") {
		return next
	}
	return DefaultRoleRedirect
}
