package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys for storing identity data in Echo context. Other plugins use
// the exported getters below instead of reading these directly.
const (
	contextKeyIdentity  = "auth_identity"
	contextKeyToken     = "auth_token"
	contextKeyRoleCheck = "auth_role_check"
)

// GateConfig configures the role gate.
type GateConfig struct {
	// TokenCookie is the cookie holding the bearer token.
	TokenCookie string

	// RoleCookie is the legacy plain-text role mirror. It is cleared along
	// with the token but never trusted for decisions.
	RoleCookie string

	// LoginPath is where requests without a usable token go.
	LoginPath string

	// Restricted maps a role to the path prefixes it may not open. A prefix
	// also covers its sub-paths.
	Restricted map[string][]string

	// Fallback maps a role to the page it lands on when turned away.
	Fallback map[string]string

	// DefaultFallback is used for roles missing from Fallback.
	DefaultFallback string
}

// DefaultRestrictions is the static role map of the admin panel. Authors
// write news; everything else in the panel belongs to admins.
func DefaultRestrictions() map[string][]string {
	return map[string][]string{
		RoleAuthor: {
			"/admin/settings",
			"/admin/users",
			"/admin/officials",
			"/admin/hero-sliders",
			"/admin/activity",
		},
	}
}

// Gate decides who may open which admin page.
type Gate struct {
	decoder *Decoder
	cfg     GateConfig
}

// NewGate creates a gate. Missing config values get the panel defaults.
func NewGate(decoder *Decoder, cfg GateConfig) *Gate {
	if cfg.TokenCookie == "" {
		cfg.TokenCookie = "jwt_token"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/admin/login"
	}
	if cfg.Restricted == nil {
		cfg.Restricted = DefaultRestrictions()
	}
	if cfg.DefaultFallback == "" {
		cfg.DefaultFallback = DefaultRoleRedirect
	}
	return &Gate{decoder: decoder, cfg: cfg}
}

// Decoder returns the gate's token decoder.
func (g *Gate) Decoder() *Decoder {
	return g.decoder
}

// Config returns the effective gate configuration.
func (g *Gate) Config() GateConfig {
	return g.cfg
}

// Middleware returns the route-level role gate. Requests without a
// decodable token are sent to the login page; a malformed or expired token
// counts as no token. Requests whose role is restricted from the path are
// sent to that role's fallback page. Everything else passes through with the
// identity stored in context.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := g.tokenFromCookie(c)
			identity := g.decoder.DecodeSession(token)
			if identity == nil {
				if token != "" {
					g.clearCookies(c)
				}
				return g.redirectToLogin(c)
			}

			path := c.Request().URL.Path
			if g.IsRestricted(identity.Role, path) {
				return redirect(c, g.fallbackFor(identity.Role))
			}

			SetSession(c, identity, token)
			return next(c)
		}
	}
}

// RequireRoles is the per-page form of the gate. It decodes the caller
// (reusing the route gate's result when present), and sends roles outside
// allowed to redirectTo. An empty allowed list means admin and superadmin;
// an empty redirectTo means the author landing page. The RoleCheck result
// is stored for the page to read via GetRoleCheck.
func (g *Gate) RequireRoles(allowed []string, redirectTo string) echo.MiddlewareFunc {
	if len(allowed) == 0 {
		allowed = DefaultAllowedRoles
	}
	if redirectTo == "" {
		redirectTo = DefaultRoleRedirect
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := GetIdentity(c)
			if identity == nil {
				token := g.tokenFromCookie(c)
				identity = g.decoder.DecodeSession(token)
				if identity == nil {
					return g.redirectToLogin(c)
				}
				SetSession(c, identity, token)
			}

			check := RoleCheck{Role: identity.Role, IsAllowed: identity.HasRole(allowed...)}
			c.Set(contextKeyRoleCheck, check)
			if !check.IsAllowed {
				return redirect(c, redirectTo)
			}
			return next(c)
		}
	}
}

// IsRestricted reports whether role may not open path. Prefix matching is
// segment-aware: "/admin/settings" covers "/admin/settings/general" but not
// "/admin/settingsx".
func (g *Gate) IsRestricted(role, path string) bool {
	for _, prefix := range g.cfg.Restricted[role] {
		if matchesPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// CheckRole computes a RoleCheck for the current request without
// redirecting. Templates use it to hide links a role cannot open.
func (g *Gate) CheckRole(c echo.Context, allowed ...string) RoleCheck {
	identity := GetIdentity(c)
	if identity == nil {
		identity = g.decoder.DecodeSession(g.tokenFromCookie(c))
	}
	if identity == nil {
		return RoleCheck{}
	}
	return RoleCheck{Role: identity.Role, IsAllowed: identity.HasRole(allowed...)}
}

func matchesPrefix(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func (g *Gate) fallbackFor(role string) string {
	if target, ok := g.cfg.Fallback[role]; ok && target != "" {
		return target
	}
	return g.cfg.DefaultFallback
}

func (g *Gate) tokenFromCookie(c echo.Context) string {
	cookie, err := c.Cookie(g.cfg.TokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// clearCookies drops a stale token and its role mirror.
func (g *Gate) clearCookies(c echo.Context) {
	for _, name := range []string{g.cfg.TokenCookie, g.cfg.RoleCookie} {
		if name == "" {
			continue
		}
		c.SetCookie(&http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}

// redirectToLogin returns the appropriate response for unauthenticated
// requests: redirect for browsers, 401 JSON for API clients.
func (g *Gate) redirectToLogin(c echo.Context) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}
	return redirect(c, g.cfg.LoginPath)
}

// redirect navigates the browser, using HX-Redirect for HTMX requests so
// the whole page moves instead of a fragment.
func redirect(c echo.Context, target string) error {
	if isHTMXRequest(c) {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// --- Exported getters for other plugins ---

// SetSession stores the caller and their token on the Echo context.
func SetSession(c echo.Context, identity *Identity, token string) {
	c.Set(contextKeyIdentity, identity)
	c.Set(contextKeyToken, token)
}

// GetIdentity retrieves the caller from the Echo context. Returns nil if no
// gate ran for this request.
func GetIdentity(c echo.Context) *Identity {
	identity, ok := c.Get(contextKeyIdentity).(*Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetToken retrieves the caller's bearer token for forwarding upstream.
// Returns empty string if no gate ran for this request.
func GetToken(c echo.Context) string {
	token, ok := c.Get(contextKeyToken).(string)
	if !ok {
		return ""
	}
	return token
}

// GetRoleCheck returns the result of RequireRoles for this request. Before
// any check has run it reports Loading.
func GetRoleCheck(c echo.Context) RoleCheck {
	check, ok := c.Get(contextKeyRoleCheck).(RoleCheck)
	if !ok {
		return RoleCheck{Loading: true}
	}
	return check
}

// --- Helpers ---

// isAPIRequest returns true if the request targets the /api/ path.
func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api")
}

// isHTMXRequest returns true if the request was made by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}
