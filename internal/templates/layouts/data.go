// data.go provides typed context helpers for passing layout data from
// handlers/middleware to Templ templates. This avoids importing plugin
// types in the layouts package; only simple types are stored.
//
// Data flow: Handler/Middleware -> Echo Context -> LayoutInjector -> Go Context -> Templ
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUserName        ctxKey = "layout_user_name"
	keyRole            ctxKey = "layout_role"
	keyCanManage       ctxKey = "layout_can_manage"
	keyCSRFToken       ctxKey = "layout_csrf_token"
	keyFlashSuccess    ctxKey = "layout_flash_success"
	keyFlashError      ctxKey = "layout_flash_error"
	keyActivePath      ctxKey = "layout_active_path"
	keySiteName        ctxKey = "layout_site_name"
)

// --- Setters (called by LayoutInjector) ---

func SetIsAuthenticated(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, authed)
}

func SetUserName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keyUserName, name)
}

func SetRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, keyRole, role)
}

// SetCanManage marks the caller as allowed into admin-only sections, so the
// nav can hide links the role gate would bounce.
func SetCanManage(ctx context.Context, ok bool) context.Context {
	return context.WithValue(ctx, keyCanManage, ok)
}

func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

func SetFlashSuccess(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, keyFlashSuccess, msg)
}

func SetFlashError(ctx context.Context, msg string) context.Context {
	return context.WithValue(ctx, keyFlashError, msg)
}

func SetActivePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, keyActivePath, path)
}

func SetSiteName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keySiteName, name)
}

// --- Getters (called by templates) ---

func IsAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(keyIsAuthenticated).(bool)
	return v
}

func GetUserName(ctx context.Context) string {
	v, _ := ctx.Value(keyUserName).(string)
	return v
}

func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(keyRole).(string)
	return v
}

func CanManage(ctx context.Context) bool {
	v, _ := ctx.Value(keyCanManage).(bool)
	return v
}

func GetCSRFToken(ctx context.Context) string {
	v, _ := ctx.Value(keyCSRFToken).(string)
	return v
}

func GetFlashSuccess(ctx context.Context) string {
	v, _ := ctx.Value(keyFlashSuccess).(string)
	return v
}

func GetFlashError(ctx context.Context) string {
	v, _ := ctx.Value(keyFlashError).(string)
	return v
}

func GetActivePath(ctx context.Context) string {
	v, _ := ctx.Value(keyActivePath).(string)
	return v
}

// GetSiteName returns the site name for page titles, with the stock
// fallback when settings have not been injected.
func GetSiteName(ctx context.Context) string {
	if v, _ := ctx.Value(keySiteName).(string); v != "" {
		return v
	}
	return "Website Desa"
}
