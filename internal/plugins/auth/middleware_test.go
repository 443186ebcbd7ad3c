package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newTestGate() *Gate {
	return NewGate(NewDecoder(""), GateConfig{
		TokenCookie: "jwt_token",
		RoleCookie:  "user_role",
		LoginPath:   "/admin/login",
		Fallback:    map[string]string{RoleAuthor: "/admin/news"},
	})
}

// serve runs mw in front of an "ok" handler for a request to path.
func serve(t *testing.T, mw echo.MiddlewareFunc, path, token string, headers map[string]string) (*httptest.ResponseRecorder, echo.Context, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := mw(func(c echo.Context) error {
		reached = true
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec, c, reached
}

func TestGate_AuthorRedirectedFromRestrictedPath(t *testing.T) {
	g := newTestGate()
	tok := signToken(t, "k", claimsFor(RoleAuthor, time.Hour))

	rec, _, reached := serve(t, g.Middleware(), "/admin/settings", tok, nil)
	if reached {
		t.Fatal("author must not reach settings")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/news" {
		t.Errorf("got %d -> %q, want 303 -> /admin/news", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGate_AdminPassesThrough(t *testing.T) {
	g := newTestGate()
	tok := signToken(t, "k", claimsFor(RoleAdmin, time.Hour))

	rec, c, reached := serve(t, g.Middleware(), "/admin/settings", tok, nil)
	if !reached || rec.Code != http.StatusOK {
		t.Fatalf("admin blocked: %d", rec.Code)
	}
	if id := GetIdentity(c); id == nil || id.Role != RoleAdmin {
		t.Errorf("identity not stored: %+v", id)
	}
	if GetToken(c) != tok {
		t.Error("token not stored for upstream forwarding")
	}
}

func TestGate_NoCookieRedirectsToLogin(t *testing.T) {
	g := newTestGate()
	for _, path := range []string{"/admin/news", "/admin/settings", "/admin/uploads/new"} {
		rec, _, reached := serve(t, g.Middleware(), path, "", nil)
		if reached {
			t.Errorf("%s: reached handler without a cookie", path)
		}
		if rec.Header().Get("Location") != "/admin/login" {
			t.Errorf("%s: Location = %q, want /admin/login", path, rec.Header().Get("Location"))
		}
	}
}

func TestGate_ExpiredTokenGoesToLoginNotFallback(t *testing.T) {
	g := newTestGate()
	tok := signToken(t, "k", claimsFor(RoleAuthor, -time.Minute))

	rec, _, _ := serve(t, g.Middleware(), "/admin/settings", tok, nil)
	if rec.Header().Get("Location") != "/admin/login" {
		t.Errorf("Location = %q, want login", rec.Header().Get("Location"))
	}

	// The stale cookie is cleared.
	cleared := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "jwt_token" && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected jwt_token to be cleared")
	}
}

func TestGate_SubPathsAndLookalikes(t *testing.T) {
	g := newTestGate()
	tests := []struct {
		path       string
		restricted bool
	}{
		{"/admin/settings", true},
		{"/admin/settings/", true},
		{"/admin/settings/general", true},
		{"/admin/settingsx", false},
		{"/admin/news", false},
		{"/admin/officials/12/edit", true},
	}
	for _, tt := range tests {
		if got := g.IsRestricted(RoleAuthor, tt.path); got != tt.restricted {
			t.Errorf("IsRestricted(author, %q) = %v, want %v", tt.path, got, tt.restricted)
		}
		if g.IsRestricted(RoleAdmin, tt.path) {
			t.Errorf("admin restricted from %q", tt.path)
		}
	}
}

func TestGate_DefaultFallbackIsNotRestricted(t *testing.T) {
	g := newTestGate()
	for role := range DefaultRestrictions() {
		if g.IsRestricted(role, g.fallbackFor(role)) {
			t.Errorf("fallback for %s is itself restricted (redirect loop)", role)
		}
	}
}

func TestGate_APIAndHTMXResponses(t *testing.T) {
	g := newTestGate()

	rec, _, _ := serve(t, g.Middleware(), "/api/uploads", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("api code = %d, want 401", rec.Code)
	}

	rec, _, _ = serve(t, g.Middleware(), "/admin/news", "", map[string]string{"HX-Request": "true"})
	if rec.Header().Get("HX-Redirect") != "/admin/login" {
		t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
	}
}

func TestRequireRoles(t *testing.T) {
	g := newTestGate()

	t.Run("allowed", func(t *testing.T) {
		tok := signToken(t, "k", claimsFor(RoleSuperadmin, time.Hour))
		rec, c, reached := serve(t, g.RequireRoles(nil, ""), "/admin/activity", tok, nil)
		if !reached || rec.Code != http.StatusOK {
			t.Fatalf("superadmin blocked: %d", rec.Code)
		}
		check := GetRoleCheck(c)
		if check.Loading || !check.IsAllowed || check.Role != RoleSuperadmin {
			t.Errorf("RoleCheck = %+v", check)
		}
	})

	t.Run("disallowed uses caller target", func(t *testing.T) {
		tok := signToken(t, "k", claimsFor(RoleAuthor, time.Hour))
		rec, c, reached := serve(t, g.RequireRoles([]string{RoleSuperadmin}, "/admin/uploads/new"), "/admin/users", tok, nil)
		if reached {
			t.Fatal("author reached superadmin page")
		}
		if rec.Header().Get("Location") != "/admin/uploads/new" {
			t.Errorf("Location = %q", rec.Header().Get("Location"))
		}
		if check := GetRoleCheck(c); check.IsAllowed || check.Loading {
			t.Errorf("RoleCheck = %+v", check)
		}
	})

	t.Run("default redirect", func(t *testing.T) {
		tok := signToken(t, "k", claimsFor(RoleAuthor, time.Hour))
		rec, _, _ := serve(t, g.RequireRoles(nil, ""), "/admin/activity", tok, nil)
		if rec.Header().Get("Location") != DefaultRoleRedirect {
			t.Errorf("Location = %q", rec.Header().Get("Location"))
		}
	})

	t.Run("no token goes to login", func(t *testing.T) {
		rec, _, _ := serve(t, g.RequireRoles(nil, ""), "/admin/activity", "", nil)
		if rec.Header().Get("Location") != "/admin/login" {
			t.Errorf("Location = %q", rec.Header().Get("Location"))
		}
	})
}

func TestGetRoleCheck_LoadingBeforeCheck(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if check := GetRoleCheck(c); !check.Loading || check.IsAllowed {
		t.Errorf("RoleCheck = %+v, want loading", check)
	}
}
