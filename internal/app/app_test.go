package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/config"
	"github.com/siddesa/portal/internal/plugins/auth"
)

const testSecret = "test-secret-with-at-least-32-characters"

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Env:         "development",
		Port:        0,
		APIBaseURL:  apiURL,
		CORSOrigins: []string{"https://desa.example"},
		Auth: config.AuthConfig{
			JWTSecret:   testSecret,
			LoginPath:   "/admin/login",
			TokenCookie: "jwt_token",
			RoleCookie:  "user_role",
			CookieTTL:   time.Hour,
		},
		Upload: config.UploadConfig{
			MaxSizeMB:    2,
			MaxDimension: 1920,
			Quality:      0.9,
			HardLimitMB:  5,
			WarnMB:       2,
			Timeout:      5 * time.Second,
			JobTTL:       time.Minute,
			BodyLimitMB:  50,
		},
		Settings: config.SettingsConfig{Version: "2", MaxAge: time.Minute},
	}
}

// newTestApp builds the app against a fake village API that serves a
// fixed settings map.
func newTestApp(t *testing.T) (*App, *int) {
	t.Helper()
	fetches := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/settings" {
			fetches++
			w.Write([]byte(`{"site_name":"Desa Sukamaju","contact_phone":"0812"}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(upstream.Close)

	a := New(testConfig(upstream.URL), nil, nil)
	a.RegisterRoutes()
	return a, &fetches
}

func token(t *testing.T, role string) string {
	t.Helper()
	claims := auth.Claims{
		UserID:   7,
		Username: "operator",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func TestLanding_UsesSettings(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Desa Sukamaju") || !strings.Contains(body, "0812") {
		t.Errorf("landing page missing settings: %s", body)
	}
}

func TestSiteSettings_CachedAfterFirstFetch(t *testing.T) {
	a, fetches := newTestApp(t)

	first := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/site-settings", nil))
	second := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/site-settings", nil))

	if first.Header().Get("X-Settings-Source") != "network" {
		t.Errorf("first source = %q", first.Header().Get("X-Settings-Source"))
	}
	if second.Header().Get("X-Settings-Source") != "cache" {
		t.Errorf("second source = %q", second.Header().Get("X-Settings-Source"))
	}
	if *fetches != 1 {
		t.Errorf("upstream fetches = %d, want 1", *fetches)
	}

	var got struct {
		General struct {
			SiteName string `json:"site_name"`
		} `json:"general"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.General.SiteName != "Desa Sukamaju" || got.Version != "2" {
		t.Errorf("snapshot = %+v", got)
	}
}

func TestSiteSettings_CORS(t *testing.T) {
	a, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/site-settings", nil)
	req.Header.Set("Origin", "https://desa.example")
	rec := serve(a, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://desa.example" {
		t.Errorf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestHealthz_WithoutBackingStores(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a, _ := newTestApp(t)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAdmin_RoleGate(t *testing.T) {
	a, _ := newTestApp(t)

	tests := []struct {
		name     string
		path     string
		role     string
		wantCode int
		wantLoc  string
		wantBody string
	}{
		{"no token goes to login", "/admin/news", "", http.StatusSeeOther, "/admin/login", ""},
		{"author sees home", "/admin/news", auth.RoleAuthor, http.StatusOK, "", "Unggah Berita"},
		{"author kept out of settings", "/admin/settings", auth.RoleAuthor, http.StatusSeeOther, "/admin/news", ""},
		{"author kept out of activity", "/admin/activity", auth.RoleAuthor, http.StatusSeeOther, "/admin/news", ""},
		{"admin opens upload form", "/admin/uploads/new", auth.RoleAdmin, http.StatusOK, "", "Logo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.role != "" {
				req.AddCookie(&http.Cookie{Name: "jwt_token", Value: token(t, tt.role)})
			}
			rec := serve(a, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantLoc != "" && !strings.HasPrefix(rec.Header().Get("Location"), tt.wantLoc) {
				t.Errorf("location = %q, want prefix %q", rec.Header().Get("Location"), tt.wantLoc)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	a, _ := newTestApp(t)

	tests := []struct {
		name      string
		err       error
		path      string
		accept    string
		htmx      bool
		wantCode  int
		wantJSON  bool
		wantHXLoc string
	}{
		{"api gets json", apperror.NewConflict("sedang diproses"), "/api/v1/x", "", false, http.StatusConflict, true, ""},
		{"accept json", apperror.NewNotFound("job not found"), "/admin/uploads/x", echo.MIMEApplicationJSON, false, http.StatusNotFound, true, ""},
		{"browser page", apperror.NewForbidden("no"), "/admin/uploads/x", "", false, http.StatusForbidden, false, ""},
		{"browser 401 redirects", apperror.NewUnauthorized("login"), "/admin/news", "", false, http.StatusSeeOther, false, ""},
		{"htmx 401 redirects", apperror.NewUnauthorized("login"), "/admin/news", "", true, http.StatusNoContent, false, "/admin/login"},
		{"echo error", echo.NewHTTPError(http.StatusRequestEntityTooLarge), "/admin/uploads", "", false, http.StatusRequestEntityTooLarge, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set(echo.HeaderAccept, tt.accept)
			}
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rec := httptest.NewRecorder()
			a.errorHandler(tt.err, a.Echo.NewContext(req, rec))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			isJSON := strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
			if isJSON != tt.wantJSON {
				t.Errorf("json = %v, want %v", isJSON, tt.wantJSON)
			}
			if rec.Header().Get("HX-Redirect") != tt.wantHXLoc {
				t.Errorf("HX-Redirect = %q", rec.Header().Get("HX-Redirect"))
			}
		})
	}
}

func TestErrorHandler_InternalMessageHidden(t *testing.T) {
	a, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	rec := httptest.NewRecorder()
	a.errorHandler(apperror.NewInternal(errSecret), a.Echo.NewContext(req, rec))

	if strings.Contains(rec.Body.String(), errSecret.Error()) {
		t.Errorf("internal cause leaked: %s", rec.Body.String())
	}
}

var errSecret = &secretErr{}

type secretErr struct{}

func (*secretErr) Error() string { return "dsn=root:hunter2" }

func TestBodyLimitString(t *testing.T) {
	if got := bodyLimitString(50); got != "56M" {
		t.Errorf("bodyLimitString(50) = %q", got)
	}
}
