package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/apperror"
)

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestCSRF_IssuesCookieOnGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin/news", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	if err := CSRF()(ok)(c); err != nil {
		t.Fatalf("CSRF: %v", err)
	}
	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == csrfCookieName {
			cookie = ck
		}
	}
	if cookie == nil || len(cookie.Value) != csrfTokenLength*2 {
		t.Fatalf("cookie = %+v", cookie)
	}
	if GetCSRFToken(c) != cookie.Value {
		t.Error("context token differs from cookie")
	}
}

func TestCSRF_ValidatesMutations(t *testing.T) {
	tests := []struct {
		name   string
		header string
		form   string
		wantOK bool
	}{
		{"header match", "tok123", "", true},
		{"form match", "", "tok123", true},
		{"mismatch", "other", "", false},
		{"missing", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := url.Values{}
			if tt.form != "" {
				body.Set(csrfFormField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/admin/settings", strings.NewReader(body.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok123"})
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			err := CSRF()(ok)(echo.New().NewContext(req, httptest.NewRecorder()))

			if tt.wantOK && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			var he *echo.HTTPError
			if !tt.wantOK && (!errors.As(err, &he) || he.Code != http.StatusForbidden) {
				t.Errorf("err = %v, want 403", err)
			}
		})
	}
}

func TestCSRF_SkipsPublicAPI(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/site-settings", nil)
	if err := CSRF()(ok)(echo.New().NewContext(req, httptest.NewRecorder())); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCORS(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"https://desa.example/"}})

	tests := []struct {
		name       string
		method     string
		origin     string
		wantHeader string
		wantCode   int
	}{
		{"allowed", http.MethodGet, "https://desa.example", "https://desa.example", http.StatusOK},
		{"preflight", http.MethodOptions, "https://desa.example", "https://desa.example", http.StatusNoContent},
		{"other origin", http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"same origin", http.MethodGet, "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/site-settings", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			if err := mw(ok)(echo.New().NewContext(req, rec)); err != nil {
				t.Fatalf("CORS: %v", err)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("allow-origin = %q, want %q", got, tt.wantHeader)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Error("credentials must never be allowed")
			}
		})
	}
}

func TestIPExtractor(t *testing.T) {
	extract := buildIPExtractor([]string{"10.0.0.0/8", "not-a-cidr"})

	tests := []struct {
		name   string
		remote string
		xff    string
		realIP string
		want   string
	}{
		{"untrusted peer ignores headers", "203.0.113.9:1234", "1.2.3.4", "", "203.0.113.9"},
		{"trusted peer uses X-Real-IP", "10.1.1.1:80", "1.2.3.4", "5.6.7.8", "5.6.7.8"},
		{"trusted peer uses leftmost XFF", "10.1.1.1:80", "1.2.3.4, 10.1.1.1", "", "1.2.3.4"},
		{"trusted peer without headers", "10.1.1.1:80", "", "", "10.1.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := extract(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	err := Recovery()(func(echo.Context) error { panic("boom") })(c)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusInternalServerError {
		t.Errorf("err = %v, want internal AppError", err)
	}
}

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := RequestLogger()(ok)(c); err != nil {
		t.Fatalf("RequestLogger: %v", err)
	}
	id := rec.Header().Get(requestIDHeader)
	if len(id) != 36 || GetRequestID(c) != id {
		t.Errorf("request id = %q / %q", id, GetRequestID(c))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "from-proxy")
	rec = httptest.NewRecorder()
	if err := RequestLogger()(ok)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("RequestLogger: %v", err)
	}
	if rec.Header().Get(requestIDHeader) != "from-proxy" {
		t.Errorf("incoming id not kept: %q", rec.Header().Get(requestIDHeader))
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := SecurityHeaders()(ok)(c); err != nil {
		t.Fatal(err)
	}
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("%s not set", h)
		}
	}
}
