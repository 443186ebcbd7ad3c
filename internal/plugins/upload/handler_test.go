package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/plugins/auth"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	us := newUploadServer(t, func(http.ResponseWriter, *http.Request) {})
	svc, _, _ := newTestService(t, us, &mockSubmitter{})
	return NewHandler(svc)
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestHandler_CreateJSONThenShow(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()

	req := multipartRequest(t, map[string]string{"kind": "news"}, "rapat.jpg", fakeJPEG(100))
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	auth.SetSession(c, admin, "tok")

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var st Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if st.ID == "" || st.Kind != KindNews || st.Step != StepIdle || st.FileName != "rapat.jpg" {
		t.Errorf("status = %+v", st)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/uploads/"+st.ID, nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(st.ID)
	auth.SetSession(c, admin, "tok")

	if err := h.Show(c); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), st.ID) {
		t.Errorf("show = %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_CreateFormRedirects(t *testing.T) {
	h := newTestHandler(t)
	req := multipartRequest(t, map[string]string{"kind": "generic"}, "a.jpg", fakeJPEG(100))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	auth.SetSession(c, author, "tok")

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusSeeOther || !strings.HasPrefix(rec.Header().Get("Location"), "/admin/uploads/") {
		t.Errorf("got %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestHandler_CreateRejectsUnknownKind(t *testing.T) {
	h := newTestHandler(t)
	req := multipartRequest(t, map[string]string{"kind": "banner"}, "a.jpg", fakeJPEG(100))
	c := echo.New().NewContext(req, httptest.NewRecorder())
	auth.SetSession(c, admin, "tok")

	assertAppError(t, h.Create(c), http.StatusBadRequest)
}

func TestHandler_Preview(t *testing.T) {
	h := newTestHandler(t)
	q := url.Values{"kind": {"official"}, "name": {"Budi Santoso"}, "position": {"Kepala Desa"}}
	req := httptest.NewRequest(http.MethodGet, "/admin/uploads/preview?"+q.Encode(), nil)
	rec := httptest.NewRecorder()

	if err := h.Preview(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["preview"] != "pejabat-budi-santoso-kepala-desa-[timestamp].jpg" {
		t.Errorf("preview = %q", body["preview"])
	}
}

func TestHandler_SubmitTooLarge(t *testing.T) {
	h := newTestHandler(t)
	e := echo.New()

	req := multipartRequest(t, map[string]string{"kind": "generic"}, "besar.jpg", fakeJPEG(6<<20))
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	auth.SetSession(c, admin, "tok")
	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	var st Status
	_ = json.Unmarshal(rec.Body.Bytes(), &st)

	req = httptest.NewRequest(http.MethodPost, "/admin/uploads/"+st.ID+"/submit", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	c = e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(st.ID)
	auth.SetSession(c, admin, "tok")

	assertAppError(t, h.Submit(c), http.StatusRequestEntityTooLarge)
}

func TestBodyLimit(t *testing.T) {
	mw := bodyLimit(1 << 20)
	called := false
	next := func(echo.Context) error { called = true; return nil }

	req := httptest.NewRequest(http.MethodPost, "/admin/uploads", strings.NewReader("x"))
	req.ContentLength = 2 << 20
	err := mw(next)(echo.New().NewContext(req, httptest.NewRecorder()))

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("err = %v, want 413", err)
	}
	if called {
		t.Error("handler must not run")
	}
}

// newWorkingHandler wires a handler to an upload endpoint that accepts
// every file.
func newWorkingHandler(t *testing.T) (*Handler, Service, *Registry, *mockSubmitter) {
	t.Helper()
	sub := &mockSubmitter{}
	var us *uploadServer
	us = newUploadServer(t, func(w http.ResponseWriter, r *http.Request) { okUpload(us)(w, r) })
	svc, reg, _ := newTestService(t, us, sub)
	return NewHandler(svc), svc, reg, sub
}

func TestHandler_ShowSucceededJobMovesOn(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		d        Details
		htmx     bool
		wantCode int
		wantLoc  string
		wantHX   string
	}{
		{"htmx poll", KindNews, Details{Title: "Rapat"}, true, http.StatusNoContent, "", "/admin/news"},
		{"plain page", KindNews, Details{Title: "Rapat"}, false, http.StatusSeeOther, "/admin/news", ""},
		{"chart returns to settings", KindStruktur, Details{}, false, http.StatusSeeOther, "/admin/settings", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, reg, _ := newWorkingHandler(t)
			ctx := context.Background()

			st, err := svc.Select(ctx, admin, Selection{Kind: tt.kind, Name: "a.jpg", Data: fakeJPEG(100)})
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if final, err := svc.Run(ctx, admin, "tok", st.ID, tt.d); err != nil || final.Step != StepSuccess {
				t.Fatalf("Run: %v", err)
			}

			req := httptest.NewRequest(http.MethodGet, "/admin/uploads/"+st.ID, nil)
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues(st.ID)
			auth.SetSession(c, admin, "tok")

			if err := h.Show(c); err != nil {
				t.Fatalf("Show: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLoc {
				t.Errorf("Location = %q, want %q", got, tt.wantLoc)
			}
			if got := rec.Header().Get("HX-Redirect"); got != tt.wantHX {
				t.Errorf("HX-Redirect = %q, want %q", got, tt.wantHX)
			}
			if reg.Len() != 0 {
				t.Errorf("registry holds %d jobs, want the finished job removed", reg.Len())
			}
		})
	}
}

func TestHandler_SubmitJSONDetails(t *testing.T) {
	h, svc, _, sub := newWorkingHandler(t)

	st, err := svc.Select(context.Background(), admin, Selection{Kind: KindHeroSlider, Name: "slide.jpg", Data: fakeJPEG(100)})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	body := `{"title":"Panen Raya","hamlet_name":"Dusun II","link_url":"/berita/panen","link_text":"Baca","display_order":3}`
	req := httptest.NewRequest(http.MethodPost, "/admin/uploads/"+st.ID+"/submit", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(st.ID)
	auth.SetSession(c, admin, "tok")

	if err := h.Submit(c); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitFor(t, "record call", func() bool { return sub.count() == 1 })

	sub.mu.Lock()
	d := sub.calls[0].Details
	sub.mu.Unlock()
	if d.Title != "Panen Raya" || d.HamletName != "Dusun II" || d.LinkURL != "/berita/panen" ||
		d.LinkText != "Baca" || d.DisplayOrder != 3 {
		t.Errorf("details = %+v", d)
	}
}

func TestStatusFragment_UnsafeResultURL(t *testing.T) {
	st := &Status{
		ID:     "job-1",
		Kind:   KindGeneric,
		Step:   StepSuccess,
		Result: &Result{URL: "javascript:alert(1)", Filename: "x.jpg"},
	}
	var buf bytes.Buffer
	if err := StatusFragment(st, "csrf").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), `href="javascript:`) {
		t.Errorf("unsafe link rendered: %s", buf.String())
	}
}
