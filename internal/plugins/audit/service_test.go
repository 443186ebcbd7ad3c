package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/plugins/auth"
)

// mockRepo implements Repository for testing.
type mockRepo struct {
	logFn   func(ctx context.Context, entry *Entry) error
	listFn  func(ctx context.Context, f Filter, limit, offset int) ([]Entry, int, error)
	statsFn func(ctx context.Context) (*Stats, error)
	logged  []*Entry
}

func (m *mockRepo) Log(ctx context.Context, entry *Entry) error {
	m.logged = append(m.logged, entry)
	if m.logFn != nil {
		return m.logFn(ctx, entry)
	}
	return nil
}

func (m *mockRepo) List(ctx context.Context, f Filter, limit, offset int) ([]Entry, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockRepo) Stats(ctx context.Context) (*Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return &Stats{}, nil
}

// assertAppError checks that err is an AppError with the expected status.
func assertAppError(t *testing.T, err error, code int) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Errorf("code = %d, want %d", appErr.Code, code)
	}
}

func TestLog_Validation(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		code  int
	}{
		{"missing action", &Entry{Username: "siti"}, http.StatusBadRequest},
		{"missing user", &Entry{Action: ActionUploadSucceeded}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{}
			err := NewService(repo).Log(context.Background(), tt.entry)
			assertAppError(t, err, tt.code)
			if len(repo.logged) != 0 {
				t.Error("invalid entries must not reach the repository")
			}
		})
	}
}

func TestLog_Success(t *testing.T) {
	repo := &mockRepo{}
	entry := EntryFor(&auth.Identity{UserID: 3, Username: "siti", Role: auth.RoleAdmin}, ActionSettingsUpdated)

	if err := NewService(repo).Log(context.Background(), entry); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(repo.logged) != 1 || repo.logged[0].UserID != 3 || repo.logged[0].Role != auth.RoleAdmin {
		t.Errorf("logged = %+v", repo.logged)
	}
}

func TestLog_RepositoryFailureIsInternal(t *testing.T) {
	repo := &mockRepo{logFn: func(context.Context, *Entry) error { return errors.New("db down") }}
	err := NewService(repo).Log(context.Background(), &Entry{Action: ActionUploadFailed, Username: "siti"})
	assertAppError(t, err, http.StatusInternalServerError)
}

func TestActivity_Pagination(t *testing.T) {
	tests := []struct {
		page       int
		wantOffset int
	}{
		{1, 0},
		{0, 0},
		{-3, 0},
		{3, 100},
	}
	for _, tt := range tests {
		var gotLimit, gotOffset int
		repo := &mockRepo{listFn: func(_ context.Context, _ Filter, limit, offset int) ([]Entry, int, error) {
			gotLimit, gotOffset = limit, offset
			return nil, 0, nil
		}}
		if _, _, err := NewService(repo).Activity(context.Background(), Filter{}, tt.page); err != nil {
			t.Fatalf("Activity: %v", err)
		}
		if gotLimit != perPage || gotOffset != tt.wantOffset {
			t.Errorf("page %d: limit=%d offset=%d, want %d/%d", tt.page, gotLimit, gotOffset, perPage, tt.wantOffset)
		}
	}
}

func TestActivity_PassesFilter(t *testing.T) {
	var got Filter
	repo := &mockRepo{listFn: func(_ context.Context, f Filter, _, _ int) ([]Entry, int, error) {
		got = f
		return []Entry{{ID: 1}}, 1, nil
	}}
	entries, total, err := NewService(repo).Activity(context.Background(), Filter{Action: ActionUploadOrphaned, UserID: 4}, 1)
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if got.Action != ActionUploadOrphaned || got.UserID != 4 || total != 1 || len(entries) != 1 {
		t.Errorf("filter=%+v total=%d entries=%d", got, total, len(entries))
	}
}

func TestStats_Error(t *testing.T) {
	repo := &mockRepo{statsFn: func(context.Context) (*Stats, error) { return nil, errors.New("boom") }}
	_, err := NewService(repo).Stats(context.Background())
	assertAppError(t, err, http.StatusInternalServerError)
}

func TestDiscard(t *testing.T) {
	var svc Service = Discard{}
	if err := svc.Log(context.Background(), &Entry{}); err != nil {
		t.Errorf("Log: %v", err)
	}
	stats, err := svc.Stats(context.Background())
	if err != nil || stats == nil {
		t.Errorf("Stats = %v, %v", stats, err)
	}
}

func TestEntryFor_NilIdentity(t *testing.T) {
	e := EntryFor(nil, ActionUploadFailed)
	if e.Action != ActionUploadFailed || e.UserID != 0 || e.Username != "" {
		t.Errorf("entry = %+v", e)
	}
}

func TestHandler_ActivityJSON(t *testing.T) {
	repo := &mockRepo{listFn: func(_ context.Context, f Filter, _, _ int) ([]Entry, int, error) {
		if f.Action != ActionUploadSucceeded || f.UserID != 2 {
			t.Errorf("filter = %+v", f)
		}
		return []Entry{{ID: 10, Username: "budi", Action: ActionUploadSucceeded}}, 1, nil
	}}
	h := NewHandler(NewService(repo))

	req := httptest.NewRequest(http.MethodGet, "/admin/activity?action=upload.succeeded&user=2&page=1", nil)
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Activity(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"budi"`) {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ActivityPage(t *testing.T) {
	repo := &mockRepo{listFn: func(context.Context, Filter, int, int) ([]Entry, int, error) {
		return []Entry{{ID: 10, Username: "budi", Action: ActionUploadOrphaned, Subject: "<b>x</b>.jpg"}}, 1, nil
	}}
	h := NewHandler(NewService(repo))

	req := httptest.NewRequest(http.MethodGet, "/admin/activity", nil)
	rec := httptest.NewRecorder()
	if err := h.Activity(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("Activity: %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<b>x</b>") {
		t.Error("subject must be escaped")
	}
	if !strings.Contains(body, "budi") {
		t.Error("entry missing from page")
	}
}
