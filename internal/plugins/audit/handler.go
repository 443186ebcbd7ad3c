package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/middleware"
	"github.com/siddesa/portal/internal/plugins/auth"
)

// Handler handles HTTP requests for the activity log. Handlers are thin:
// bind request, call service, render response.
type Handler struct {
	service Service
}

// NewHandler creates a new activity log handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Activity renders the activity page (GET /admin/activity). JSON is
// returned when the client asks for it.
func (h *Handler) Activity(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	f := Filter{Action: c.QueryParam("action")}
	if uid, err := strconv.ParseUint(c.QueryParam("user"), 10, 64); err == nil {
		f.UserID = uid
	}

	ctx := c.Request().Context()
	entries, total, err := h.service.Activity(ctx, f, page)
	if err != nil {
		return err
	}

	if c.Request().Header.Get(echo.HeaderAccept) == echo.MIMEApplicationJSON {
		return c.JSON(http.StatusOK, map[string]any{
			"entries": entries,
			"total":   total,
			"page":    page,
		})
	}

	stats, err := h.service.Stats(ctx)
	if err != nil {
		return err
	}
	return middleware.Render(c, http.StatusOK, ActivityPage(stats, entries, total, page, perPage, f))
}

// EntryFor starts an entry attributed to the signed-in user.
func EntryFor(id *auth.Identity, action string) *Entry {
	e := &Entry{Action: action}
	if id != nil {
		e.UserID = id.UserID
		e.Username = id.Username
		e.Role = id.Role
	}
	return e
}
