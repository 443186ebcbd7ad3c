package upload

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/middleware"
	"github.com/siddesa/portal/internal/plugins/auth"
	"github.com/siddesa/portal/internal/templates/layouts"
)

// Handler handles HTTP requests for the upload pipeline. Handlers are thin:
// bind request, call service, render response.
type Handler struct {
	service Service
}

// NewHandler creates a new upload handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// New renders the upload form (GET /admin/uploads/new).
func (h *Handler) New(c echo.Context) error {
	return middleware.Render(c, http.StatusOK,
		UploadFormPage(AllowedKinds(auth.GetIdentity(c)), middleware.GetCSRFToken(c), ""))
}

// Create accepts a file and registers a job (POST /admin/uploads).
func (h *Handler) Create(c echo.Context) error {
	id := auth.GetIdentity(c)
	if id == nil {
		return apperror.NewUnauthorized("authentication required")
	}

	kind, ok := ParseKind(c.FormValue("kind"))
	if !ok {
		return apperror.NewBadRequest("unknown upload kind")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.NewBadRequest("no file provided")
	}
	src, err := fh.Open()
	if err != nil {
		return apperror.NewInternal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return apperror.NewInternal(err)
	}

	sel := Selection{
		Kind:        kind,
		Name:        fh.Filename,
		Data:        data,
		Compression: c.FormValue("compress") != "",
		Options:     compressOverrides(c),
	}

	status, err := h.service.Select(c.Request().Context(), id, sel)
	if err != nil {
		if wantsJSON(c) || apperror.SafeCode(err) == http.StatusUnauthorized {
			return err
		}
		return middleware.Render(c, apperror.SafeCode(err),
			UploadFormPage(AllowedKinds(id), middleware.GetCSRFToken(c), apperror.SafeMessage(err)))
	}

	if wantsJSON(c) {
		return c.JSON(http.StatusCreated, status)
	}
	return c.Redirect(http.StatusSeeOther, jobPath(status.ID))
}

// Preview returns the advisory filename (GET /admin/uploads/preview).
func (h *Handler) Preview(c echo.Context) error {
	kind, ok := ParseKind(c.QueryParam("kind"))
	if !ok {
		return apperror.NewBadRequest("unknown upload kind")
	}
	name := c.QueryParam("name")
	if name == "" {
		name = c.QueryParam("title")
	}
	preview := Preview(name, kind, c.QueryParam("position"))
	if middleware.IsHTMX(c) {
		return c.HTML(http.StatusOK, layouts.E(preview))
	}
	return c.JSON(http.StatusOK, map[string]string{"preview": preview})
}

// Show returns a job (GET /admin/uploads/:id). HTMX polls receive the
// status fragment only.
func (h *Handler) Show(c echo.Context) error {
	status, err := h.service.Status(auth.GetIdentity(c), c.Param("id"))
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, status)
}

// Submit starts the transfer (POST /admin/uploads/:id/submit).
func (h *Handler) Submit(c echo.Context) error {
	var d Details
	if err := c.Bind(&d); err != nil {
		return apperror.NewBadRequest("invalid form")
	}

	status, err := h.service.Submit(c.Request().Context(), auth.GetIdentity(c), auth.GetToken(c), c.Param("id"), d)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusAccepted, status)
}

// Retry resets a failed job (POST /admin/uploads/:id/retry).
func (h *Handler) Retry(c echo.Context) error {
	status, err := h.service.Retry(auth.GetIdentity(c), c.Param("id"))
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, status)
}

// Cancel discards a job (DELETE /admin/uploads/:id).
func (h *Handler) Cancel(c echo.Context) error {
	if err := h.service.Cancel(auth.GetIdentity(c), c.Param("id")); err != nil {
		return err
	}
	if middleware.IsHTMX(c) {
		c.Response().Header().Set("HX-Redirect", "/admin/uploads/new")
	}
	return c.NoContent(http.StatusNoContent)
}

// respond picks JSON, an HTMX fragment or the full job page. Plain form
// posts are redirected back to the job page. A succeeded job is removed
// and the browser moves on to the kind's landing page.
func (h *Handler) respond(c echo.Context, code int, status *Status) error {
	if status.Done() {
		return h.finish(c, code, status)
	}
	switch {
	case wantsJSON(c):
		return c.JSON(code, status)
	case middleware.IsHTMX(c):
		return middleware.Render(c, http.StatusOK, StatusFragment(status, middleware.GetCSRFToken(c)))
	case c.Request().Method != http.MethodGet:
		return c.Redirect(http.StatusSeeOther, jobPath(status.ID))
	default:
		return middleware.Render(c, http.StatusOK, JobPage(status, middleware.GetCSRFToken(c)))
	}
}

func (h *Handler) finish(c echo.Context, code int, status *Status) error {
	if err := h.service.Finish(auth.GetIdentity(c), status.ID); err != nil {
		return err
	}
	next := status.Kind.LandingPath()
	switch {
	case wantsJSON(c):
		return c.JSON(code, status)
	case middleware.IsHTMX(c):
		c.Response().Header().Set("HX-Redirect", next)
		return c.NoContent(http.StatusNoContent)
	default:
		return c.Redirect(http.StatusSeeOther, next)
	}
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func jobPath(id string) string {
	return "/admin/uploads/" + id
}

// AllowedKinds lists the kinds id may upload, in menu order.
func AllowedKinds(id *auth.Identity) []Kind {
	var out []Kind
	for _, k := range Kinds {
		if k.AllowedFor(id) {
			out = append(out, k)
		}
	}
	return out
}

// compressOverrides reads optional per-upload compressor settings. Missing
// or malformed values keep the configured defaults.
func compressOverrides(c echo.Context) *CompressOptions {
	var o CompressOptions
	set := false
	if v, err := strconv.ParseFloat(c.FormValue("max_size_mb"), 64); err == nil && v > 0 {
		o.MaxSizeMB, set = v, true
	}
	if v, err := strconv.Atoi(c.FormValue("max_dimension")); err == nil && v > 0 {
		o.MaxDimension, set = v, true
	}
	if v, err := strconv.ParseFloat(c.FormValue("quality"), 64); err == nil && v > 0 && v <= 1 {
		o.Quality, set = v, true
	}
	if !set {
		return nil
	}
	return &o
}
