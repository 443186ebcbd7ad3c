package settings

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/middleware"
	"github.com/siddesa/portal/internal/plugins/auth"
)

// Handler handles the admin settings form. Routes require the admin or
// superadmin role (applied by the caller).
type Handler struct {
	service Service
}

// NewHandler creates a new settings handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Edit renders the settings form (GET /admin/settings).
func (h *Handler) Edit(c echo.Context) error {
	values, err := h.service.FormValues(c.Request().Context())
	errMsg := ""
	if err != nil {
		errMsg = apperror.SafeMessage(err)
	}
	return middleware.Render(c, http.StatusOK,
		SettingsPage(values, nil, middleware.GetCSRFToken(c), errMsg, ""))
}

// Update saves the settings form (POST /admin/settings).
func (h *Handler) Update(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return apperror.NewBadRequest("invalid form")
	}
	values := make(map[string]string, len(Schema))
	for _, f := range Schema {
		if _, ok := form[f.Key]; ok {
			values[f.Key] = form.Get(f.Key)
		}
	}

	ctx := c.Request().Context()
	csrfToken := middleware.GetCSRFToken(c)

	_, err = h.service.Save(ctx, auth.GetIdentity(c), auth.GetToken(c), values)
	if err != nil {
		var ferrs FieldErrors
		if errors.As(err, &ferrs) {
			return middleware.Render(c, http.StatusUnprocessableEntity,
				SettingsPage(values, ferrs, csrfToken, "Periksa kembali isian yang ditandai.", ""))
		}
		// Expired sessions go through the central handler (login redirect).
		if apperror.SafeCode(err) == http.StatusUnauthorized {
			return err
		}
		return middleware.Render(c, apperror.SafeCode(err),
			SettingsPage(values, nil, csrfToken, apperror.SafeMessage(err), ""))
	}

	fresh, _ := h.service.FormValues(ctx)
	return middleware.Render(c, http.StatusOK,
		SettingsPage(fresh, nil, csrfToken, "", "Pengaturan berhasil disimpan."))
}
