package layouts

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// E escapes a value for HTML text and attribute positions.
func E(s string) string {
	return templ.EscapeString(s)
}

// Printf writes a formatted fragment. Callers escape dynamic values with E.
func Printf(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// navLink is one entry of the admin navigation.
type navLink struct {
	href   string
	label  string
	manage bool
}

var adminNav = []navLink{
	{"/admin/news", "Berita", false},
	{"/admin/uploads/new", "Unggah Media", false},
	{"/admin/settings", "Pengaturan", true},
	{"/admin/activity", "Aktivitas", true},
}

// Base wraps body in the HTML shell. Authenticated callers get the admin
// navigation, filtered by what their role may open.
func Base(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		site := GetSiteName(ctx)
		if err := Printf(w, `<!DOCTYPE html><html lang="id"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<meta name="csrf-token" content="%s">`+
			`<title>%s | %s</title><link rel="stylesheet" href="/static/css/app.css">`+
			`<script src="/static/vendor/htmx.min.js" defer></script></head><body>`,
			E(GetCSRFToken(ctx)), E(title), E(site)); err != nil {
			return err
		}

		if IsAuthenticated(ctx) {
			if err := renderNav(ctx, w); err != nil {
				return err
			}
		}

		if msg := GetFlashSuccess(ctx); msg != "" {
			if err := Printf(w, `<div class="flash flash-success">%s</div>`, E(msg)); err != nil {
				return err
			}
		}
		if msg := GetFlashError(ctx); msg != "" {
			if err := Printf(w, `<div class="flash flash-error">%s</div>`, E(msg)); err != nil {
				return err
			}
		}

		if _, err := io.WriteString(w, `<main>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func renderNav(ctx context.Context, w io.Writer) error {
	active := GetActivePath(ctx)
	var b strings.Builder
	b.WriteString(`<nav class="admin-nav"><ul>`)
	for _, link := range adminNav {
		if link.manage && !CanManage(ctx) {
			continue
		}
		class := ""
		if strings.HasPrefix(active, link.href) {
			class = ` class="active"`
		}
		fmt.Fprintf(&b, `<li%s><a href="%s">%s</a></li>`, class, link.href, link.label)
	}
	fmt.Fprintf(&b, `</ul><span class="who">%s (%s)</span>`, E(GetUserName(ctx)), E(GetRole(ctx)))
	fmt.Fprintf(&b, `<form method="post" action="/admin/logout"><input type="hidden" name="csrf_token" value="%s">`+
		`<button type="submit">Keluar</button></form></nav>`, E(GetCSRFToken(ctx)))
	_, err := io.WriteString(w, b.String())
	return err
}
