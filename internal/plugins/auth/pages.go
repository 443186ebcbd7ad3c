package auth

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/siddesa/portal/internal/templates/layouts"
)

// LoginPage renders the admin login form.
func LoginPage(csrfToken, username, errMsg, next string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := layouts.Printf(w, `<section class="login"><h1>Masuk Admin</h1>`); err != nil {
			return err
		}
		if errMsg != "" {
			if err := layouts.Printf(w, `<p class="error" role="alert">%s</p>`, layouts.E(errMsg)); err != nil {
				return err
			}
		}
		return layouts.Printf(w, `<form method="post" action="/admin/login">`+
			`<input type="hidden" name="csrf_token" value="%s">`+
			`<input type="hidden" name="next" value="%s">`+
			`<label>Username <input name="username" value="%s" required autocomplete="username"></label>`+
			`<label>Password <input type="password" name="password" required autocomplete="current-password"></label>`+
			`<button type="submit">Masuk</button></form></section>`,
			layouts.E(csrfToken), layouts.E(next), layouts.E(username))
	})
	return layouts.Base("Masuk", body)
}
