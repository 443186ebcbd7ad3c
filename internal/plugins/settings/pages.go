package settings

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/siddesa/portal/internal/templates/layouts"
)

var groupTitles = []struct {
	group Group
	title string
}{
	{GroupGeneral, "Umum"},
	{GroupProfile, "Profil Desa"},
	{GroupGovernment, "Pemerintahan"},
	{GroupSocial, "Media Sosial"},
}

// SettingsPage renders the grouped settings form.
func SettingsPage(values map[string]string, ferrs FieldErrors, csrfToken, errMsg, successMsg string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := layouts.Printf(w, `<section class="settings"><h1>Pengaturan Website</h1>`); err != nil {
			return err
		}
		if errMsg != "" {
			if err := layouts.Printf(w, `<p class="error" role="alert">%s</p>`, layouts.E(errMsg)); err != nil {
				return err
			}
		}
		if successMsg != "" {
			if err := layouts.Printf(w, `<p class="success" role="status">%s</p>`, layouts.E(successMsg)); err != nil {
				return err
			}
		}
		if err := layouts.Printf(w, `<form method="post" action="/admin/settings">`+
			`<input type="hidden" name="csrf_token" value="%s">`, layouts.E(csrfToken)); err != nil {
			return err
		}

		for _, g := range groupTitles {
			if err := layouts.Printf(w, `<fieldset><legend>%s</legend>`, layouts.E(g.title)); err != nil {
				return err
			}
			for _, f := range Schema {
				if f.Group != g.group {
					continue
				}
				if err := renderField(w, f, values[f.Key], ferrs[f.Key]); err != nil {
					return err
				}
			}
			if err := layouts.Printf(w, `</fieldset>`); err != nil {
				return err
			}
		}
		return layouts.Printf(w, `<button type="submit">Simpan</button></form></section>`)
	})
	return layouts.Base("Pengaturan", body)
}

func renderField(w io.Writer, f Field, value, fieldErr string) error {
	cls := "field"
	if fieldErr != "" {
		cls = "field invalid"
	}
	if err := layouts.Printf(w, `<div class="%s"><label for="%s">%s</label>`, cls, layouts.E(f.Key), layouts.E(f.Label)); err != nil {
		return err
	}
	var err error
	if f.Multiline {
		err = layouts.Printf(w, `<textarea id="%s" name="%s" rows="4">%s</textarea>`,
			layouts.E(f.Key), layouts.E(f.Key), layouts.E(value))
	} else {
		err = layouts.Printf(w, `<input id="%s" name="%s" value="%s">`,
			layouts.E(f.Key), layouts.E(f.Key), layouts.E(value))
	}
	if err != nil {
		return err
	}
	if fieldErr != "" {
		if err := layouts.Printf(w, `<small class="error">%s</small>`, layouts.E(fieldErr)); err != nil {
			return err
		}
	}
	return layouts.Printf(w, `</div>`)
}
