package upload

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/siddesa/portal/internal/apiclient"
	"github.com/siddesa/portal/internal/templates/layouts"
)

var stepLabels = map[Step]string{
	StepIdle:        "Siap diunggah",
	StepCompressing: "Mengompres gambar...",
	StepUploading:   "Mengunggah...",
	StepProcessing:  "Menyimpan data...",
	StepSuccess:     "Selesai",
	StepError:       "Gagal",
}

// UploadFormPage renders the file selection form. kinds is what the user
// may upload.
func UploadFormPage(kinds []Kind, csrfToken, errMsg string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := layouts.Printf(w, `<section class="upload"><h1>Unggah Media</h1>`); err != nil {
			return err
		}
		if errMsg != "" {
			if err := layouts.Printf(w, `<p class="error" role="alert">%s</p>`, layouts.E(errMsg)); err != nil {
				return err
			}
		}
		if err := layouts.Printf(w, `<form method="post" action="/admin/uploads" enctype="multipart/form-data">`+
			`<input type="hidden" name="csrf_token" value="%s">`+
			`<div class="field"><label for="kind">Jenis</label><select id="kind" name="kind">`, layouts.E(csrfToken)); err != nil {
			return err
		}
		for _, k := range kinds {
			if err := layouts.Printf(w, `<option value="%s">%s</option>`, layouts.E(string(k)), layouts.E(k.Label())); err != nil {
				return err
			}
		}
		return layouts.Printf(w, `</select></div>`+
			`<div class="field"><label for="file">File</label><input id="file" type="file" name="file" accept="image/*,video/*" required></div>`+
			`<div class="field"><label><input type="checkbox" name="compress" value="1" checked> Kompres gambar sebelum diunggah</label>`+
			`<small>Tanpa kompresi, ukuran maksimal %s.</small></div>`+
			`<button type="submit">Lanjut</button></form></section>`, FormatFileSize(DefaultHardLimit))
	})
	return layouts.Base("Unggah Media", body)
}

// JobPage renders a selected file with its detail form and live status.
func JobPage(s *Status, csrfToken string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := layouts.Printf(w, `<section class="upload-job"><h1>%s</h1>`+
			`<p class="file">%s &middot; %s &middot; %s</p>`,
			layouts.E(s.Kind.Label()), layouts.E(s.FileName), layouts.E(FormatFileSize(s.FileSize)), layouts.E(s.MIME)); err != nil {
			return err
		}
		if err := StatusFragment(s, csrfToken).Render(ctx, w); err != nil {
			return err
		}
		if s.Step != StepSuccess {
			if err := detailsForm(w, s, csrfToken); err != nil {
				return err
			}
		}
		return layouts.Printf(w, `<button type="button" hx-delete="/admin/uploads/%s" hx-headers='{"X-CSRF-Token": "%s"}'>Batal</button></section>`,
			layouts.E(s.ID), layouts.E(csrfToken))
	})
	return layouts.Base("Unggah Media", body)
}

// StatusFragment is the polled status block. It keeps polling while work is
// in flight.
func StatusFragment(s *Status, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		poll := ""
		if s.Submitting || s.Step == StepCompressing || s.Step == StepUploading || s.Step == StepProcessing {
			poll = ` hx-get="/admin/uploads/` + layouts.E(s.ID) + `" hx-trigger="every 1s" hx-swap="outerHTML"`
		}
		if err := layouts.Printf(w, `<div id="upload-status" class="step-%s"%s><p class="step">%s</p>`,
			layouts.E(string(s.Step)), poll, layouts.E(stepLabels[s.Step])); err != nil {
			return err
		}

		if s.Step == StepUploading {
			if err := layouts.Printf(w, `<progress max="100" value="%d">%d%%</progress>`, s.Progress, s.Progress); err != nil {
				return err
			}
		}
		if s.Compression != nil && !s.Compression.FellBack {
			if err := layouts.Printf(w, `<p class="compression">%s &rarr; %s (hemat %d%%)</p>`,
				layouts.E(FormatFileSize(s.Compression.OriginalSize)), layouts.E(FormatFileSize(s.Compression.Size)), s.Compression.Savings); err != nil {
				return err
			}
		}
		if s.Preview != "" {
			if err := layouts.Printf(w, `<p class="preview">Nama file: <code>%s</code></p>`, layouts.E(s.Preview)); err != nil {
				return err
			}
		}
		for _, msg := range []string{s.Notice, s.Warning} {
			if msg == "" {
				continue
			}
			if err := layouts.Printf(w, `<p class="notice">%s</p>`, layouts.E(msg)); err != nil {
				return err
			}
		}

		switch s.Step {
		case StepError:
			if err := layouts.Printf(w, `<p class="error" role="alert">%s</p>`+
				`<button type="button" hx-post="/admin/uploads/%s/retry" hx-target="#upload-status" hx-swap="outerHTML" hx-headers='{"X-CSRF-Token": "%s"}'>Coba lagi</button>`,
				layouts.E(s.Error), layouts.E(s.ID), layouts.E(csrfToken)); err != nil {
				return err
			}
		case StepSuccess:
			if s.Result != nil {
				if err := layouts.Printf(w, `<p class="success">Tersimpan: <a href="%s">%s</a></p>`,
					layouts.E(string(templ.URL(s.Result.URL))), layouts.E(resultName(s.Result))); err != nil {
					return err
				}
			}
		}
		return layouts.Printf(w, `</div>`)
	})
}

func resultName(r *Result) string {
	if r.Filename != "" {
		return r.Filename
	}
	return r.URL
}

func detailsForm(w io.Writer, s *Status, csrfToken string) error {
	if err := layouts.Printf(w, `<form method="post" action="/admin/uploads/%s/submit" hx-post="/admin/uploads/%s/submit" hx-target="#upload-status" hx-swap="outerHTML">`+
		`<input type="hidden" name="csrf_token" value="%s">`,
		layouts.E(s.ID), layouts.E(s.ID), layouts.E(csrfToken)); err != nil {
		return err
	}

	var fields []string
	switch s.Kind {
	case KindNews:
		fields = []string{"title", "content", "status"}
	case KindOfficial:
		fields = []string{"name", "position", "bio", "hamlet_name", "display_order"}
	case KindHeroSlider:
		fields = []string{"title", "subtitle", "link_url", "link_text", "display_order", "is_active"}
	}
	previewAttrs := ` hx-get="/admin/uploads/preview?kind=` + layouts.E(string(s.Kind)) + `" hx-trigger="keyup changed delay:300ms" hx-include="closest form" hx-target="#filename-preview"`

	for _, name := range fields {
		var err error
		switch name {
		case "content", "bio":
			err = layouts.Printf(w, `<div class="field"><label for="%s">%s</label><textarea id="%s" name="%s" rows="6"></textarea></div>`,
				name, detailLabels[name], name, name)
		case "status":
			err = layouts.Printf(w, `<div class="field"><label for="status">Status</label><select id="status" name="status">`+
				`<option value="%s">Draf</option><option value="%s">Terbit</option><option value="%s">Arsip</option></select></div>`,
				apiclient.NewsDraft, apiclient.NewsPublished, apiclient.NewsArchived)
		case "is_active":
			err = layouts.Printf(w, `<div class="field"><label><input type="checkbox" name="is_active" value="true" checked> Aktif</label></div>`)
		case "display_order":
			err = layouts.Printf(w, `<div class="field"><label for="display_order">Urutan tampil</label><input id="display_order" type="number" min="0" name="display_order" value="0"></div>`)
		case "title", "name", "position":
			err = layouts.Printf(w, `<div class="field"><label for="%s">%s</label><input id="%s" name="%s" required%s></div>`,
				name, detailLabels[name], name, name, previewAttrs)
		default:
			err = layouts.Printf(w, `<div class="field"><label for="%s">%s</label><input id="%s" name="%s"></div>`,
				name, detailLabels[name], name, name)
		}
		if err != nil {
			return err
		}
	}
	return layouts.Printf(w, `<p id="filename-preview" class="hint"></p><button type="submit">Unggah</button></form>`)
}

var detailLabels = map[string]string{
	"title":       "Judul",
	"subtitle":    "Subjudul",
	"content":     "Isi",
	"name":        "Nama",
	"position":    "Jabatan",
	"bio":         "Biografi",
	"hamlet_name": "Nama dusun",
	"link_url":    "URL tautan",
	"link_text":   "Teks tautan",
}
