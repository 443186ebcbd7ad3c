package audit

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/siddesa/portal/internal/templates/layouts"
)

var actionLabels = map[string]string{
	ActionUploadSucceeded: "Unggahan berhasil",
	ActionUploadFailed:    "Unggahan gagal",
	ActionUploadOrphaned:  "File terunggah, data belum tersimpan",
	ActionSettingsUpdated: "Pengaturan diperbarui",
}

func actionLabel(a string) string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return a
}

// ActivityPage renders the activity feed with its stats header.
func ActivityPage(stats *Stats, entries []Entry, total, page, pageSize int, f Filter) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		last := "-"
		if stats.LastActivityAt != nil {
			last = stats.LastActivityAt.Format("02 Jan 2006 15:04")
		}
		if err := layouts.Printf(w, `<section class="activity"><h1>Aktivitas</h1>`+
			`<dl class="stats"><dt>Total</dt><dd>%d</dd><dt>Perlu ditindaklanjuti</dt><dd>%d</dd>`+
			`<dt>Terakhir</dt><dd>%s</dd><dt>Pengguna aktif (30 hari)</dt><dd>%d</dd></dl>`,
			stats.TotalEntries, stats.Orphans, layouts.E(last), stats.ActiveUsers); err != nil {
			return err
		}

		if len(entries) == 0 {
			return layouts.Printf(w, `<p class="empty">Belum ada aktivitas.</p></section>`)
		}

		if err := layouts.Printf(w, `<table><thead><tr><th>Waktu</th><th>Pengguna</th><th>Aksi</th><th>Jenis</th><th>Detail</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, e := range entries {
			detail := e.Subject
			if u, ok := e.Details["url"].(string); ok && detail == "" {
				detail = u
			}
			if msg, ok := e.Details["error"].(string); ok {
				detail += " " + msg
			}
			if err := layouts.Printf(w, `<tr class="%s"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
				layouts.E(e.Action),
				layouts.E(e.CreatedAt.Format("02 Jan 2006 15:04")),
				layouts.E(e.Username),
				layouts.E(actionLabel(e.Action)),
				layouts.E(e.Kind),
				layouts.E(detail),
			); err != nil {
				return err
			}
		}
		if err := layouts.Printf(w, `</tbody></table>`); err != nil {
			return err
		}
		if err := pagination(w, total, page, pageSize, f); err != nil {
			return err
		}
		return layouts.Printf(w, `</section>`)
	})
	return layouts.Base("Aktivitas", body)
}

func pagination(w io.Writer, total, page, pageSize int, f Filter) error {
	pages := (total + pageSize - 1) / pageSize
	if pages <= 1 {
		return nil
	}
	link := func(p int) string {
		q := url.Values{"page": {strconv.Itoa(p)}}
		if f.Action != "" {
			q.Set("action", f.Action)
		}
		if f.UserID != 0 {
			q.Set("user", strconv.FormatUint(f.UserID, 10))
		}
		return "/admin/activity?" + q.Encode()
	}
	if err := layouts.Printf(w, `<nav class="pagination">`); err != nil {
		return err
	}
	if page > 1 {
		if err := layouts.Printf(w, `<a href="%s">&laquo; Sebelumnya</a>`, layouts.E(link(page-1))); err != nil {
			return err
		}
	}
	if err := layouts.Printf(w, `<span>%d / %d</span>`, page, pages); err != nil {
		return err
	}
	if page < pages {
		if err := layouts.Printf(w, `<a href="%s">Berikutnya &raquo;</a>`, layouts.E(link(page+1))); err != nil {
			return err
		}
	}
	return layouts.Printf(w, `</nav>`)
}
