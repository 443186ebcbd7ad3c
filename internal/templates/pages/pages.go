// Package pages holds the pages that belong to no plugin: the public
// landing page, the admin home and the error page.
package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/siddesa/portal/internal/plugins/settings"
	"github.com/siddesa/portal/internal/templates/layouts"
)

// Landing renders the public home page from the settings snapshot. Empty
// settings are simply left out.
func Landing(s *settings.Snapshot) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		g := s.General
		if _, err := io.WriteString(w, `<header class="hero">`); err != nil {
			return err
		}
		if g.SiteLogo != "" {
			if err := layouts.Printf(w, `<img class="logo" src="%s" alt="Logo %s">`, layouts.E(g.SiteLogo), layouts.E(g.SiteName)); err != nil {
				return err
			}
		}
		if err := layouts.Printf(w, `<h1>%s</h1><p>%s</p></header>`, layouts.E(g.SiteName), layouts.E(g.SiteDescription)); err != nil {
			return err
		}

		if err := contact(w, g); err != nil {
			return err
		}

		if img := s.Government.OrganizationalStructureImage; img != "" {
			if err := layouts.Printf(w, `<section class="struktur"><h2>Struktur Organisasi</h2>`+
				`<img src="%s" alt="Struktur organisasi pemerintah desa"></section>`, layouts.E(img)); err != nil {
				return err
			}
		}

		if g.MapEmbedURL != "" {
			if err := layouts.Printf(w, `<section class="map"><iframe src="%s" loading="lazy" title="Peta desa"></iframe></section>`,
				layouts.E(g.MapEmbedURL)); err != nil {
				return err
			}
		}
		return social(w, s.Social)
	})
	return layouts.Base("Beranda", body)
}

func contact(w io.Writer, g settings.General) error {
	rows := []struct{ label, value string }{
		{"Alamat", g.ContactAddress},
		{"Kecamatan", g.District},
		{"Kabupaten", g.Regency},
		{"Telepon", g.ContactPhone},
		{"WhatsApp", g.ContactWhatsApp},
		{"Email", g.ContactEmail},
	}
	if _, err := io.WriteString(w, `<section class="contact"><h2>Kontak</h2><dl>`); err != nil {
		return err
	}
	for _, r := range rows {
		if r.value == "" {
			continue
		}
		if err := layouts.Printf(w, `<dt>%s</dt><dd>%s</dd>`, r.label, layouts.E(r.value)); err != nil {
			return err
		}
	}
	if g.GoogleMapsLink != "" {
		if err := layouts.Printf(w, `<dt>Peta</dt><dd><a href="%s" rel="noopener" target="_blank">Buka di Google Maps</a></dd>`,
			layouts.E(g.GoogleMapsLink)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</dl></section>`)
	return err
}

func social(w io.Writer, s settings.Social) error {
	links := []struct{ label, href string }{
		{"Facebook", s.FacebookURL},
		{"Instagram", s.InstagramURL},
		{"Twitter", s.TwitterURL},
		{"YouTube", s.YouTubeURL},
		{"TikTok", s.TikTokURL},
	}
	if _, err := io.WriteString(w, `<footer><ul class="social">`); err != nil {
		return err
	}
	for _, l := range links {
		if l.href == "" {
			continue
		}
		if err := layouts.Printf(w, `<li><a href="%s" rel="noopener" target="_blank">%s</a></li>`, layouts.E(l.href), l.label); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, `</ul></footer>`)
	return err
}

// QuickAction is one link on the admin home.
type QuickAction struct {
	Href  string
	Label string
}

// AdminHome is the page every role lands on after login.
func AdminHome(name string, actions []QuickAction) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := layouts.Printf(w, `<h1>Selamat datang, %s</h1><ul class="quick-actions">`, layouts.E(name)); err != nil {
			return err
		}
		for _, a := range actions {
			if err := layouts.Printf(w, `<li><a href="%s">%s</a></li>`, layouts.E(a.Href), layouts.E(a.Label)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</ul>`)
		return err
	})
	return layouts.Base("Berita", body)
}

// ErrorPage renders a full error page.
func ErrorPage(code int, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		back := "/"
		if layouts.IsAuthenticated(ctx) {
			back = "/admin/news"
		}
		return layouts.Printf(w, `<section class="error"><h1>%d</h1><p>%s</p><a href="%s">Kembali</a></section>`,
			code, layouts.E(message), back)
	})
	return layouts.Base("Terjadi Kesalahan", body)
}
