package upload

import (
	"regexp"
	"strings"
)

// maxSlugLen caps slugs so stored names stay filesystem friendly.
const maxSlugLen = 50

// timestampPlaceholder stands in for the server-side timestamp.
const timestampPlaceholder = "[timestamp]"

// LogoPreview is shown for every logo upload; the server always stores the
// logo as logo.png or logo.svg.
const LogoPreview = "logo.png (atau logo.svg)"

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, collapses every run of characters outside a-z and
// 0-9 into one hyphen, trims hyphens at both ends and truncates to 50
// characters. Slugify(Slugify(s)) == Slugify(s).
func Slugify(s string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// Preview returns the advisory filename the server is expected to assign.
// It is display text only: the real name comes back in Result.Filename.
// extra is the official's position and is ignored for other kinds.
func Preview(raw string, kind Kind, extra string) string {
	slug := Slugify(raw)
	if slug == "" {
		slug = "file"
	}

	switch kind {
	case KindLogo:
		return LogoPreview
	case KindStruktur:
		return "struktur-organisasi-" + timestampPlaceholder + ".jpg"
	case KindNews:
		return "berita-" + slug + "-" + timestampPlaceholder + ".jpg"
	case KindOfficial:
		if pos := Slugify(extra); pos != "" {
			slug += "-" + pos
		}
		return "pejabat-" + slug + "-" + timestampPlaceholder + ".jpg"
	case KindHeroSlider:
		return "hero-" + slug + "-" + timestampPlaceholder + ".jpg"
	default:
		return slug + "-" + timestampPlaceholder + ".jpg"
	}
}
