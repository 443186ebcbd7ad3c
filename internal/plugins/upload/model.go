// Package upload runs the admin media upload pipeline: file selection and
// type sniffing, optional image compression, a multipart transfer to the
// village API with progress, and the follow-up call that creates or
// updates the record owning the file (news post, official, slide, logo,
// organisational chart). Each upload is a Job whose visible progress is an
// explicit step machine (see Tracker); presentation, logging and metrics
// observe transitions rather than being woven into the transfer code.
package upload

import (
	"strings"
	"time"

	"github.com/siddesa/portal/internal/plugins/auth"
)

// Kind selects the naming scheme and the follow-up call for an upload.
type Kind string

const (
	KindNews       Kind = "news"
	KindOfficial   Kind = "official"
	KindHeroSlider Kind = "hero_slider"
	KindLogo       Kind = "logo"
	KindStruktur   Kind = "struktur"
	KindGeneric    Kind = "generic"
)

// Kinds lists every kind in form order.
var Kinds = []Kind{KindNews, KindOfficial, KindHeroSlider, KindLogo, KindStruktur, KindGeneric}

var kindLabels = map[Kind]string{
	KindNews:       "Berita",
	KindOfficial:   "Aparatur desa",
	KindHeroSlider: "Hero slider",
	KindLogo:       "Logo",
	KindStruktur:   "Struktur organisasi",
	KindGeneric:    "File lain",
}

// ParseKind maps a form value onto a Kind. Empty means generic.
func ParseKind(s string) (Kind, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return KindGeneric, true
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Label returns the display name of the kind.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return string(k)
}

// LandingPath is the admin page shown once an upload of this kind is
// saved. Logo and chart live on the settings page.
func (k Kind) LandingPath() string {
	switch k {
	case KindLogo, KindStruktur:
		return "/admin/settings"
	default:
		return "/admin/news"
	}
}

// NamingAware reports whether the kind posts to the naming-aware endpoint.
func (k Kind) NamingAware() bool {
	return k != KindGeneric
}

// managerKinds target areas authors may not edit.
var managerKinds = map[Kind]bool{
	KindOfficial:   true,
	KindHeroSlider: true,
	KindLogo:       true,
	KindStruktur:   true,
}

// AllowedFor reports whether id may upload files of this kind.
func (k Kind) AllowedFor(id *auth.Identity) bool {
	if !managerKinds[k] {
		return id != nil
	}
	return id.HasRole(auth.RoleAdmin, auth.RoleSuperadmin)
}

// Step is a visible stage of an upload.
type Step string

const (
	StepIdle        Step = "idle"
	StepCompressing Step = "compressing"
	StepUploading   Step = "uploading"
	StepProcessing  Step = "processing"
	StepSuccess     Step = "success"
	StepError       Step = "error"
)

// Result is what the upload endpoint returns on success.
type Result struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
}

// Details carries the fields of the record that will own the file. Which
// fields matter depends on the kind.
type Details struct {
	Title        string `json:"title" form:"title"`
	Subtitle     string `json:"subtitle" form:"subtitle"`
	Content      string `json:"content" form:"content"`
	Status       string `json:"status" form:"status"`
	Name         string `json:"name" form:"name"`
	Position     string `json:"position" form:"position"`
	Bio          string `json:"bio" form:"bio"`
	HamletName   string `json:"hamlet_name" form:"hamlet_name"`
	LinkURL      string `json:"link_url" form:"link_url"`
	LinkText     string `json:"link_text" form:"link_text"`
	DisplayOrder int    `json:"display_order" form:"display_order"`
	IsActive     bool   `json:"is_active" form:"is_active"`
}

// trimmed returns d with surrounding whitespace removed from text fields.
func (d Details) trimmed() Details {
	d.Title = strings.TrimSpace(d.Title)
	d.Subtitle = strings.TrimSpace(d.Subtitle)
	d.Status = strings.TrimSpace(d.Status)
	d.Name = strings.TrimSpace(d.Name)
	d.Position = strings.TrimSpace(d.Position)
	d.HamletName = strings.TrimSpace(d.HamletName)
	d.LinkURL = strings.TrimSpace(d.LinkURL)
	d.LinkText = strings.TrimSpace(d.LinkText)
	return d
}

// PreviewContext returns the name and extra value Preview combines
// for this kind.
func (d Details) PreviewContext(k Kind) (name, extra string) {
	if k == KindOfficial {
		return d.Name, d.Position
	}
	return d.Title, ""
}

// CompressionReport describes the outcome of a compression.
type CompressionReport struct {
	OriginalSize int64 `json:"originalSize"`
	Size         int64 `json:"size"`
	Savings      int   `json:"savings"`
	FellBack     bool  `json:"fellBack"`
}

// Status is the polling view of a job.
type Status struct {
	ID                 string             `json:"id"`
	Kind               Kind               `json:"kind"`
	Step               Step               `json:"step"`
	Progress           int                `json:"progress"`
	Error              string             `json:"error,omitempty"`
	FileName           string             `json:"fileName"`
	FileSize           int64              `json:"fileSize"`
	MIME               string             `json:"mime"`
	CompressionEnabled bool               `json:"compressionEnabled"`
	Compression        *CompressionReport `json:"compression,omitempty"`
	Notice             string             `json:"notice,omitempty"`
	Warning            string             `json:"warning,omitempty"`
	Preview            string             `json:"preview,omitempty"`
	Result             *Result            `json:"result,omitempty"`
	RecordID           uint64             `json:"recordId,omitempty"`
	Submitting         bool               `json:"submitting"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Done reports whether the job reached success.
func (s *Status) Done() bool {
	return s.Step == StepSuccess
}
