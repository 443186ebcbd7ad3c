package upload

import (
	"context"

	"github.com/siddesa/portal/internal/apiclient"
	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/sanitize"
)

// ContentAPI is the part of the upstream client that creates records.
type ContentAPI interface {
	CreateNews(ctx context.Context, token string, in apiclient.NewsInput) (*apiclient.Created, error)
	CreateOfficial(ctx context.Context, token string, in apiclient.OfficialInput) (*apiclient.Created, error)
	CreateHeroSlider(ctx context.Context, token string, in apiclient.HeroSliderInput) (*apiclient.Created, error)
}

// SettingsWriter stores a single site setting.
type SettingsWriter interface {
	SetValue(ctx context.Context, token, key, value string) error
}

// Setting keys written by logo and struktur uploads.
const (
	settingSiteLogo     = "site_logo"
	settingOrgStructure = "organizational_structure_image"
)

// Submission is everything a record call needs.
type Submission struct {
	Kind    Kind
	Token   string
	Details Details
	Result  Result
	File    File
}

// RecordSubmitter creates or updates the record that owns an uploaded
// file. It returns the new record ID, or 0 when the record has none.
type RecordSubmitter interface {
	Submit(ctx context.Context, s Submission) (uint64, error)
}

// APISubmitter submits records to the village API.
type APISubmitter struct {
	content  ContentAPI
	settings SettingsWriter
}

// NewAPISubmitter creates a submitter over the content API and the
// settings service.
func NewAPISubmitter(content ContentAPI, settings SettingsWriter) *APISubmitter {
	return &APISubmitter{content: content, settings: settings}
}

// Submit dispatches on the kind. Generic uploads have no owning record.
func (a *APISubmitter) Submit(ctx context.Context, s Submission) (uint64, error) {
	d := s.Details
	switch s.Kind {
	case KindNews:
		created, err := a.content.CreateNews(ctx, s.Token, apiclient.NewsInput{
			Title:            d.Title,
			Content:          sanitize.HTML(d.Content),
			Status:           newsStatus(d.Status),
			FeaturedImageURL: s.Result.URL,
		})
		return createdID(created), err

	case KindOfficial:
		in := apiclient.OfficialInput{
			Name:         d.Name,
			Position:     d.Position,
			Bio:          sanitize.Text(d.Bio),
			DisplayOrder: d.DisplayOrder,
			PhotoURL:     s.Result.URL,
			HamletName:   d.HamletName,
		}
		created, err := a.content.CreateOfficial(ctx, s.Token, in)
		return createdID(created), err

	case KindHeroSlider:
		created, err := a.content.CreateHeroSlider(ctx, s.Token, apiclient.HeroSliderInput{
			Title:        d.Title,
			Subtitle:     sanitize.Text(d.Subtitle),
			MediaURL:     s.Result.URL,
			MediaType:    s.File.MediaType(),
			LinkURL:      d.LinkURL,
			LinkText:     d.LinkText,
			DisplayOrder: d.DisplayOrder,
			IsActive:     d.IsActive,
		})
		return createdID(created), err

	case KindLogo:
		return 0, a.settings.SetValue(ctx, s.Token, settingSiteLogo, s.Result.URL)

	case KindStruktur:
		return 0, a.settings.SetValue(ctx, s.Token, settingOrgStructure, s.Result.URL)

	default:
		return 0, nil
	}
}

func createdID(c *apiclient.Created) uint64 {
	if c == nil {
		return 0
	}
	return c.ID
}

func newsStatus(s string) string {
	if s == "" {
		return apiclient.NewsDraft
	}
	return s
}

// validateDetails checks the context each kind needs before any network
// call is made.
func validateDetails(k Kind, d Details) error {
	switch k {
	case KindNews:
		if d.Title == "" {
			return apperror.NewValidation("Judul berita wajib diisi.")
		}
		switch d.Status {
		case "", apiclient.NewsDraft, apiclient.NewsPublished, apiclient.NewsArchived:
		default:
			return apperror.NewValidation("Status berita tidak dikenal.")
		}
	case KindHeroSlider:
		if d.Title == "" {
			return apperror.NewValidation("Judul slide wajib diisi.")
		}
	case KindOfficial:
		if d.Name == "" || d.Position == "" {
			return apperror.NewValidation("Nama dan jabatan aparatur wajib diisi.")
		}
	}
	if d.DisplayOrder < 0 {
		return apperror.NewValidation("Urutan tampil tidak boleh negatif.")
	}
	return nil
}

// NamingFields are the extra multipart fields of the naming-aware endpoint.
func NamingFields(k Kind, d Details) map[string]string {
	if !k.NamingAware() {
		return nil
	}
	fields := map[string]string{"upload_type": string(k)}
	switch k {
	case KindNews, KindHeroSlider:
		fields["title"] = d.Title
	case KindOfficial:
		fields["name"] = d.Name
		fields["position"] = d.Position
	}
	return fields
}
