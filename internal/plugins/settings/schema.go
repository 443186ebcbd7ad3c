package settings

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/siddesa/portal/internal/apiclient"
)

// Rule validates one setting value. Values arrive trimmed.
type Rule func(value string) error

// Field describes one recognised setting.
type Field struct {
	Key     string
	Group   Group
	Label   string
	Default string
	// Multiline renders a textarea instead of an input.
	Multiline bool
	Rule      Rule
}

// maxLen rejects values longer than n characters.
func maxLen(n int) Rule {
	return func(v string) error {
		if utf8.RuneCountInString(v) > n {
			return fmt.Errorf("must be at most %d characters", n)
		}
		return nil
	}
}

// httpURL accepts an empty value or an absolute http(s) URL.
func httpURL(v string) error {
	if v == "" {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

// mediaURL accepts an http(s) URL or a path returned by the upload endpoint.
func mediaURL(v string) error {
	if v == "" || strings.HasPrefix(v, "/uploads/") {
		return nil
	}
	return httpURL(v)
}

func email(v string) error {
	if v == "" {
		return nil
	}
	if _, err := mail.ParseAddress(v); err != nil {
		return fmt.Errorf("must be a valid email address")
	}
	return nil
}

// Schema lists every setting the portal knows about, in form order.
var Schema = []Field{
	{Key: KeySiteName, Group: GroupGeneral, Label: "Nama website", Default: "[Nama Desa]", Rule: maxLen(255)},
	{Key: KeySiteDescription, Group: GroupGeneral, Label: "Deskripsi website", Default: "[Deskripsi singkat tentang website desa]", Multiline: true},
	{Key: KeySiteLogo, Group: GroupGeneral, Label: "Logo", Rule: mediaURL},
	{Key: KeyContactEmail, Group: GroupGeneral, Label: "Email kontak", Rule: email},
	{Key: KeyContactPhone, Group: GroupGeneral, Label: "Telepon", Rule: maxLen(50)},
	{Key: KeyContactWhatsApp, Group: GroupGeneral, Label: "WhatsApp", Rule: maxLen(50)},
	{Key: KeyContactAddress, Group: GroupGeneral, Label: "Alamat kantor", Multiline: true},
	{Key: KeyMapEmbedURL, Group: GroupGeneral, Label: "URL embed peta", Rule: httpURL},
	{Key: KeyGoogleMapsLink, Group: GroupGeneral, Label: "Link Google Maps", Default: "https://maps.google.com", Rule: httpURL},
	{Key: KeyDistrict, Group: GroupGeneral, Label: "Kecamatan", Rule: maxLen(255)},
	{Key: KeyRegency, Group: GroupGeneral, Label: "Kabupaten", Rule: maxLen(255)},

	{Key: KeyVillageName, Group: GroupProfile, Label: "Nama desa", Default: "[Nama Desa]", Rule: maxLen(255)},
	{Key: KeyVillageHead, Group: GroupProfile, Label: "Kepala desa", Rule: maxLen(255)},
	{Key: KeyVillageVision, Group: GroupProfile, Label: "Visi", Multiline: true},
	{Key: KeyVillageMission, Group: GroupProfile, Label: "Misi", Multiline: true},
	{Key: KeyVillageHistory, Group: GroupProfile, Label: "Sejarah", Multiline: true},
	{Key: KeyVillageArea, Group: GroupProfile, Label: "Luas wilayah", Rule: maxLen(100)},
	{Key: KeyVillagePopulation, Group: GroupProfile, Label: "Jumlah penduduk", Rule: maxLen(100)},
	{Key: KeyVillageAddress, Group: GroupProfile, Label: "Alamat desa", Multiline: true},
	{Key: KeyVillageDistrict, Group: GroupProfile, Label: "Kecamatan", Rule: maxLen(255)},
	{Key: KeyVillageRegency, Group: GroupProfile, Label: "Kabupaten", Rule: maxLen(255)},
	{Key: KeyVillageProvince, Group: GroupProfile, Label: "Provinsi", Rule: maxLen(255)},
	{Key: KeyVillagePostalCode, Group: GroupProfile, Label: "Kode pos", Rule: maxLen(10)},

	{Key: KeyOrgStructureImage, Group: GroupGovernment, Label: "Gambar struktur organisasi", Rule: mediaURL},

	{Key: KeyFacebookURL, Group: GroupSocial, Label: "Facebook", Rule: httpURL},
	{Key: KeyInstagramURL, Group: GroupSocial, Label: "Instagram", Rule: httpURL},
	{Key: KeyTwitterURL, Group: GroupSocial, Label: "Twitter", Rule: httpURL},
	{Key: KeyYouTubeURL, Group: GroupSocial, Label: "YouTube", Rule: httpURL},
	{Key: KeyTikTokURL, Group: GroupSocial, Label: "TikTok", Rule: httpURL},
}

var schemaIndex = func() map[string]Field {
	idx := make(map[string]Field, len(Schema))
	for _, f := range Schema {
		idx[f.Key] = f
	}
	return idx
}()

// Lookup returns the schema field for key.
func Lookup(key string) (Field, bool) {
	f, ok := schemaIndex[key]
	return f, ok
}

// profileSync mirrors profile keys into their general counterparts so the
// header and footer follow the village profile.
var profileSync = map[string]string{
	KeyVillageName:     KeySiteName,
	KeyVillageDistrict: KeyDistrict,
	KeyVillageRegency:  KeyRegency,
	KeyVillageAddress:  KeyContactAddress,
}

// FieldErrors maps a setting key to a validation message.
type FieldErrors map[string]string

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for k, msg := range fe {
		parts = append(parts, k+": "+msg)
	}
	return "invalid settings: " + strings.Join(parts, "; ")
}

// BuildUpdates validates submitted values and turns them into upstream
// update rows. Unknown keys are ignored. Non-empty profile values are
// copied onto their general counterparts, overriding what was submitted
// for the general key.
func BuildUpdates(values map[string]string) ([]apiclient.SettingUpdate, FieldErrors) {
	errs := FieldErrors{}
	clean := make(map[string]string, len(values))

	for _, f := range Schema {
		raw, ok := values[f.Key]
		if !ok {
			continue
		}
		v := strings.TrimSpace(raw)
		if f.Rule != nil {
			if err := f.Rule(v); err != nil {
				errs[f.Key] = err.Error()
				continue
			}
		}
		clean[f.Key] = v
	}
	if len(errs) > 0 {
		return nil, errs
	}

	for profileKey, generalKey := range profileSync {
		v, ok := clean[profileKey]
		if !ok || v == "" {
			continue
		}
		clean[generalKey] = v
	}

	updates := make([]apiclient.SettingUpdate, 0, len(clean))
	for _, f := range Schema {
		v, ok := clean[f.Key]
		if !ok {
			continue
		}
		updates = append(updates, apiclient.SettingUpdate{Key: f.Key, Value: v, Group: string(f.Group)})
	}
	return updates, nil
}
