// Package settings caches the site-wide configuration published by the
// village API and lets admins edit it. Public pages read a grouped snapshot
// through Cache; the admin form works on the typed key schema in schema.go.
package settings

import "time"

// Group is a settings group as stored upstream.
type Group string

const (
	GroupGeneral    Group = "general"
	GroupProfile    Group = "profile"
	GroupGovernment Group = "government"
	GroupSocial     Group = "social"
)

// --- Setting Key Constants ---

const (
	KeySiteName        = "site_name"
	KeySiteDescription = "site_description"
	KeySiteLogo        = "site_logo"
	KeyContactEmail    = "contact_email"
	KeyContactPhone    = "contact_phone"
	KeyContactWhatsApp = "contact_whatsapp"
	KeyContactAddress  = "contact_address"
	KeyMapEmbedURL     = "map_embed_url"
	KeyGoogleMapsLink  = "google_maps_link"
	KeyDistrict        = "district"
	KeyRegency         = "regency"

	KeyVillageName       = "village_name"
	KeyVillageHead       = "village_head"
	KeyVillageVision     = "village_vision"
	KeyVillageMission    = "village_mission"
	KeyVillageHistory    = "village_history"
	KeyVillageArea       = "village_area"
	KeyVillagePopulation = "village_population"
	KeyVillageAddress    = "village_address"
	KeyVillageDistrict   = "village_district"
	KeyVillageRegency    = "village_regency"
	KeyVillageProvince   = "village_province"
	KeyVillagePostalCode = "village_postal_code"

	KeyOrgStructureImage = "organizational_structure_image"

	KeyFacebookURL  = "facebook_url"
	KeyInstagramURL = "instagram_url"
	KeyTwitterURL   = "twitter_url"
	KeyYouTubeURL   = "youtube_url"
	KeyTikTokURL    = "tiktok_url"
)

// General holds the settings every public page needs.
type General struct {
	SiteName        string `json:"site_name"`
	SiteDescription string `json:"site_description"`
	SiteLogo        string `json:"site_logo"`
	ContactEmail    string `json:"contact_email"`
	ContactPhone    string `json:"contact_phone"`
	ContactWhatsApp string `json:"contact_whatsapp"`
	ContactAddress  string `json:"contact_address"`
	MapEmbedURL     string `json:"map_embed_url"`
	GoogleMapsLink  string `json:"google_maps_link"`
	District        string `json:"district"`
	Regency         string `json:"regency"`
}

// Social holds optional social profile links.
type Social struct {
	FacebookURL  string `json:"facebook_url,omitempty"`
	InstagramURL string `json:"instagram_url,omitempty"`
	TwitterURL   string `json:"twitter_url,omitempty"`
	YouTubeURL   string `json:"youtube_url,omitempty"`
	TikTokURL    string `json:"tiktok_url,omitempty"`
}

// Government holds government-section media.
type Government struct {
	OrganizationalStructureImage string `json:"organizational_structure_image,omitempty"`
}

// Snapshot is the cached, grouped view of the public settings. A snapshot
// is only usable while Version matches the expected version and it is
// younger than the staleness window.
type Snapshot struct {
	General    General    `json:"general"`
	Social     Social     `json:"social"`
	Government Government `json:"government"`
	Version    string     `json:"version"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

// Default values used when the API is unreachable and nothing is cached.
const (
	DefaultSiteName        = "Website Desa"
	DefaultSiteDescription = "Website resmi desa"

	// transformedSiteDescription fills a blank description in a fetched
	// snapshot.
	transformedSiteDescription = "Website resmi pemerintah desa"
)

// DefaultSnapshot is the placeholder snapshot of last resort. It carries
// no FetchedAt so it is never mistaken for fresh data.
func DefaultSnapshot(version string) *Snapshot {
	return &Snapshot{
		General: General{
			SiteName:        DefaultSiteName,
			SiteDescription: DefaultSiteDescription,
		},
		Version: version,
	}
}

// Transform groups the API's flat key/value map into a snapshot.
func Transform(flat map[string]string) Snapshot {
	get := func(key, def string) string {
		if v := flat[key]; v != "" {
			return v
		}
		return def
	}

	return Snapshot{
		General: General{
			SiteName:        get(KeySiteName, DefaultSiteName),
			SiteDescription: get(KeySiteDescription, transformedSiteDescription),
			SiteLogo:        flat[KeySiteLogo],
			ContactEmail:    flat[KeyContactEmail],
			ContactPhone:    flat[KeyContactPhone],
			ContactWhatsApp: flat[KeyContactWhatsApp],
			ContactAddress:  flat[KeyContactAddress],
			MapEmbedURL:     flat[KeyMapEmbedURL],
			GoogleMapsLink:  flat[KeyGoogleMapsLink],
			District:        flat[KeyDistrict],
			Regency:         flat[KeyRegency],
		},
		Social: Social{
			FacebookURL:  flat[KeyFacebookURL],
			InstagramURL: flat[KeyInstagramURL],
			TwitterURL:   flat[KeyTwitterURL],
			YouTubeURL:   flat[KeyYouTubeURL],
			TikTokURL:    flat[KeyTikTokURL],
		},
		Government: Government{
			OrganizationalStructureImage: flat[KeyOrgStructureImage],
		},
	}
}

// Source says where a snapshot returned by the cache came from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
	SourceStale   Source = "stale"
	SourceDefault Source = "default"
)
