// Package audit records admin activity in the portal: upload outcomes and
// settings saves. Entries are persisted to the activity_log table and
// listed on the admin activity page so admins can see who uploaded what,
// and spot files that reached the API without their owning record.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb".

const (
	// ActionUploadSucceeded is logged when a file was uploaded and its
	// owning record was created or updated.
	ActionUploadSucceeded = "upload.succeeded"

	// ActionUploadFailed is logged when the transport itself failed.
	ActionUploadFailed = "upload.failed"

	// ActionUploadOrphaned is logged when the file reached the API but the
	// owning record was not created. The stored URL is kept in Details.
	ActionUploadOrphaned = "upload.orphaned"

	// ActionSettingsUpdated is logged after a successful settings save.
	ActionSettingsUpdated = "settings.updated"
)

// Entry represents a single recorded action in the activity log. Details
// holds action-specific metadata (upload URL, changed keys).
type Entry struct {
	ID        int64          `json:"id"`
	UserID    uint64         `json:"userId"`
	Username  string         `json:"username"`
	Role      string         `json:"role"`
	Action    string         `json:"action"`
	Kind      string         `json:"kind,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Stats is the activity page header.
type Stats struct {
	TotalEntries int `json:"totalEntries"`

	// Orphans counts uploads whose owning record was never created.
	Orphans int `json:"orphans"`

	// LastActivityAt is nil when the log is empty.
	LastActivityAt *time.Time `json:"lastActivityAt,omitempty"`

	// ActiveUsers is the number of distinct users in the last 30 days.
	ActiveUsers int `json:"activeUsers"`
}

// Filter narrows the activity feed. Empty fields match everything.
type Filter struct {
	Action string
	UserID uint64
}
