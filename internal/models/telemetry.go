package models

import "time"

// TelemetryKind distinguishes the counters shown on public catalog pages.
type TelemetryKind string

const (
	TelemetryView     TelemetryKind = "view"
	TelemetryDownload TelemetryKind = "download"
)

// TelemetryEvent is a single recorded view or download.
type TelemetryEvent struct {
	ID             string        `db:"id" json:"id"`
	CatalogEntryID string        `db:"catalog_entry_id" json:"catalog_entry_id"`
	Kind           TelemetryKind `db:"kind" json:"kind"`
	ClientHash     string        `db:"client_hash" json:"-"`
	UserAgent      string        `db:"user_agent" json:"-"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// APIKey grants higher public API quotas. Only a bcrypt hash of the secret is stored.
type APIKey struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Prefix     string     `db:"key_prefix" json:"key_prefix"`
	Hash       string     `db:"key_hash" json:"-"`
	OwnerID    *string    `db:"owner_id" json:"owner_id,omitempty"`
	Active     bool       `db:"active" json:"active"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
