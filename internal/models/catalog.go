package models

import (
	"time"

	"github.com/lib/pq"
)

// PublicationStatus is the review state of a catalog entry.
type PublicationStatus string

const (
	PublicationDraft         PublicationStatus = "DRAFT"
	PublicationPendingReview PublicationStatus = "PENDING_REVIEW"
	PublicationPublished     PublicationStatus = "PUBLISHED"
	PublicationRejected      PublicationStatus = "REJECTED"
)

// Classification is the visibility tag of a catalog entry.
type Classification string

const (
	ClassificationPublic     Classification = "PUBLIC"
	ClassificationInternal   Classification = "INTERNAL"
	ClassificationRestricted Classification = "RESTRICTED"
)

// CatalogEntry is a dataset record in the public catalog.
type CatalogEntry struct {
	ID                string            `db:"id" json:"id"`
	Slug              string            `db:"slug" json:"slug"`
	Title             string            `db:"title" json:"title"`
	Abstract          string            `db:"abstract" json:"abstract"`
	Description       string            `db:"description" json:"description"`
	Classification    Classification    `db:"classification" json:"classification"`
	PublicationStatus PublicationStatus `db:"publication_status" json:"publication_status"`
	PublisherOrgID    *string           `db:"publisher_org_id" json:"publisher_org_id,omitempty"`
	SourceName        string            `db:"source_name" json:"source_name"`
	IsPriority        bool              `db:"is_priority" json:"is_priority"`
	PriorityDatasetID *string           `db:"priority_dataset_id" json:"priority_dataset_id,omitempty"`
	Keywords          pq.StringArray    `db:"keywords" json:"keywords"`
	Maintainers       []byte            `db:"maintainers" json:"-"`
	CustomFields      []byte            `db:"custom_fields" json:"-"`
	ReviewedBy        *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote        *string           `db:"review_note" json:"review_note,omitempty"`
	PublishedAt       *time.Time        `db:"published_at" json:"published_at,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
}

// CatalogMetadata is the subset of catalog fields synced from a priority dataset.
type CatalogMetadata struct {
	Title          string
	Abstract       string
	Description    string
	Classification Classification
	PublisherOrgID *string
	SourceName     string
}

// CatalogFilter constrains public catalog listings.
type CatalogFilter struct {
	Search         string
	PublisherOrgID string
	Page           int
	PageSize       int
}

// PublicCatalogEntry is the anonymous view of a published entry with telemetry counters.
type PublicCatalogEntry struct {
	ID               string         `db:"id" json:"id"`
	Slug             string         `db:"slug" json:"slug"`
	Title            string         `db:"title" json:"title"`
	Abstract         string         `db:"abstract" json:"abstract"`
	Description      string         `db:"description" json:"description,omitempty"`
	SourceName       string         `db:"source_name" json:"source_name"`
	PublisherOrgID   *string        `db:"publisher_org_id" json:"publisher_org_id,omitempty"`
	PublisherOrgName *string        `db:"publisher_org_name" json:"publisher_org_name,omitempty"`
	IsPriority       bool           `db:"is_priority" json:"is_priority"`
	Keywords         pq.StringArray `db:"keywords" json:"keywords"`
	PublishedAt      *time.Time     `db:"published_at" json:"published_at,omitempty"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
	ViewCount        int64          `db:"view_count" json:"view_count"`
	DownloadCount    int64          `db:"download_count" json:"download_count"`
}
