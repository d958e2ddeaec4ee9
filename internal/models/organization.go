package models

import "time"

// Organization is a government body that proposes or produces datasets.
// Only two levels are used: roots and their direct children.
type Organization struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ShortName string    `db:"short_name" json:"short_name"`
	Type      string    `db:"type" json:"type"`
	ParentID  *string   `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrganizationNode is an organization with its children attached.
type OrganizationNode struct {
	Organization
	Children []Organization `json:"children,omitempty"`
}

// OrganizationFilter constrains organization listings.
type OrganizationFilter struct {
	ParentID string
	RootOnly bool
	Type     string
}
