package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleProducer   UserRole = "PRODUCER"
	RoleViewer     UserRole = "VIEWER"
)

// IsOperator reports whether the role may push work onto organizations.
func (r UserRole) IsOperator() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// SystemActorID attributes changes that have no human actor on record.
const SystemActorID = "system"

// Actor is the resolved caller identity handed to every mutating operation.
// Authentication happens upstream; this only carries what was verified.
type Actor struct {
	UserID         string
	Role           UserRole
	OrganizationID *string
}

// BelongsTo reports whether the actor is bound to the given organization.
func (a Actor) BelongsTo(orgID string) bool {
	return a.OrganizationID != nil && *a.OrganizationID == orgID
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NormalizePage clamps page and size into sane bounds.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
