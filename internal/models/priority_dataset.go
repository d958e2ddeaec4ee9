package models

import "time"

// PriorityStatus captures the assignment lifecycle of a priority dataset.
type PriorityStatus string

const (
	PriorityStatusUnassigned PriorityStatus = "unassigned"
	PriorityStatusClaimed    PriorityStatus = "claimed"
	PriorityStatusAssigned   PriorityStatus = "assigned"
)

// Valid reports whether the status is one of the declared values.
func (s PriorityStatus) Valid() bool {
	switch s {
	case PriorityStatusUnassigned, PriorityStatusClaimed, PriorityStatusAssigned:
		return true
	}
	return false
}

// PriorityDataset is a proposed dataset tracked before it reaches the public catalog.
type PriorityDataset struct {
	ID                    string         `db:"id" json:"id"`
	Code                  string         `db:"code" json:"code"`
	Name                  string         `db:"name" json:"name"`
	OperationalDefinition string         `db:"operational_definition" json:"operational_definition"`
	DataType              string         `db:"data_type" json:"data_type"`
	ProposingAgency       string         `db:"proposing_agency" json:"proposing_agency"`
	ProducingAgency       string         `db:"producing_agency" json:"producing_agency"`
	SourceReference       string         `db:"source_reference" json:"source_reference"`
	UpdateSchedule        string         `db:"update_schedule" json:"update_schedule"`
	Status                PriorityStatus `db:"status" json:"status"`
	AssignedOrg           *string        `db:"assigned_org" json:"assigned_org,omitempty"`
	AssignedBy            *string        `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedAt            *time.Time     `db:"assigned_at" json:"assigned_at,omitempty"`
	ClaimedBy             *string        `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt             *time.Time     `db:"claimed_at" json:"claimed_at,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`

	// CatalogEntryID is joined in on reads; non-nil means the dataset has been converted.
	CatalogEntryID *string `db:"catalog_entry_id" json:"catalog_entry_id,omitempty"`
}

// Converted reports whether a catalog entry is linked to this dataset.
func (p *PriorityDataset) Converted() bool {
	return p != nil && p.CatalogEntryID != nil
}

// Consistent checks the status/assignment invariants: unassigned rows carry no
// organization or actor fields, and assigned/claimed rows carry exactly the
// matching actor pair.
func (p *PriorityDataset) Consistent() bool {
	if p == nil {
		return false
	}
	assignedPair := p.AssignedBy != nil && p.AssignedAt != nil
	assignedNone := p.AssignedBy == nil && p.AssignedAt == nil
	claimedPair := p.ClaimedBy != nil && p.ClaimedAt != nil
	claimedNone := p.ClaimedBy == nil && p.ClaimedAt == nil

	switch p.Status {
	case PriorityStatusUnassigned:
		return p.AssignedOrg == nil && assignedNone && claimedNone
	case PriorityStatusAssigned:
		return p.AssignedOrg != nil && assignedPair && claimedNone
	case PriorityStatusClaimed:
		return p.AssignedOrg != nil && claimedPair && assignedNone
	}
	return false
}

// LastActor returns whoever moved the dataset out of unassigned, or the
// system actor when nobody did.
func (p *PriorityDataset) LastActor() string {
	if p == nil {
		return SystemActorID
	}
	if p.AssignedBy != nil && *p.AssignedBy != "" {
		return *p.AssignedBy
	}
	if p.ClaimedBy != nil && *p.ClaimedBy != "" {
		return *p.ClaimedBy
	}
	return SystemActorID
}

// PriorityDatasetFilter constrains listing queries.
type PriorityDatasetFilter struct {
	Status      PriorityStatus
	AssignedOrg string
	Search      string
	Page        int
	PageSize    int
}

// PriorityDatasetPatch carries the editable proposal fields. Nil means unchanged.
type PriorityDatasetPatch struct {
	Code                  *string
	Name                  *string
	OperationalDefinition *string
	DataType              *string
	ProposingAgency       *string
	ProducingAgency       *string
	SourceReference       *string
	UpdateSchedule        *string
}

// Empty reports whether the patch would change nothing.
func (p PriorityDatasetPatch) Empty() bool {
	return p.Code == nil && p.Name == nil && p.OperationalDefinition == nil && p.DataType == nil &&
		p.ProposingAgency == nil && p.ProducingAgency == nil && p.SourceReference == nil && p.UpdateSchedule == nil
}
