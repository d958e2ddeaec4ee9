package models

import "time"

// PriorityAuditAction names a lifecycle action. The set is open-ended; the
// constants below are the values this service writes.
type PriorityAuditAction string

const (
	PriorityAuditAssign   PriorityAuditAction = "assign"
	PriorityAuditClaim    PriorityAuditAction = "claim"
	PriorityAuditUpdate   PriorityAuditAction = "update"
	PriorityAuditUnassign PriorityAuditAction = "unassign"
	PriorityAuditReset    PriorityAuditAction = "reset"
	PriorityAuditConvert  PriorityAuditAction = "convert"
)

// PriorityAuditEntry is an immutable record of one lifecycle action.
// PriorityDatasetID stays set after the dataset is deleted and then dangles.
type PriorityAuditEntry struct {
	ID                string              `db:"id" json:"id"`
	PriorityDatasetID *string             `db:"priority_dataset_id" json:"priority_dataset_id,omitempty"`
	Action            PriorityAuditAction `db:"action" json:"action"`
	ActorID           string              `db:"actor_id" json:"actor_id"`
	OrganizationID    *string             `db:"organization_id" json:"organization_id,omitempty"`
	Notes             *string             `db:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
}

// PriorityAuditFilter narrows audit reads. Results are always newest first.
type PriorityAuditFilter struct {
	PriorityDatasetID string
	Limit             int
	Offset            int
}
