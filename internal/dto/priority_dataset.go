package dto

import "github.com/noah-isme/satudata-api/internal/models"

// CreatePriorityDatasetRequest is the proposal payload for a new priority dataset.
type CreatePriorityDatasetRequest struct {
	Code                  string `json:"code" validate:"omitempty,max=64"`
	Name                  string `json:"name" validate:"required,max=255"`
	OperationalDefinition string `json:"operational_definition"`
	DataType              string `json:"data_type" validate:"omitempty,max=64"`
	ProposingAgency       string `json:"proposing_agency" validate:"omitempty,max=255"`
	ProducingAgency       string `json:"producing_agency" validate:"omitempty,max=255"`
	SourceReference       string `json:"source_reference" validate:"omitempty,max=255"`
	UpdateSchedule        string `json:"update_schedule" validate:"omitempty,max=64"`
}

// UpdatePriorityDatasetRequest carries the editable fields. Omitted fields are unchanged.
type UpdatePriorityDatasetRequest struct {
	Code                  *string `json:"code" validate:"omitempty,max=64"`
	Name                  *string `json:"name" validate:"omitempty,min=1,max=255"`
	OperationalDefinition *string `json:"operational_definition"`
	DataType              *string `json:"data_type" validate:"omitempty,max=64"`
	ProposingAgency       *string `json:"proposing_agency" validate:"omitempty,max=255"`
	ProducingAgency       *string `json:"producing_agency" validate:"omitempty,max=255"`
	SourceReference       *string `json:"source_reference" validate:"omitempty,max=255"`
	UpdateSchedule        *string `json:"update_schedule" validate:"omitempty,max=64"`
}

// Patch converts the request into a repository patch.
func (r UpdatePriorityDatasetRequest) Patch() models.PriorityDatasetPatch {
	return models.PriorityDatasetPatch{
		Code:                  r.Code,
		Name:                  r.Name,
		OperationalDefinition: r.OperationalDefinition,
		DataType:              r.DataType,
		ProposingAgency:       r.ProposingAgency,
		ProducingAgency:       r.ProducingAgency,
		SourceReference:       r.SourceReference,
		UpdateSchedule:        r.UpdateSchedule,
	}
}

// AssignPriorityDatasetRequest targets an organization for assign or claim.
// Producers may omit it to claim for their own organization.
type AssignPriorityDatasetRequest struct {
	OrganizationID string `json:"organization_id" validate:"omitempty,uuid"`
}

// ConvertPriorityDatasetRequest optionally overrides the publisher organization.
type ConvertPriorityDatasetRequest struct {
	OrganizationID *string `json:"organization_id" validate:"omitempty,uuid"`
}

// PriorityDatasetQuery holds list filters bound from the query string.
type PriorityDatasetQuery struct {
	Status      string `form:"status" validate:"omitempty,oneof=unassigned claimed assigned"`
	AssignedOrg string `form:"assigned_org" validate:"omitempty,uuid"`
	Search      string `form:"search"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

// PriorityDatasetResponse is a priority dataset with its derived conversion state.
type PriorityDatasetResponse struct {
	models.PriorityDataset
	Converted bool `json:"converted"`
}

// NewPriorityDatasetResponse decorates a dataset for output.
func NewPriorityDatasetResponse(dataset *models.PriorityDataset) *PriorityDatasetResponse {
	if dataset == nil {
		return nil
	}
	return &PriorityDatasetResponse{PriorityDataset: *dataset, Converted: dataset.Converted()}
}

// ConvertPriorityDatasetResponse reports the catalog entry produced by a conversion.
type ConvertPriorityDatasetResponse struct {
	PriorityDataset *PriorityDatasetResponse `json:"priority_dataset"`
	CatalogEntry    *models.CatalogEntry     `json:"catalog_entry"`
}
