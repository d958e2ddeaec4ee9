package dto

// ReviewDecision is the outcome of a publication review.
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)

// ReviewCatalogEntryRequest approves or rejects a pending catalog entry.
type ReviewCatalogEntryRequest struct {
	Decision ReviewDecision `json:"decision" validate:"required,oneof=approve reject"`
	Note     *string        `json:"note" validate:"omitempty,max=2000"`
}

// PublicCatalogQuery holds public listing filters.
type PublicCatalogQuery struct {
	Search         string `form:"q"`
	OrganizationID string `form:"organization_id"`
	Page           int    `form:"page"`
	PageSize       int    `form:"page_size"`
}

// OrganizationQuery holds organization listing filters.
type OrganizationQuery struct {
	ParentID string `form:"parent_id"`
	RootOnly bool   `form:"root_only"`
	Type     string `form:"type"`
}
