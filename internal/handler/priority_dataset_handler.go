package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/service"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
	"github.com/noah-isme/satudata-api/pkg/response"
)

type priorityRegistry interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreatePriorityDatasetRequest) (*models.PriorityDataset, error)
	Get(ctx context.Context, id string) (*models.PriorityDataset, error)
	List(ctx context.Context, query dto.PriorityDatasetQuery) ([]models.PriorityDataset, *models.Pagination, error)
	Assign(ctx context.Context, actor models.Actor, id, organizationID string) (*models.PriorityDataset, error)
	Claim(ctx context.Context, actor models.Actor, id, organizationID string) (*models.PriorityDataset, error)
	Convert(ctx context.Context, actor models.Actor, id string, organizationID *string) (*models.PriorityDataset, *models.CatalogEntry, error)
	Reset(ctx context.Context, actor models.Actor, id string) (*models.PriorityDataset, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdatePriorityDatasetRequest) (*models.PriorityDataset, error)
	Delete(ctx context.Context, actor models.Actor, id string) (*models.PriorityDataset, error)
}

type priorityAuditReader interface {
	List(ctx context.Context, filter models.PriorityAuditFilter) ([]models.PriorityAuditEntry, error)
}

type auditExporter interface {
	AuditLog(ctx context.Context, datasetID string, format service.ExportFormat) (*service.ExportResult, error)
}

var errNotEligible = appErrors.Clone(appErrors.ErrNotEligible, "priority dataset is not eligible for this operation")

// PriorityDatasetHandler exposes the priority dataset registry and its audit log.
type PriorityDatasetHandler struct {
	registry priorityRegistry
	audit    priorityAuditReader
	exporter auditExporter
}

// NewPriorityDatasetHandler builds the handler.
func NewPriorityDatasetHandler(registry priorityRegistry, audit priorityAuditReader, exporter auditExporter) *PriorityDatasetHandler {
	return &PriorityDatasetHandler{registry: registry, audit: audit, exporter: exporter}
}

// List godoc
// @Summary List priority datasets
// @Tags PriorityDatasets
// @Produce json
// @Param status query string false "unassigned, claimed or assigned"
// @Param assigned_org query string false "Assigned organization"
// @Param search query string false "Search code or name"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /priority-datasets [get]
func (h *PriorityDatasetHandler) List(c *gin.Context) {
	var query dto.PriorityDatasetQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.registry.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]*dto.PriorityDatasetResponse, len(items))
	for i := range items {
		out[i] = dto.NewPriorityDatasetResponse(&items[i])
	}
	response.JSON(c, http.StatusOK, out, pagination)
}

// Get godoc
// @Summary Get priority dataset
// @Tags PriorityDatasets
// @Produce json
// @Param id path string true "Priority dataset ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /priority-datasets/{id} [get]
func (h *PriorityDatasetHandler) Get(c *gin.Context) {
	dataset, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewPriorityDatasetResponse(dataset), nil)
}

// Create godoc
// @Summary Propose a priority dataset
// @Tags PriorityDatasets
// @Accept json
// @Produce json
// @Param payload body dto.CreatePriorityDatasetRequest true "Proposal"
// @Success 201 {object} response.Envelope
// @Router /priority-datasets [post]
func (h *PriorityDatasetHandler) Create(c *gin.Context) {
	var req dto.CreatePriorityDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid priority dataset payload"))
		return
	}
	dataset, err := h.registry.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewPriorityDatasetResponse(dataset))
}

// Update godoc
// @Summary Edit proposal fields
// @Tags PriorityDatasets
// @Accept json
// @Produce json
// @Param id path string true "Priority dataset ID"
// @Param payload body dto.UpdatePriorityDatasetRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /priority-datasets/{id} [patch]
func (h *PriorityDatasetHandler) Update(c *gin.Context) {
	var req dto.UpdatePriorityDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid priority dataset payload"))
		return
	}
	dataset, err := h.registry.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	h.respondTransition(c, dataset, err)
}

// Delete godoc
// @Summary Delete priority dataset
// @Tags PriorityDatasets
// @Produce json
// @Param id path string true "Priority dataset ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /priority-datasets/{id} [delete]
func (h *PriorityDatasetHandler) Delete(c *gin.Context) {
	dataset, err := h.registry.Delete(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if dataset == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "priority dataset not found"))
		return
	}
	response.JSON(c, http.StatusOK, dto.NewPriorityDatasetResponse(dataset), nil)
}

// Assign godoc
// @Summary Assign an unassigned dataset to an organization
// @Tags PriorityDatasets
// @Accept json
// @Produce json
// @Param id path string true "Priority dataset ID"
// @Param payload body dto.AssignPriorityDatasetRequest true "Target organization"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /priority-datasets/{id}/assign [post]
func (h *PriorityDatasetHandler) Assign(c *gin.Context) {
	req, ok := bindAssignment(c)
	if !ok {
		return
	}
	dataset, err := h.registry.Assign(c.Request.Context(), actorFromContext(c), c.Param("id"), req.OrganizationID)
	h.respondTransition(c, dataset, err)
}

// Claim godoc
// @Summary Claim an unassigned dataset for an organization
// @Tags PriorityDatasets
// @Accept json
// @Produce json
// @Param id path string true "Priority dataset ID"
// @Param payload body dto.AssignPriorityDatasetRequest false "Organization; producers default to their own"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /priority-datasets/{id}/claim [post]
func (h *PriorityDatasetHandler) Claim(c *gin.Context) {
	req, ok := bindAssignment(c)
	if !ok {
		return
	}
	dataset, err := h.registry.Claim(c.Request.Context(), actorFromContext(c), c.Param("id"), req.OrganizationID)
	h.respondTransition(c, dataset, err)
}

// Reset godoc
// @Summary Return a dataset to unassigned
// @Tags PriorityDatasets
// @Produce json
// @Param id path string true "Priority dataset ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /priority-datasets/{id}/reset [post]
func (h *PriorityDatasetHandler) Reset(c *gin.Context) {
	dataset, err := h.registry.Reset(c.Request.Context(), actorFromContext(c), c.Param("id"))
	h.respondTransition(c, dataset, err)
}

// Convert godoc
// @Summary Create or refresh the catalog entry of a dataset
// @Tags PriorityDatasets
// @Accept json
// @Produce json
// @Param id path string true "Priority dataset ID"
// @Param payload body dto.ConvertPriorityDatasetRequest false "Publisher override"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /priority-datasets/{id}/convert [post]
func (h *PriorityDatasetHandler) Convert(c *gin.Context) {
	var req dto.ConvertPriorityDatasetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid convert payload"))
			return
		}
	}
	dataset, entry, err := h.registry.Convert(c.Request.Context(), actorFromContext(c), c.Param("id"), req.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if dataset == nil {
		response.Error(c, errNotEligible)
		return
	}
	response.JSON(c, http.StatusOK, dto.ConvertPriorityDatasetResponse{
		PriorityDataset: dto.NewPriorityDatasetResponse(dataset),
		CatalogEntry:    entry,
	}, nil)
}

// AuditLog godoc
// @Summary List audit entries, newest first
// @Tags PriorityDatasets
// @Produce json
// @Param id path string false "Priority dataset ID"
// @Param limit query int false "Max entries"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /priority-datasets/audit [get]
// @Router /priority-datasets/{id}/audit [get]
func (h *PriorityDatasetHandler) AuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	entries, err := h.audit.List(c.Request.Context(), models.PriorityAuditFilter{
		PriorityDatasetID: c.Param("id"),
		Limit:             limit,
		Offset:            offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportAuditLog godoc
// @Summary Export the audit log
// @Tags PriorityDatasets
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Param priority_dataset_id query string false "Limit to one dataset"
// @Success 200 {file} file
// @Router /priority-datasets/audit/export [get]
func (h *PriorityDatasetHandler) ExportAuditLog(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.AuditLog(c.Request.Context(), c.Query("priority_dataset_id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

// respondTransition maps the registry contract onto HTTP: a nil dataset
// without an error means the row was not in a state the operation accepts.
func (h *PriorityDatasetHandler) respondTransition(c *gin.Context, dataset *models.PriorityDataset, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	if dataset == nil {
		response.Error(c, errNotEligible)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewPriorityDatasetResponse(dataset), nil)
}

func bindAssignment(c *gin.Context) (dto.AssignPriorityDatasetRequest, bool) {
	var req dto.AssignPriorityDatasetRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return req, false
	}
	return req, true
}
