package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
	"github.com/noah-isme/satudata-api/pkg/response"
)

type organizationReader interface {
	Tree(ctx context.Context, query dto.OrganizationQuery) ([]models.OrganizationNode, error)
	Get(ctx context.Context, id string) (*models.Organization, error)
}

// OrganizationHandler exposes the read-only organization directory.
type OrganizationHandler struct {
	service organizationReader
}

// NewOrganizationHandler builds the handler.
func NewOrganizationHandler(service organizationReader) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// List godoc
// @Summary List organizations as a hierarchy
// @Tags Organizations
// @Produce json
// @Param parent_id query string false "Only children of this organization"
// @Param root_only query bool false "Only top-level organizations"
// @Param type query string false "Organization type"
// @Success 200 {object} response.Envelope
// @Router /organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	var query dto.OrganizationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	nodes, err := h.service.Tree(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nodes, nil)
}

// Get godoc
// @Summary Get organization
// @Tags Organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	org, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}
