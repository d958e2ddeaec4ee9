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

type catalogReviewService interface {
	Get(ctx context.Context, id string) (*models.CatalogEntry, error)
	Submit(ctx context.Context, actor models.Actor, id string) (*models.CatalogEntry, error)
	Review(ctx context.Context, actor models.Actor, id string, req dto.ReviewCatalogEntryRequest) (*models.CatalogEntry, error)
}

// CatalogHandler exposes the publication workflow to back-office users.
type CatalogHandler struct {
	service catalogReviewService
}

// NewCatalogHandler builds the handler.
func NewCatalogHandler(service catalogReviewService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// Get godoc
// @Summary Get catalog entry
// @Tags Catalog
// @Produce json
// @Param id path string true "Catalog entry ID"
// @Success 200 {object} response.Envelope
// @Router /catalog/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Submit godoc
// @Summary Submit a draft for review
// @Tags Catalog
// @Produce json
// @Param id path string true "Catalog entry ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /catalog/{id}/submit [post]
func (h *CatalogHandler) Submit(c *gin.Context) {
	entry, err := h.service.Submit(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Review godoc
// @Summary Approve or reject a pending entry
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Catalog entry ID"
// @Param payload body dto.ReviewCatalogEntryRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /catalog/{id}/review [post]
func (h *CatalogHandler) Review(c *gin.Context) {
	var req dto.ReviewCatalogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	entry, err := h.service.Review(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
