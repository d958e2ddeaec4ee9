package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/middleware"
	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
	"github.com/noah-isme/satudata-api/pkg/response"
)

type publicCatalogReader interface {
	ListPublic(ctx context.Context, query dto.PublicCatalogQuery) ([]models.PublicCatalogEntry, *models.Pagination, bool, error)
	GetPublic(ctx context.Context, slug string) (*models.PublicCatalogEntry, bool, error)
}

type telemetryTracker interface {
	Track(ctx context.Context, slug string, kind models.TelemetryKind, clientIP, userAgent string) error
}

// PublicCatalogHandler serves anonymous catalog reads and telemetry beacons.
type PublicCatalogHandler struct {
	catalog   publicCatalogReader
	telemetry telemetryTracker
}

// NewPublicCatalogHandler builds the handler.
func NewPublicCatalogHandler(catalog publicCatalogReader, telemetry telemetryTracker) *PublicCatalogHandler {
	return &PublicCatalogHandler{catalog: catalog, telemetry: telemetry}
}

// List godoc
// @Summary Search published datasets
// @Tags Public
// @Produce json
// @Param q query string false "Search text"
// @Param organization_id query string false "Publisher organization"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Param X-API-Key header string false "API key for the higher quota"
// @Success 200 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /public/datasets [get]
func (h *PublicCatalogHandler) List(c *gin.Context) {
	var query dto.PublicCatalogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	items, pagination, hit, err := h.catalog.ListPublic(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.Public(c, items, pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get a published dataset with view and download counters
// @Tags Public
// @Produce json
// @Param slug path string true "Dataset slug"
// @Param X-API-Key header string false "API key for the higher quota"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /public/datasets/{slug} [get]
func (h *PublicCatalogHandler) Get(c *gin.Context) {
	entry, hit, err := h.catalog.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.Public(c, entry, nil, middleware.ExtractMeta(c))
}

// RecordView godoc
// @Summary Record a dataset page view
// @Tags Public
// @Param slug path string true "Dataset slug"
// @Success 202
// @Failure 404 {object} response.Envelope
// @Router /public/datasets/{slug}/views [post]
func (h *PublicCatalogHandler) RecordView(c *gin.Context) {
	h.track(c, models.TelemetryView)
}

// RecordDownload godoc
// @Summary Record a dataset download
// @Tags Public
// @Param slug path string true "Dataset slug"
// @Success 202
// @Failure 404 {object} response.Envelope
// @Router /public/datasets/{slug}/downloads [post]
func (h *PublicCatalogHandler) RecordDownload(c *gin.Context) {
	h.track(c, models.TelemetryDownload)
}

func (h *PublicCatalogHandler) track(c *gin.Context, kind models.TelemetryKind) {
	if err := h.telemetry.Track(c.Request.Context(), c.Param("slug"), kind, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c)
}
