package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/middleware"
	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

type publicCatalogMock struct {
	hit       bool
	lastQuery dto.PublicCatalogQuery
}

func (m *publicCatalogMock) ListPublic(ctx context.Context, query dto.PublicCatalogQuery) ([]models.PublicCatalogEntry, *models.Pagination, bool, error) {
	m.lastQuery = query
	return []models.PublicCatalogEntry{{ID: "C1", Slug: "kemiskinan"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, m.hit, nil
}

func (m *publicCatalogMock) GetPublic(ctx context.Context, slug string) (*models.PublicCatalogEntry, bool, error) {
	if slug != "kemiskinan" {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "dataset not found")
	}
	return &models.PublicCatalogEntry{ID: "C1", Slug: slug, ViewCount: 12, DownloadCount: 3}, m.hit, nil
}

type trackerMock struct {
	kinds []models.TelemetryKind
	ip    string
}

func (m *trackerMock) Track(ctx context.Context, slug string, kind models.TelemetryKind, clientIP, userAgent string) error {
	if slug != "kemiskinan" {
		return appErrors.Clone(appErrors.ErrNotFound, "dataset not found")
	}
	m.kinds = append(m.kinds, kind)
	m.ip = clientIP
	return nil
}

func newPublicRouter(catalog *publicCatalogMock, tracker *trackerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPublicCatalogHandler(catalog, tracker)
	router := gin.New()
	router.Use(middleware.WithResponseMeta())
	router.GET("/public/datasets", h.List)
	router.GET("/public/datasets/:slug", h.Get)
	router.POST("/public/datasets/:slug/views", h.RecordView)
	router.POST("/public/datasets/:slug/downloads", h.RecordDownload)
	return router
}

func TestPublicCatalogList(t *testing.T) {
	catalog := &publicCatalogMock{hit: true}
	router := newPublicRouter(catalog, &trackerMock{})

	rec := doJSON(router, http.MethodGet, "/public/datasets?q=miskin&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), `"cache_hit":true`)
	assert.Equal(t, "miskin", catalog.lastQuery.Search)
	assert.Equal(t, 2, catalog.lastQuery.Page)
}

func TestPublicCatalogGet(t *testing.T) {
	router := newPublicRouter(&publicCatalogMock{}, &trackerMock{})

	rec := doJSON(router, http.MethodGet, "/public/datasets/kemiskinan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"view_count":12`)
	assert.Contains(t, rec.Body.String(), `"cache_hit":false`)

	rec = doJSON(router, http.MethodGet, "/public/datasets/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPublicCatalogTelemetry(t *testing.T) {
	tracker := &trackerMock{}
	router := newPublicRouter(&publicCatalogMock{}, tracker)

	req := httptest.NewRequest(http.MethodPost, "/public/datasets/kemiskinan/downloads", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doJSON(router, http.MethodPost, "/public/datasets/kemiskinan/views", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []models.TelemetryKind{models.TelemetryDownload, models.TelemetryView}, tracker.kinds)

	rec = doJSON(router, http.MethodPost, "/public/datasets/unknown/views", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
