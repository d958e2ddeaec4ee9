package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/service"
)

func TestResponseMetaAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	var meta map[string]interface{}

	router := gin.New()
	router.Use(Metrics(metrics), WithResponseMeta())
	router.GET("/public/datasets/:slug", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/public/datasets/kemiskinan", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, "processing_time_ms")

	serve(router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
