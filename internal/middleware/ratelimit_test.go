package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/service"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

type keyStub struct {
	valid string
	calls *int
}

func (k keyStub) Verify(_ context.Context, raw string) (*models.APIKey, error) {
	if k.calls != nil {
		*k.calls++
	}
	if raw != k.valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key")
	}
	return &models.APIKey{ID: "K1"}, nil
}

type counterStub struct {
	counts map[string]int64
}

func (s *counterStub) Increment(_ context.Context, identity string, window time.Duration) (int64, time.Duration, error) {
	s.counts[identity]++
	return s.counts[identity], 42 * time.Second, nil
}

func (s *counterStub) Current(_ context.Context, identity string) (int64, time.Duration, error) {
	return s.counts[identity], 42 * time.Second, nil
}

func newRateLimitedRouter(counter *counterStub) *gin.Engine {
	return newRateLimitedRouterWithKeys(counter, keyStub{valid: "sd_live_secret"})
}

func newRateLimitedRouterWithKeys(counter *counterStub, keys keyStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := service.NewRateLimitService(service.NewRedisWindowLimiter(counter, time.Minute), service.RateLimitPolicy{AnonymousLimit: 2, APIKeyLimit: 5}, nil, nil)
	router := gin.New()
	router.Use(PublicRateLimit(keys, limiter))
	router.GET("/public/datasets", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestPublicRateLimitAnonymous(t *testing.T) {
	router := newRateLimitedRouter(&counterStub{counts: map[string]int64{}})

	for i := 0; i < 2; i++ {
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/public/datasets", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/public/datasets", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "42", rec.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestPublicRateLimitAPIKey(t *testing.T) {
	router := newRateLimitedRouter(&counterStub{counts: map[string]int64{}})

	req := httptest.NewRequest(http.MethodGet, "/public/datasets", nil)
	req.Header.Set(APIKeyHeader, "sd_live_secret")
	rec := serve(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	req = httptest.NewRequest(http.MethodGet, "/public/datasets", nil)
	req.Header.Set(APIKeyHeader, "sd_live_forged")
	rec = serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestPublicRateLimitChargesInvalidKeysToClientIP(t *testing.T) {
	counter := &counterStub{counts: map[string]int64{}}
	calls := 0
	router := newRateLimitedRouterWithKeys(counter, keyStub{valid: "sd_live_secret", calls: &calls})

	codes := map[int]int{}
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/public/datasets", nil)
		req.Header.Set(APIKeyHeader, "sd_live_garbage")
		codes[serve(router, req).Code]++
	}
	assert.Equal(t, 2, codes[http.StatusUnauthorized])
	assert.Equal(t, 48, codes[http.StatusTooManyRequests])
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), counter.counts["ip:192.0.2.1"])

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/public/datasets", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
