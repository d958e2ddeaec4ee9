package middleware

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/service"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
	"github.com/noah-isme/satudata-api/pkg/response"
)

// APIKeyHeader carries the optional public API key.
const APIKeyHeader = "X-API-Key"

// ContextAPIKey holds the verified *models.APIKey for the request.
const ContextAPIKey = "apiKey"

// APIKeyVerifier checks raw API keys.
type APIKeyVerifier interface {
	Verify(ctx context.Context, raw string) (*models.APIKey, error)
}

// RateLimitChecker counts a public request. Exhausted reads the anonymous
// quota of an IP without counting.
type RateLimitChecker interface {
	Check(ctx context.Context, clientIP, apiKey string) service.RateLimitDecision
	Exhausted(ctx context.Context, clientIP string) (service.RateLimitDecision, bool)
}

// PublicRateLimit verifies X-API-Key when sent, then applies the per-identity
// quota and reports it in X-RateLimit-* headers. A key that fails verification
// is charged to the client IP, and once that quota is spent keys are no longer
// verified for the IP. A nil checker disables limiting.
func PublicRateLimit(keys APIKeyVerifier, limiter RateLimitChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		raw := strings.TrimSpace(c.GetHeader(APIKeyHeader))
		if raw != "" && keys != nil {
			if limiter != nil {
				if decision, exhausted := limiter.Exhausted(ctx, c.ClientIP()); exhausted {
					rejectRateLimited(c, decision)
					return
				}
			}
			key, err := keys.Verify(ctx, raw)
			if err != nil {
				if limiter != nil {
					decision := limiter.Check(ctx, c.ClientIP(), "")
					setRateLimitHeaders(c, decision)
					if !decision.Allowed {
						rejectRateLimited(c, decision)
						return
					}
				}
				response.Error(c, err)
				c.Abort()
				return
			}
			c.Set(ContextAPIKey, key)
		}
		if limiter == nil {
			c.Next()
			return
		}

		decision := limiter.Check(ctx, c.ClientIP(), raw)
		setRateLimitHeaders(c, decision)
		if !decision.Allowed {
			rejectRateLimited(c, decision)
			return
		}
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, decision service.RateLimitDecision) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	c.Header("X-RateLimit-Reset", resetSeconds(decision))
}

func rejectRateLimited(c *gin.Context, decision service.RateLimitDecision) {
	setRateLimitHeaders(c, decision)
	c.Header("Retry-After", resetSeconds(decision))
	response.Error(c, appErrors.ErrRateLimited)
	c.Abort()
}

func resetSeconds(decision service.RateLimitDecision) string {
	return strconv.Itoa(int(math.Ceil(decision.ResetAfter.Seconds())))
}
