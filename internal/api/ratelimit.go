package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// rateLimitMiddleware allows limit requests per client IP per window. When
// the limiter itself fails the request is let through.
func rateLimitMiddleware(limiter RateLimiter, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := limiter.Allow(c.Request.Context(), c.ClientIP(), limit, window)
		if err != nil {
			logger.Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("RateLimit-Limit", strconv.Itoa(limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))

		if !res.Allowed {
			util.RateLimitedTotal.Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "RateLimitError",
				"message":    "Too many requests, please try again later",
				"statusCode": http.StatusTooManyRequests,
			})
			return
		}

		c.Next()
	}
}
