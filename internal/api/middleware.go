package api

import (
	"courier-dispatch-service/internal/api/dto"
	"courier-dispatch-service/internal/platform/obs"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const requestIDHeader = "X-Request-ID"

// requestID propagates the caller's X-Request-ID, or a new uuid, into the
// request context and the response headers.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(obs.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// accessLog logs end-to-end request duration and response size.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := obs.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.RequestURI(),
			"status": c.Writer.Status(),
			"bytes":  max(c.Writer.Size(), 0),
			"dur_ms": time.Since(start).Milliseconds(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("request")
			return
		}
		entry.Info("request")
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		obs.FromContext(c.Request.Context()).WithField("panic", recovered).Error("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	})
}

// rateLimiter limits requests per client IP. rateStr uses the limiter
// notation, e.g. "30-M". With a redis client the counters are shared
// between server instances.
func rateLimiter(rateStr, routeID string, client *redis.Client) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, fmt.Errorf("rate limiter %s: %w", routeID, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   "rate_limiter:" + routeID,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("rate limiter %s: redis store: %w", routeID, err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          "rate_limiter:" + routeID,
			CleanUpInterval: rate.Period,
		})
	}

	return mgin.NewMiddleware(limiter.New(store, rate)), nil
}

// unavailable answers for routes whose backing service is not configured.
func unavailable(what string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: what + " is not configured"})
	}
}
