package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/pipeflow/deal-todo-api/internal/config"
	"github.com/pipeflow/deal-todo-api/pkg/utils"
)

// RateLimitMiddleware creates a rate limiting middleware. When a Redis client
// is available the counters are shared across instances; otherwise each
// instance keeps its own in-memory window.
func RateLimitMiddleware(cfg *config.Config, redisClient *goredis.Client) gin.HandlerFunc {
	if !cfg.RateLimit.Enabled {
		return gin.HandlerFunc(func(c *gin.Context) {
			c.Next()
		})
	}

	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  int64(cfg.RateLimit.RequestsPerMinute),
	}

	var store limiter.Store
	if redisClient != nil {
		redisStore, err := sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "ratelimit",
		})
		if err != nil {
			utils.GetLogger().Warn("redis rate limit store unavailable, using memory store", utils.LogFields{
				"error": err.Error(),
			})
			store = memory.NewStore()
		} else {
			store = redisStore
		}
	} else {
		store = memory.NewStore()
	}

	rateLimiter := limiter.New(store, rate)

	return ginlimiter.NewMiddleware(rateLimiter)
}
