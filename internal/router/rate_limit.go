package router

import (
	"fmt"
	"strings"

	"github.com/pazar-next/internal/http/response"
	"github.com/pazar-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	Message       string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimitMiddleware Redis 固定窗口限流中间件
// Redis 不可用时放行, 限流是防护不是闸门。
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP()
		if rule.Prefix != "" {
			key = fmt.Sprintf("%s:%s", rule.Prefix, key)
		}

		count, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Int64()
		if err != nil {
			logger.Warnw("rate_limit_redis_failed", "key", key, "error", err)
			c.Next()
			return
		}

		if count > int64(rule.MaxRequests) {
			msg := strings.TrimSpace(rule.Message)
			if msg == "" {
				msg = "请求过于频繁, 请稍后再试"
			}
			response.Error(c, response.CodeTooManyRequests, msg)
			c.Abort()
			return
		}

		c.Next()
	}
}
