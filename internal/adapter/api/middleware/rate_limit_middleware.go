package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"petcycle/internal/infrastructure/ratelimit"
	"petcycle/pkg/errors"
	"petcycle/pkg/logger"
	"petcycle/pkg/response"
)

// RateLimit throttles requests per authenticated user, or per client IP before authentication.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			if allowed, wait := limiter.Allow(key, action); !allowed {
				logger.Warn("RATE LIMIT: %s blocked on %s (retry in %v)", key, action, wait)
				c.Response().Header().Set("Retry-After", retryAfterSeconds(wait))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", wait))
			}

			return next(c)
		}
	}
}

func retryAfterSeconds(wait time.Duration) string {
	seconds := int((wait + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
