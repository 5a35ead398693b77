package web

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/FranksOps/leadfinder/internal/config"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const contextKeyRequestID = "request_id"

// RequestID injects an identifier if the caller did not provide one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(contextKeyRequestID, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// RequestIDFromContext extracts the request identifier if available.
func RequestIDFromContext(c echo.Context) string {
	if val, ok := c.Get(contextKeyRequestID).(string); ok {
		return val
	}
	return ""
}

// Logging writes one structured line per request.
func Logging(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				"request_id", RequestIDFromContext(c),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start))
			return nil
		}
	}
}

// SearchRateLimiter applies a token bucket to the routes it wraps. A disabled
// limit passes every request through.
func SearchRateLimiter(limit config.RateLimit) echo.MiddlewareFunc {
	if !limit.Enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	perRequest := limit.Interval / time.Duration(limit.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(perRequest), limit.Requests)
	var mu sync.Mutex

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			mu.Lock()
			allowed := limiter.Allow()
			mu.Unlock()

			if !allowed {
				return c.String(http.StatusTooManyRequests, "search rate limit exceeded, try again shortly")
			}
			return next(c)
		}
	}
}
