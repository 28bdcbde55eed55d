package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimit returns middleware that rejects requests above the given
// sustained rate (requests per second) with 429. The limiter is shared
// across all clients; text generation is the expensive resource being
// protected, not per-user fairness.
func RateLimit(limit float64, burst int) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(limit), burst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded, try again shortly",
				})
			}
			return next(c)
		}
	}
}
