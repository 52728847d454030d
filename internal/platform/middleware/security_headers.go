package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderPolicy controls which hardening headers SecurityHeaders adds.
type HeaderPolicy struct {
	// HSTS adds Strict-Transport-Security. Only enable behind TLS.
	HSTS bool
	// NoStorePrefix marks responses under this path as uncacheable.
	NoStorePrefix string
}

// SecurityHeaders sets response headers for a JSON API that returns patient
// data. Headers are written before the handler runs so error responses carry
// them too.
func SecurityHeaders(p HeaderPolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if p.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			if p.NoStorePrefix != "" && strings.HasPrefix(c.Request().URL.Path, p.NoStorePrefix) {
				h.Set("Cache-Control", "no-store")
			}
			return next(c)
		}
	}
}
