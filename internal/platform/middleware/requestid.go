package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/opdemr/opdemr/internal/platform/auth"
)

const requestIDKey = "request_id"

// RequestID assigns each request an id, reusing a well-formed incoming
// X-Request-ID header, and echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if _, err := uuid.Parse(rid); err != nil {
				rid = uuid.NewString()
			}
			c.Set(requestIDKey, rid)
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c echo.Context) string {
	rid, _ := c.Get(requestIDKey).(string)
	return rid
}

func actorOf(c echo.Context) string {
	if name := auth.UsernameFromContext(c.Request().Context()); name != "" {
		return name
	}
	return "anonymous"
}
