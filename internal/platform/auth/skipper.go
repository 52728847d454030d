package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass authentication: infrastructure endpoints and login.
var publicPaths = map[string]bool{
	"/health":         true,
	"/health/db":      true,
	"/metrics":        true,
	"/api/auth/login": true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()] || publicPaths[c.Request().URL.Path]
}

// IsPublicPath reports whether the given path bypasses authentication.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
