package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleReceptionist = "receptionist"
	RoleLab          = "lab"
	RolePharmacist   = "pharmacist"
	RoleBilling      = "billing"
)

// Roles lists every role a user account may hold.
var Roles = []string{RoleAdmin, RoleDoctor, RoleReceptionist, RoleLab, RolePharmacist, RoleBilling}

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Admin satisfies every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// HasRole reports whether userRoles grants any of required.
func HasRole(userRoles []string, required ...string) bool {
	for _, has := range userRoles {
		if has == RoleAdmin {
			return true
		}
		for _, r := range required {
			if has == r {
				return true
			}
		}
	}
	return false
}
