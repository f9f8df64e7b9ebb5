package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/domain"
)

// Landing pages per role.
const (
	DestinationLogin     = "/login"
	DestinationCitizen   = "/citizen-app"
	DestinationAuthority = "/authority-dashboard"
)

// Destination returns where a session belongs.
func Destination(session *domain.Session) string {
	switch {
	case session == nil:
		return DestinationLogin
	case session.IsAdmin():
		return DestinationAuthority
	default:
		return DestinationCitizen
	}
}

// View names a gated page.
type View string

const (
	ViewLogin     View = "login"
	ViewCitizen   View = "citizen"
	ViewAuthority View = "authority"
)

// Allows reports whether session may stay on view. A caller that may not is
// sent to Destination(session).
func (v View) Allows(session *domain.Session) bool {
	switch v {
	case ViewAuthority:
		return session.IsAdmin()
	case ViewCitizen:
		return session != nil && !session.IsAdmin()
	case ViewLogin:
		return session == nil
	}
	return false
}

// RequireSession ensures a signed-in caller.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := SessionFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, "sign in required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller holds the administrator role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "sign in required")
		}
		if !session.IsAdmin() {
			return fiber.NewError(http.StatusForbidden, "administrator role required")
		}
		return c.Next()
	}
}

// RequireCitizen ensures the caller is a signed-in non-administrator.
func RequireCitizen() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "sign in required")
		}
		if session.IsAdmin() {
			return fiber.NewError(http.StatusForbidden, "citizen role required")
		}
		return c.Next()
	}
}
