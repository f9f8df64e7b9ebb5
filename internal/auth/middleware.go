package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/domain"
)

const (
	sessionKey        = "auth_session"
	accessTokenCookie = "access_token"
)

// SessionResolver turns a credential into a session. A nil session with a
// nil error means the caller is not signed in.
type SessionResolver interface {
	Resolve(ctx context.Context, credential string) (*domain.Session, error)
}

// SessionMiddleware resolves the caller's session once per request and
// stores it on the request context. It never rejects a request by itself;
// guards decide what a missing session means.
type SessionMiddleware struct {
	resolver SessionResolver
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(resolver SessionResolver) *SessionMiddleware {
	return &SessionMiddleware{resolver: resolver}
}

// Handle resolves the session. Resolution failures abort the request.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	credential := CredentialFromRequest(c)
	if credential == "" {
		return c.Next()
	}

	session, err := m.resolver.Resolve(c.UserContext(), credential)
	if err != nil {
		return err
	}
	if session != nil {
		c.Locals(sessionKey, session)
	}
	return c.Next()
}

// CredentialFromRequest reads a bearer token, falling back to the access token cookie.
func CredentialFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(c.Cookies(accessTokenCookie))
}

// SessionFromContext retrieves the resolved session.
func SessionFromContext(c *fiber.Ctx) (*domain.Session, bool) {
	val := c.Locals(sessionKey)
	if val == nil {
		return nil, false
	}
	session, ok := val.(*domain.Session)
	return session, ok && session != nil
}
