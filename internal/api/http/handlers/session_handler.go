package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/api/dto"
	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/domain"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// SignOuter ends a session.
type SignOuter interface {
	SignOut(ctx context.Context, session *domain.Session) error
}

// SessionHandler exposes session and page-gate endpoints.
type SessionHandler struct {
	signOut SignOuter
}

// NewSessionHandler constructs handler.
func NewSessionHandler(signOut SignOuter) *SessionHandler {
	return &SessionHandler{signOut: signOut}
}

// Session GET /auth/session.
func (h *SessionHandler) Session(c *fiber.Ctx) error {
	session, _ := auth.SessionFromContext(c)
	resp := dto.SessionResponse{Destination: auth.Destination(session)}
	if session != nil {
		resp.Authenticated = true
		resp.ID = session.Identity.ID
		resp.Email = session.Identity.Email
		resp.Role = string(session.Role)
		resp.Blocked = session.Blocked()
		if !session.ExpiresAt.IsZero() {
			expires := session.ExpiresAt
			resp.ExpiresAt = &expires
		}
	}
	return c.JSON(fiber.Map{"data": resp})
}

// SignOut POST /auth/signout.
func (h *SessionHandler) SignOut(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	if err := h.signOut.SignOut(c.UserContext(), session); err != nil {
		return err
	}
	c.ClearCookie("access_token")
	return c.JSON(fiber.Map{"data": fiber.Map{"destination": auth.DestinationLogin}})
}

// Gate GET /gate/:view. Callers who may not see the view are redirected to
// their own landing page.
func (h *SessionHandler) Gate(c *fiber.Ctx) error {
	view := auth.View(c.Params("view"))
	switch view {
	case auth.ViewLogin, auth.ViewCitizen, auth.ViewAuthority:
	default:
		return apperrors.NewNotFound("view", map[string]any{"view": string(view)})
	}

	session, _ := auth.SessionFromContext(c)
	if !view.Allows(session) {
		return c.Redirect(auth.Destination(session), http.StatusFound)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"view": string(view), "allowed": true}})
}
