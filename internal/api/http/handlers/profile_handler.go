package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/api/dto"
	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/service"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// ProfileEditor reads and edits the caller's profile.
type ProfileEditor interface {
	Get(ctx context.Context, session *domain.Session) (*domain.Profile, error)
	Update(ctx context.Context, session *domain.Session, update service.ProfileUpdate) (*domain.Profile, error)
}

// CategoryLister lists complaint categories.
type CategoryLister interface {
	List(ctx context.Context) ([]domain.Category, error)
}

// ProfileHandler exposes profile and reference data endpoints.
type ProfileHandler struct {
	profiles   ProfileEditor
	categories CategoryLister
}

// NewProfileHandler constructs handler.
func NewProfileHandler(profiles ProfileEditor, categories CategoryLister) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, categories: categories}
}

// Get GET /profile.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	profile, err := h.profiles.Get(c.UserContext(), session)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(profile)})
}

// Update PUT /profile.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.profiles.Update(c.UserContext(), session, service.ProfileUpdate{
		Aadhar:     req.Aadhar,
		HouseNo:    req.HouseNo,
		ColonyName: req.ColonyName,
		Pincode:    req.Pincode,
		MapLink:    req.MapLink,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(profile)})
}

// Categories GET /categories.
func (h *ProfileHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, *categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
