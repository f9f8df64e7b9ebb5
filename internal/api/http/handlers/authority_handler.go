package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/api/dto"
	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/domain"
	"github.com/civicseva/civic-complaints/internal/service"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// AuthorityActions covers the administrator dashboard.
type AuthorityActions interface {
	ListForAuthority(ctx context.Context, filter service.AuthorityFilter) ([]domain.Complaint, error)
	Stats(ctx context.Context) (domain.ComplaintStats, error)
	Advance(ctx context.Context, session *domain.Session, complaintID string, next domain.ComplaintStatus, note string) (*domain.Complaint, error)
	History(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error)
}

// AuthorityHandler exposes administrator endpoints.
type AuthorityHandler struct {
	complaints AuthorityActions
}

// NewAuthorityHandler constructs handler.
func NewAuthorityHandler(complaints AuthorityActions) *AuthorityHandler {
	return &AuthorityHandler{complaints: complaints}
}

// List GET /authority/complaints?status=&severity=&q=&page=&page_size=.
func (h *AuthorityHandler) List(c *fiber.Ctx) error {
	filter := service.AuthorityFilter{Search: c.Query("q")}
	args := c.Context().QueryArgs()
	for _, raw := range splitList(peekAll(args.PeekMulti("status"))) {
		filter.Statuses = append(filter.Statuses, domain.ComplaintStatus(strings.ToLower(raw)))
	}
	for _, raw := range splitList(peekAll(args.PeekMulti("severity"))) {
		filter.Severities = append(filter.Severities, domain.Severity(strings.ToLower(raw)))
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	if pageSize > 200 {
		pageSize = 200
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	complaints, err := h.complaints.ListForAuthority(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": complaintResponses(complaints),
		"meta": fiber.Map{"page": page, "page_size": pageSize},
	})
}

// Stats GET /authority/stats.
func (h *AuthorityHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.complaints.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.StatsResponse{
		Total:      stats.Total,
		Pending:    stats.Pending,
		InProgress: stats.InProgress,
		Resolved:   stats.Resolved,
		Critical:   stats.Critical,
	}})
}

// UpdateStatus POST /authority/complaints/:id/status.
func (h *AuthorityHandler) UpdateStatus(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	var req dto.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", map[string]any{"field": "status"})
	}
	complaint, err := h.complaints.Advance(c.UserContext(), session, c.Params("id"), req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintResponse(complaint)})
}

// History GET /authority/complaints/:id/history.
func (h *AuthorityHandler) History(c *fiber.Ctx) error {
	entries, err := h.complaints.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

func peekAll(values [][]byte) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}
