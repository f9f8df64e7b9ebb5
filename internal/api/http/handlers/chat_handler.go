package handlers

import (
	"bufio"

	"github.com/gofiber/fiber/v2"

	"github.com/civicseva/civic-complaints/internal/api/dto"
	"github.com/civicseva/civic-complaints/internal/assistant"
	"github.com/civicseva/civic-complaints/internal/auth"
	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

// ChatStarter opens an assistant reply for an identity.
type ChatStarter interface {
	Start(identity string, messages []assistant.Message) (*assistant.Reply, error)
}

// ChatHandler streams assistant answers.
type ChatHandler struct {
	assistant ChatStarter
}

// NewChatHandler constructs handler.
func NewChatHandler(starter ChatStarter) *ChatHandler {
	return &ChatHandler{assistant: starter}
}

// Chat POST /chat streams the answer as plain text.
func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("sign in required")
	}
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	messages := make([]assistant.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, assistant.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := h.assistant.Start(session.Identity.ID, messages)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_ = reply.WriteTo(w)
	})
	return nil
}
