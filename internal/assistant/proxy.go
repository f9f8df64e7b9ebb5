package assistant

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/civicseva/civic-complaints/pkg/util/errorutil"
)

const maxMessages = 50

// Streamer opens a streamed completion.
type Streamer interface {
	Stream(ctx context.Context, messages []Message) (*Stream, error)
}

// Proxy relays conversations for signed-in callers.
type Proxy struct {
	client   Streamer
	sessions *Registry
	timeout  time.Duration
	logger   *zap.Logger
}

// NewProxy builds the proxy.
func NewProxy(client Streamer, sessions *Registry, timeout time.Duration, logger *zap.Logger) *Proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = NewRegistry()
	}
	return &Proxy{client: client, sessions: sessions, timeout: timeout, logger: logger}
}

// Reply is an answer whose first chunk has already arrived.
type Reply struct {
	first   string
	stream  *Stream
	release func()
	logger  *zap.Logger
}

// Start opens a stream for identity and waits for the first chunk, so that
// upstream failures can still be reported as an error response.
func (p *Proxy) Start(identity string, messages []Message) (*Reply, error) {
	if err := validateMessages(messages); err != nil {
		return nil, err
	}

	ctx, release := p.sessions.Begin(identity, p.timeout)
	stream, err := p.client.Stream(ctx, messages)
	if err != nil {
		release()
		return nil, upstreamFailure(err)
	}

	first, err := stream.Next()
	if err != nil && !errors.Is(err, io.EOF) {
		stream.Close()
		release()
		return nil, upstreamFailure(err)
	}
	return &Reply{first: first, stream: stream, release: release, logger: p.logger}, nil
}

// WriteTo copies the answer to w, flushing after every chunk. It stops when
// the answer ends, the stream is superseded, or w fails.
func (r *Reply) WriteTo(w *bufio.Writer) error {
	defer r.release()
	defer r.stream.Close()

	chunk := r.first
	for {
		if chunk != "" {
			if _, err := w.WriteString(chunk); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}

		next, err := r.stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			r.logger.Warn("chat stream ended early", zap.Error(err))
			return nil
		}
		chunk = next
	}
}

func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return apperrors.NewValidationError("messages are required", map[string]any{"field": "messages"})
	}
	if len(messages) > maxMessages {
		return apperrors.NewValidationError("conversation is too long", map[string]any{"field": "messages", "max": maxMessages})
	}
	for i, m := range messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return apperrors.NewValidationError("role must be user or assistant", map[string]any{"field": "messages", "index": i})
		}
		if strings.TrimSpace(m.Content) == "" {
			return apperrors.NewValidationError("message content is required", map[string]any{"field": "messages", "index": i})
		}
	}
	return nil
}

func upstreamFailure(err error) error {
	return apperrors.NewDomainError("ASSISTANT_UPSTREAM_FAILED", "assistant is unavailable", http.StatusBadGateway,
		map[string]any{"cause": err.Error()})
}
