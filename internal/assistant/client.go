// Package assistant proxies chat conversations to an OpenAI-compatible
// streaming completion endpoint.
package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/civicseva/civic-complaints/internal/config"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	roleSystem    = "system"

	maxChunkBytes = 1 << 20
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpstreamError is a non-2xx answer from the completion endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("assistant upstream: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the completion endpoint.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	baseURL      string
	model        string
	systemPrompt string
}

// NewClient builds a client from configuration. The caller's context bounds
// each stream, so httpClient should not carry a global timeout.
func NewClient(cfg config.AssistantConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient:   httpClient,
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
	}
}

// Stream starts a streamed completion for the conversation, prefixed by the
// configured system prompt.
func (c *Client) Stream(ctx context.Context, messages []Message) (*Stream, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("assistant api key is empty")
	}

	conversation := make([]Message, 0, len(messages)+1)
	if c.systemPrompt != "" {
		conversation = append(conversation, Message{Role: roleSystem, Content: c.systemPrompt})
	}
	conversation = append(conversation, messages...)

	body, err := json.Marshal(map[string]any{
		"model":    c.model,
		"messages": conversation,
		"stream":   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxChunkBytes)
	return &Stream{body: resp.Body, scanner: scanner}, nil
}

// Stream yields text deltas from a server-sent event response.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Next returns the next non-empty text delta, or io.EOF when the answer is complete.
func (s *Stream) Next() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("decode chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("assistant upstream: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		return chunk.Choices[0].Delta.Content, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the upstream response.
func (s *Stream) Close() error {
	return s.body.Close()
}
