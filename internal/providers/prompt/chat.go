package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
)

const (
	defaultChatBaseURL = "https://yunwu.ai/v1"
	defaultChatModel   = "grok-4-fast"
	chatDefaultTimeout = 120 * time.Second
)

// ChatOptions configures an OpenAI-compatible chat completions client.
type ChatOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a single chat completions call.
type CompletionRequest struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Completer produces the assistant text for a conversation.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ChatClient talks to a /chat/completions endpoint.
type ChatClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewChatClient builds a client. An empty API key is accepted; calls then
// fail with ErrNotConfigured.
func NewChatClient(opts ChatOptions) *ChatClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultChatModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: chatDefaultTimeout}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &ChatClient{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// Complete returns the first choice's content, which may be empty.
func (c *ChatClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("chat: api key: %w", domain.ErrNotConfigured)
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}); err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat: %v: %w", err, domain.ErrBackendUnreachable)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug().Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Str("model", c.model).Msg("chat: completion")

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat: status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(snippet)), domain.ErrBackendRejected)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat: decode response: %v: %w", err, domain.ErrMalformedResponse)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

var _ Completer = (*ChatClient)(nil)

var errEmptyConversation = errors.New("messages array required")
