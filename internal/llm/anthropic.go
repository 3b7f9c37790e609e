// Package llm streams text completions from the Anthropic Messages API.
package llm

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

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.anthropic.com/v1"
	DefaultModel   = "claude-sonnet-4-20250514"

	apiVersion = "2023-06-01"

	// DefaultStreamTimeout bounds one generation when the caller sets no deadline.
	DefaultStreamTimeout = 5 * time.Minute

	maxErrorBody = 64 * 1024
)

// ErrMissingAPIKey is a configuration error: no credential for the provider.
var ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY not configured")

// Config configures the Anthropic client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// StreamTimeout applies when the caller's context has no deadline.
	StreamTimeout time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:        apiKey,
		BaseURL:       DefaultBaseURL,
		Model:         DefaultModel,
		StreamTimeout: DefaultStreamTimeout,
	}
}

// Request is one single-turn generation.
type Request struct {
	Prompt    string
	MaxTokens int
}

// APIError is a non-success response from the Messages API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("anthropic API error (HTTP %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("anthropic API error (HTTP %d)", e.StatusCode)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
	Stream    bool      `json:"stream"`
}

type errorBody struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the Anthropic Messages API.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	streamTimeout time.Duration
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient creates a new Anthropic client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig("")
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := config.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := config.StreamTimeout
	if timeout <= 0 {
		timeout = DefaultStreamTimeout
	}
	// No client-level timeout: it would cut long streams mid-body.
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:        config.APIKey,
		baseURL:       baseURL,
		model:         model,
		streamTimeout: timeout,
		httpClient:    httpClient,
		logger:        logger,
	}
}

// Model returns the fixed model identifier.
func (c *Client) Model() string {
	return c.model
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// StreamText opens one streaming generation. The request and response
// headers are exchanged before returning, so credential and HTTP status
// failures surface here rather than mid-stream.
func (c *Client) StreamText(ctx context.Context, req Request) (Stream, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cancel := context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, c.streamTimeout)
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: req.MaxTokens,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
		Stream:    true,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	c.logger.Debug("opening generation stream",
		zap.String("model", c.model),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Int("prompt_len", len(req.Prompt)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer func() { _ = resp.Body.Close() }()
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Type = eb.Error.Type
			apiErr.Message = eb.Error.Message
		}
		return nil, apiErr
	}

	return newEventStream(resp.Body, cancel), nil
}
