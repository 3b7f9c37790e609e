package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteError is a non-success answer from a strategist server.
type RemoteError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface for RemoteError.
func (e *RemoteError) Error() string {
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Message)
}

// RemoteClient opens analysis transports on a running server.
type RemoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClient creates a client for the server at baseURL.
func NewRemoteClient(baseURL string, httpClient *http.Client) *RemoteClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RemoteClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// OpenDeck opens a whole-deck NDJSON stream.
func (c *RemoteClient) OpenDeck(ctx context.Context, req DeckRequest) (io.ReadCloser, error) {
	return c.open(ctx, "/api/v1/analyze", req)
}

// OpenCard opens a raw single-card stream.
func (c *RemoteClient) OpenCard(ctx context.Context, req CardRequest) (io.ReadCloser, error) {
	return c.open(ctx, "/api/v1/analyze-card", req)
}

// OpenStrategy opens a raw strategy guide stream.
func (c *RemoteClient) OpenStrategy(ctx context.Context, req StrategyRequest) (io.ReadCloser, error) {
	return c.open(ctx, "/api/v1/strategy", req)
}

func (c *RemoteClient) open(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeRemoteError(resp)
	}
	return resp.Body, nil
}

func decodeRemoteError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != "":
			msg = body.Message
		case body.Error != "":
			msg = body.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &RemoteError{StatusCode: resp.StatusCode, Message: msg}
}
