package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the public Scryfall API.
	DefaultBaseURL = "https://api.scryfall.com"

	defaultUserAgent = "DeckStrategist/1.0"
	requestTimeout   = 30 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 * 1024
)

// Config configures the catalog client.
type Config struct {
	// BaseURL is the catalog endpoint. Default: https://api.scryfall.com
	BaseURL string

	// UserAgent is sent with every request; Scryfall rejects anonymous clients.
	UserAgent string

	// RequestTimeout bounds a single lookup. Default: 30 seconds
	RequestTimeout time.Duration

	// Cache memoizes resolved records. Default: unbounded memory cache.
	Cache Cache

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client

	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      defaultUserAgent,
		RequestTimeout: requestTimeout,
	}
}

// Client resolves card names against the Scryfall catalog.
//
// The client does not pace requests itself: pacing is a property of a
// sequence of lookups and belongs to the caller driving that sequence.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	timeout    time.Duration
	cache      Cache
	logger     *zap.Logger

	// inflight collapses concurrent misses for the same name into one request.
	inflight singleflight.Group
}

// NewClient creates a new Scryfall client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	cache := config.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
		timeout:    timeout,
		cache:      cache,
		logger:     logger,
	}
}

// Cache returns the cache backing this client.
func (c *Client) Cache() Cache {
	return c.cache
}

// Resolve returns the catalog record for the exact card name.
// A cached record is returned without touching the network.
func (c *Client) Resolve(ctx context.Context, name string) (*Card, error) {
	if card, ok := c.cache.Get(name); ok {
		return card, nil
	}

	ch := c.inflight.DoChan(name, func() (interface{}, error) {
		// Another caller may have filled the cache while we waited for the group.
		if card, ok := c.cache.Get(name); ok {
			return card, nil
		}
		// Shared by every waiter: detached from the starting caller and
		// bounded by the request timeout.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		card, err := c.fetchNamed(fetchCtx, name)
		if err != nil {
			return nil, err
		}
		// Keyed by the requested name, not the name Scryfall matched.
		c.cache.Set(name, card)
		return card, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Card), nil
	case <-ctx.Done():
		return nil, &TransportError{Name: name, Err: ctx.Err()}
	}
}

// fetchNamed performs exactly one /cards/named lookup.
func (c *Client) fetchNamed(ctx context.Context, name string) (*Card, error) {
	endpoint := fmt.Sprintf("%s/cards/named?%s", c.baseURL, url.Values{"exact": {name}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Name: name, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Name: name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("scryfall lookup",
		zap.String("card", name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, &NotFoundError{Name: name}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		unavailable := &UnavailableError{Name: name, StatusCode: resp.StatusCode}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			unavailable.Details = apiErr.Details
		} else if len(body) > 0 {
			unavailable.Details = strings.TrimSpace(http.StatusText(resp.StatusCode))
		}
		return nil, unavailable
	}

	var card Card
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, &TransportError{Name: name, Err: fmt.Errorf("decode response: %w", err)}
	}
	return &card, nil
}
