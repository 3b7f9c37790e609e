package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sse(events ...string) string {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "data: %s\n\n", e)
	}
	return b.String()
}

func textDelta(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"type":  "content_block_delta",
		"index": 0,
		"delta": map[string]string{"type": "text_delta", "text": text},
	})
	return string(payload)
}

const (
	messageStart = `{"type":"message_start","message":{"id":"msg_1"}}`
	blockStart   = `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`
	ping         = `{"type":"ping"}`
	messageStop  = `{"type":"message_stop"}`
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{APIKey: "test-key", BaseURL: srv.URL})
}

func drain(t *testing.T, s Stream) (string, error) {
	t.Helper()
	defer func() { _ = s.Close() }()
	var b strings.Builder
	for s.Next() {
		b.WriteString(s.Text())
	}
	return b.String(), s.Err()
}

func TestStreamText_ForwardsTextDeltas(t *testing.T) {
	var got messagesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: message_start\n")
		_, _ = io.WriteString(w, sse(messageStart, blockStart, textDelta("Aggro "), ping, textDelta("deck."), messageStop))
	})

	s, err := client.StreamText(context.Background(), Request{Prompt: "analyze", MaxTokens: 1500})
	require.NoError(t, err)

	text, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, "Aggro deck.", text)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 1500, got.MaxTokens)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "analyze", got.Messages[0].Content)
}

func TestStreamText_MissingAPIKey(t *testing.T) {
	client := NewClient(&Config{BaseURL: "http://127.0.0.1:1"})

	_, err := client.StreamText(context.Background(), Request{Prompt: "x", MaxTokens: 10})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.False(t, client.Configured())
}

func TestStreamText_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	})

	_, err := client.StreamText(context.Background(), Request{Prompt: "x", MaxTokens: 10})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "authentication_error", apiErr.Type)
	assert.Contains(t, apiErr.Error(), "invalid x-api-key")
}

func TestStreamText_ErrorEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sse(textDelta("partial"),
			`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	s, err := client.StreamText(context.Background(), Request{Prompt: "x", MaxTokens: 10})
	require.NoError(t, err)

	text, err := drain(t, s)
	assert.Equal(t, "partial", text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
}

func TestStreamText_TruncatedStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, sse(textDelta("cut")))
	})

	s, err := client.StreamText(context.Background(), Request{Prompt: "x", MaxTokens: 10})
	require.NoError(t, err)

	_, err = drain(t, s)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
