package analysis

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ramonehamilton/deck-strategist/internal/llm"
)

type fakeStream struct {
	ctx    context.Context
	deltas []string
	err    error
	hang   bool
	text   string
	closed atomic.Bool
}

func (s *fakeStream) Next() bool {
	if len(s.deltas) > 0 {
		s.text = s.deltas[0]
		s.deltas = s.deltas[1:]
		return true
	}
	if s.hang {
		<-s.ctx.Done()
		s.err = s.ctx.Err()
	}
	return false
}

func (s *fakeStream) Text() string { return s.text }
func (s *fakeStream) Err() error   { return s.err }
func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeProvider struct {
	deltas  []string
	err     error
	hang    bool
	openErr error

	requests []llm.Request
	stream   *fakeStream
}

func (p *fakeProvider) StreamText(ctx context.Context, req llm.Request) (llm.Stream, error) {
	p.requests = append(p.requests, req)
	if p.openErr != nil {
		return nil, p.openErr
	}
	p.stream = &fakeStream{ctx: ctx, deltas: append([]string(nil), p.deltas...), err: p.err, hang: p.hang}
	return p.stream, nil
}

func TestService_NDJSONFraming(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &fakeProvider{deltas: []string{"Burn ", "plan\n", "\"fast\""}}
	svc := NewService(ServiceConfig{Provider: provider})

	req, err := RequestFor(KindOverview, "prompt text")
	require.NoError(t, err)

	rc, err := svc.Stream(context.Background(), req)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"type":"reasoning","content":"Quick deck assessment"}`, lines[0])
	assert.JSONEq(t, `{"type":"content","content":"Burn "}`, lines[1])
	assert.JSONEq(t, `{"type":"content","content":"plan\n"}`, lines[2])
	assert.JSONEq(t, `{"type":"content","content":"\"fast\""}`, lines[3])

	require.Len(t, provider.requests, 1)
	assert.Equal(t, 1500, provider.requests[0].MaxTokens)
	assert.Equal(t, "prompt text", provider.requests[0].Prompt)
}

func TestService_RawFraming(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &fakeProvider{deltas: []string{"## Role\n", "Removal."}}
	svc := NewService(ServiceConfig{Provider: provider})

	req, err := RequestFor(KindAnalyzeCard, "card prompt")
	require.NoError(t, err)
	assert.Equal(t, FramingRaw, req.Framing)

	rc, err := svc.Stream(context.Background(), req)
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "## Role\nRemoval.", string(body))
	assert.Equal(t, 3000, provider.requests[0].MaxTokens)
}

func TestService_MidStreamErrorIsNotCleanEOF(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &fakeProvider{deltas: []string{"partial"}, err: errors.New("overloaded")}
	svc := NewService(ServiceConfig{Provider: provider})

	rc, err := svc.Stream(context.Background(), Request{Prompt: "p", MaxTokens: 10, Framing: FramingRaw})
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	assert.Equal(t, "partial", string(body))

	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Contains(t, streamErr.Error(), "overloaded")
}

func TestService_OpenFailureIsSynchronous(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &fakeProvider{openErr: llm.ErrMissingAPIKey}
	svc := NewService(ServiceConfig{Provider: provider})

	rc, err := svc.Stream(context.Background(), Request{Prompt: "p", MaxTokens: 10})
	assert.Nil(t, rc)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestService_EmptyPrompt(t *testing.T) {
	svc := NewService(ServiceConfig{Provider: &fakeProvider{}})

	_, err := svc.Stream(context.Background(), Request{Prompt: "  "})
	assert.Error(t, err)
}

func TestService_ReaderCloseStopsUpstream(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &fakeProvider{deltas: []string{"first", "second"}, hang: true}
	svc := NewService(ServiceConfig{Provider: provider})

	rc, err := svc.Stream(context.Background(), Request{Prompt: "p", MaxTokens: 10, Framing: FramingNDJSON, Label: "l"})
	require.NoError(t, err)

	line, err := bufio.NewReader(rc).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "reasoning")

	require.NoError(t, rc.Close())
}

func TestService_CallerCancelStopsUpstream(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &fakeProvider{hang: true}
	svc := NewService(ServiceConfig{Provider: provider})

	ctx, cancel := context.WithCancel(context.Background())
	rc, err := svc.Stream(ctx, Request{Prompt: "p", MaxTokens: 10, Framing: FramingRaw})
	require.NoError(t, err)
	defer rc.Close()

	cancel()

	_, err = io.ReadAll(rc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_ThroughConsumer(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &fakeProvider{deltas: []string{"Lightning Bolt ", "is premium removal."}}
	svc := NewService(ServiceConfig{Provider: provider})
	consumer := NewConsumer(nil)
	tracker := NewTracker()

	content, err := consumer.Run(context.Background(), tracker, KindSynergies, func(ctx context.Context) (io.ReadCloser, error) {
		req, err := RequestFor(KindSynergies, "prompt")
		if err != nil {
			return nil, err
		}
		return svc.Stream(ctx, req)
	})
	require.NoError(t, err)
	assert.Equal(t, "Lightning Bolt is premium removal.", content)

	state := tracker.Get(KindSynergies)
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, content, state.Content)
	assert.Equal(t, 2500, provider.requests[0].MaxTokens)
}
