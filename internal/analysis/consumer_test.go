package analysis

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsume_SkipsMalformedEnvelopes(t *testing.T) {
	input := strings.Join([]string{
		`{"type":"reasoning","content":"Quick deck assessment"}`,
		`{"type":"content","content":"a"}`,
		`not json`,
		``,
		`   `,
		`{"content":"no type"}`,
		`[1,2,3]`,
		`{"type":"content","content":7}`,
		`{"type":"content","content":"b"}`,
		`{"type":"content","content":"tail without newline"}`,
	}, "\n")

	got, err := NewConsumer(nil).Consume(context.Background(), strings.NewReader(input), FramingNDJSON)
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestConsume_HandlesCRLF(t *testing.T) {
	input := "{\"type\":\"content\",\"content\":\"x\"}\r\n{\"type\":\"content\",\"content\":\"y\"}\r\n"

	got, err := NewConsumer(nil).Consume(context.Background(), strings.NewReader(input), FramingNDJSON)
	require.NoError(t, err)
	assert.Equal(t, "xy", got)
}

func TestConsume_Raw(t *testing.T) {
	got, err := NewConsumer(nil).Consume(context.Background(), strings.NewReader("## Overview\nfast"), FramingRaw)
	require.NoError(t, err)
	assert.Equal(t, "## Overview\nfast", got)
}

func TestConsume_RawInvalidUTF8(t *testing.T) {
	got, err := NewConsumer(nil).Consume(context.Background(), strings.NewReader("ok\xff"), FramingRaw)
	require.NoError(t, err)
	assert.Equal(t, "ok�", got)
}

func TestConsume_TransportError(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte(`{"type":"content","content":"a"}` + "\n"))
		_ = pw.CloseWithError(errors.New("connection reset"))
	}()

	_, err := NewConsumer(nil).Consume(context.Background(), pr, FramingNDJSON)
	var streamErr *StreamError
	require.True(t, errors.As(err, &streamErr))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRun_NoPartialPublish(t *testing.T) {
	tracker := NewTracker()
	pr, pw := io.Pipe()

	done := make(chan error, 1)
	go func() {
		_, err := NewConsumer(nil).Run(context.Background(), tracker, KindMatchups, func(context.Context) (io.ReadCloser, error) {
			return pr, nil
		})
		done <- err
	}()

	_, err := pw.Write([]byte(`{"type":"content","content":"half of the "}` + "\n"))
	require.NoError(t, err)

	state := tracker.Get(KindMatchups)
	assert.Equal(t, StatusRunning, state.Status)
	assert.Empty(t, state.Content)

	_ = pw.CloseWithError(errors.New("upstream dropped"))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}

	state = tracker.Get(KindMatchups)
	assert.Equal(t, StatusError, state.Status)
	assert.Empty(t, state.Content)
	assert.Contains(t, state.Error, "upstream dropped")
}

func TestRun_PublishesOnCleanEnd(t *testing.T) {
	tracker := NewTracker()
	body := `{"type":"reasoning","content":"Mulligan framework"}` + "\n" +
		`{"type":"content","content":"Keep "}` + "\n" +
		`{"type":"content","content":"two-landers."}` + "\n"

	content, err := NewConsumer(nil).Run(context.Background(), tracker, KindMulligan, func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Keep two-landers.", content)

	state := tracker.Get(KindMulligan)
	assert.Equal(t, StatusCompleted, state.Status)
	assert.Equal(t, "Keep two-landers.", state.Content)
	assert.Empty(t, state.Error)
}

func TestRun_OpenFailure(t *testing.T) {
	tracker := NewTracker()

	_, err := NewConsumer(nil).Run(context.Background(), tracker, KindTactics, func(context.Context) (io.ReadCloser, error) {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	})
	require.Error(t, err)

	state := tracker.Get(KindTactics)
	assert.Equal(t, StatusError, state.Status)
	assert.Equal(t, "ANTHROPIC_API_KEY not configured", state.Error)
}

func TestRun_ContextCancelClosesTransport(t *testing.T) {
	tracker := NewTracker()
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := NewConsumer(nil).Run(ctx, tracker, KindSideboarding, func(context.Context) (io.ReadCloser, error) {
			return pr, nil
		})
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop on cancel")
	}
	assert.Equal(t, StatusError, tracker.Get(KindSideboarding).Status)
}

func TestRun_UnknownKind(t *testing.T) {
	_, err := NewConsumer(nil).Run(context.Background(), NewTracker(), Kind("bogus"), nil)

	var unknown *UnknownKindError
	assert.True(t, errors.As(err, &unknown))
}
