package analysis

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deck-strategist/internal/llm"
)

// Provider opens one text-generation stream.
type Provider interface {
	StreamText(ctx context.Context, req llm.Request) (llm.Stream, error)
}

// Request is one stream to produce.
type Request struct {
	Prompt    string
	MaxTokens int
	Framing   Framing

	// Label is the reasoning line sent first on NDJSON streams.
	Label string
}

// RequestFor builds the stream request of a kind from its profile.
func RequestFor(kind Kind, prompt string) (Request, error) {
	p, err := ProfileFor(kind)
	if err != nil {
		return Request{}, err
	}
	return Request{Prompt: prompt, MaxTokens: p.MaxTokens, Framing: p.Framing, Label: p.Label}, nil
}

// ServiceConfig configures the stream service.
type ServiceConfig struct {
	Provider Provider
	Logger   *zap.Logger
}

// Service relays provider output as NDJSON or raw text.
type Service struct {
	provider Provider
	logger   *zap.Logger
}

// NewService creates a new stream service.
func NewService(config ServiceConfig) *Service {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: config.Provider, logger: logger}
}

// Stream opens the provider stream and returns a reader over the framed
// output. Open failures are returned here; failures after the open surface
// as a *StreamError from Read. Closing the reader stops the upstream.
func (s *Service) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is empty")
	}
	if req.Framing == "" {
		req.Framing = FramingNDJSON
	}

	ctx, cancel := context.WithCancel(ctx)
	upstream, err := s.provider.StreamText(ctx, llm.Request{Prompt: req.Prompt, MaxTokens: req.MaxTokens})
	if err != nil {
		cancel()
		return nil, err
	}
	s.logger.Debug("analysis stream opened",
		zap.String("framing", string(req.Framing)),
		zap.Int("max_tokens", req.MaxTokens))

	pr, pw := io.Pipe()
	go s.pump(upstream, pw, req, cancel)

	return &streamReader{PipeReader: pr, cancel: cancel}, nil
}

func (s *Service) pump(upstream llm.Stream, pw *io.PipeWriter, req Request, cancel context.CancelFunc) {
	defer cancel()
	defer func() { _ = upstream.Close() }()

	if req.Framing == FramingNDJSON {
		if err := writeEnvelope(pw, Envelope{Type: EnvelopeReasoning, Content: req.Label}); err != nil {
			s.logger.Debug("analysis stream abandoned by reader", zap.Error(err))
			return
		}
	}

	deltas := 0
	for upstream.Next() {
		var err error
		if req.Framing == FramingNDJSON {
			err = writeEnvelope(pw, Envelope{Type: EnvelopeContent, Content: upstream.Text()})
		} else {
			_, err = io.WriteString(pw, upstream.Text())
		}
		if err != nil {
			s.logger.Debug("analysis stream abandoned by reader", zap.Error(err))
			return
		}
		deltas++
	}

	if err := upstream.Err(); err != nil {
		s.logger.Debug("analysis stream closed with error", zap.Int("deltas", deltas), zap.Error(err))
		_ = pw.CloseWithError(&StreamError{Err: err})
		return
	}

	s.logger.Debug("analysis stream closed", zap.Int("deltas", deltas))
	_ = pw.Close()
}

func writeEnvelope(w io.Writer, env Envelope) error {
	line, err := env.MarshalLine()
	if err != nil {
		return err
	}
	_, err = w.Write(line)
	return err
}

// streamReader cancels the upstream when the consumer closes early.
type streamReader struct {
	*io.PipeReader
	cancel context.CancelFunc
}

func (r *streamReader) Close() error {
	r.cancel()
	return r.PipeReader.Close()
}
