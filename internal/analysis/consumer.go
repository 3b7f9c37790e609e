package analysis

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Consumer reads a framed stream back into text.
type Consumer struct {
	logger *zap.Logger
}

// NewConsumer creates a new stream consumer.
func NewConsumer(logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{logger: logger}
}

// Consume reads r to the end and returns the accumulated text. On NDJSON
// streams only content envelopes contribute; malformed lines are skipped and
// a final line without a newline is dropped.
func (c *Consumer) Consume(ctx context.Context, r io.Reader, framing Framing) (string, error) {
	if framing == FramingRaw {
		return c.consumeRaw(ctx, r)
	}
	return c.consumeNDJSON(ctx, r)
}

func (c *Consumer) consumeNDJSON(ctx context.Context, r io.Reader) (string, error) {
	br := bufio.NewReader(r)
	var text strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		line, err := br.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(bytes.TrimSpace(line)) > 0 {
					c.logger.Warn("dropping incomplete trailing line", zap.Int("bytes", len(line)))
				}
				return text.String(), nil
			}
			return "", readError(ctx, err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		env, perr := ParseEnvelope(line)
		if perr != nil {
			c.logger.Warn("skipping malformed stream line", zap.ByteString("line", line), zap.Error(perr))
			continue
		}
		if env.Type == EnvelopeContent {
			text.WriteString(env.Content)
		}
	}
}

func (c *Consumer) consumeRaw(ctx context.Context, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", readError(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !utf8.Valid(buf.Bytes()) {
		c.logger.Warn("stream contained invalid UTF-8, replacing")
		return strings.ToValidUTF8(buf.String(), string(utf8.RuneError)), nil
	}
	return buf.String(), nil
}

// readError prefers the context error when the read failed because the
// transport was closed on cancellation.
func readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return err
	}
	return &StreamError{Err: err}
}
