package analysis

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// OpenFunc opens the transport of one analysis.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// Run begins a new run of kind in the tracker and drives it to completion.
func (c *Consumer) Run(ctx context.Context, tracker *Tracker, kind Kind, open OpenFunc) (string, error) {
	if _, err := ProfileFor(kind); err != nil {
		return "", err
	}
	return c.Settle(ctx, tracker, kind, tracker.Begin(kind), open)
}

// Settle drives an already begun run. The content is published only when the
// stream ends cleanly; any failure leaves the kind in error. A run that was
// superseded by a newer Begin changes nothing.
func (c *Consumer) Settle(ctx context.Context, tracker *Tracker, kind Kind, runID string, open OpenFunc) (string, error) {
	profile, err := ProfileFor(kind)
	if err != nil {
		tracker.Fail(kind, runID, err)
		return "", err
	}
	logger := c.logger.With(zap.String("kind", string(kind)), zap.String("run_id", runID))

	rc, err := open(ctx)
	if err != nil {
		logger.Warn("failed to open analysis stream", zap.Error(err))
		tracker.Fail(kind, runID, err)
		return "", err
	}
	stop := context.AfterFunc(ctx, func() { _ = rc.Close() })
	defer stop()
	defer func() { _ = rc.Close() }()

	content, err := c.Consume(ctx, rc, profile.Framing)
	if err != nil {
		logger.Warn("analysis failed", zap.Error(err))
		tracker.Fail(kind, runID, err)
		return "", err
	}

	if !tracker.Complete(kind, runID, content) {
		logger.Info("analysis superseded by a newer run")
	} else {
		logger.Info("analysis completed", zap.Int("content_len", len(content)))
	}
	return content, nil
}
