// Package agents implements the four analysis stages of the triage pipeline:
// metadata extraction, content analysis, question generation with response
// processing, and final risk scoring. Every agent survives malformed or
// failed gateway output by degrading to a locally computed fallback.
package agents

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

const (
	retryAttempts = 3
	retryBaseWait = 500 * time.Millisecond
)

// generate calls the gateway, retrying transient network failures a bounded
// number of times with increasing delay. Rate-limit and malformed failures
// are returned immediately; the caller's fallback path handles them.
func generate(ctx context.Context, gen core.TextGenerator, messages []core.Message, opts core.GenerateOptions, logger *zap.Logger) (string, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * retryBaseWait
			logger.Debug("Retrying gateway call",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		out, err := gen.Generate(ctx, messages, opts)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !errors.Is(err, core.ErrNetwork) {
			return "", err
		}
	}
	return "", lastErr
}
