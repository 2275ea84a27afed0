package adapters

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

// retry executes fn up to maxAttempts times with jittered exponential backoff.
// Base delay doubles on each attempt; random jitter of 0-50% of the current
// delay avoids thundering herd. Auth failures never retry: a 401/403 will not
// fix itself, and hammering a vendor API with bad credentials can lock the
// key. Rate-limit errors fail fast too; the budget window outlasts any backoff.
func retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		var fe *model.FabricError
		if errors.As(lastErr, &fe) && (fe.Kind == model.KindAuthFailed || fe.Kind == model.KindRateLimited) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return lastErr
		}
		var jitter time.Duration
		if half := int64(delay / 2); half > 0 {
			jitter = time.Duration(rand.Int63n(half))
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(delay + jitter):
		}
		delay *= 2
	}
	return lastErr
}
