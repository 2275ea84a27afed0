package adapters

import (
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

// requestWindow tracks a rolling request budget against a vendor API. Each
// adapter owns its own window, so no locking: Allow is only called from that
// adapter's goroutine.
type requestWindow struct {
	tool  string
	limit int
	span  time.Duration
	sent  []time.Time
	now   func() time.Time
}

func newRequestWindow(tool string, limit int, span time.Duration) *requestWindow {
	return &requestWindow{tool: tool, limit: limit, span: span, now: time.Now}
}

// Allow records one request if the budget permits. When the window is
// exhausted it fails fast with a RateLimited error; callers do not retry.
func (w *requestWindow) Allow() error {
	if w.limit <= 0 {
		return nil
	}
	now := w.now()
	cutoff := now.Add(-w.span)
	kept := w.sent[:0]
	for _, t := range w.sent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.sent = kept
	if len(w.sent) >= w.limit {
		return model.RateLimited(w.tool, "request budget exhausted for the current window")
	}
	w.sent = append(w.sent, now)
	return nil
}
