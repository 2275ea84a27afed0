package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordlesssteve/topolop/internal/model"
)

func TestRequestWindow_FailsFastAtBudget(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w := newRequestWindow("snyk", 3, time.Hour)
	w.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		require.NoError(t, w.Allow())
	}
	err := w.Allow()
	require.Error(t, err)
	assert.Equal(t, model.KindRateLimited, model.KindOf(err))
}

func TestRequestWindow_ExpiredRequestsFreeBudget(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w := newRequestWindow("snyk", 2, time.Hour)
	w.now = func() time.Time { return clock }

	require.NoError(t, w.Allow())
	require.NoError(t, w.Allow())
	require.Error(t, w.Allow())

	clock = clock.Add(61 * time.Minute)
	assert.NoError(t, w.Allow(), "requests older than the window no longer count")
}

func TestRequestWindow_ZeroLimitDisablesTracking(t *testing.T) {
	w := newRequestWindow("newrelic", 0, time.Hour)
	for i := 0; i < 1000; i++ {
		require.NoError(t, w.Allow())
	}
	assert.Empty(t, w.sent)
}
