package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_PartBoundariesMatter(t *testing.T) {
	assert.Len(t, Key("osv", "abc"), 16)
	assert.Equal(t, Key("osv", "abc"), Key("osv", "abc"))
	assert.NotEqual(t, Key("osv", "abc"), Key("os", "vabc"), "parts are delimited, not concatenated")
}

func TestStoreLoad_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	key := Key("test", "payload")
	require.NoError(t, Store(key, []byte(`{"vulns":[]}`)))

	got, ok := Load(key, time.Hour)
	require.True(t, ok)
	assert.Equal(t, `{"vulns":[]}`, string(got))

	_, ok = Load("0000000000000000", time.Hour)
	assert.False(t, ok, "unknown key misses")
}

func TestLoad_StaleEntryMisses(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	key := Key("test", "stale")
	require.NoError(t, Store(key, []byte("old")))

	dir, err := Dir()
	require.NoError(t, err)
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, key), past, past))

	_, ok := Load(key, time.Hour)
	assert.False(t, ok)

	got, ok := Load(key, 0)
	require.True(t, ok, "maxAge <= 0 skips the freshness check")
	assert.Equal(t, "old", string(got))
}
