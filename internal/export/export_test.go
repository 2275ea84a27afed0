package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/logging"
)

func TestNew_RequiresEndpoint(t *testing.T) {
	cfg := config.ExportConfig{Bucket: "topolop-reports"}
	_, err := New(cfg, "ak", "sk", logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestNew_RequiresBucket(t *testing.T) {
	cfg := config.ExportConfig{Endpoint: "minio.internal:9000"}
	_, err := New(cfg, "ak", "sk", logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestKey_JoinsPrefixRunAndName(t *testing.T) {
	cfg := config.ExportConfig{Endpoint: "minio.internal:9000", Bucket: "b", Prefix: "ci/nightly"}
	u, err := New(cfg, "ak", "sk", logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "ci/nightly/run-1/topolop-results.json", u.Key("run-1", "topolop-results.json"))
}

func TestKey_EmptyPrefix(t *testing.T) {
	cfg := config.ExportConfig{Endpoint: "minio.internal:9000", Bucket: "b"}
	u, err := New(cfg, "ak", "sk", logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "run-1/topolop.sarif", u.Key("run-1", SARIFFileName))
}
