package adapters

import (
	"github.com/cordlesssteve/topolop/internal/config"
)

// Credentials carries vendor secrets resolved by the caller (environment,
// dotenv). Adapters never read the environment themselves.
type Credentials struct {
	NewRelicAPIKey string
	DatadogAPIKey  string
	DatadogAppKey  string
	SnykToken      string
	GeminiAPIKey   string
}

// Catalog builds every built-in adapter wired with config and credentials.
// The enabled/disabled filter is the harness's job, not the catalog's.
func Catalog(cfg config.Config, creds Credentials, root string) []Adapter {
	return []Adapter{
		NewClippy(),
		NewMypy(),
		NewBandit(),
		NewSemgrep(),
		NewClang(root),
		NewCBMC(),
		NewNpmAudit(),
		NewOSV(),
		NewDepcheck(),
		NewLicenseChecker(),
		NewNewRelic(cfg.Adapters.NewRelic, creds.NewRelicAPIKey),
		NewDatadog(cfg.Adapters.Datadog, creds.DatadogAPIKey, creds.DatadogAppKey),
		NewSnyk(cfg.Adapters.Snyk, creds.SnykToken),
		NewGemini(cfg.Adapters.Gemini, creds.GeminiAPIKey),
	}
}
