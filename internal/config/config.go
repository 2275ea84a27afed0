// Package config loads .topolop.yml settings. Secrets never live here: the
// CLI resolves tokens from the environment and hands them down, config
// carries only the non-secret knobs (account ids, endpoints, thresholds).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const FileName = ".topolop.yml"

type IgnoreRule struct {
	Rule    string `yaml:"rule"`
	Path    string `yaml:"path"`
	Reason  string `yaml:"reason"`
	Expires string `yaml:"expires"` // YYYY-MM-DD, empty = never
}

type PathsConfig struct {
	CaseInsensitive bool `yaml:"case_insensitive"`
}

type CorrelationConfig struct {
	ProximityLines   int  `yaml:"proximity_lines"`
	SameTypePatterns bool `yaml:"same_type_patterns"`
}

// DistrictRule pins paths matching a doublestar glob to a named district,
// before the directory/purpose inference runs.
type DistrictRule struct {
	Pattern  string `yaml:"pattern"`
	District string `yaml:"district"`
}

type CityConfig struct {
	MaxHeight     float64        `yaml:"max_height"`
	Districts     string         `yaml:"districts"` // directory | purpose
	DistrictRules []DistrictRule `yaml:"district_rules"`
}

type NewRelicConfig struct {
	AccountID string `yaml:"account_id"`
	AppID     string `yaml:"app_id"`
	BaseURL   string `yaml:"base_url"`
}

type DatadogConfig struct {
	Site    string `yaml:"site"`
	BaseURL string `yaml:"base_url"`
}

type SnykConfig struct {
	OrgID           string `yaml:"org_id"`
	BaseURL         string `yaml:"base_url"`
	RequestsPerHour int    `yaml:"requests_per_hour"`
}

type GeminiConfig struct {
	Model string `yaml:"model"`
}

type AdaptersConfig struct {
	Enabled  []string       `yaml:"enabled"`  // empty = everything that probes OK
	Disabled []string       `yaml:"disabled"` // always wins over enabled
	NewRelic NewRelicConfig `yaml:"newrelic"`
	Datadog  DatadogConfig  `yaml:"datadog"`
	Snyk     SnykConfig     `yaml:"snyk"`
	Gemini   GeminiConfig   `yaml:"gemini"`
}

type ExportConfig struct {
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	UseSSL   bool   `yaml:"use_ssl"`
}

type Config struct {
	SeverityThreshold string            `yaml:"threshold"`
	TimeoutMs         int               `yaml:"timeout_ms"`
	IncludeDev        bool              `yaml:"include_dev"`
	Paths             PathsConfig       `yaml:"paths"`
	Correlation       CorrelationConfig `yaml:"correlation"`
	City              CityConfig        `yaml:"city"`
	Adapters          AdaptersConfig    `yaml:"adapters"`
	Ignore            []IgnoreRule      `yaml:"ignore"`
	Export            ExportConfig      `yaml:"export"`
}

func Default() Config {
	return Config{
		SeverityThreshold: "info",
		TimeoutMs:         120000,
		Correlation:       CorrelationConfig{ProximityLines: 5},
		City:              CityConfig{MaxHeight: 50, Districts: "directory"},
		Adapters: AdaptersConfig{
			NewRelic: NewRelicConfig{BaseURL: "https://api.newrelic.com/v2"},
			Datadog:  DatadogConfig{Site: "datadoghq.com"},
			Snyk:     SnykConfig{BaseURL: "https://api.snyk.io/rest", RequestsPerHour: 50},
			Gemini:   GeminiConfig{Model: "gemini-1.5-flash"},
		},
		Export: ExportConfig{Bucket: "topolop-reports", UseSSL: true},
	}
}

// Load searches upward from startDir for .topolop.yml and unmarshals it over
// the defaults. Missing file is not an error; a malformed file is.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, err
			}
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, fmt.Errorf("parse %s: %w", candidate, err)
			}
			return cfg, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// AdapterEnabled reports whether the named adapter should run. The disabled
// list always wins; an empty enabled list means everything runs.
func (c Config) AdapterEnabled(name string) bool {
	for _, d := range c.Adapters.Disabled {
		if d == name {
			return false
		}
	}
	if len(c.Adapters.Enabled) == 0 {
		return true
	}
	for _, e := range c.Adapters.Enabled {
		if e == name {
			return true
		}
	}
	return false
}
