package adapters

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cordlesssteve/topolop/internal/cache"
	"github.com/cordlesssteve/topolop/internal/model"
)

// osvCacheAge bounds how long a scan result stays valid; advisories for an
// unchanged lockfile can still be published after the fact.
const osvCacheAge = 24 * time.Hour

var osvLockfiles = []string{
	"package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"Cargo.lock", "go.mod", "requirements.txt", "poetry.lock",
	"Gemfile.lock", "composer.lock",
}

// osv-scanner --format json (simplified)
type osvOut struct {
	Results []struct {
		Source struct {
			Path string `json:"path"`
			Type string `json:"type"`
		} `json:"source"`
		Packages []struct {
			Package struct {
				Name      string `json:"name"`
				Version   string `json:"version"`
				Ecosystem string `json:"ecosystem"`
			} `json:"package"`
			Vulnerabilities []struct {
				ID               string   `json:"id"`
				Aliases          []string `json:"aliases"`
				Summary          string   `json:"summary"`
				DatabaseSpecific struct {
					Severity string `json:"severity"`
				} `json:"database_specific"`
			} `json:"vulnerabilities"`
			Groups []struct {
				IDs         []string `json:"ids"`
				MaxSeverity string   `json:"max_severity"`
			} `json:"groups"`
		} `json:"packages"`
	} `json:"results"`
}

// OSV scans lockfiles against the OSV vulnerability database. Results are
// cached by lockfile content hash so repeat runs skip the network.
type OSV struct{}

func NewOSV() *OSV { return &OSV{} }

func (o *OSV) Descriptor() Descriptor {
	return Descriptor{
		Name:               "osv",
		DisplayName:        "OSV-Scanner",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisDepSecurity},
		SupportedFileTypes: osvLockfiles,
		RequiredTools:      []string{"osv-scanner"},
		Capabilities:       []string{"cache"},
		Severities: model.SeverityTable{
			"critical": model.SeverityCritical,
			"high":     model.SeverityHigh,
			"moderate": model.SeverityMedium,
			"medium":   model.SeverityMedium,
			"low":      model.SeverityLow,
			"default":  model.SeverityMedium,
		},
	}
}

func (o *OSV) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "osv-scanner", "--version")
}

func (o *OSV) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	start := time.Now()
	key, found := o.cacheKey(scope.Root)
	if !found {
		// nothing to scan; an empty result keeps the outcome ok, not failed
		return &RawResult{Tool: "osv", Raw: []byte(`{"results":[]}`), Duration: time.Since(start)}, nil
	}
	if raw, ok := cache.Load(key, osvCacheAge); ok {
		return &RawResult{
			Tool:     "osv",
			Raw:      raw,
			Duration: time.Since(start),
			Meta:     map[string]string{"cache": "hit"},
		}, nil
	}

	res := runTool(ctx, scope.Root, "osv-scanner", "--format", "json", "-r", ".")
	if res.Err != nil {
		return nil, res.Err
	}
	// exit 1 means vulnerabilities found; the document is still complete
	if json.Valid(res.Stdout) {
		_ = cache.Store(key, res.Stdout)
	}
	return &RawResult{Tool: "osv", Raw: res.Stdout, Duration: res.Duration}, nil
}

// cacheKey hashes every recognized lockfile under the root in sorted order.
func (o *OSV) cacheKey(root string) (string, bool) {
	var parts []string
	for _, name := range osvLockfiles {
		matches, _ := filepath.Glob(filepath.Join(root, name))
		parts = append(parts, matches...)
	}
	sort.Strings(parts)
	keyParts := []string{"osv"}
	for _, p := range parts {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		keyParts = append(keyParts, filepath.Base(p), cache.Key(string(b)))
	}
	if len(keyParts) == 1 {
		return "", false
	}
	return cache.Key(keyParts...), true
}

func (o *OSV) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var doc osvOut
	if err := json.Unmarshal(raw.Raw, &doc); err != nil {
		return model.ParseFailure("osv", err)
	}
	for _, res := range doc.Results {
		for _, pkg := range res.Packages {
			maxSeverity := ""
			for _, g := range pkg.Groups {
				if g.MaxSeverity != "" {
					maxSeverity = g.MaxSeverity
				}
			}
			for _, v := range pkg.Vulnerabilities {
				rawSev := strings.ToLower(v.DatabaseSpecific.Severity)
				if rawSev == "" {
					rawSev = severityFromCVSS(maxSeverity)
				}
				md := map[string]any{
					"package":   pkg.Package.Name,
					"version":   pkg.Package.Version,
					"ecosystem": pkg.Package.Ecosystem,
				}
				if len(v.Aliases) > 0 {
					md["aliases"] = v.Aliases
				}
				cv.Emit(model.IssueSpec{
					Path:        res.Source.Path,
					EntityType:  model.EntityTypeDependency,
					EntityName:  pkg.Package.Name,
					RawSeverity: rawSev,
					Type:        model.AnalysisDepSecurity,
					Title:       pkg.Package.Name + ": " + v.Summary,
					RuleID:      v.ID,
					Patterns:    []string{model.PatternDependencyVulnerability},
					Metadata:    md,
				})
			}
		}
	}
	return nil
}

// severityFromCVSS buckets a CVSS base score string the way the OSV UI does.
func severityFromCVSS(score string) string {
	f, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return ""
	}
	switch {
	case f >= 9:
		return "critical"
	case f >= 7:
		return "high"
	case f >= 4:
		return "medium"
	default:
		return "low"
	}
}
