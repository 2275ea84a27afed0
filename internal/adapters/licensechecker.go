package adapters

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/cordlesssteve/topolop/internal/model"
)

// license-checker --json: a map keyed by pkg@version. The licenses field may
// be a string or a list.
type licenseEntry struct {
	Licenses    any    `json:"licenses"`
	Repository  string `json:"repository"`
	Path        string `json:"path"`
	LicenseFile string `json:"licenseFile"`
}

// copyleft licenses that commonly conflict with proprietary distribution
var copyleftLicenses = map[string]bool{
	"GPL-2.0": true, "GPL-3.0": true, "AGPL-1.0": true, "AGPL-3.0": true,
	"GPL-2.0-only": true, "GPL-3.0-only": true, "AGPL-3.0-only": true,
}

// LicenseChecker flags dependency licenses that need review.
type LicenseChecker struct{}

func NewLicenseChecker() *LicenseChecker { return &LicenseChecker{} }

func (l *LicenseChecker) Descriptor() Descriptor {
	return Descriptor{
		Name:               "license-checker",
		DisplayName:        "license-checker",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisDepLicensing},
		SupportedFileTypes: []string{"package.json"},
		RequiredTools:      []string{"license-checker"},
		Severities: model.SeverityTable{
			"copyleft": model.SeverityHigh,
			"unknown":  model.SeverityMedium,
			"default":  model.SeverityInfo,
		},
	}
}

func (l *LicenseChecker) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "license-checker", "--version")
}

func (l *LicenseChecker) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	args := []string{"--json"}
	if !scope.IncludeDev {
		args = append(args, "--production")
	}
	res := runTool(ctx, scope.Root, "license-checker", args...)
	if res.Err != nil {
		return nil, res.Err
	}
	return &RawResult{Tool: "license-checker", Raw: res.Stdout, Duration: res.Duration}, nil
}

func (l *LicenseChecker) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var entries map[string]licenseEntry
	if err := json.Unmarshal(raw.Raw, &entries); err != nil {
		return model.ParseFailure("license-checker", err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		entry := entries[key]
		name := key
		if i := strings.LastIndex(key, "@"); i > 0 {
			name = key[:i]
		}
		for _, lic := range licenseNames(entry.Licenses) {
			class, rawSev := classifyLicense(lic)
			if class == "" {
				continue
			}
			path := entry.Path
			if path == "" {
				path = "package.json"
			}
			cv.Emit(model.IssueSpec{
				Path:        path,
				EntityType:  model.EntityTypeDependency,
				EntityName:  name,
				RawSeverity: rawSev,
				Type:        model.AnalysisDepLicensing,
				Title:       name + " is licensed " + lic,
				RuleID:      "license:" + class,
				Patterns:    []string{model.PatternLicenseCompliance},
				Metadata:    map[string]any{"package": key, "license": lic},
			})
		}
	}
	return nil
}

// classifyLicense returns the rule class and the raw severity token, or empty
// when the license needs no review.
func classifyLicense(lic string) (class, rawSev string) {
	spdx := strings.TrimSuffix(strings.TrimSpace(lic), "*")
	if copyleftLicenses[spdx] {
		return "copyleft", "copyleft"
	}
	up := strings.ToUpper(spdx)
	if up == "UNKNOWN" || up == "UNLICENSED" || strings.HasPrefix(up, "CUSTOM") {
		return "unknown", "unknown"
	}
	return "", ""
}

func licenseNames(v any) []string {
	switch t := v.(type) {
	case string:
		if t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
