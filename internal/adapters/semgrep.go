package adapters

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cordlesssteve/topolop/internal/model"
)

// semgrep --json (simplified)
type semgrepOut struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
			Col  int `json:"col"`
		} `json:"start"`
		End struct {
			Line int `json:"line"`
			Col  int `json:"col"`
		} `json:"end"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"` // INFO|WARNING|ERROR
			Metadata struct {
				Cwe  any      `json:"cwe"` // string | []string | null
				Refs []string `json:"references"`
			} `json:"metadata"`
		} `json:"extra"`
	} `json:"results"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Semgrep runs semgrep with its default registry rules.
type Semgrep struct{}

func NewSemgrep() *Semgrep { return &Semgrep{} }

func (s *Semgrep) Descriptor() Descriptor {
	return Descriptor{
		Name:          "semgrep",
		DisplayName:   "Semgrep",
		Kind:          KindSubprocess,
		AnalysisTypes: []model.AnalysisType{model.AnalysisSecurity, model.AnalysisQuality},
		RequiredTools: []string{"semgrep"},
		Severities: model.SeverityTable{
			"ERROR":   model.SeverityHigh,
			"WARNING": model.SeverityMedium,
			"INFO":    model.SeverityInfo,
			"default": model.SeverityMedium,
		},
	}
}

func (s *Semgrep) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "semgrep", "--version")
}

func (s *Semgrep) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	target := "."
	if scope.Artifact != "" {
		target = scope.Artifact
	}
	res := runTool(ctx, scope.Root, "semgrep", "scan", "--config=auto", "--json", "--quiet", target)
	if res.Err != nil {
		return nil, res.Err
	}
	return &RawResult{Tool: "semgrep", Raw: res.Stdout, Duration: res.Duration}, nil
}

func (s *Semgrep) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var o semgrepOut
	if err := json.Unmarshal(raw.Raw, &o); err != nil {
		return model.ParseFailure("semgrep", err)
	}
	for _, r := range o.Results {
		var md map[string]any
		cwes := cweList(r.Extra.Metadata.Cwe)
		if len(cwes) > 0 {
			md = map[string]any{"cwe": cwes}
		}
		cv.Emit(model.IssueSpec{
			Path:        r.Path,
			RawSeverity: r.Extra.Severity,
			Type:        semgrepAnalysisType(r.CheckID),
			Title:       r.Extra.Message,
			RuleID:      r.CheckID,
			Line:        r.Start.Line,
			Column:      r.Start.Col,
			EndLine:     r.End.Line,
			EndColumn:   r.End.Col,
			Patterns:    semgrepPatterns(r.CheckID, cwes),
			Metadata:    md,
		})
	}
	return nil
}

func semgrepAnalysisType(checkID string) model.AnalysisType {
	if strings.Contains(checkID, "security") {
		return model.AnalysisSecurity
	}
	return model.AnalysisQuality
}

func semgrepPatterns(checkID string, cwes []string) []string {
	var out []string
	add := func(p string) {
		for _, have := range out {
			if have == p {
				return
			}
		}
		out = append(out, p)
	}
	switch {
	case strings.Contains(checkID, "hardcoded"), strings.Contains(checkID, "secret"):
		add(model.PatternCredentialExposure)
	case strings.Contains(checkID, "injection"), strings.Contains(checkID, "sqli"):
		add(model.PatternInjectionVulnerability)
	case strings.Contains(checkID, "exec"), strings.Contains(checkID, "subprocess"):
		add(model.PatternCommandExecution)
	}
	for _, cwe := range cwes {
		switch {
		case strings.HasPrefix(cwe, "CWE-798"), strings.HasPrefix(cwe, "CWE-259"):
			add(model.PatternCredentialExposure)
		case strings.HasPrefix(cwe, "CWE-89"), strings.HasPrefix(cwe, "CWE-79"):
			add(model.PatternInjectionVulnerability)
		case strings.HasPrefix(cwe, "CWE-78"), strings.HasPrefix(cwe, "CWE-77"):
			add(model.PatternCommandExecution)
		}
	}
	return out
}

// cweList flattens semgrep's cwe metadata, which may be a string, a list, or
// absent depending on the rule.
func cweList(v any) []string {
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
