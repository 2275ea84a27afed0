package adapters

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cordlesssteve/topolop/internal/model"
)

// bandit -f json (simplified)
type banditOut struct {
	Results []struct {
		Filename        string `json:"filename"`
		LineNumber      int    `json:"line_number"`
		ColOffset       int    `json:"col_offset"`
		IssueSeverity   string `json:"issue_severity"`
		IssueConfidence string `json:"issue_confidence"`
		IssueText       string `json:"issue_text"`
		TestID          string `json:"test_id"`
		TestName        string `json:"test_name"`
		IssueCwe        struct {
			ID int `json:"id"`
		} `json:"issue_cwe"`
	} `json:"results"`
	Errors []struct {
		Filename string `json:"filename"`
		Reason   string `json:"reason"`
	} `json:"errors"`
}

// Bandit scans Python sources for security defects.
type Bandit struct{}

func NewBandit() *Bandit { return &Bandit{} }

func (b *Bandit) Descriptor() Descriptor {
	return Descriptor{
		Name:               "bandit",
		DisplayName:        "Bandit",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisSecurity},
		SupportedFileTypes: []string{".py"},
		RequiredTools:      []string{"bandit"},
		Severities: model.SeverityTable{
			"HIGH":    model.SeverityHigh,
			"MEDIUM":  model.SeverityMedium,
			"LOW":     model.SeverityLow,
			"default": model.SeverityMedium,
		},
	}
}

func (b *Bandit) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "bandit", "--version")
}

func (b *Bandit) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	target := "."
	if scope.Artifact != "" {
		target = scope.Artifact
	}
	res := runTool(ctx, scope.Root, "bandit", "-r", "-f", "json", "-q", target)
	if res.Err != nil {
		return nil, res.Err
	}
	return &RawResult{Tool: "bandit", Raw: res.Stdout, Duration: res.Duration}, nil
}

func (b *Bandit) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var o banditOut
	if err := json.Unmarshal(raw.Raw, &o); err != nil {
		return model.ParseFailure("bandit", err)
	}
	for _, r := range o.Results {
		col := r.ColOffset + 1 // 0-based in bandit output
		if r.LineNumber < 1 {
			col = 0
		}
		md := map[string]any{"confidence": strings.ToLower(r.IssueConfidence)}
		if r.IssueCwe.ID > 0 {
			md["cwe"] = r.IssueCwe.ID
		}
		cv.Emit(model.IssueSpec{
			Path:        r.Filename,
			RawSeverity: r.IssueSeverity,
			Type:        model.AnalysisSecurity,
			Title:       r.IssueText,
			RuleID:      r.TestID,
			Line:        r.LineNumber,
			Column:      col,
			Patterns:    banditPatterns(r.TestName),
			Metadata:    md,
		})
	}
	return nil
}

func banditPatterns(testName string) []string {
	var out []string
	switch {
	case strings.Contains(testName, "password"), strings.Contains(testName, "hardcoded"):
		out = append(out, model.PatternCredentialExposure)
	case strings.Contains(testName, "sql"):
		out = append(out, model.PatternInjectionVulnerability)
	case strings.Contains(testName, "subprocess"), strings.Contains(testName, "shell"),
		strings.Contains(testName, "exec"):
		out = append(out, model.PatternCommandExecution)
	case strings.Contains(testName, "assert"):
		out = append(out, model.PatternAssertionFailure)
	}
	return out
}
