package adapters

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/cordlesssteve/topolop/internal/model"
)

// mypy --output=json lines (simplified)
type mypyLine struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
	Hint     string `json:"hint"`
	Code     string `json:"code"`
	Severity string `json:"severity"` // error|note
}

// Mypy type-checks a Python tree and ingests its JSON diagnostic lines.
type Mypy struct{}

func NewMypy() *Mypy { return &Mypy{} }

func (m *Mypy) Descriptor() Descriptor {
	return Descriptor{
		Name:               "mypy",
		DisplayName:        "MyPy",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisSemantic},
		SupportedFileTypes: []string{".py", ".pyi"},
		RequiredTools:      []string{"mypy"},
		Severities: model.SeverityTable{
			"error":   model.SeverityHigh,
			"note":    model.SeverityInfo,
			"default": model.SeverityMedium,
		},
	}
}

func (m *Mypy) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "mypy", "--version")
}

func (m *Mypy) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	target := "."
	if scope.Artifact != "" {
		target = scope.Artifact
	}
	res := runTool(ctx, scope.Root, "mypy", "--output=json", "--no-error-summary", target)
	raw := &RawResult{Tool: "mypy", Raw: res.Stdout, Duration: res.Duration}
	if res.Err != nil {
		if errors.Is(res.Err, context.DeadlineExceeded) && len(res.Stdout) > 0 {
			raw.Partial = true
			return raw, res.Err
		}
		return nil, res.Err
	}
	return raw, nil
}

func (m *Mypy) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	sc := bufio.NewScanner(bytes.NewReader(raw.Raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	parsed := 0
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var d mypyLine
		if err := json.Unmarshal(line, &d); err != nil {
			continue
		}
		parsed++
		if d.Severity == "note" && d.Code == "" {
			continue // follow-up notes repeat the preceding error
		}
		col := d.Column
		if d.Line >= 1 && col < 1 {
			col = 1 // column is 0-based in some mypy versions
		}
		cv.Emit(model.IssueSpec{
			Path:        d.File,
			RawSeverity: d.Severity,
			Type:        model.AnalysisSemantic,
			Title:       d.Message,
			Description: d.Hint,
			RuleID:      "mypy:" + d.Code,
			Line:        d.Line,
			Column:      col,
			Patterns:    mypyPatterns(d.Code),
		})
	}
	if parsed == 0 && len(bytes.TrimSpace(raw.Raw)) > 0 {
		return model.ParseFailure("mypy", errors.New("no parseable diagnostic lines"))
	}
	return nil
}

func mypyPatterns(code string) []string {
	switch code {
	case "arg-type", "assignment", "return-value", "union-attr", "attr-defined":
		return []string{model.PatternTypeConfusion}
	case "unused-ignore", "unused-coroutine":
		return []string{model.PatternDeadCode}
	}
	return nil
}
