package adapters

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/cordlesssteve/topolop/internal/model"
)

// cargo message stream (simplified)
type clippyLine struct {
	Reason  string `json:"reason"`
	Message struct {
		Message string `json:"message"`
		Level   string `json:"level"`
		Code    *struct {
			Code string `json:"code"`
		} `json:"code"`
		Spans []struct {
			FileName    string `json:"file_name"`
			LineStart   int    `json:"line_start"`
			LineEnd     int    `json:"line_end"`
			ColumnStart int    `json:"column_start"`
			ColumnEnd   int    `json:"column_end"`
			IsPrimary   bool   `json:"is_primary"`
		} `json:"spans"`
		Children []struct {
			Level   string `json:"level"`
			Message string `json:"message"`
		} `json:"children"`
	} `json:"message"`
}

// Clippy runs cargo clippy over a Rust workspace and ingests its NDJSON
// message stream.
type Clippy struct{}

func NewClippy() *Clippy { return &Clippy{} }

func (c *Clippy) Descriptor() Descriptor {
	return Descriptor{
		Name:               "clippy",
		DisplayName:        "Cargo Clippy",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisQuality},
		SupportedFileTypes: []string{".rs"},
		RequiredTools:      []string{"cargo"},
		Capabilities:       []string{"streaming"},
		Severities: model.SeverityTable{
			"error":   model.SeverityHigh,
			"warning": model.SeverityMedium,
			"note":    model.SeverityInfo,
			"help":    model.SeverityInfo,
			"default": model.SeverityMedium,
		},
	}
}

func (c *Clippy) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "cargo", "clippy", "--version")
}

func (c *Clippy) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	args := []string{"clippy", "--quiet", "--message-format=json"}
	if scope.IncludeDev {
		args = append(args, "--all-targets")
	}
	res := runTool(ctx, scope.Root, "cargo", args...)
	raw := &RawResult{Tool: "clippy", Raw: res.Stdout, Duration: res.Duration}
	if res.Err != nil {
		if errors.Is(res.Err, context.DeadlineExceeded) && len(res.Stdout) > 0 {
			raw.Partial = true
			return raw, res.Err
		}
		return nil, res.Err
	}
	return raw, nil
}

func (c *Clippy) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	sc := bufio.NewScanner(bytes.NewReader(raw.Raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	parsed := 0
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg clippyLine
		if err := json.Unmarshal(line, &msg); err != nil {
			continue // truncated tail lines on partial output
		}
		parsed++
		if msg.Reason != "compiler-message" || msg.Message.Code == nil {
			continue
		}
		var spec model.IssueSpec
		spec.RawSeverity = msg.Message.Level
		spec.Type = model.AnalysisQuality
		spec.Title = msg.Message.Message
		spec.RuleID = msg.Message.Code.Code
		spec.Patterns = clippyPatterns(msg.Message.Code.Code)
		for _, ch := range msg.Message.Children {
			if ch.Level == "help" && ch.Message != "" {
				spec.Description = ch.Message
				break
			}
		}
		for _, sp := range msg.Message.Spans {
			if !sp.IsPrimary {
				continue
			}
			spec.Path = sp.FileName
			spec.Line = sp.LineStart
			spec.Column = sp.ColumnStart
			spec.EndLine = sp.LineEnd
			spec.EndColumn = sp.ColumnEnd
			break
		}
		if spec.Path == "" {
			continue // crate-level message, nothing to attach to
		}
		cv.Emit(spec)
	}
	if parsed == 0 && len(bytes.TrimSpace(raw.Raw)) > 0 {
		return model.ParseFailure("clippy", errors.New("no parseable message lines"))
	}
	return nil
}

func clippyPatterns(code string) []string {
	var out []string
	switch {
	case strings.Contains(code, "transmute"), strings.Contains(code, "mem_forget"),
		strings.Contains(code, "uninit"), strings.Contains(code, "dangling"):
		out = append(out, model.PatternMemorySafety)
	case strings.Contains(code, "unwrap_used"), strings.Contains(code, "expect_used"),
		strings.Contains(code, "panic"):
		out = append(out, model.PatternAssertionFailure)
	case code == "dead_code", strings.Contains(code, "unused"):
		out = append(out, model.PatternDeadCode)
	}
	return out
}
