package adapters

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

// ClangReportFile is the conventional analyzer output location. The analyzer
// needs the project's compile commands, so the build pipeline produces the
// SARIF file and this adapter only ingests it.
const ClangReportFile = "clang-analyzer.sarif"

// SARIF 2.1.0 (simplified): results address files either by uri or by index
// into the run's artifacts table.
type sarifReport struct {
	Runs []struct {
		Tool struct {
			Driver struct {
				Name    string `json:"name"`
				Version string `json:"version"`
			} `json:"driver"`
		} `json:"tool"`
		Artifacts []struct {
			Location struct {
				URI string `json:"uri"`
			} `json:"location"`
		} `json:"artifacts"`
		Results []struct {
			RuleID  string `json:"ruleId"`
			Level   string `json:"level"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI   string `json:"uri"`
						Index *int   `json:"index"`
					} `json:"artifactLocation"`
					Region struct {
						StartLine   int `json:"startLine"`
						StartColumn int `json:"startColumn"`
						EndLine     int `json:"endLine"`
						EndColumn   int `json:"endColumn"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
		} `json:"results"`
	} `json:"runs"`
}

// Clang ingests Clang Static Analyzer SARIF reports.
type Clang struct {
	root string
}

func NewClang(root string) *Clang { return &Clang{root: root} }

func (c *Clang) Descriptor() Descriptor {
	return Descriptor{
		Name:               "clang",
		DisplayName:        "Clang Static Analyzer",
		Kind:               KindReport,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisSecurity, model.AnalysisQuality},
		SupportedFileTypes: []string{".c", ".cc", ".cpp", ".h", ".hpp"},
		Capabilities:       []string{"report-file", "file-table"},
		Severities: model.SeverityTable{
			"error":   model.SeverityHigh,
			"warning": model.SeverityMedium,
			"note":    model.SeverityInfo,
			"none":    model.SeverityInfo,
			"default": model.SeverityMedium,
		},
	}
}

func (c *Clang) Probe(ctx context.Context) Availability {
	path := filepath.Join(c.root, ClangReportFile)
	if _, err := os.Stat(path); err != nil {
		return Availability{Diagnostics: []string{ClangReportFile + " not found; run the analyzer during the build"}}
	}
	return Availability{Available: true}
}

func (c *Clang) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	start := time.Now()
	b, err := os.ReadFile(filepath.Join(scope.Root, ClangReportFile))
	if err != nil {
		return nil, model.Unavailable("clang", err.Error())
	}
	return &RawResult{Tool: "clang", Raw: b, Duration: time.Since(start)}, nil
}

func (c *Clang) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var doc sarifReport
	if err := json.Unmarshal(raw.Raw, &doc); err != nil {
		return model.ParseFailure("clang", err)
	}
	for _, run := range doc.Runs {
		table := make([]string, len(run.Artifacts))
		for i, a := range run.Artifacts {
			table[i] = a.Location.URI
		}
		for _, r := range run.Results {
			spec := model.IssueSpec{
				RawSeverity: r.Level,
				Type:        clangAnalysisType(r.RuleID),
				Title:       r.Message.Text,
				RuleID:      r.RuleID,
				Patterns:    clangPatterns(r.RuleID),
			}
			if len(r.Locations) == 0 {
				continue
			}
			loc := r.Locations[0].PhysicalLocation
			switch {
			case loc.ArtifactLocation.URI != "":
				spec.Path = loc.ArtifactLocation.URI
			case loc.ArtifactLocation.Index != nil:
				spec.PathRef = loc.ArtifactLocation.Index
				spec.FileTable = table
			default:
				continue
			}
			if loc.Region.StartLine >= 1 {
				spec.Line = loc.Region.StartLine
				spec.Column = loc.Region.StartColumn
				if spec.Column < 1 {
					spec.Column = 1
				}
				spec.EndLine = loc.Region.EndLine
				spec.EndColumn = loc.Region.EndColumn
			}
			cv.Emit(spec)
		}
	}
	return nil
}

func clangAnalysisType(ruleID string) model.AnalysisType {
	if strings.HasPrefix(ruleID, "security.") || strings.HasPrefix(ruleID, "alpha.security.") {
		return model.AnalysisSecurity
	}
	return model.AnalysisQuality
}

func clangPatterns(ruleID string) []string {
	var out []string
	switch {
	case strings.HasPrefix(ruleID, "core.Null"), strings.HasPrefix(ruleID, "core.uninitialized"),
		strings.HasPrefix(ruleID, "unix.Malloc"), strings.HasPrefix(ruleID, "cplusplus.NewDelete"),
		strings.Contains(ruleID, "ArrayBound"), strings.Contains(ruleID, "insecureAPI"):
		out = append(out, model.PatternMemorySafety)
	case strings.HasPrefix(ruleID, "deadcode."):
		out = append(out, model.PatternDeadCode)
	case strings.Contains(ruleID, "unix.API"):
		out = append(out, model.PatternResourceLeak)
	}
	return out
}
