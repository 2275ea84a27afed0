package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

// cbmcMaxFiles bounds how many sources one run model-checks; CBMC is orders of
// magnitude slower than lint-class tools.
const cbmcMaxFiles = 20

// cbmc --json-ui (simplified): a message array whose "result" entries hold the
// property verdicts. Source locations ride on the trace steps and line numbers
// arrive as strings.
type cbmcDoc []struct {
	Result []struct {
		Description string `json:"description"`
		Property    string `json:"property"`
		Status      string `json:"status"`
		Trace       []struct {
			SourceLocation struct {
				File     string `json:"file"`
				Function string `json:"function"`
				Line     any    `json:"line"`
			} `json:"sourceLocation"`
		} `json:"trace"`
	} `json:"result"`
}

// CBMC bounded-model-checks C sources one file at a time.
type CBMC struct{}

func NewCBMC() *CBMC { return &CBMC{} }

func (c *CBMC) Descriptor() Descriptor {
	return Descriptor{
		Name:               "cbmc",
		DisplayName:        "CBMC",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisSemantic},
		SupportedFileTypes: []string{".c"},
		RequiredTools:      []string{"cbmc"},
		Severities: model.SeverityTable{
			"FAILURE": model.SeverityHigh,
			"default": model.SeverityMedium,
		},
	}
}

func (c *CBMC) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "cbmc", "--version")
}

func (c *CBMC) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	start := time.Now()
	files, err := c.targets(scope)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &RawResult{Tool: "cbmc", Raw: []byte("[]"), Duration: time.Since(start)}, nil
	}

	var chunks [][]byte
	partial := false
	for _, f := range files {
		if ctx.Err() != nil {
			partial = true
			break
		}
		res := runTool(ctx, scope.Root, "cbmc", "--json-ui", "--bounds-check", "--pointer-check", f)
		if res.Err != nil {
			if errors.Is(res.Err, context.DeadlineExceeded) || errors.Is(res.Err, context.Canceled) {
				partial = true
				break
			}
			continue // one unverifiable file must not sink the rest
		}
		if len(bytes.TrimSpace(res.Stdout)) > 0 {
			chunks = append(chunks, res.Stdout)
		}
	}

	raw := &RawResult{
		Tool:     "cbmc",
		Raw:      joinJSONArray(chunks),
		Partial:  partial,
		Duration: time.Since(start),
		Meta:     map[string]string{"files": strconv.Itoa(len(files))},
	}
	if partial && len(chunks) == 0 {
		return nil, ctx.Err()
	}
	if partial {
		return raw, ctx.Err()
	}
	return raw, nil
}

func (c *CBMC) targets(scope Scope) ([]string, error) {
	if scope.Artifact != "" {
		return []string{scope.Artifact}, nil
	}
	var files []string
	err := filepath.WalkDir(scope.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "target" || name == "build" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".c" {
			return nil
		}
		rel, err := filepath.Rel(scope.Root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		if len(files) >= cbmcMaxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (c *CBMC) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var docs []json.RawMessage
	if err := json.Unmarshal(raw.Raw, &docs); err != nil {
		return model.ParseFailure("cbmc", err)
	}
	for _, docRaw := range docs {
		var doc cbmcDoc
		if err := json.Unmarshal(docRaw, &doc); err != nil {
			continue
		}
		for _, msg := range doc {
			for _, r := range msg.Result {
				if r.Status != "FAILURE" {
					continue
				}
				spec := model.IssueSpec{
					RawSeverity: r.Status,
					Type:        model.AnalysisSemantic,
					Title:       r.Description,
					RuleID:      "cbmc:" + propertyClass(r.Property),
					Patterns:    cbmcPatterns(r.Property),
					Metadata:    map[string]any{"property": r.Property},
				}
				// the last trace step with a file is the failure site
				for i := len(r.Trace) - 1; i >= 0; i-- {
					loc := r.Trace[i].SourceLocation
					if loc.File == "" {
						continue
					}
					spec.Path = loc.File
					if line := flexInt(loc.Line); line >= 1 {
						spec.Line = line
						spec.Column = 1
					}
					break
				}
				if spec.Path == "" {
					continue
				}
				cv.Emit(spec)
			}
		}
	}
	return nil
}

// propertyClass strips the per-instance suffix: main.pointer_dereference.1
// becomes pointer_dereference.
func propertyClass(property string) string {
	parts := strings.Split(property, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return property
}

func cbmcPatterns(property string) []string {
	switch {
	case strings.Contains(property, "pointer"), strings.Contains(property, "bounds"),
		strings.Contains(property, "overflow"), strings.Contains(property, "memory"):
		return []string{model.PatternMemorySafety}
	case strings.Contains(property, "assertion"):
		return []string{model.PatternAssertionFailure}
	case strings.Contains(property, "leak"):
		return []string{model.PatternResourceLeak}
	}
	return nil
}

// flexInt coerces the number-or-string encodings CBMC uses for line numbers.
func flexInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			return n
		}
	}
	return 0
}

// joinJSONArray wraps per-file JSON documents into one parseable array.
func joinJSONArray(chunks [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range chunks {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(bytes.TrimSpace(c))
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
