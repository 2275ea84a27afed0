package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
)

const (
	geminiMaxFiles    = 3
	geminiMaxFileSize = 30 * 1024
)

var geminiSourceExts = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true,
	".rs": true, ".c": true, ".cc": true, ".java": true,
}

const geminiPrompt = `Review the following source files for defects. Respond with a JSON array only,
no prose, no markdown fences. Each element:
{"file": "<path as given>", "line": <int>, "severity": "critical|high|medium|low|info",
"title": "<short>", "description": "<one sentence>", "category": "security|quality|performance"}
Report at most 10 findings. If there is nothing to report, respond with [].`

// gemini review reply element
type geminiFinding struct {
	File        string  `json:"file"`
	Line        int     `json:"line"`
	Severity    string  `json:"severity"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
}

// Gemini sends a bounded sample of source files to the Gemini API for an
// AI-powered review pass.
type Gemini struct {
	cfg    config.GeminiConfig
	apiKey string
}

func NewGemini(cfg config.GeminiConfig, apiKey string) *Gemini {
	return &Gemini{cfg: cfg, apiKey: apiKey}
}

func (g *Gemini) Descriptor() Descriptor {
	return Descriptor{
		Name:          "gemini",
		DisplayName:   "Gemini Review",
		Kind:          KindAI,
		AnalysisTypes: []model.AnalysisType{model.AnalysisAIPowered},
		Capabilities:  []string{"sampled"},
		Severities: model.SeverityTable{
			"critical": model.SeverityCritical,
			"high":     model.SeverityHigh,
			"medium":   model.SeverityMedium,
			"low":      model.SeverityLow,
			"info":     model.SeverityInfo,
			"default":  model.SeverityMedium,
		},
	}
}

func (g *Gemini) Probe(ctx context.Context) Availability {
	if g.apiKey == "" {
		return Availability{Diagnostics: []string{"GEMINI_API_KEY not set"}}
	}
	return Availability{Available: true}
}

func (g *Gemini) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	start := time.Now()
	files, err := g.sample(scope.Root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &RawResult{Tool: "gemini", Raw: []byte("[]"), Duration: time.Since(start)}, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, model.Unavailable("gemini", err.Error())
	}
	defer client.Close()

	mdl := client.GenerativeModel(g.cfg.Model)
	mdl.SetTemperature(0)

	var prompt strings.Builder
	prompt.WriteString(geminiPrompt)
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(scope.Root, f))
		if err != nil || len(b) > geminiMaxFileSize {
			continue
		}
		fmt.Fprintf(&prompt, "\n\n=== %s ===\n%s", f, b)
	}

	resp, err := mdl.GenerateContent(ctx, genai.Text(prompt.String()))
	if err != nil {
		return nil, model.NewError(model.KindUnavailable, "gemini", "generate failed", err)
	}
	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	return &RawResult{
		Tool:     "gemini",
		Raw:      stripFences([]byte(text.String())),
		Duration: time.Since(start),
		Meta:     map[string]string{"model": g.cfg.Model, "files": strings.Join(files, ",")},
	}, nil
}

// sample picks the largest source files; deterministic for a given tree.
func (g *Gemini) sample(root string) ([]string, error) {
	type cand struct {
		rel  string
		size int64
	}
	var cands []cand
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" || name == "target" {
				return filepath.SkipDir
			}
			return nil
		}
		if !geminiSourceExts[filepath.Ext(path)] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		cands = append(cands, cand{rel: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].size != cands[j].size {
			return cands[i].size > cands[j].size
		}
		return cands[i].rel < cands[j].rel
	})
	var out []string
	for _, c := range cands {
		if len(out) >= geminiMaxFiles {
			break
		}
		if c.size <= geminiMaxFileSize {
			out = append(out, c.rel)
		}
	}
	return out, nil
}

func (g *Gemini) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var findings []geminiFinding
	if err := json.Unmarshal(raw.Raw, &findings); err != nil {
		return model.ParseFailure("gemini", err)
	}
	for _, f := range findings {
		if f.File == "" || f.Title == "" {
			continue
		}
		col := 0
		if f.Line >= 1 {
			col = 1 // the model reports lines only
		}
		md := map[string]any{"model": raw.Meta["model"], "category": f.Category}
		if f.Confidence > 0 {
			md["confidence"] = f.Confidence
		}
		cv.Emit(model.IssueSpec{
			Path:        f.File,
			RawSeverity: strings.ToLower(f.Severity),
			Type:        model.AnalysisAIPowered,
			Title:       f.Title,
			Description: f.Description,
			RuleID:      "gemini:" + reviewClass(f.Category),
			Line:        f.Line,
			Column:      col,
			Patterns:    geminiPatterns(f),
			Metadata:    md,
		})
	}
	return nil
}

func reviewClass(category string) string {
	switch category {
	case "security", "performance":
		return category
	default:
		return "quality"
	}
}

func geminiPatterns(f geminiFinding) []string {
	text := strings.ToLower(f.Title + " " + f.Description)
	switch {
	case strings.Contains(text, "password"), strings.Contains(text, "secret"),
		strings.Contains(text, "credential"), strings.Contains(text, "api key"):
		return []string{model.PatternCredentialExposure}
	case strings.Contains(text, "injection"):
		return []string{model.PatternInjectionVulnerability}
	case strings.Contains(text, "leak"):
		return []string{model.PatternResourceLeak}
	case strings.Contains(text, "dead code"), strings.Contains(text, "unused"):
		return []string{model.PatternDeadCode}
	}
	return nil
}

// stripFences removes a markdown code fence if the model ignored the
// plain-JSON instruction.
func stripFences(b []byte) []byte {
	s := bytes.TrimSpace(b)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = bytes.TrimSpace(s)
	return bytes.TrimSpace(bytes.TrimSuffix(s, []byte("```")))
}
