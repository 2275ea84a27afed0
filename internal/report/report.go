// Package report serializes and renders unified reports. JSON output is
// deterministic: struct fields have a fixed order, map keys are sorted by the
// encoder, and every array is sorted by id before it reaches this package.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

// ResultsFileName is the well-known report artifact written into the project
// root on request.
const ResultsFileName = "topolop-results.json"

// Marshal renders the report as indented JSON.
func Marshal(r *model.UnifiedReport) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Parse reads a serialized report and rejects incompatible schema majors.
func Parse(data []byte) (*model.UnifiedReport, error) {
	var r model.UnifiedReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	if err := model.CheckSchemaVersion(r.SchemaVersion); err != nil {
		return nil, err
	}
	return &r, nil
}

// WriteFile writes the report artifact into dir under the well-known name.
func WriteFile(dir string, r *model.UnifiedReport) (string, error) {
	data, err := Marshal(r)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ResultsFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// CanonicalJSON strips the per-run volatile fields (run id, wall-clock stamps,
// elapsed times) and marshals the rest. Two runs over the same issue set
// produce byte-identical canonical JSON.
func CanonicalJSON(r *model.UnifiedReport) ([]byte, error) {
	c := *r
	c.RunID = ""
	c.StartedAt = time.Time{}
	c.FinishedAt = time.Time{}

	c.Issues = make([]model.Issue, len(r.Issues))
	copy(c.Issues, r.Issues)
	for i := range c.Issues {
		c.Issues[i].CreatedAt = time.Time{}
	}

	c.Metrics = make(map[string]*model.FileMetrics, len(r.Metrics))
	for p, m := range r.Metrics {
		mc := *m
		mc.LastUpdated = time.Time{}
		c.Metrics[p] = &mc
	}

	c.Adapters = make(map[string]*model.AdapterRecord, len(r.Adapters))
	for name, rec := range r.Adapters {
		rc := *rec
		rc.Stats.ElapsedMs = 0
		c.Adapters[name] = &rc
	}
	return json.MarshalIndent(&c, "", "  ")
}

// Summary prints the run at a glance: issue counts by severity, then one line
// per adapter.
func Summary(w io.Writer, r *model.UnifiedReport) {
	fmt.Fprintf(w, "Run %s on %s\n", r.RunID, r.ProjectRoot)

	counts := make(map[model.Severity]int)
	for i := range r.Issues {
		counts[r.Issues[i].Severity]++
	}
	fmt.Fprintf(w, "Issues: %d in %d files, %d correlation groups\n",
		len(r.Issues), len(r.Metrics), len(r.Correlations))
	for _, sev := range model.Severities {
		if counts[sev] > 0 {
			fmt.Fprintf(w, "  %-8s %d\n", sev, counts[sev])
		}
	}

	names := make([]string, 0, len(r.Adapters))
	for name := range r.Adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "Adapters:")
	for _, name := range names {
		rec := r.Adapters[name]
		switch rec.Outcome {
		case model.OutcomeSkipped:
			fmt.Fprintf(w, "  %-16s %-9s %s\n", name, rec.Outcome, rec.SkipReason)
		case model.OutcomeOK:
			fmt.Fprintf(w, "  %-16s %-9s %d issues in %dms\n", name, rec.Outcome, rec.Stats.Accepted, rec.Stats.ElapsedMs)
		default:
			fmt.Fprintf(w, "  %-16s %-9s %s\n", name, rec.Outcome, rec.Error)
		}
	}
}

// Table prints one line per issue at or above the threshold, ordered by path
// and line for reading top to bottom.
func Table(w io.Writer, r *model.UnifiedReport, threshold model.Severity) {
	issues := make([]model.Issue, 0, len(r.Issues))
	for i := range r.Issues {
		if model.SeverityGTE(r.Issues[i].Severity, threshold) {
			issues = append(issues, r.Issues[i])
		}
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].CanonicalPath != issues[j].CanonicalPath {
			return issues[i].CanonicalPath < issues[j].CanonicalPath
		}
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].ID < issues[j].ID
	})

	fmt.Fprintf(w, "Issues: %d\n", len(issues))
	for _, is := range issues {
		loc := is.CanonicalPath
		if is.HasLocation() {
			loc = fmt.Sprintf("%s:%d", is.CanonicalPath, is.Line)
		}
		fmt.Fprintf(w, "- %s [%s] %s %s (%s)\n", is.RuleID, is.Severity, loc, is.Title, is.ToolName)
	}
}
