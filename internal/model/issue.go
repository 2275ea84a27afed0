package model

import (
	"fmt"
	"time"

	"github.com/cordlesssteve/topolop/internal/util"
)

// DefaultProximityLines is the line distance within which two issues on the
// same canonical path count as colocated.
const DefaultProximityLines = 5

// Issue is one normalized finding. Instances are frozen once the builder
// returns them; the ingestion path never mutates an issue, only the report
// assembly fills in duplicate counts collected during dedup.
type Issue struct {
	ID            string         `json:"id"`
	EntityID      string         `json:"entityId"`
	CanonicalPath string         `json:"canonicalPath"`
	Severity      Severity       `json:"severity"`
	AnalysisType  AnalysisType   `json:"analysisType"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	RuleID        string         `json:"ruleId"`
	Line          int            `json:"line,omitempty"`
	Column        int            `json:"column,omitempty"`
	EndLine       int            `json:"endLine,omitempty"`
	EndColumn     int            `json:"endColumn,omitempty"`
	ToolName      string         `json:"toolName"`
	Patterns      []string       `json:"patterns,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// HasLocation reports whether the issue carries a source range. Issues without
// one still participate in metrics and pattern clustering.
func (i *Issue) HasLocation() bool { return i.Line >= 1 }

// Nearby reports whether two issues sit on the same canonical path within
// threshold lines of each other. Issues without a line never match.
func (i *Issue) Nearby(other *Issue, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultProximityLines
	}
	if i.CanonicalPath != other.CanonicalPath {
		return false
	}
	if !i.HasLocation() || !other.HasLocation() {
		return false
	}
	d := i.Line - other.Line
	if d < 0 {
		d = -d
	}
	return d <= threshold
}

// LocationFingerprint identifies the issue position for within-tool dedup and
// baselines: canonicalPath:line:column, zeroes when no range is present.
func (i *Issue) LocationFingerprint() string {
	return fmt.Sprintf("%s:%d:%d", i.CanonicalPath, i.Line, i.Column)
}

// CorrelationKey is the MD5-derived location key used by the correlator.
func (i *Issue) CorrelationKey() string {
	return util.LocationKey(i.CanonicalPath, i.Line, string(i.AnalysisType), i.ToolName)
}

// SharedPatterns returns the tags present on both issues.
func (i *Issue) SharedPatterns(other *Issue) []string {
	if len(i.Patterns) == 0 || len(other.Patterns) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(i.Patterns))
	for _, p := range i.Patterns {
		set[p] = struct{}{}
	}
	var out []string
	for _, p := range other.Patterns {
		if _, ok := set[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// HasPattern reports whether the issue carries the given cross-tool tag.
func (i *Issue) HasPattern(tag string) bool {
	for _, p := range i.Patterns {
		if p == tag {
			return true
		}
	}
	return false
}

// IssueSpec is the adapter-facing draft. Adapters fill it from raw tool output
// and hand it to the conversion layer, which normalizes the path, maps the
// severity, resolves the entity and validates through the builder.
type IssueSpec struct {
	ID          string
	Path        string   // verbatim tool-supplied identifier
	PathRef     *int     // index into FileTable for tools that emit file tables
	FileTable   []string // side table for PathRef resolution
	EntityType  EntityType
	EntityName  string
	RawSeverity string
	Type        AnalysisType
	Title       string
	Description string
	RuleID      string
	Line        int
	Column      int
	EndLine     int
	EndColumn   int
	Patterns    []string
	Metadata    map[string]any
}
