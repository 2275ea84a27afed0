package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/cordlesssteve/topolop/internal/util"
)

// IssueBuilder enforces the issue invariants before anything reaches the
// correlator. One builder serves a whole report build so id uniqueness holds
// across adapters; it runs only on the ingestion goroutine.
type IssueBuilder struct {
	clock time.Time
	seen  map[string]string // issue id -> dedup tuple
}

// NewIssueBuilder stamps every built issue with the given run time, keeping a
// single report build deterministic.
func NewIssueBuilder(runStarted time.Time) *IssueBuilder {
	return &IssueBuilder{clock: runStarted.UTC(), seen: make(map[string]string)}
}

// Build validates a draft and returns the frozen issue. The draft must already
// carry a resolved entity and a mapped severity; the conversion layer does that.
// Field violations come back as *InvalidIssueError. A re-submission of an
// already-built location tuple passes through unchanged: the correlator
// collapses it and tracks the duplicate count.
func (b *IssueBuilder) Build(draft Issue) (Issue, error) {
	var reasons []string

	if draft.EntityID == "" {
		reasons = append(reasons, "entityId: missing")
	}
	if draft.CanonicalPath == "" {
		reasons = append(reasons, "canonicalPath: missing")
	}
	if !ValidSeverity(draft.Severity) {
		reasons = append(reasons, fmt.Sprintf("severity: %q not in enum", draft.Severity))
	}
	if !ValidAnalysisType(draft.AnalysisType) {
		reasons = append(reasons, fmt.Sprintf("analysisType: %q not in enum", draft.AnalysisType))
	}
	if draft.RuleID == "" {
		reasons = append(reasons, "ruleId: missing")
	}
	if draft.ToolName == "" {
		reasons = append(reasons, "toolName: missing")
	}
	switch {
	case draft.Line < 0 || draft.Column < 0:
		reasons = append(reasons, "line/column: negative")
	case (draft.Line >= 1) != (draft.Column >= 1):
		reasons = append(reasons, "line/column: must be set together")
	case draft.EndLine >= 1 && draft.EndLine < draft.Line:
		reasons = append(reasons, "endLine: before line")
	}

	if len(reasons) > 0 {
		return Issue{}, &InvalidIssueError{ToolName: draft.ToolName, RuleID: draft.RuleID, Reasons: reasons}
	}

	issue := draft
	issue.CreatedAt = b.clock
	if len(issue.Patterns) > 1 {
		issue.Patterns = append([]string(nil), issue.Patterns...)
		sort.Strings(issue.Patterns)
	}
	if issue.ID == "" {
		issue.ID = util.Hash16(issue.ToolName + "|" + issue.RuleID + "|" + issue.LocationFingerprint())
	}

	tuple := dedupTuple(&issue)
	if prev, ok := b.seen[issue.ID]; ok {
		if prev != tuple {
			return Issue{}, &InvalidIssueError{
				ToolName: draft.ToolName,
				RuleID:   draft.RuleID,
				Reasons:  []string{fmt.Sprintf("id: %q already used for a different location", issue.ID)},
			}
		}
		// identical location tuple: duplicate, collapsed downstream
	} else {
		b.seen[issue.ID] = tuple
	}
	return issue, nil
}

// dedupTuple matches the within-tool collapse rule: same tool, path, line,
// column and rule id mean the same finding.
func dedupTuple(i *Issue) string {
	return fmt.Sprintf("%s|%s|%d|%d|%s", i.ToolName, i.CanonicalPath, i.Line, i.Column, i.RuleID)
}
