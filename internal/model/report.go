package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is the report wire version. Consumers reject reports whose
// major component differs from theirs.
const SchemaVersion = "1.0"

type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeSkipped   Outcome = "skipped"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// AdapterStats captures what the harness observed while driving one adapter.
type AdapterStats struct {
	ElapsedMs  int64 `json:"elapsedMs"`
	RawCount   int   `json:"rawCount"`
	Accepted   int   `json:"accepted"`
	Rejected   int   `json:"rejected"`
	Duplicates int   `json:"duplicates"`
	Suppressed int   `json:"suppressed"`
}

// RejectedIssue records one draft the builder refused, with its field reasons.
type RejectedIssue struct {
	RuleID  string   `json:"ruleId"`
	Title   string   `json:"title,omitempty"`
	Reasons []string `json:"reasons"`
}

// AdapterRecord is the per-adapter outcome in the report. Adapter failures are
// data, not run failures: a report with every adapter failed is still well
// formed.
type AdapterRecord struct {
	Name           string          `json:"name"`
	Outcome        Outcome         `json:"outcome"`
	Version        string          `json:"version,omitempty"`
	ErrorKind      Kind            `json:"errorKind,omitempty"`
	Error          string          `json:"error,omitempty"`
	SkipReason     string          `json:"skipReason,omitempty"`
	Stats          AdapterStats    `json:"stats"`
	RejectedIssues []RejectedIssue `json:"rejectedIssues,omitempty"`
}

// UnifiedReport is the aggregate of one analysis run. The report owns every
// vector; issues and metrics reference entities by id, never by pointer.
type UnifiedReport struct {
	SchemaVersion string                    `json:"schemaVersion"`
	RunID         string                    `json:"runId"`
	StartedAt     time.Time                 `json:"startedAt"`
	FinishedAt    time.Time                 `json:"finishedAt"`
	ProjectRoot   string                    `json:"projectRoot"`
	Entities      []Entity                  `json:"entities"`
	Issues        []Issue                   `json:"issues"`
	Metrics       map[string]*FileMetrics   `json:"metrics"`
	Correlations  []CorrelationGroup        `json:"correlations"`
	Adapters      map[string]*AdapterRecord `json:"adapters"`
}

// CountAtOrAbove counts issues at or above the threshold; the CLI exit code
// depends only on this.
func (r *UnifiedReport) CountAtOrAbove(threshold Severity) int {
	n := 0
	for i := range r.Issues {
		if SeverityGTE(r.Issues[i].Severity, threshold) {
			n++
		}
	}
	return n
}

// CheckSchemaVersion validates a consumer-side version string against ours.
// Minor drift is tolerated, major drift is not.
func CheckSchemaVersion(v string) error {
	major, _, err := splitVersion(v)
	if err != nil {
		return err
	}
	ourMajor, _, _ := splitVersion(SchemaVersion)
	if major != ourMajor {
		return fmt.Errorf("report schema %s incompatible with supported %s", v, SchemaVersion)
	}
	return nil
}

func splitVersion(v string) (major, minor int, err error) {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("schema version %q: want major.minor", v)
	}
	if major, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("schema version %q: bad major", v)
	}
	if minor, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("schema version %q: bad minor", v)
	}
	return major, minor, nil
}
