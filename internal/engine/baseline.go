package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

// baseline is a set of issue ids accepted as known debt. Issue ids are stable
// across runs for an unchanged finding, so a baseline survives re-analysis.
type baseline struct {
	GeneratedAt  time.Time       `json:"generatedAt"`
	Fingerprints map[string]bool `json:"fingerprints"`
}

// loadBaseline reads either the full record or a bare JSON array of ids. An
// empty path yields an empty baseline.
func loadBaseline(path string) (baseline, error) {
	var b baseline
	if path == "" {
		return b, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return b, fmt.Errorf("baseline %s: %w", path, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		b.Fingerprints = make(map[string]bool, len(ids))
		for _, id := range ids {
			b.Fingerprints[id] = true
		}
		return b, nil
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, fmt.Errorf("baseline %s: %w", path, err)
	}
	if b.Fingerprints == nil {
		b.Fingerprints = map[string]bool{}
	}
	return b, nil
}

// WriteBaseline records the report's issue ids so later runs can suppress
// them. Ids are sorted for stable diffs.
func WriteBaseline(path string, report *model.UnifiedReport) error {
	if path == "" {
		return nil
	}
	ids := make([]string, 0, len(report.Issues))
	for i := range report.Issues {
		ids = append(ids, report.Issues[i].ID)
	}
	sort.Strings(ids)
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
