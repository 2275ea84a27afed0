package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordlesssteve/topolop/internal/model"
)

func sampleReport(runID string, started time.Time) *model.UnifiedReport {
	m := model.NewFileMetrics("src/a.c")
	issues := []model.Issue{
		{
			ID:            "aaaa000000000001",
			EntityID:      model.EntityID("src/a.c"),
			CanonicalPath: "src/a.c",
			Severity:      model.SeverityHigh,
			AnalysisType:  model.AnalysisSecurity,
			Title:         "null deref",
			RuleID:        "A1",
			Line:          10,
			Column:        1,
			ToolName:      "toolA",
			Patterns:      []string{"memory_safety"},
			CreatedAt:     started,
		},
		{
			ID:            "bbbb000000000002",
			EntityID:      model.EntityID("src/a.c"),
			CanonicalPath: "src/a.c",
			Severity:      model.SeverityMedium,
			AnalysisType:  model.AnalysisSecurity,
			Title:         "use after free",
			RuleID:        "B7",
			Line:          12,
			Column:        3,
			ToolName:      "toolB",
			CreatedAt:     started,
		},
	}
	for i := range issues {
		m.Apply(&issues[i], started)
	}
	return &model.UnifiedReport{
		SchemaVersion: model.SchemaVersion,
		RunID:         runID,
		StartedAt:     started,
		FinishedAt:    started.Add(3 * time.Second),
		ProjectRoot:   "/p",
		Entities: []model.Entity{{
			ID:            model.EntityID("src/a.c"),
			Type:          model.EntityTypeFile,
			Name:          "a.c",
			CanonicalPath: "src/a.c",
			ToolName:      "toolA",
			Confidence:    1,
		}},
		Issues:  issues,
		Metrics: map[string]*model.FileMetrics{"src/a.c": m},
		Correlations: []model.CorrelationGroup{{
			Key:           "k1",
			CanonicalPath: "src/a.c",
			MemberIDs:     []string{"aaaa000000000001", "bbbb000000000002"},
			Strength:      model.StrengthHigh,
			Patterns:      []string{"memory_safety"},
			Tools:         []string{"toolA", "toolB"},
		}},
		Adapters: map[string]*model.AdapterRecord{
			"toolA": {Name: "toolA", Outcome: model.OutcomeOK, Stats: model.AdapterStats{ElapsedMs: 120, Accepted: 1}},
			"toolB": {Name: "toolB", Outcome: model.OutcomeOK, Stats: model.AdapterStats{ElapsedMs: 80, Accepted: 1}},
		},
	}
}

func TestMarshalParse_RoundTrip(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := sampleReport("run-1", started)

	data, err := Marshal(r)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestParse_RejectsMajorMismatch(t *testing.T) {
	doc := `{"schemaVersion":"2.0","runId":"x"}`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incompatible")
}

func TestParse_RejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)
}

func TestCanonicalJSON_IdenticalAcrossRuns(t *testing.T) {
	r1 := sampleReport("run-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r2 := sampleReport("run-2", time.Date(2024, 6, 9, 3, 30, 0, 0, time.UTC))
	r2.Adapters["toolA"].Stats.ElapsedMs = 999

	c1, err := CanonicalJSON(r1)
	require.NoError(t, err)
	c2, err := CanonicalJSON(r2)
	require.NoError(t, err)
	assert.Equal(t, string(c1), string(c2), "same issue set must canonicalize identically")
}

func TestCanonicalJSON_DoesNotMutateInput(t *testing.T) {
	r := sampleReport("run-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	_, err := CanonicalJSON(r)
	require.NoError(t, err)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, int64(120), r.Adapters["toolA"].Stats.ElapsedMs)
	assert.False(t, r.Issues[0].CreatedAt.IsZero())
	assert.False(t, r.Metrics["src/a.c"].LastUpdated.IsZero())
}

func TestWriteFile_WellKnownName(t *testing.T) {
	dir := t.TempDir()
	r := sampleReport("run-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	path, err := WriteFile(dir, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ResultsFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-1", doc["runId"])
}

func TestSummary_ListsAdaptersAndCounts(t *testing.T) {
	r := sampleReport("run-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r.Adapters["toolC"] = &model.AdapterRecord{
		Name:       "toolC",
		Outcome:    model.OutcomeSkipped,
		SkipReason: "mypy not found in PATH",
	}

	var buf bytes.Buffer
	Summary(&buf, r)
	out := buf.String()
	assert.Contains(t, out, "Issues: 2 in 1 files, 1 correlation groups")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "toolC")
	assert.Contains(t, out, "mypy not found in PATH")
}

func TestTable_ThresholdFiltersAndSorts(t *testing.T) {
	r := sampleReport("run-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	Table(&buf, r, model.SeverityHigh)
	out := buf.String()
	assert.Contains(t, out, "Issues: 1")
	assert.Contains(t, out, "A1 [HIGH] src/a.c:10")
	assert.NotContains(t, out, "B7")

	buf.Reset()
	Table(&buf, r, model.SeverityInfo)
	out = buf.String()
	assert.Contains(t, out, "Issues: 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("A1")), bytes.Index(buf.Bytes(), []byte("B7")), "sorted by line")
}
