package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordlesssteve/topolop/internal/model"
)

func sarifDoc(t *testing.T, issues ...model.Issue) map[string]any {
	t.Helper()
	r := &model.UnifiedReport{
		SchemaVersion: model.SchemaVersion,
		RunID:         "run-1",
		ProjectRoot:   "/p",
		Issues:        issues,
	}
	data, err := ToSARIF(r)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func sarifResults(t *testing.T, doc map[string]any) []any {
	t.Helper()
	runs, ok := doc["runs"].([]any)
	require.True(t, ok)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)
	results, ok := run["results"].([]any)
	require.True(t, ok)
	return results
}

func TestToSARIF_Envelope(t *testing.T) {
	doc := sarifDoc(t, model.Issue{
		ID: "i1", CanonicalPath: "src/a.c", Severity: model.SeverityLow,
		Title: "x", RuleID: "A1", ToolName: "toolA",
	})

	assert.Equal(t, "2.1.0", doc["version"])
	assert.Contains(t, doc["$schema"], "sarif-2.1.0")

	runs := doc["runs"].([]any)
	driver := runs[0].(map[string]any)["tool"].(map[string]any)["driver"].(map[string]any)
	assert.Equal(t, "topolop", driver["name"])
	assert.Equal(t, model.SchemaVersion, driver["version"])
}

func TestToSARIF_LevelMapping(t *testing.T) {
	doc := sarifDoc(t,
		model.Issue{ID: "i1", CanonicalPath: "a", Severity: model.SeverityInfo, Title: "t", RuleID: "r1", ToolName: "x"},
		model.Issue{ID: "i2", CanonicalPath: "a", Severity: model.SeverityLow, Title: "t", RuleID: "r2", ToolName: "x"},
		model.Issue{ID: "i3", CanonicalPath: "a", Severity: model.SeverityMedium, Title: "t", RuleID: "r3", ToolName: "x"},
		model.Issue{ID: "i4", CanonicalPath: "a", Severity: model.SeverityHigh, Title: "t", RuleID: "r4", ToolName: "x"},
		model.Issue{ID: "i5", CanonicalPath: "a", Severity: model.SeverityCritical, Title: "t", RuleID: "r5", ToolName: "x"},
	)

	results := sarifResults(t, doc)
	require.Len(t, results, 5)
	want := []string{"note", "note", "warning", "error", "error"}
	for i, res := range results {
		assert.Equal(t, want[i], res.(map[string]any)["level"], "result %d", i)
	}
}

func TestToSARIF_RuleIDCarriesToolPrefix(t *testing.T) {
	doc := sarifDoc(t, model.Issue{
		ID: "i1", CanonicalPath: "src/a.c", Severity: model.SeverityHigh,
		Title: "null deref", Description: "p may be nil", RuleID: "core.NullDereference",
		ToolName: "clang-analyzer", Line: 14, Column: 3,
	})

	res := sarifResults(t, doc)[0].(map[string]any)
	assert.Equal(t, "clang-analyzer/core.NullDereference", res["ruleId"])
	msg := res["message"].(map[string]any)
	assert.Equal(t, "null deref: p may be nil", msg["text"])
}

func TestToSARIF_RegionOnlyWithLocation(t *testing.T) {
	doc := sarifDoc(t,
		model.Issue{ID: "i1", CanonicalPath: "src/a.c", Severity: model.SeverityHigh,
			Title: "t", RuleID: "r1", ToolName: "x", Line: 14, Column: 3, EndLine: 16},
		model.Issue{ID: "i2", CanonicalPath: "package.json", Severity: model.SeverityHigh,
			Title: "t", RuleID: "r2", ToolName: "x"},
	)

	results := sarifResults(t, doc)
	require.Len(t, results, 2)

	phys := results[0].(map[string]any)["locations"].([]any)[0].(map[string]any)["physicalLocation"].(map[string]any)
	region := phys["region"].(map[string]any)
	assert.Equal(t, float64(14), region["startLine"])
	assert.Equal(t, float64(3), region["startColumn"])
	assert.Equal(t, float64(16), region["endLine"])
	assert.Equal(t, "src/a.c", phys["artifactLocation"].(map[string]any)["uri"])

	phys = results[1].(map[string]any)["locations"].([]any)[0].(map[string]any)["physicalLocation"].(map[string]any)
	_, hasRegion := phys["region"]
	assert.False(t, hasRegion, "location-less issue must not invent a region")
}
