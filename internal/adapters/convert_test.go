package adapters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordlesssteve/topolop/internal/logging"
	"github.com/cordlesssteve/topolop/internal/model"
	"github.com/cordlesssteve/topolop/internal/pathnorm"
)

func newTestConverter() (*Converter, *model.EntityRegistry) {
	reg := model.NewEntityRegistry()
	cv := NewConverter(
		pathnorm.New("/p", false),
		reg,
		model.NewIssueBuilder(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		logging.Nop(),
	)
	return cv, reg
}

func testDescriptor(name string) Descriptor {
	return Descriptor{
		Name: name,
		Severities: model.SeverityTable{
			"err":     model.SeverityHigh,
			"warn":    model.SeverityMedium,
			"default": model.SeverityLow,
		},
	}
}

func TestConverter_AcceptsAndNormalizes(t *testing.T) {
	cv, reg := newTestConverter()
	cv.Begin(testDescriptor("toolA"))

	cv.Emit(model.IssueSpec{
		Path:        "./src\\a.c",
		RawSeverity: "err",
		Type:        model.AnalysisSecurity,
		Title:       "null deref",
		RuleID:      "A1",
		Line:        10,
		Column:      2,
	})

	issues, rejected, raw := cv.Finish()
	require.Len(t, issues, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, 1, raw)

	is := issues[0]
	assert.Equal(t, "src/a.c", is.CanonicalPath)
	assert.Equal(t, model.SeverityHigh, is.Severity)
	assert.Equal(t, "toolA", is.ToolName)
	assert.NotEmpty(t, is.ID)

	ent, ok := reg.Lookup("src/a.c")
	require.True(t, ok)
	assert.Equal(t, ent.ID, is.EntityID)
	assert.Equal(t, model.EntityTypeFile, ent.Type)
	assert.Equal(t, "a.c", ent.Name)
	assert.Equal(t, "./src\\a.c", ent.OriginalIdentifier)
}

func TestConverter_SharedEntityAcrossSpellings(t *testing.T) {
	cv, reg := newTestConverter()
	cv.Begin(testDescriptor("toolA"))

	for i, p := range []string{"./src/a.c", "src\\a.c", "/p/src/a.c"} {
		cv.Emit(model.IssueSpec{
			Path:        p,
			RawSeverity: "warn",
			Type:        model.AnalysisQuality,
			Title:       "t",
			RuleID:      "R1",
			Line:        i + 1,
			Column:      1,
		})
	}

	issues, _, _ := cv.Finish()
	require.Len(t, issues, 3)
	assert.Equal(t, 1, reg.Len())
	for _, is := range issues {
		assert.Equal(t, issues[0].EntityID, is.EntityID)
	}
}

func TestConverter_UnmappedSeverityFlagged(t *testing.T) {
	cv, _ := newTestConverter()
	cv.Begin(testDescriptor("toolA"))

	cv.Emit(model.IssueSpec{
		Path:        "src/a.c",
		RawSeverity: "bizarre",
		Type:        model.AnalysisQuality,
		Title:       "t",
		RuleID:      "R1",
	})

	issues, _, _ := cv.Finish()
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityLow, issues[0].Severity) // table default
	assert.Equal(t, "bizarre", issues[0].Metadata["severityUnmapped"])
}

func TestConverter_RejectsInvalidDrafts(t *testing.T) {
	cv, _ := newTestConverter()
	cv.Begin(testDescriptor("toolA"))

	// missing rule id
	cv.Emit(model.IssueSpec{
		Path:        "src/a.c",
		RawSeverity: "err",
		Type:        model.AnalysisQuality,
		Title:       "no rule",
	})
	// empty path
	cv.Emit(model.IssueSpec{
		Path:        "",
		RawSeverity: "err",
		Type:        model.AnalysisQuality,
		Title:       "no path",
		RuleID:      "R2",
	})

	issues, rejected, raw := cv.Finish()
	assert.Empty(t, issues)
	require.Len(t, rejected, 2)
	assert.Equal(t, 2, raw)
	assert.Contains(t, rejected[0].Reasons[0], "ruleId")
	assert.Contains(t, rejected[1].Reasons[0], "path")
}

func TestConverter_FileTableResolution(t *testing.T) {
	cv, reg := newTestConverter()
	cv.Begin(testDescriptor("toolA"))

	idx0, idxBad := 0, 7
	table := []string{"/p/src/a.c"}
	cv.Emit(model.IssueSpec{
		PathRef:     &idx0,
		FileTable:   table,
		RawSeverity: "err",
		Type:        model.AnalysisQuality,
		Title:       "resolved",
		RuleID:      "R1",
	})
	cv.Emit(model.IssueSpec{
		PathRef:     &idxBad,
		FileTable:   table,
		RawSeverity: "err",
		Type:        model.AnalysisQuality,
		Title:       "dangling",
		RuleID:      "R2",
	})

	issues, rejected, _ := cv.Finish()
	require.Len(t, issues, 2)
	assert.Empty(t, rejected)
	assert.Equal(t, "src/a.c", issues[0].CanonicalPath)
	assert.Equal(t, "unknown:toolA:7", issues[1].CanonicalPath)
	assert.Equal(t, true, issues[1].Metadata["unresolvedPath"])

	ent, ok := reg.Lookup("unknown:toolA:7")
	require.True(t, ok)
	assert.Equal(t, 0.0, ent.Confidence)
}

func TestConverter_BeginResetsBatch(t *testing.T) {
	cv, _ := newTestConverter()

	cv.Begin(testDescriptor("toolA"))
	cv.Emit(model.IssueSpec{Path: "a.c", RawSeverity: "err", Type: model.AnalysisQuality, Title: "x", RuleID: "R1"})
	issues, _, raw := cv.Finish()
	require.Len(t, issues, 1)
	assert.Equal(t, 1, raw)

	cv.Begin(testDescriptor("toolB"))
	issues, rejected, raw := cv.Finish()
	assert.Empty(t, issues)
	assert.Empty(t, rejected)
	assert.Zero(t, raw)
}
