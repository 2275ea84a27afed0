package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricIssue(tool string, sev Severity, typ AnalysisType) *Issue {
	return &Issue{ToolName: tool, Severity: sev, AnalysisType: typ}
}

func TestApply_AggregatesDistributions(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	m := NewFileMetrics("src/a.c")

	m.Apply(metricIssue("clippy", SeverityHigh, AnalysisSecurity), now)
	m.Apply(metricIssue("clippy", SeverityHigh, AnalysisSecurity), now)
	m.Apply(metricIssue("mypy", SeverityLow, AnalysisQuality), now)

	assert.Equal(t, 3, m.IssueCount)
	assert.Equal(t, 2, m.SeverityDistribution[SeverityHigh])
	assert.Equal(t, 1, m.SeverityDistribution[SeverityLow])
	assert.Equal(t, 2, m.AnalysisTypeDistribution[AnalysisSecurity])
	assert.Equal(t, 1, m.AnalysisTypeDistribution[AnalysisQuality])
	assert.Equal(t, now, m.LastUpdated)
}

func TestApply_HotspotFormula(t *testing.T) {
	m := NewFileMetrics("src/a.c")
	now := time.Now()

	// one high (7) + one tool bonus (5)
	m.Apply(metricIssue("clippy", SeverityHigh, AnalysisSecurity), now)
	assert.Equal(t, 12, m.HotspotScore)
	assert.Equal(t, 88, m.HealthScore())

	// + one medium (4), still one tool
	m.Apply(metricIssue("clippy", SeverityMedium, AnalysisQuality), now)
	assert.Equal(t, 16, m.HotspotScore)

	// + one info (1) from a second tool (+5)
	m.Apply(metricIssue("mypy", SeverityInfo, AnalysisQuality), now)
	assert.Equal(t, 22, m.HotspotScore)
}

func TestApply_HotspotCapsAtHundred(t *testing.T) {
	m := NewFileMetrics("src/a.c")
	now := time.Now()
	for i := 0; i < 30; i++ {
		m.Apply(metricIssue("bandit", SeverityCritical, AnalysisSecurity), now)
	}
	assert.Equal(t, 100, m.HotspotScore)
	assert.Equal(t, 0, m.HealthScore())
}

func TestApply_ToolCoverageSortedWithoutDuplicates(t *testing.T) {
	m := NewFileMetrics("src/a.c")
	now := time.Now()
	for _, tool := range []string{"mypy", "bandit", "mypy", "clippy", "bandit"} {
		m.Apply(metricIssue(tool, SeverityLow, AnalysisQuality), now)
	}
	require.Equal(t, []string{"bandit", "clippy", "mypy"}, m.ToolCoverage)
}
