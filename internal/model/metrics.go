package model

import "time"

// ToolCoverageBonus rewards corroboration: each distinct tool that reports on
// a file adds this much to its hotspot score.
const ToolCoverageBonus = 5

// FileMetrics aggregates every issue seen for one canonical path. Records are
// created on first reference, mutated by the ingestion path only, and frozen
// when the report is emitted.
type FileMetrics struct {
	Path                     string               `json:"path"`
	IssueCount               int                  `json:"issueCount"`
	SeverityDistribution     map[Severity]int     `json:"severityDistribution"`
	AnalysisTypeDistribution map[AnalysisType]int `json:"analysisTypeDistribution"`
	ToolCoverage             []string             `json:"toolCoverage"`
	HotspotScore             int                  `json:"hotspotScore"`
	LastUpdated              time.Time            `json:"lastUpdated"`
}

func NewFileMetrics(path string) *FileMetrics {
	return &FileMetrics{
		Path:                     path,
		SeverityDistribution:     make(map[Severity]int),
		AnalysisTypeDistribution: make(map[AnalysisType]int),
	}
}

// Apply folds one issue into the record and recomputes the hotspot score.
// Hotspots only grow as issues are added.
func (m *FileMetrics) Apply(issue *Issue, now time.Time) {
	m.IssueCount++
	m.SeverityDistribution[issue.Severity]++
	m.AnalysisTypeDistribution[issue.AnalysisType]++
	if !m.coveredBy(issue.ToolName) {
		m.insertTool(issue.ToolName)
	}
	m.HotspotScore = m.computeHotspot()
	m.LastUpdated = now.UTC()
}

func (m *FileMetrics) coveredBy(tool string) bool {
	for _, t := range m.ToolCoverage {
		if t == tool {
			return true
		}
	}
	return false
}

// insertTool keeps ToolCoverage sorted so serialization stays deterministic.
func (m *FileMetrics) insertTool(tool string) {
	i := 0
	for i < len(m.ToolCoverage) && m.ToolCoverage[i] < tool {
		i++
	}
	m.ToolCoverage = append(m.ToolCoverage, "")
	copy(m.ToolCoverage[i+1:], m.ToolCoverage[i:])
	m.ToolCoverage[i] = tool
}

// computeHotspot is the severity-weighted sum plus the per-tool corroboration
// bonus, capped at 100.
func (m *FileMetrics) computeHotspot() int {
	score := 0
	for sev, count := range m.SeverityDistribution {
		score += count * sev.Weight()
	}
	score += ToolCoverageBonus * len(m.ToolCoverage)
	if score > 100 {
		score = 100
	}
	return score
}

// HealthScore inverts the hotspot scale: 100 means untroubled, 0 means the
// file pinned the risk cap. The city mapper grades building condition on it.
func (m *FileMetrics) HealthScore() int {
	return 100 - m.HotspotScore
}
