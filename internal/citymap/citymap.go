// Package citymap derives the city-metaphor visualization model from a
// unified report: files become buildings, path groups become districts, and
// metric heat-maps become overlays. The mapper computes, renderers draw.
package citymap

import (
	"math"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
)

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

type Risk string

const (
	RiskHigh   Risk = "high"
	RiskMedium Risk = "medium"
	RiskLow    Risk = "low"
)

// Visual flags set on buildings by the pattern tags of their issues.
const (
	FlagHazmatBeacon     = "hazmatBeacon"     // memory_safety
	FlagSafeRoom         = "safeRoom"         // credential_exposure
	FlagAbandonedSection = "abandonedSection" // dead_code
)

const (
	defaultMaxHeight = 50.0
	heightPerIssue   = 1.5
)

// Building is one file with at least one issue.
type Building struct {
	Path         string    `json:"path"`
	EntityID     string    `json:"entityId"`
	District     string    `json:"district"`
	Height       float64   `json:"height"`
	Condition    Condition `json:"condition"`
	Risk         Risk      `json:"riskIndicator"`
	Flags        []string  `json:"flags,omitempty"`
	IssueCount   int       `json:"issueCount"`
	HotspotScore int       `json:"hotspotScore"`
}

// District aggregates its buildings' metrics. Sums for counts, issue-weighted
// mean for condition.
type District struct {
	Name                 string                 `json:"name"`
	Buildings            []string               `json:"buildings"`
	IssueCount           int                    `json:"issueCount"`
	SeverityDistribution map[model.Severity]int `json:"severityDistribution"`
	Condition            Condition              `json:"condition"`
}

type OverlayEntry struct {
	CanonicalPath string `json:"canonicalPath"`
	Intensity     int    `json:"intensity"`
	Bucket        string `json:"bucket"`
}

type Overlay struct {
	Kind    string         `json:"kind"`
	Entries []OverlayEntry `json:"entries"`
}

// Overlay kinds.
const (
	OverlaySeverity           = "severity"
	OverlayAnalysisType       = "analysisType"
	OverlayCorrelationDensity = "correlationDensity"
)

// Model is the full city for one report.
type Model struct {
	Buildings []Building `json:"buildings"`
	Districts []District `json:"districts"`
	Overlays  []Overlay  `json:"overlays"`
}

type Mapper struct {
	maxHeight float64
	byPurpose bool
	rules     []config.DistrictRule
}

func New(cfg config.CityConfig) *Mapper {
	h := cfg.MaxHeight
	if h <= 0 {
		h = defaultMaxHeight
	}
	return &Mapper{
		maxHeight: h,
		byPurpose: cfg.Districts == "purpose",
		rules:     cfg.DistrictRules,
	}
}

// Build maps the report into a city. Deterministic: everything is keyed and
// sorted by canonical path or name.
func (m *Mapper) Build(report *model.UnifiedReport) *Model {
	paths := make([]string, 0, len(report.Metrics))
	for p := range report.Metrics {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entityByPath := make(map[string]string, len(report.Entities))
	for i := range report.Entities {
		entityByPath[report.Entities[i].CanonicalPath] = report.Entities[i].ID
	}
	patternsByPath := make(map[string]map[string]bool)
	for i := range report.Issues {
		is := &report.Issues[i]
		set := patternsByPath[is.CanonicalPath]
		if set == nil {
			set = make(map[string]bool)
			patternsByPath[is.CanonicalPath] = set
		}
		for _, p := range is.Patterns {
			set[p] = true
		}
	}

	city := &Model{}
	for _, p := range paths {
		fm := report.Metrics[p]
		city.Buildings = append(city.Buildings, Building{
			Path:         p,
			EntityID:     entityByPath[p],
			District:     m.districtFor(p),
			Height:       m.height(fm.IssueCount),
			Condition:    conditionFor(fm.HealthScore()),
			Risk:         riskFor(fm),
			Flags:        flagsFor(patternsByPath[p]),
			IssueCount:   fm.IssueCount,
			HotspotScore: fm.HotspotScore,
		})
	}
	city.Districts = m.districts(city.Buildings, report.Metrics)
	city.Overlays = m.overlays(city.Buildings, report)
	return city
}

func (m *Mapper) height(count int) float64 {
	h := 1 + heightPerIssue*float64(count)
	if h > m.maxHeight {
		h = m.maxHeight
	}
	if h < 1 {
		h = 1
	}
	return h
}

func conditionFor(health int) Condition {
	switch {
	case health >= 80:
		return ConditionExcellent
	case health >= 60:
		return ConditionGood
	case health >= 40:
		return ConditionFair
	default:
		return ConditionPoor
	}
}

func riskFor(fm *model.FileMetrics) Risk {
	if fm.SeverityDistribution[model.SeverityCritical] > 0 || fm.SeverityDistribution[model.SeverityHigh] > 0 {
		return RiskHigh
	}
	if fm.SeverityDistribution[model.SeverityMedium] > 2 {
		return RiskMedium
	}
	return RiskLow
}

func flagsFor(patterns map[string]bool) []string {
	var flags []string
	if patterns[model.PatternDeadCode] {
		flags = append(flags, FlagAbandonedSection)
	}
	if patterns[model.PatternMemorySafety] {
		flags = append(flags, FlagHazmatBeacon)
	}
	if patterns[model.PatternCredentialExposure] {
		flags = append(flags, FlagSafeRoom)
	}
	return flags
}

// districtFor names the district a path belongs to: an explicit rule match,
// then the first path segment, or the inferred purpose when configured.
func (m *Mapper) districtFor(path string) string {
	for _, r := range m.rules {
		if ok, err := doublestar.Match(r.Pattern, path); err == nil && ok {
			return r.District
		}
	}
	if m.byPurpose {
		return purposeOf(path)
	}
	if i := strings.IndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return "root"
}

// purposeOf infers what a path is for from well-known directory vocabulary.
func purposeOf(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "test") || strings.Contains(lower, "spec"):
		return "testing"
	case strings.Contains(lower, "frontend") || strings.Contains(lower, "client") ||
		strings.Contains(lower, "ui/") || strings.Contains(lower, "web/"):
		return "frontend"
	case strings.Contains(lower, "backend") || strings.Contains(lower, "server") ||
		strings.Contains(lower, "api"):
		return "backend"
	case strings.Contains(lower, "infra") || strings.Contains(lower, "deploy") ||
		strings.Contains(lower, "docker") || strings.Contains(lower, "ops/"):
		return "infrastructure"
	case strings.Contains(lower, "data") || strings.Contains(lower, "db/") ||
		strings.Contains(lower, "sql") || strings.Contains(lower, "migrations"):
		return "data"
	default:
		return "core"
	}
}

func (m *Mapper) districts(buildings []Building, metrics map[string]*model.FileMetrics) []District {
	byName := make(map[string]*District)
	for i := range buildings {
		b := &buildings[i]
		d := byName[b.District]
		if d == nil {
			d = &District{Name: b.District, SeverityDistribution: make(map[model.Severity]int)}
			byName[b.District] = d
		}
		d.Buildings = append(d.Buildings, b.Path)
		fm := metrics[b.Path]
		d.IssueCount += fm.IssueCount
		for sev, n := range fm.SeverityDistribution {
			d.SeverityDistribution[sev] += n
		}
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]District, 0, len(names))
	for _, n := range names {
		d := byName[n]
		sort.Strings(d.Buildings)
		weighted := 0
		for _, p := range d.Buildings {
			fm := metrics[p]
			weighted += fm.HealthScore() * fm.IssueCount
		}
		mean := 100
		if d.IssueCount > 0 {
			mean = int(math.Round(float64(weighted) / float64(d.IssueCount)))
		}
		d.Condition = conditionFor(mean)
		out = append(out, *d)
	}
	return out
}

func (m *Mapper) overlays(buildings []Building, report *model.UnifiedReport) []Overlay {
	return []Overlay{
		m.severityOverlay(buildings, report.Metrics),
		m.analysisTypeOverlay(buildings, report.Metrics),
		m.densityOverlay(buildings, report.Correlations),
	}
}

// severityOverlay grades buildings by severity-weighted issue mass,
// max-normalized to 100. Bucket is the dominant severity.
func (m *Mapper) severityOverlay(buildings []Building, metrics map[string]*model.FileMetrics) Overlay {
	scores := make(map[string]int, len(buildings))
	max := 0
	for i := range buildings {
		fm := metrics[buildings[i].Path]
		s := 0
		for sev, n := range fm.SeverityDistribution {
			s += n * sev.Weight()
		}
		scores[buildings[i].Path] = s
		if s > max {
			max = s
		}
	}

	ov := Overlay{Kind: OverlaySeverity}
	for i := range buildings {
		p := buildings[i].Path
		ov.Entries = append(ov.Entries, OverlayEntry{
			CanonicalPath: p,
			Intensity:     normalize(scores[p], max),
			Bucket:        string(dominantSeverity(metrics[p])),
		})
	}
	return ov
}

func (m *Mapper) analysisTypeOverlay(buildings []Building, metrics map[string]*model.FileMetrics) Overlay {
	max := 0
	for i := range buildings {
		if c := metrics[buildings[i].Path].IssueCount; c > max {
			max = c
		}
	}
	ov := Overlay{Kind: OverlayAnalysisType}
	for i := range buildings {
		fm := metrics[buildings[i].Path]
		ov.Entries = append(ov.Entries, OverlayEntry{
			CanonicalPath: buildings[i].Path,
			Intensity:     normalize(fm.IssueCount, max),
			Bucket:        string(dominantAnalysisType(fm)),
		})
	}
	return ov
}

// densityOverlay grades buildings by how many correlation groups touch them.
// Buildings outside every group are omitted.
func (m *Mapper) densityOverlay(buildings []Building, groups []model.CorrelationGroup) Overlay {
	counts := make(map[string]int)
	for i := range groups {
		counts[groups[i].CanonicalPath]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}

	ov := Overlay{Kind: OverlayCorrelationDensity}
	for i := range buildings {
		c := counts[buildings[i].Path]
		if c == 0 {
			continue
		}
		ov.Entries = append(ov.Entries, OverlayEntry{
			CanonicalPath: buildings[i].Path,
			Intensity:     normalize(c, max),
			Bucket:        densityBucket(c),
		})
	}
	return ov
}

func densityBucket(groups int) string {
	switch {
	case groups >= 3:
		return "dense"
	case groups == 2:
		return "clustered"
	default:
		return "sparse"
	}
}

func normalize(v, max int) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(v) / float64(max)))
}

// dominantSeverity picks the most frequent level; ties go to the more severe.
func dominantSeverity(fm *model.FileMetrics) model.Severity {
	best := model.SeverityInfo
	bestN := -1
	for _, sev := range model.Severities {
		if n := fm.SeverityDistribution[sev]; n > bestN {
			best, bestN = sev, n
		}
	}
	return best
}

func dominantAnalysisType(fm *model.FileMetrics) model.AnalysisType {
	types := make([]model.AnalysisType, 0, len(fm.AnalysisTypeDistribution))
	for t := range fm.AnalysisTypeDistribution {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	best := model.AnalysisQuality
	bestN := -1
	for _, t := range types {
		if n := fm.AnalysisTypeDistribution[t]; n > bestN {
			best, bestN = t, n
		}
	}
	return best
}
