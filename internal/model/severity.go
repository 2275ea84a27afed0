package model

import "strings"

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Severities lists all levels from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

var severityRank = map[Severity]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityMedium:   3,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// severityWeight feeds hotspot scoring; corroborated high-severity files rise fast.
var severityWeight = map[Severity]int{
	SeverityCritical: 10,
	SeverityHigh:     7,
	SeverityMedium:   4,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// ParseSeverity maps free-form user input (threshold flags, config values) to a level.
// Unrecognized input yields MEDIUM.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH", "ERROR":
		return SeverityHigh
	case "MEDIUM", "MODERATE", "WARNING":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	case "INFO", "NOTE", "INFORMATIONAL":
		return SeverityInfo
	default:
		return SeverityMedium
	}
}

func ValidSeverity(s Severity) bool {
	_, ok := severityRank[s]
	return ok
}

func SeverityGTE(a, b Severity) bool {
	return severityRank[a] >= severityRank[b]
}

// Weight returns the numeric hotspot weight for the level. Unknown levels are a
// programmer error: adapters go through the mapper fallback before reaching here.
func (s Severity) Weight() int {
	w, ok := severityWeight[s]
	if !ok {
		panic("model: weight requested for unknown severity " + string(s))
	}
	return w
}

// SeverityTable is one adapter's vocabulary mapping. The reserved "default" key
// names the level for unseen inputs; without it MEDIUM applies.
type SeverityTable map[string]Severity

// Map translates a tool severity string. known reports whether the value was
// listed in the table; callers flag unmapped inputs in issue metadata.
func (t SeverityTable) Map(raw string) (sev Severity, known bool) {
	if t != nil {
		if s, ok := t[raw]; ok {
			return s, true
		}
		if s, ok := t[strings.ToLower(strings.TrimSpace(raw))]; ok {
			return s, true
		}
		if s, ok := t["default"]; ok {
			return s, false
		}
	}
	return SeverityMedium, false
}
