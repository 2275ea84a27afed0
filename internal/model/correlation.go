package model

// Strength grades how much evidence ties a correlation group together.
type Strength string

const (
	StrengthLow    Strength = "low"
	StrengthMedium Strength = "medium"
	StrengthHigh   Strength = "high"
)

// CorrelationGroup is a set of issues from at least two tools judged to refer
// to the same phenomenon, via location proximity or shared pattern tags.
// Groups are write-once: the correlator emits them fully formed.
type CorrelationGroup struct {
	Key           string   `json:"key"`
	CanonicalPath string   `json:"canonicalPath"`
	MemberIDs     []string `json:"members"`
	Strength      Strength `json:"strength"`
	Patterns      []string `json:"patterns,omitempty"`
	Tools         []string `json:"tools"`
}
