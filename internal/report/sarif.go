package report

import (
	"encoding/json"

	"github.com/cordlesssteve/topolop/internal/model"
)

type sarif struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}
type sarifDriver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}
type sarifLoc struct {
	Physical sarifPhys `json:"physicalLocation"`
}
type sarifPhys struct {
	ArtifactLocation sarifArt     `json:"artifactLocation"`
	Region           *sarifRegion `json:"region,omitempty"`
}
type sarifArt struct {
	URI string `json:"uri"`
}
type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
}

// ToSARIF renders the unified issues as a single-run SARIF 2.1.0 document so
// code hosts and IDE plugins can ingest them.
func ToSARIF(r *model.UnifiedReport) ([]byte, error) {
	results := make([]sarifResult, 0, len(r.Issues))
	for i := range r.Issues {
		is := &r.Issues[i]
		level := "note"
		switch is.Severity {
		case model.SeverityMedium:
			level = "warning"
		case model.SeverityHigh, model.SeverityCritical:
			level = "error"
		}
		text := is.Title
		if is.Description != "" && is.Description != is.Title {
			text = is.Title + ": " + is.Description
		}
		var region *sarifRegion
		if is.HasLocation() {
			region = &sarifRegion{StartLine: is.Line, StartColumn: is.Column, EndLine: is.EndLine}
		}
		results = append(results, sarifResult{
			RuleID:  is.ToolName + "/" + is.RuleID,
			Level:   level,
			Message: sarifMessage{Text: text},
			Locations: []sarifLoc{{Physical: sarifPhys{
				ArtifactLocation: sarifArt{URI: is.CanonicalPath},
				Region:           region,
			}}},
		})
	}
	s := sarif{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: "topolop", Version: model.SchemaVersion}},
			Results: results,
		}},
	}
	return json.MarshalIndent(s, "", "  ")
}
