package adapters

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/cordlesssteve/topolop/internal/model"
)

// depcheck --json (simplified)
type depcheckOut struct {
	Dependencies    []string            `json:"dependencies"`    // declared but unused
	DevDependencies []string            `json:"devDependencies"` // declared but unused (dev)
	Missing         map[string][]string `json:"missing"`         // used but undeclared -> using files
}

// Depcheck reports unused and undeclared npm dependencies.
type Depcheck struct{}

func NewDepcheck() *Depcheck { return &Depcheck{} }

func (d *Depcheck) Descriptor() Descriptor {
	return Descriptor{
		Name:               "depcheck",
		DisplayName:        "depcheck",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisDepUsage},
		SupportedFileTypes: []string{"package.json"},
		RequiredTools:      []string{"depcheck"},
		Severities: model.SeverityTable{
			"unused":     model.SeverityLow,
			"unused-dev": model.SeverityInfo,
			"missing":    model.SeverityMedium,
			"default":    model.SeverityLow,
		},
	}
}

func (d *Depcheck) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "depcheck", "--version")
}

func (d *Depcheck) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	res := runTool(ctx, scope.Root, "depcheck", "--json")
	if res.Err != nil {
		return nil, res.Err
	}
	meta := map[string]string{}
	if scope.IncludeDev {
		meta["includeDev"] = "true"
	}
	// depcheck exits 255 when it finds anything; stdout is the full document
	return &RawResult{Tool: "depcheck", Raw: res.Stdout, Duration: res.Duration, Meta: meta}, nil
}

func (d *Depcheck) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var o depcheckOut
	if err := json.Unmarshal(raw.Raw, &o); err != nil {
		return model.ParseFailure("depcheck", err)
	}

	for _, pkg := range o.Dependencies {
		cv.Emit(model.IssueSpec{
			Path:        "package.json",
			EntityType:  model.EntityTypeDependency,
			EntityName:  pkg,
			RawSeverity: "unused",
			Type:        model.AnalysisDepUsage,
			Title:       "unused dependency " + pkg,
			RuleID:      "depcheck:unused",
			Patterns:    []string{model.PatternUnusedDependency, model.PatternDeadCode},
			Metadata:    map[string]any{"package": pkg},
		})
	}
	if raw.Meta["includeDev"] == "true" {
		for _, pkg := range o.DevDependencies {
			cv.Emit(model.IssueSpec{
				Path:        "package.json",
				EntityType:  model.EntityTypeDependency,
				EntityName:  pkg,
				RawSeverity: "unused-dev",
				Type:        model.AnalysisDepUsage,
				Title:       "unused dev dependency " + pkg,
				RuleID:      "depcheck:unused",
				Patterns:    []string{model.PatternUnusedDependency},
				Metadata:    map[string]any{"package": pkg, "dev": true},
			})
		}
	}

	missing := make([]string, 0, len(o.Missing))
	for pkg := range o.Missing {
		missing = append(missing, pkg)
	}
	sort.Strings(missing)
	for _, pkg := range missing {
		using := o.Missing[pkg]
		path := "package.json"
		if len(using) > 0 {
			path = using[0] // first file that imports the undeclared package
		}
		cv.Emit(model.IssueSpec{
			Path:        path,
			RawSeverity: "missing",
			Type:        model.AnalysisDepUsage,
			Title:       "undeclared dependency " + pkg,
			RuleID:      "depcheck:missing",
			Metadata:    map[string]any{"package": pkg, "usedIn": len(using)},
		})
	}
	return nil
}
