package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cordlesssteve/topolop/internal/model"
)

// npm audit --json, auditReportVersion 2 (simplified). The via list mixes
// advisory objects with the bare names of vulnerable transitive deps.
type npmAuditOut struct {
	AuditReportVersion int `json:"auditReportVersion"`
	Vulnerabilities    map[string]struct {
		Name     string            `json:"name"`
		Severity string            `json:"severity"`
		IsDirect bool              `json:"isDirect"`
		Via      []json.RawMessage `json:"via"`
		Range    string            `json:"range"`
		Nodes    []string          `json:"nodes"`
	} `json:"vulnerabilities"`
}

type npmAdvisory struct {
	Source   int      `json:"source"`
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Severity string   `json:"severity"`
	CWE      []string `json:"cwe"`
	Range    string   `json:"range"`
}

// NpmAudit surfaces advisories against the installed npm dependency tree.
type NpmAudit struct{}

func NewNpmAudit() *NpmAudit { return &NpmAudit{} }

func (n *NpmAudit) Descriptor() Descriptor {
	return Descriptor{
		Name:               "npm-audit",
		DisplayName:        "npm audit",
		Kind:               KindSubprocess,
		AnalysisTypes:      []model.AnalysisType{model.AnalysisDepSecurity},
		SupportedFileTypes: []string{"package.json"},
		RequiredTools:      []string{"npm"},
		Severities: model.SeverityTable{
			"critical": model.SeverityCritical,
			"high":     model.SeverityHigh,
			"moderate": model.SeverityMedium,
			"low":      model.SeverityLow,
			"info":     model.SeverityInfo,
			"default":  model.SeverityMedium,
		},
	}
}

func (n *NpmAudit) Probe(ctx context.Context) Availability {
	return probeTool(ctx, "npm", "--version")
}

func (n *NpmAudit) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	args := []string{"audit", "--json"}
	if !scope.IncludeDev {
		args = append(args, "--omit=dev")
	}
	res := runTool(ctx, scope.Root, "npm", args...)
	if res.Err != nil {
		return nil, res.Err
	}
	// npm audit exits 1 when vulnerabilities exist; the JSON is still complete
	return &RawResult{Tool: "npm-audit", Raw: res.Stdout, Duration: res.Duration}, nil
}

func (n *NpmAudit) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var o npmAuditOut
	if err := json.Unmarshal(raw.Raw, &o); err != nil {
		return model.ParseFailure("npm-audit", err)
	}

	names := make([]string, 0, len(o.Vulnerabilities))
	for name := range o.Vulnerabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := o.Vulnerabilities[name]
		for _, viaRaw := range v.Via {
			var adv npmAdvisory
			if err := json.Unmarshal(viaRaw, &adv); err != nil {
				continue // bare string: transitive reference, advisory reported on its own entry
			}
			if adv.Title == "" {
				continue
			}
			md := map[string]any{
				"package":  v.Name,
				"direct":   v.IsDirect,
				"advisory": adv.URL,
			}
			if len(v.Nodes) > 0 {
				md["node"] = v.Nodes[0]
			}
			// advisories attach to the manifest so dependency scanners
			// correlate on a shared canonical path
			cv.Emit(model.IssueSpec{
				Path:        "package.json",
				EntityType:  model.EntityTypeDependency,
				EntityName:  v.Name,
				RawSeverity: adv.Severity,
				Type:        model.AnalysisDepSecurity,
				Title:       fmt.Sprintf("%s: %s", v.Name, adv.Title),
				Description: fmt.Sprintf("vulnerable range %s", adv.Range),
				RuleID:      advisoryID(adv),
				Patterns:    npmPatterns(adv.CWE),
				Metadata:    md,
			})
		}
	}
	return nil
}

// advisoryID prefers the GHSA slug from the advisory URL over the opaque
// numeric source id.
func advisoryID(adv npmAdvisory) string {
	if i := strings.LastIndex(adv.URL, "/"); i >= 0 && strings.HasPrefix(adv.URL[i+1:], "GHSA-") {
		return adv.URL[i+1:]
	}
	return fmt.Sprintf("npm:%d", adv.Source)
}

func npmPatterns(cwes []string) []string {
	out := []string{model.PatternDependencyVulnerability}
	for _, cwe := range cwes {
		switch cwe {
		case "CWE-77", "CWE-78":
			out = append(out, model.PatternCommandExecution)
		case "CWE-79", "CWE-89", "CWE-1321":
			out = append(out, model.PatternInjectionVulnerability)
		case "CWE-798", "CWE-259":
			out = append(out, model.PatternCredentialExposure)
		}
	}
	return out
}
