package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
)

const snykAPIVersion = "2024-06-26"

// Snyk REST issues endpoint (simplified)
type snykOut struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Key                    string `json:"key"`
			Title                  string `json:"title"`
			EffectiveSeverityLevel string `json:"effective_severity_level"`
			Status                 string `json:"status"`
			Classes                []struct {
				ID     string `json:"id"`
				Source string `json:"source"`
			} `json:"classes"`
			Coordinates []struct {
				Representations []struct {
					Dependency *struct {
						PackageName    string `json:"package_name"`
						PackageVersion string `json:"package_version"`
					} `json:"dependency"`
				} `json:"representations"`
			} `json:"coordinates"`
		} `json:"attributes"`
	} `json:"data"`
}

// Snyk lists open dependency issues for one org via the REST API. The request
// window enforces the vendor budget; exhaustion fails fast instead of
// stalling the whole run.
type Snyk struct {
	cfg    config.SnykConfig
	token  string
	client *http.Client
	window *requestWindow
}

func NewSnyk(cfg config.SnykConfig, token string) *Snyk {
	return &Snyk{
		cfg:    cfg,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
		window: newRequestWindow("snyk", cfg.RequestsPerHour, time.Hour),
	}
}

func (s *Snyk) Descriptor() Descriptor {
	return Descriptor{
		Name:          "snyk",
		DisplayName:   "Snyk",
		Kind:          KindHTTP,
		AnalysisTypes: []model.AnalysisType{model.AnalysisDepSecurity},
		Capabilities:  []string{"retry", "rate-limit"},
		Severities: model.SeverityTable{
			"critical": model.SeverityCritical,
			"high":     model.SeverityHigh,
			"medium":   model.SeverityMedium,
			"low":      model.SeverityLow,
			"default":  model.SeverityMedium,
		},
	}
}

func (s *Snyk) Probe(ctx context.Context) Availability {
	var missing []string
	if s.token == "" {
		missing = append(missing, "SNYK_TOKEN not set")
	}
	if s.cfg.OrgID == "" {
		missing = append(missing, "adapters.snyk.org_id not configured")
	}
	if len(missing) > 0 {
		return Availability{Diagnostics: missing}
	}
	return Availability{Available: true}
}

func (s *Snyk) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	start := time.Now()
	u := strings.TrimRight(s.cfg.BaseURL, "/") + "/orgs/" + url.PathEscape(s.cfg.OrgID) + "/issues" +
		"?version=" + snykAPIVersion + "&status=open&limit=100"
	headers := map[string]string{"Authorization": "token " + s.token}
	body, err := getJSON(ctx, s.client, "snyk", u, headers, s.window)
	if err != nil {
		return nil, err
	}
	return &RawResult{Tool: "snyk", Raw: body, Duration: time.Since(start)}, nil
}

func (s *Snyk) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var o snykOut
	if err := json.Unmarshal(raw.Raw, &o); err != nil {
		return model.ParseFailure("snyk", err)
	}
	for _, item := range o.Data {
		attr := item.Attributes
		pkg, version := "", ""
		for _, c := range attr.Coordinates {
			for _, r := range c.Representations {
				if r.Dependency != nil {
					pkg, version = r.Dependency.PackageName, r.Dependency.PackageVersion
				}
			}
		}
		var cwes []string
		for _, cl := range attr.Classes {
			if cl.Source == "CWE" {
				cwes = append(cwes, cl.ID)
			}
		}
		title := attr.Title
		if pkg != "" {
			title = pkg + ": " + attr.Title
		}
		md := map[string]any{"snykId": item.ID}
		if pkg != "" {
			md["package"] = pkg
			md["version"] = version
		}
		cv.Emit(model.IssueSpec{
			Path:        "package.json",
			EntityType:  model.EntityTypeDependency,
			EntityName:  pkg,
			RawSeverity: attr.EffectiveSeverityLevel,
			Type:        model.AnalysisDepSecurity,
			Title:       title,
			RuleID:      attr.Key,
			Patterns:    npmPatterns(cwes),
			Metadata:    md,
		})
	}
	return nil
}
