package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
)

// /api/v1/monitor (simplified)
type datadogMonitor struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Query        string   `json:"query"`
	Tags         []string `json:"tags"`
	OverallState string   `json:"overall_state"` // OK|Alert|Warn|No Data
}

// Datadog pulls monitor states; alerting monitors become APM issues on
// service pseudo-paths.
type Datadog struct {
	cfg    config.DatadogConfig
	apiKey string
	appKey string
	client *http.Client
	window *requestWindow
}

func NewDatadog(cfg config.DatadogConfig, apiKey, appKey string) *Datadog {
	return &Datadog{
		cfg:    cfg,
		apiKey: apiKey,
		appKey: appKey,
		client: &http.Client{Timeout: 30 * time.Second},
		window: newRequestWindow("datadog", 50, time.Hour),
	}
}

func (d *Datadog) Descriptor() Descriptor {
	return Descriptor{
		Name:          "datadog",
		DisplayName:   "Datadog Monitors",
		Kind:          KindHTTP,
		AnalysisTypes: []model.AnalysisType{model.AnalysisAPMPerformance},
		Capabilities:  []string{"retry", "rate-limit"},
		Severities: model.SeverityTable{
			"Alert":   model.SeverityHigh,
			"Warn":    model.SeverityMedium,
			"No Data": model.SeverityInfo,
			"default": model.SeverityMedium,
		},
	}
}

func (d *Datadog) Probe(ctx context.Context) Availability {
	var missing []string
	if d.apiKey == "" {
		missing = append(missing, "DATADOG_API_KEY not set")
	}
	if d.appKey == "" {
		missing = append(missing, "DD_APP_KEY not set")
	}
	if len(missing) > 0 {
		return Availability{Diagnostics: missing}
	}
	return Availability{Available: true}
}

func (d *Datadog) baseURL() string {
	if d.cfg.BaseURL != "" {
		return strings.TrimRight(d.cfg.BaseURL, "/")
	}
	return "https://api." + d.cfg.Site
}

func (d *Datadog) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	start := time.Now()
	headers := map[string]string{
		"DD-API-KEY":         d.apiKey,
		"DD-APPLICATION-KEY": d.appKey,
	}
	body, err := getJSON(ctx, d.client, "datadog", d.baseURL()+"/api/v1/monitor", headers, d.window)
	if err != nil {
		return nil, err
	}
	return &RawResult{Tool: "datadog", Raw: body, Duration: time.Since(start)}, nil
}

func (d *Datadog) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var monitors []datadogMonitor
	if err := json.Unmarshal(raw.Raw, &monitors); err != nil {
		return model.ParseFailure("datadog", err)
	}
	for _, m := range monitors {
		if m.OverallState == "OK" || m.OverallState == "" {
			continue
		}
		service := serviceTag(m.Tags)
		cv.Emit(model.IssueSpec{
			Path:        "apm/datadog/" + service,
			EntityType:  model.EntityTypeApplication,
			EntityName:  service,
			RawSeverity: m.OverallState,
			Type:        model.AnalysisAPMPerformance,
			Title:       m.Name,
			Description: m.Query,
			RuleID:      "dd:" + strconv.FormatInt(m.ID, 10),
			Patterns:    apmPatterns(m.Name),
			Metadata: map[string]any{
				"monitorType": m.Type,
				"state":       m.OverallState,
			},
		})
	}
	return nil
}

func serviceTag(tags []string) string {
	for _, t := range tags {
		if s, ok := strings.CutPrefix(t, "service:"); ok && s != "" {
			return s
		}
	}
	return "unknown-service"
}
