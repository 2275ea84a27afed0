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

// alerts_violations.json (simplified)
type newRelicOut struct {
	Violations []struct {
		ID            int64  `json:"id"`
		Label         string `json:"label"`
		Duration      int    `json:"duration"`
		PolicyName    string `json:"policy_name"`
		ConditionName string `json:"condition_name"`
		Priority      string `json:"priority"` // Warning|Critical
		OpenedAt      int64  `json:"opened_at"`
		Entity        struct {
			Product string `json:"product"`
			Type    string `json:"type"`
			Name    string `json:"name"`
		} `json:"entity"`
	} `json:"violations"`
}

// NewRelic pulls open alert violations from the New Relic REST API. APM
// findings carry no source location; they attach to pseudo-paths under apm/
// so they flow through the same pipeline as file-based issues.
type NewRelic struct {
	cfg    config.NewRelicConfig
	apiKey string
	client *http.Client
	window *requestWindow
}

func NewNewRelic(cfg config.NewRelicConfig, apiKey string) *NewRelic {
	return &NewRelic{
		cfg:    cfg,
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
		window: newRequestWindow("newrelic", 50, time.Hour),
	}
}

func (n *NewRelic) Descriptor() Descriptor {
	return Descriptor{
		Name:          "newrelic",
		DisplayName:   "New Relic APM",
		Kind:          KindHTTP,
		AnalysisTypes: []model.AnalysisType{model.AnalysisAPMPerformance},
		Capabilities:  []string{"retry", "rate-limit"},
		Severities: model.SeverityTable{
			"Critical": model.SeverityHigh,
			"Warning":  model.SeverityMedium,
			"default":  model.SeverityMedium,
		},
	}
}

func (n *NewRelic) Probe(ctx context.Context) Availability {
	if n.apiKey == "" {
		return Availability{Diagnostics: []string{"NEW_RELIC_API_KEY not set"}}
	}
	return Availability{Available: true}
}

func (n *NewRelic) Analyze(ctx context.Context, scope Scope) (*RawResult, error) {
	start := time.Now()
	url := strings.TrimRight(n.cfg.BaseURL, "/") + "/alerts_violations.json?only_open=true"
	body, err := getJSON(ctx, n.client, "newrelic", url, map[string]string{"Api-Key": n.apiKey}, n.window)
	if err != nil {
		return nil, err
	}
	return &RawResult{Tool: "newrelic", Raw: body, Duration: time.Since(start)}, nil
}

func (n *NewRelic) ToUnifiedIssues(raw *RawResult, cv *Converter) error {
	var o newRelicOut
	if err := json.Unmarshal(raw.Raw, &o); err != nil {
		return model.ParseFailure("newrelic", err)
	}
	for _, v := range o.Violations {
		app := v.Entity.Name
		if app == "" {
			app = "unknown-app"
		}
		cv.Emit(model.IssueSpec{
			Path:        "apm/newrelic/" + app,
			EntityType:  model.EntityTypeApplication,
			EntityName:  app,
			RawSeverity: v.Priority,
			Type:        model.AnalysisAPMPerformance,
			Title:       v.Label,
			Description: v.PolicyName + " / " + v.ConditionName,
			RuleID:      "nr:" + slug(v.ConditionName),
			Patterns:    apmPatterns(v.Label),
			Metadata: map[string]any{
				"violationId": strconv.FormatInt(v.ID, 10),
				"durationSec": v.Duration,
				"product":     v.Entity.Product,
			},
		})
	}
	return nil
}

func apmPatterns(label string) []string {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "error"):
		return []string{model.PatternErrorRate}
	case strings.Contains(l, "response time"), strings.Contains(l, "apdex"),
		strings.Contains(l, "latency"), strings.Contains(l, "duration"):
		return []string{model.PatternSlowEndpoint}
	}
	return nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
