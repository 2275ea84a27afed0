package adapters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
)

// runParse pushes fixture bytes through an adapter's conversion with a fresh
// converter rooted at /p.
func runParse(t *testing.T, a Adapter, fixture string) ([]model.Issue, []model.RejectedIssue, *model.EntityRegistry) {
	t.Helper()
	cv, reg := newTestConverter()
	cv.Begin(a.Descriptor())
	err := a.ToUnifiedIssues(&RawResult{Tool: a.Descriptor().Name, Raw: []byte(fixture)}, cv)
	require.NoError(t, err)
	issues, rejected, _ := cv.Finish()
	return issues, rejected, reg
}

func TestClippyParse(t *testing.T) {
	fixture := `{"reason":"compiler-artifact","target":{"name":"x"}}
{"reason":"compiler-message","message":{"message":"casting to the same type","level":"warning","code":{"code":"clippy::unnecessary_cast"},"spans":[{"file_name":"src/main.rs","line_start":12,"line_end":12,"column_start":5,"column_end":20,"is_primary":true}],"children":[{"level":"help","message":"remove the cast"}]}}
{"reason":"compiler-message","message":{"message":"function is never used","level":"warning","code":{"code":"dead_code"},"spans":[{"file_name":"src/lib.rs","line_start":3,"line_end":3,"column_start":4,"column_end":9,"is_primary":true}],"children":[]}}
{"reason":"build-finished","success":true}`

	issues, rejected, _ := runParse(t, NewClippy(), fixture)
	require.Len(t, issues, 2)
	assert.Empty(t, rejected)

	assert.Equal(t, "src/main.rs", issues[0].CanonicalPath)
	assert.Equal(t, "clippy::unnecessary_cast", issues[0].RuleID)
	assert.Equal(t, model.SeverityMedium, issues[0].Severity)
	assert.Equal(t, 12, issues[0].Line)
	assert.Equal(t, "remove the cast", issues[0].Description)

	assert.Equal(t, "dead_code", issues[1].RuleID)
	assert.Contains(t, issues[1].Patterns, model.PatternDeadCode)
}

func TestClippyParse_Garbage(t *testing.T) {
	cv, _ := newTestConverter()
	cv.Begin(NewClippy().Descriptor())
	err := NewClippy().ToUnifiedIssues(&RawResult{Tool: "clippy", Raw: []byte("not json at all")}, cv)
	require.Error(t, err)
	assert.Equal(t, model.KindParseFailure, model.KindOf(err))
}

func TestMypyParse(t *testing.T) {
	fixture := `{"file":"app/views.py","line":14,"column":0,"message":"Argument 1 has incompatible type \"str\"","hint":null,"code":"arg-type","severity":"error"}
{"file":"app/views.py","line":14,"column":0,"message":"See docs","hint":null,"code":"","severity":"note"}`

	issues, rejected, _ := runParse(t, NewMypy(), fixture)
	require.Len(t, issues, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, "app/views.py", issues[0].CanonicalPath)
	assert.Equal(t, "mypy:arg-type", issues[0].RuleID)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Equal(t, 14, issues[0].Line)
	assert.Equal(t, 1, issues[0].Column) // clamped from 0
	assert.Contains(t, issues[0].Patterns, model.PatternTypeConfusion)
}

func TestBanditParse(t *testing.T) {
	fixture := `{"results":[
		{"filename":"./db/query.py","line_number":44,"col_offset":8,"issue_severity":"HIGH","issue_confidence":"MEDIUM","issue_text":"Possible SQL injection","test_id":"B608","test_name":"hardcoded_sql_expressions","issue_cwe":{"id":89}},
		{"filename":"./settings.py","line_number":3,"col_offset":0,"issue_severity":"LOW","issue_confidence":"HIGH","issue_text":"Possible hardcoded password","test_id":"B105","test_name":"hardcoded_password_string","issue_cwe":{"id":259}}
	],"errors":[]}`

	issues, rejected, _ := runParse(t, NewBandit(), fixture)
	require.Len(t, issues, 2)
	assert.Empty(t, rejected)

	assert.Equal(t, "db/query.py", issues[0].CanonicalPath)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Equal(t, 9, issues[0].Column) // col_offset is 0-based
	assert.Contains(t, issues[0].Patterns, model.PatternInjectionVulnerability)

	assert.Contains(t, issues[1].Patterns, model.PatternCredentialExposure)
	assert.Equal(t, 89, issues[0].Metadata["cwe"])
}

func TestClangParse_FileTable(t *testing.T) {
	fixture := `{"runs":[{
		"tool":{"driver":{"name":"clang","version":"17.0.1"}},
		"artifacts":[{"location":{"uri":"src/parse.c"}},{"location":{"uri":"src/alloc.c"}}],
		"results":[
			{"ruleId":"core.NullDereference","level":"warning","message":{"text":"Dereference of null pointer"},
			 "locations":[{"physicalLocation":{"artifactLocation":{"index":1},"region":{"startLine":88,"startColumn":10}}}]},
			{"ruleId":"deadcode.DeadStores","level":"note","message":{"text":"Value stored is never read"},
			 "locations":[{"physicalLocation":{"artifactLocation":{"uri":"src/parse.c"},"region":{"startLine":12,"startColumn":3}}}]}
		]}]}`

	issues, rejected, _ := runParse(t, NewClang("/p"), fixture)
	require.Len(t, issues, 2)
	assert.Empty(t, rejected)

	assert.Equal(t, "src/alloc.c", issues[0].CanonicalPath) // resolved through the artifact table
	assert.Contains(t, issues[0].Patterns, model.PatternMemorySafety)
	assert.Equal(t, 88, issues[0].Line)

	assert.Equal(t, "src/parse.c", issues[1].CanonicalPath)
	assert.Contains(t, issues[1].Patterns, model.PatternDeadCode)
	assert.Equal(t, model.SeverityInfo, issues[1].Severity)
}

func TestSemgrepParse(t *testing.T) {
	fixture := `{"results":[
		{"check_id":"python.lang.security.audit.dangerous-subprocess-use","path":"tasks/run.py",
		 "start":{"line":31,"col":5},"end":{"line":31,"col":40},
		 "extra":{"message":"Detected subprocess with shell=True","severity":"ERROR",
		          "metadata":{"cwe":["CWE-78: Improper Neutralization"],"references":["https://example.com"]}}}
	],"errors":[]}`

	issues, rejected, _ := runParse(t, NewSemgrep(), fixture)
	require.Len(t, issues, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, model.AnalysisSecurity, issues[0].AnalysisType)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Contains(t, issues[0].Patterns, model.PatternCommandExecution)
}

func TestCBMCParse(t *testing.T) {
	fixture := `[[
		{"program":"CBMC 5.95.1"},
		{"result":[
			{"description":"dereference failure: pointer NULL","property":"main.pointer_dereference.1","status":"FAILURE",
			 "trace":[{"sourceLocation":{"file":"src/a.c","function":"main","line":"7"}}]},
			{"description":"array bounds","property":"main.array_bounds.2","status":"SUCCESS","trace":[]}
		]}
	]]`

	issues, rejected, _ := runParse(t, NewCBMC(), fixture)
	require.Len(t, issues, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, "src/a.c", issues[0].CanonicalPath)
	assert.Equal(t, "cbmc:pointer_dereference", issues[0].RuleID)
	assert.Equal(t, 7, issues[0].Line)
	assert.Contains(t, issues[0].Patterns, model.PatternMemorySafety)
}

func TestNpmAuditParse(t *testing.T) {
	fixture := `{"auditReportVersion":2,"vulnerabilities":{
		"lodash":{"name":"lodash","severity":"high","isDirect":true,
			"via":[{"source":1065,"name":"lodash","title":"Prototype Pollution","url":"https://github.com/advisories/GHSA-jf85-cpcp-j695","severity":"high","cwe":["CWE-1321"],"range":"<4.17.12"}],
			"range":"<4.17.21","nodes":["node_modules/lodash"]},
		"chained":{"name":"chained","severity":"moderate","isDirect":false,
			"via":["lodash"],"range":"*","nodes":[]}
	}}`

	issues, rejected, _ := runParse(t, NewNpmAudit(), fixture)
	require.Len(t, issues, 1) // string-via entries do not duplicate the advisory
	assert.Empty(t, rejected)

	is := issues[0]
	assert.Equal(t, "package.json", is.CanonicalPath)
	assert.Equal(t, "GHSA-jf85-cpcp-j695", is.RuleID)
	assert.Equal(t, model.SeverityHigh, is.Severity)
	assert.Contains(t, is.Patterns, model.PatternDependencyVulnerability)
	assert.Contains(t, is.Patterns, model.PatternInjectionVulnerability)
	assert.Equal(t, "lodash", is.Metadata["package"])
}

func TestOSVParse(t *testing.T) {
	fixture := `{"results":[{"source":{"path":"/p/package-lock.json","type":"lockfile"},"packages":[
		{"package":{"name":"minimist","version":"0.0.8","ecosystem":"npm"},
		 "vulnerabilities":[
			{"id":"GHSA-vh95-rmgr-6w4m","aliases":["CVE-2020-7598"],"summary":"Prototype Pollution","database_specific":{"severity":"MODERATE"}},
			{"id":"GHSA-xvch-5gv4-984h","summary":"Severe pollution","database_specific":{}}
		 ],
		 "groups":[{"ids":["GHSA-xvch-5gv4-984h"],"max_severity":"9.8"}]}
	]}]}`

	issues, rejected, reg := runParse(t, NewOSV(), fixture)
	require.Len(t, issues, 2)
	assert.Empty(t, rejected)

	assert.Equal(t, "package-lock.json", issues[0].CanonicalPath)
	assert.Equal(t, model.SeverityMedium, issues[0].Severity)
	assert.Equal(t, model.SeverityCritical, issues[1].Severity) // bucketed from CVSS 9.8

	ent, ok := reg.Lookup("package-lock.json")
	require.True(t, ok)
	assert.Equal(t, model.EntityTypeDependency, ent.Type)
	assert.Equal(t, "minimist", ent.Name)
}

func TestDepcheckParse(t *testing.T) {
	fixture := `{"dependencies":["left-pad"],"devDependencies":["mocha"],"missing":{"react":["src/App.js"]}}`

	// dev findings only appear when the run includes dev dependencies
	cv, _ := newTestConverter()
	d := NewDepcheck()
	cv.Begin(d.Descriptor())
	err := d.ToUnifiedIssues(&RawResult{Tool: "depcheck", Raw: []byte(fixture)}, cv)
	require.NoError(t, err)
	issues, _, _ := cv.Finish()
	require.Len(t, issues, 2)
	assert.Equal(t, "depcheck:unused", issues[0].RuleID)
	assert.Contains(t, issues[0].Patterns, model.PatternUnusedDependency)
	assert.Equal(t, "src/App.js", issues[1].CanonicalPath)

	cv.Begin(d.Descriptor())
	err = d.ToUnifiedIssues(&RawResult{Tool: "depcheck", Raw: []byte(fixture), Meta: map[string]string{"includeDev": "true"}}, cv)
	require.NoError(t, err)
	issues, _, _ = cv.Finish()
	assert.Len(t, issues, 3)
}

func TestLicenseCheckerParse(t *testing.T) {
	fixture := `{
		"good@1.0.0":{"licenses":"MIT","path":"/p/node_modules/good"},
		"viral@2.0.0":{"licenses":"GPL-3.0","path":"/p/node_modules/viral"},
		"mystery@0.1.0":{"licenses":["UNKNOWN","MIT"],"path":"/p/node_modules/mystery"}
	}`

	issues, rejected, _ := runParse(t, NewLicenseChecker(), fixture)
	require.Len(t, issues, 2)
	assert.Empty(t, rejected)

	assert.Equal(t, "node_modules/mystery", issues[0].CanonicalPath)
	assert.Equal(t, "license:unknown", issues[0].RuleID)
	assert.Equal(t, "node_modules/viral", issues[1].CanonicalPath)
	assert.Equal(t, "license:copyleft", issues[1].RuleID)
	assert.Equal(t, model.SeverityHigh, issues[1].Severity)
}

func TestNewRelicParse(t *testing.T) {
	fixture := `{"violations":[
		{"id":912,"label":"Response time (web)","duration":300,"policy_name":"Golden","condition_name":"Response time","priority":"Critical","opened_at":1715500000,"entity":{"product":"APM","type":"Application","name":"checkout-svc"}}
	]}`

	issues, rejected, _ := runParse(t, NewNewRelic(config.Default().Adapters.NewRelic, ""), fixture)
	require.Len(t, issues, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, "apm/newrelic/checkout-svc", issues[0].CanonicalPath)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "nr:response-time", issues[0].RuleID)
	assert.Contains(t, issues[0].Patterns, model.PatternSlowEndpoint)
}

func TestDatadogParse(t *testing.T) {
	fixture := `[
		{"id":7,"name":"High error rate on checkout","type":"query alert","query":"avg(last_5m):...","tags":["service:checkout","env:prod"],"overall_state":"Alert"},
		{"id":8,"name":"Quiet monitor","type":"query alert","query":"...","tags":[],"overall_state":"OK"}
	]`

	issues, rejected, _ := runParse(t, NewDatadog(config.Default().Adapters.Datadog, "", ""), fixture)
	require.Len(t, issues, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, "apm/datadog/checkout", issues[0].CanonicalPath)
	assert.Contains(t, issues[0].Patterns, model.PatternErrorRate)
	assert.Equal(t, "dd:7", issues[0].RuleID)
}

func TestSnykParse(t *testing.T) {
	fixture := `{"data":[{"id":"abc-123","type":"issue","attributes":{
		"key":"SNYK-JS-LODASH-567746","title":"Prototype Pollution","effective_severity_level":"high","status":"open",
		"classes":[{"id":"CWE-1321","source":"CWE"}],
		"coordinates":[{"representations":[{"dependency":{"package_name":"lodash","package_version":"4.17.11"}}]}]}}]}`

	issues, rejected, _ := runParse(t, NewSnyk(config.Default().Adapters.Snyk, ""), fixture)
	require.Len(t, issues, 1)
	assert.Empty(t, rejected)
	assert.Equal(t, "package.json", issues[0].CanonicalPath)
	assert.Equal(t, "SNYK-JS-LODASH-567746", issues[0].RuleID)
	assert.Contains(t, issues[0].Patterns, model.PatternInjectionVulnerability)
	assert.Equal(t, "lodash", issues[0].Metadata["package"])
}

func TestGeminiParse_StripsFences(t *testing.T) {
	raw := "```json\n[{\"file\":\"src/big.go\",\"line\":40,\"severity\":\"high\",\"title\":\"Hardcoded secret\",\"description\":\"API key in source\",\"category\":\"security\"}]\n```"

	cv, _ := newTestConverter()
	g := NewGemini(config.Default().Adapters.Gemini, "")
	cv.Begin(g.Descriptor())
	err := g.ToUnifiedIssues(&RawResult{Tool: "gemini", Raw: stripFences([]byte(raw)), Meta: map[string]string{"model": "gemini-1.5-flash"}}, cv)
	require.NoError(t, err)
	issues, _, _ := cv.Finish()
	require.Len(t, issues, 1)
	assert.Equal(t, "gemini:security", issues[0].RuleID)
	assert.Equal(t, 1, issues[0].Column)
	assert.Contains(t, issues[0].Patterns, model.PatternCredentialExposure)
}
