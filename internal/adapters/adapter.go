// Package adapters holds the clients for external analysis tools and the
// conversion layer that turns their raw output into unified issues.
package adapters

import (
	"context"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
)

// Kind classifies how an adapter reaches its tool.
type Kind string

const (
	KindSubprocess Kind = "subprocess"
	KindReport     Kind = "report" // ingests a build-produced report file
	KindHTTP       Kind = "http"
	KindAI         Kind = "ai"
)

// Descriptor is an adapter's static self-description.
type Descriptor struct {
	Name               string
	DisplayName        string
	Kind               Kind
	AnalysisTypes      []model.AnalysisType
	SupportedFileTypes []string
	RequiredTools      []string
	Capabilities       []string
	Severities         model.SeverityTable
}

// Availability is the result of an adapter probe.
type Availability struct {
	Available   bool
	Version     string
	Diagnostics []string
}

// Scope targets one analyze run.
type Scope struct {
	Root       string // absolute project root
	Artifact   string // optional single file, relative to Root
	IncludeDev bool
}

// RawResult is an adapter's unparsed tool output. Partial marks output cut
// short by a deadline; whatever parses out of it is still reported.
type RawResult struct {
	Tool     string
	Raw      []byte
	Partial  bool
	Duration time.Duration
	Meta     map[string]string
}

// Adapter is the contract every tool client implements. Probe and Analyze may
// run concurrently across adapters; ToUnifiedIssues is only ever called from
// the harness's single ingestion goroutine, so it may touch the shared
// converter freely.
type Adapter interface {
	Descriptor() Descriptor
	Probe(ctx context.Context) Availability
	Analyze(ctx context.Context, scope Scope) (*RawResult, error)
	ToUnifiedIssues(raw *RawResult, cv *Converter) error
}
