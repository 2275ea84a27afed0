// Package engine drives a full analysis run: it probes and executes adapters
// concurrently, serializes their raw output onto a single ingestion goroutine,
// and assembles the unified report from the correlator's state.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cordlesssteve/topolop/internal/adapters"
	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/correlate"
	"github.com/cordlesssteve/topolop/internal/model"
	"github.com/cordlesssteve/topolop/internal/pathnorm"
)

const (
	// defaultMaxParallel bounds concurrently running adapters.
	defaultMaxParallel = 4
	// emissionBuffer is the bounded queue between adapter goroutines and the
	// ingestion goroutine. A full queue pauses finished adapters.
	emissionBuffer = 8
	// defaultAdapterTimeout applies when the config carries no budget.
	defaultAdapterTimeout = 2 * time.Minute
)

type Options struct {
	Root        string
	Config      config.Config
	Adapters    []adapters.Adapter
	Logger      *zap.SugaredLogger
	MaxParallel int
	// BaselinePath suppresses issues recorded in an earlier run.
	BaselinePath string
	// Now and RunID are injectable for deterministic tests.
	Now   func() time.Time
	RunID string
}

type Engine struct {
	root     string
	cfg      config.Config
	adapters []adapters.Adapter
	log      *zap.SugaredLogger
	parallel int
	baseline string
	now      func() time.Time
	runID    string
}

func New(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	return &Engine{
		root:     opts.Root,
		cfg:      opts.Config,
		adapters: opts.Adapters,
		log:      opts.Logger,
		parallel: opts.MaxParallel,
		baseline: opts.BaselinePath,
		now:      opts.Now,
		runID:    opts.RunID,
	}
}

// emission is one adapter's contribution, handed from its worker goroutine to
// the ingestion goroutine. Raw output crosses the channel; conversion happens
// on the ingestion side only.
type emission struct {
	adapter adapters.Adapter
	desc    adapters.Descriptor
	version string
	skip    string
	raw     *adapters.RawResult
	err     error
	elapsed time.Duration
}

// Run executes every adapter and builds the report. Adapter failures are
// recorded, never propagated: the only error conditions here are baseline
// loading problems surfaced to the caller before any adapter starts.
func (e *Engine) Run(ctx context.Context) (*model.UnifiedReport, error) {
	started := e.now().UTC()
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	base, err := loadBaseline(e.baseline)
	if err != nil {
		return nil, err
	}
	sup := newSuppressor(e.root, e.cfg.Ignore, base.Fingerprints, started, e.log)

	norm := pathnorm.New(e.root, e.cfg.Paths.CaseInsensitive)
	registry := model.NewEntityRegistry()
	builder := model.NewIssueBuilder(started)
	corr := correlate.New(correlate.Options{
		ProximityLines:   e.cfg.Correlation.ProximityLines,
		SameTypePatterns: e.cfg.Correlation.SameTypePatterns,
		Now:              e.now,
	})

	scope := adapters.Scope{Root: e.root, IncludeDev: e.cfg.IncludeDev}
	ch := make(chan emission, emissionBuffer)
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.parallel)
	for _, a := range e.adapters {
		wg.Add(1)
		go func(a adapters.Adapter) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			ch <- e.runOne(ctx, a, scope)
		}(a)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	cv := adapters.NewConverter(norm, registry, builder, e.log)
	records := make(map[string]*model.AdapterRecord, len(e.adapters))
	for em := range ch {
		records[em.desc.Name] = e.ingest(em, cv, corr, sup)
	}

	report := &model.UnifiedReport{
		SchemaVersion: model.SchemaVersion,
		RunID:         runID,
		StartedAt:     started,
		FinishedAt:    e.now().UTC(),
		ProjectRoot:   e.root,
		Entities:      registry.All(),
		Issues:        corr.Issues(),
		Metrics:       corr.Metrics(),
		Correlations:  corr.Groups(),
		Adapters:      records,
	}
	return report, nil
}

// runOne probes and analyzes a single adapter inside its time budget. Runs on
// a worker goroutine; everything it returns is consumed by the ingestion side.
func (e *Engine) runOne(ctx context.Context, a adapters.Adapter, scope adapters.Scope) emission {
	desc := a.Descriptor()
	em := emission{adapter: a, desc: desc}

	if !e.cfg.AdapterEnabled(desc.Name) {
		em.skip = "disabled in configuration"
		return em
	}

	av := a.Probe(ctx)
	em.version = av.Version
	if !av.Available {
		em.skip = skipReason(av.Diagnostics)
		e.log.Debugw("adapter unavailable", "adapter", desc.Name, "reason", em.skip)
		return em
	}

	timeout := time.Duration(e.cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	em.raw, em.err = a.Analyze(actx, scope)
	em.elapsed = time.Since(start)
	return em
}

// ingest converts one emission on the ingestion goroutine, feeds the accepted
// issues through suppression and the correlator, and grades the outcome.
func (e *Engine) ingest(em emission, cv *adapters.Converter, corr *correlate.Correlator, sup *suppressor) *model.AdapterRecord {
	rec := &model.AdapterRecord{Name: em.desc.Name, Version: em.version}
	rec.Stats.ElapsedMs = em.elapsed.Milliseconds()

	if em.skip != "" {
		rec.Outcome = model.OutcomeSkipped
		rec.SkipReason = em.skip
		return rec
	}

	var issues []model.Issue
	if em.raw != nil {
		cv.Begin(em.desc)
		convErr := em.adapter.ToUnifiedIssues(em.raw, cv)
		var rejected []model.RejectedIssue
		issues, rejected, rec.Stats.RawCount = cv.Finish()
		rec.Stats.Accepted = len(issues)
		rec.Stats.Rejected = len(rejected)
		rec.RejectedIssues = rejected
		if convErr != nil && em.err == nil {
			em.err = convErr
		}
	}

	for i := range issues {
		if sup.Suppressed(&issues[i]) {
			rec.Stats.Suppressed++
			continue
		}
		if !corr.Ingest(issues[i]) {
			rec.Stats.Duplicates++
		}
	}

	switch kind := model.KindOf(em.err); {
	case em.err == nil:
		rec.Outcome = model.OutcomeOK
	case kind == model.KindCancelled:
		rec.Outcome = model.OutcomeCancelled
		rec.ErrorKind = kind
		rec.Error = em.err.Error()
	case rec.Stats.Accepted > 0:
		rec.Outcome = model.OutcomePartial
		rec.ErrorKind = kind
		rec.Error = em.err.Error()
	default:
		rec.Outcome = model.OutcomeFailed
		rec.ErrorKind = kind
		rec.Error = em.err.Error()
	}

	e.log.Debugw("adapter finished",
		"adapter", em.desc.Name,
		"outcome", rec.Outcome,
		"accepted", rec.Stats.Accepted,
		"rejected", rec.Stats.Rejected,
		"elapsedMs", rec.Stats.ElapsedMs)
	return rec
}

func skipReason(diagnostics []string) string {
	if len(diagnostics) == 0 {
		return "tool not available"
	}
	return strings.Join(diagnostics, "; ")
}
