// Package correlate merges the validated issue stream into per-file metrics
// and cross-tool correlation groups. It is owned by the ingestion goroutine:
// one issue is applied at a time, so none of the state here is locked.
package correlate

import (
	"sort"
	"time"

	"github.com/cordlesssteve/topolop/internal/model"
	"github.com/cordlesssteve/topolop/internal/util"
)

// Options tune clustering. Zero values fall back to the documented defaults.
type Options struct {
	// ProximityLines is the max line distance for colocation on one path.
	ProximityLines int
	// SameTypePatterns restricts pattern-overlap correlation to issues of the
	// same analysis type. Off by default: a security finding and a quality
	// finding sharing credential_exposure still correlate.
	SameTypePatterns bool
	// Now stamps metrics updates; tests inject a fixed clock.
	Now func() time.Time
}

// Correlator accumulates issues for one report build.
type Correlator struct {
	opts Options

	issues  []model.Issue
	seen    map[string]int // issue id -> occurrence count
	metrics map[string]*model.FileMetrics
	byPath  map[string][]int // canonical path -> indices into issues
}

func New(opts Options) *Correlator {
	if opts.ProximityLines <= 0 {
		opts.ProximityLines = model.DefaultProximityLines
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Correlator{
		opts:    opts,
		seen:    make(map[string]int),
		metrics: make(map[string]*model.FileMetrics),
		byPath:  make(map[string][]int),
	}
}

// Ingest folds one issue into the build. Issues from the same tool with the
// same path, line, column and rule collapse to the first occurrence; the id
// already encodes exactly that tuple. Returns false when the issue was
// collapsed as a duplicate. Duplicates do not inflate metrics.
func (c *Correlator) Ingest(is model.Issue) bool {
	if n, ok := c.seen[is.ID]; ok {
		c.seen[is.ID] = n + 1
		return false
	}
	c.seen[is.ID] = 1

	idx := len(c.issues)
	c.issues = append(c.issues, is)
	c.byPath[is.CanonicalPath] = append(c.byPath[is.CanonicalPath], idx)

	m, ok := c.metrics[is.CanonicalPath]
	if !ok {
		m = model.NewFileMetrics(is.CanonicalPath)
		c.metrics[is.CanonicalPath] = m
	}
	m.Apply(&is, c.opts.Now())
	return true
}

// Len reports how many distinct issues have been accepted.
func (c *Correlator) Len() int { return len(c.issues) }

// Issues returns the accepted issues sorted by id. Collapsed occurrences
// surface as a duplicateCount metadata entry on the surviving issue. The
// internal state is not mutated; calling Issues twice is fine.
func (c *Correlator) Issues() []model.Issue {
	out := make([]model.Issue, len(c.issues))
	copy(out, c.issues)
	for i := range out {
		if n := c.seen[out[i].ID]; n > 1 {
			md := make(map[string]any, len(out[i].Metadata)+1)
			for k, v := range out[i].Metadata {
				md[k] = v
			}
			md["duplicateCount"] = n
			out[i].Metadata = md
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Metrics returns the per-file aggregates keyed by canonical path.
func (c *Correlator) Metrics() map[string]*model.FileMetrics {
	return c.metrics
}

// Groups clusters the accepted issues per canonical path and returns every
// cluster that spans at least two distinct tools, sorted by key. Membership is
// order-independent: issues are considered in id order regardless of when they
// were ingested.
func (c *Correlator) Groups() []model.CorrelationGroup {
	paths := make([]string, 0, len(c.byPath))
	for p := range c.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var groups []model.CorrelationGroup
	for _, path := range paths {
		members := c.pathIssues(path)
		if len(members) < 2 {
			continue
		}
		groups = append(groups, c.clusterPath(path, members)...)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// pathIssues returns pointers to the path's issues sorted by id.
func (c *Correlator) pathIssues(path string) []*model.Issue {
	idxs := c.byPath[path]
	out := make([]*model.Issue, len(idxs))
	for i, idx := range idxs {
		out[i] = &c.issues[idx]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// clusterPath union-finds the path's issues over colocation and pattern
// overlap edges, then materializes the components that span two tools.
func (c *Correlator) clusterPath(path string, members []*model.Issue) []model.CorrelationGroup {
	parent := make([]int, len(members))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		ri, rj := find(i), find(j)
		if ri != rj {
			parent[rj] = ri
		}
	}

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if c.related(members[i], members[j]) {
				union(i, j)
			}
		}
	}

	comps := make(map[int][]int)
	for i := range members {
		r := find(i)
		comps[r] = append(comps[r], i)
	}
	roots := make([]int, 0, len(comps))
	for r := range comps {
		roots = append(roots, r)
	}
	sort.Ints(roots)

	var groups []model.CorrelationGroup
	for _, r := range roots {
		comp := comps[r]
		if len(comp) < 2 {
			continue
		}
		if g, ok := c.buildGroup(path, members, comp); ok {
			groups = append(groups, g)
		}
	}
	return groups
}

// related reports whether two issues on the same path should cluster.
func (c *Correlator) related(a, b *model.Issue) bool {
	if a.Nearby(b, c.opts.ProximityLines) {
		return true
	}
	return len(c.sharedPatterns(a, b)) > 0
}

// sharedPatterns applies the same-type knob before pattern comparison. A
// missing line never disables pattern overlap.
func (c *Correlator) sharedPatterns(a, b *model.Issue) []string {
	if c.opts.SameTypePatterns && a.AnalysisType != b.AnalysisType {
		return nil
	}
	return a.SharedPatterns(b)
}

const (
	strengthNone = iota
	strengthLow
	strengthMedium
	strengthHigh
)

// buildGroup grades a component and assembles the group record. Components
// whose members all come from one tool are dropped: corroboration needs a
// second opinion.
func (c *Correlator) buildGroup(path string, members []*model.Issue, comp []int) (model.CorrelationGroup, bool) {
	toolSet := make(map[string]struct{})
	for _, i := range comp {
		toolSet[members[i].ToolName] = struct{}{}
	}
	if len(toolSet) < 2 {
		return model.CorrelationGroup{}, false
	}

	rank := strengthNone
	patternSet := make(map[string]struct{})
	for x := 0; x < len(comp); x++ {
		for y := x + 1; y < len(comp); y++ {
			a, b := members[comp[x]], members[comp[y]]
			if a.ToolName == b.ToolName {
				continue
			}
			shared := c.sharedPatterns(a, b)
			for _, p := range shared {
				patternSet[p] = struct{}{}
			}
			if r := pairStrength(a, b, shared, c.opts.ProximityLines); r > rank {
				rank = r
			}
		}
	}

	ids := make([]string, 0, len(comp))
	for _, i := range comp {
		ids = append(ids, members[i].ID)
	}
	sort.Strings(ids)
	tools := make([]string, 0, len(toolSet))
	for t := range toolSet {
		tools = append(tools, t)
	}
	sort.Strings(tools)
	patterns := make([]string, 0, len(patternSet))
	for p := range patternSet {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	return model.CorrelationGroup{
		Key:           util.GroupKey(path, patterns, ids),
		CanonicalPath: path,
		MemberIDs:     ids,
		Strength:      strengthLabel(rank),
		Patterns:      patterns,
		Tools:         tools,
	}, true
}

// pairStrength grades one cross-tool pair: two shared patterns, or colocation
// within the same analysis type, is strong evidence; colocation alone is
// medium; a single shared pattern is weak.
func pairStrength(a, b *model.Issue, shared []string, proximity int) int {
	colocated := a.Nearby(b, proximity)
	switch {
	case len(shared) >= 2:
		return strengthHigh
	case colocated && a.AnalysisType == b.AnalysisType:
		return strengthHigh
	case colocated:
		return strengthMedium
	case len(shared) == 1:
		return strengthLow
	}
	return strengthNone
}

func strengthLabel(rank int) model.Strength {
	switch rank {
	case strengthHigh:
		return model.StrengthHigh
	case strengthMedium:
		return model.StrengthMedium
	default:
		return model.StrengthLow
	}
}
