package engine

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/cordlesssteve/topolop/internal/config"
	"github.com/cordlesssteve/topolop/internal/model"
)

// inlineMarkerWindow is how many lines above an issue an inline suppression
// comment may sit.
const inlineMarkerWindow = 5

// suppressor decides which validated issues stay out of the report: config
// ignore rules, baseline fingerprints, and inline source markers. Owned by the
// ingestion goroutine.
type suppressor struct {
	root     string
	rules    []config.IgnoreRule
	baseline map[string]bool
	now      time.Time
	log      *zap.SugaredLogger
}

func newSuppressor(root string, rules []config.IgnoreRule, baseline map[string]bool, now time.Time, log *zap.SugaredLogger) *suppressor {
	return &suppressor{root: root, rules: rules, baseline: baseline, now: now, log: log}
}

func (s *suppressor) Suppressed(is *model.Issue) bool {
	if s.baseline[is.ID] {
		return true
	}
	for _, rule := range s.rules {
		if s.ruleMatches(rule, is) {
			return true
		}
	}
	if is.HasLocation() {
		return s.hasInlineMarker(is.CanonicalPath, is.RuleID, is.Line)
	}
	return false
}

func (s *suppressor) ruleMatches(rule config.IgnoreRule, is *model.Issue) bool {
	if expired(rule.Expires, s.now) {
		return false
	}
	if rule.Rule != "" && !strings.EqualFold(rule.Rule, is.RuleID) {
		return false
	}
	if rule.Path != "" && !pathMatches(rule.Path, is.CanonicalPath) {
		return false
	}
	return rule.Rule != "" || rule.Path != ""
}

// pathMatches accepts doublestar globs as well as plain prefixes, so both
// "src/**/*.py" and "src/legacy" work.
func pathMatches(pattern, canonicalPath string) bool {
	if ok, err := doublestar.Match(pattern, canonicalPath); err == nil && ok {
		return true
	}
	return strings.HasPrefix(canonicalPath, strings.TrimSuffix(pattern, "/")+"/") ||
		canonicalPath == pattern
}

// expired treats rules with a date in the past as inactive so temporary
// waivers age out instead of hiding regressions forever.
func expired(expires string, now time.Time) bool {
	if expires == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", expires)
	if err != nil {
		return false
	}
	return now.After(t.AddDate(0, 0, 1))
}

// hasInlineMarker scans the source window above the issue for a
// "topolop:ignore RULE_ID" comment. Pseudo-paths and unreadable files never
// suppress.
func (s *suppressor) hasInlineMarker(canonicalPath, ruleID string, line int) bool {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(canonicalPath)))
	if err != nil {
		return false
	}
	defer f.Close()

	needle := "topolop:ignore " + ruleID
	from := line - inlineMarkerWindow
	if from < 1 {
		from = 1
	}
	to := line + 1

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
		if n < from {
			continue
		}
		if n > to {
			break
		}
		if strings.Contains(sc.Text(), needle) {
			return true
		}
	}
	return false
}
