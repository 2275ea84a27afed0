// Package pathnorm maps arbitrary tool-supplied file identifiers to canonical
// project-relative paths. The canonical form is the universal correlation key:
// two adapters addressing the same file must normalize to the same string.
package pathnorm

import (
	"fmt"
	"strings"

	"github.com/cordlesssteve/topolop/internal/model"
)

// Result is one normalization outcome. Confidence grades how certain the
// mapping is; flags mark identifiers that left the happy path.
type Result struct {
	CanonicalPath     string
	Confidence        float64
	ExternalToProject bool
	Unresolved        bool
}

// Normalizer holds per-run normalization settings. It is stateless beyond
// configuration and safe to share.
type Normalizer struct {
	root            string // project root, forward slashes, no trailing /
	caseInsensitive bool
}

func New(projectRoot string, caseInsensitive bool) *Normalizer {
	root := strings.TrimRight(toSlash(projectRoot), "/")
	return &Normalizer{root: root, caseInsensitive: caseInsensitive}
}

func (n *Normalizer) Root() string { return n.root }

// Normalize canonicalizes a tool-supplied path string. Best effort: messy but
// valid strings never fail; only empty or control-character input does.
func (n *Normalizer) Normalize(input string) (Result, error) {
	if strings.TrimSpace(input) == "" {
		return Result{}, &model.InvalidPathError{Input: input, Reason: "empty"}
	}
	if strings.ContainsAny(input, "\x00\n\r") {
		return Result{}, &model.InvalidPathError{Input: input, Reason: "control characters"}
	}

	p := toSlash(strings.TrimSpace(input))
	res := Result{Confidence: 1.0}

	if isAbs(p) {
		if n.root != "" && underRoot(p, n.root, n.caseInsensitive) {
			p = strings.TrimPrefix(p[len(n.root):], "/")
		} else {
			res.ExternalToProject = true
			res.Confidence = 0.7
		}
	}

	p = strings.TrimPrefix(p, "./")
	p = collapseSlashes(p)
	if n.caseInsensitive {
		p = strings.ToLower(p)
	}
	if p == "" {
		// the input was the project root itself
		p = "."
	}
	res.CanonicalPath = p
	return res, nil
}

// ResolveRef resolves a symbolic file handle (an index into a tool-supplied
// file table, as plist-style output uses) and then normalizes the result. A
// missing table entry yields the unknown sentinel with zero confidence.
func (n *Normalizer) ResolveRef(toolName string, index int, table []string) Result {
	if index < 0 || index >= len(table) || table[index] == "" {
		return Result{
			CanonicalPath: fmt.Sprintf("unknown:%s:%d", toolName, index),
			Confidence:    0,
			Unresolved:    true,
		}
	}
	res, err := n.Normalize(table[index])
	if err != nil {
		return Result{
			CanonicalPath: fmt.Sprintf("unknown:%s:%d", toolName, index),
			Confidence:    0,
			Unresolved:    true,
		}
	}
	if res.Confidence > 0.9 {
		res.Confidence = 0.9
	}
	return res
}

func toSlash(p string) string { return strings.ReplaceAll(p, "\\", "/") }

// isAbs recognizes rooted POSIX paths and Windows drive-letter prefixes
// regardless of the host platform, since tool output crosses OS boundaries.
func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	if len(p) >= 3 && p[1] == ':' && p[2] == '/' {
		c := p[0]
		return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	}
	return false
}

func underRoot(p, root string, caseInsensitive bool) bool {
	a, b := p, root
	if caseInsensitive {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	return a == b || strings.HasPrefix(a, b+"/")
}

func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
