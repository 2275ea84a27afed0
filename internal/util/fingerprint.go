package util

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash16 computes a 16-hex-char stable hash for id derivation and cache keys.
func Hash16(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// LocationKey computes the cross-tool correlation key for an issue location:
// MD5 over canonicalPath|line|analysisType|toolName, truncated to 16 hex chars.
func LocationKey(canonicalPath string, line int, analysisType, toolName string) string {
	h := md5.New()
	fmt.Fprintf(h, "%s|%d|%s|%s", canonicalPath, line, analysisType, toolName)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// GroupKey computes a deterministic correlation-group key from the canonical
// path, the shared pattern tags, and the member issue ids. Inputs must be
// pre-sorted by the caller.
func GroupKey(canonicalPath string, patterns, memberIDs []string) string {
	h := md5.New()
	fmt.Fprintf(h, "%s|", canonicalPath)
	for _, p := range patterns {
		fmt.Fprintf(h, "%s,", p)
	}
	fmt.Fprintf(h, "|")
	for _, id := range memberIDs {
		fmt.Fprintf(h, "%s,", id)
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
