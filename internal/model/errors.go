package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures across the run so adapter outcomes and rejection
// records carry a stable machine-readable tag.
type Kind string

const (
	KindUnavailable  Kind = "unavailable"
	KindAuthFailed   Kind = "auth_failed"
	KindRateLimited  Kind = "rate_limited"
	KindTimeout      Kind = "timeout"
	KindInvalidPath  Kind = "invalid_path"
	KindInvalidIssue Kind = "invalid_issue"
	KindParseFailure Kind = "parse_failure"
	KindCancelled    Kind = "cancelled"
)

// FabricError is the common shape for classified failures.
type FabricError struct {
	Kind    Kind
	Tool    string
	Message string
	Err     error
}

func (e *FabricError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg != "" {
			msg += ": " + e.Err.Error()
		} else {
			msg = e.Err.Error()
		}
	}
	if e.Tool != "" {
		return fmt.Sprintf("%s: %s: %s", e.Tool, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *FabricError) Unwrap() error { return e.Err }

func NewError(kind Kind, tool, message string, err error) *FabricError {
	return &FabricError{Kind: kind, Tool: tool, Message: message, Err: err}
}

func Unavailable(tool, message string) *FabricError {
	return &FabricError{Kind: KindUnavailable, Tool: tool, Message: message}
}

func AuthFailed(tool string, err error) *FabricError {
	return &FabricError{Kind: KindAuthFailed, Tool: tool, Err: err}
}

func RateLimited(tool, message string) *FabricError {
	return &FabricError{Kind: KindRateLimited, Tool: tool, Message: message}
}

func ParseFailure(tool string, err error) *FabricError {
	return &FabricError{Kind: KindParseFailure, Tool: tool, Err: err}
}

// KindOf classifies an arbitrary error, recognising context errors so harness
// outcomes distinguish timeouts from cancellations.
func KindOf(err error) Kind {
	var fe *FabricError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindUnavailable
}

// InvalidPathError reports an identifier the path normalizer could not accept
// at all. Best-effort normalization handles messy-but-valid strings without
// error.
type InvalidPathError struct {
	Input  string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Input, e.Reason)
}

// InvalidIssueError carries the field-level reasons the builder rejected a
// draft.
type InvalidIssueError struct {
	ToolName string
	RuleID   string
	Reasons  []string
}

func (e *InvalidIssueError) Error() string {
	return fmt.Sprintf("invalid issue from %s (rule %s): %s", e.ToolName, e.RuleID, strings.Join(e.Reasons, "; "))
}
