package adapters

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

type execResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error // start or context errors; exit status is not an error here
	Duration time.Duration
}

// runTool executes a tool under ctx with its working directory set to dir and
// captures both streams. Analyzers routinely exit non-zero when they find
// issues, so exit status is surfaced as data rather than as an error.
func runTool(ctx context.Context, dir, tool string, args ...string) execResult {
	start := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := execResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	var xerr *exec.ExitError
	switch {
	case err == nil:
	case ctx.Err() != nil:
		res.Err = ctx.Err()
	case errors.As(err, &xerr):
		res.ExitCode = xerr.ExitCode()
	default:
		res.Err = err
	}
	return res
}

// probeTool checks that a binary is on PATH and extracts a version string from
// its version subcommand output.
func probeTool(ctx context.Context, tool string, versionArgs ...string) Availability {
	if _, err := exec.LookPath(tool); err != nil {
		return Availability{Diagnostics: []string{tool + " not found on PATH"}}
	}
	av := Availability{Available: true}
	if len(versionArgs) > 0 {
		res := runTool(ctx, "", tool, versionArgs...)
		if res.Err == nil && res.ExitCode == 0 {
			av.Version = firstLine(res.Stdout)
		}
	}
	return av
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
