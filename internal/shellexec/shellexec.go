// Package shellexec runs approved commands under the resource bounds of
// an execution plan: wall-clock timeout, output byte cap, and classified
// failures. It never decides whether a command is safe; that is the
// policy package's job.
package shellexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/fault"
	"github.com/wardenlabs/warden/internal/policy"
)

// DefaultShell is the command interpreter used when none is configured.
const DefaultShell = "/bin/sh"

// Executor spawns a command interpreter for each plan.
type Executor struct {
	Shell  string // command interpreter; DefaultShell when empty
	Logger zerolog.Logger
}

// Result holds the output of a completed execution.
type Result struct {
	RunID    string        // unique identifier for this run
	Stdout   string        // captured stdout, verbatim
	Stderr   string        // captured stderr; informational, not a failure
	Duration time.Duration // wall-clock time
}

// Cancellation causes, distinguished via context.Cause.
var (
	errDeadline  = errors.New("execution timeout")
	errOutputCap = errors.New("output cap exceeded")
)

// Run executes the plan's command through the interpreter and returns
// its stdout. Failures are classified: timeout, output_truncated,
// process_signaled, process_failed. Termination on timeout or output
// overflow is a single kill signal, best-effort; no escalation follows.
func (e *Executor) Run(ctx context.Context, plan *policy.Plan) (*Result, error) {
	shell := e.Shell
	if shell == "" {
		shell = DefaultShell
	}

	ctx, cancel := context.WithTimeoutCause(ctx, plan.Timeout, errDeadline)
	defer cancel()
	ctx, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	runID := uuid.New().String()

	cmd := exec.CommandContext(ctx, shell, "-c", plan.Command)

	var stdout, stderr bytes.Buffer
	outW := &limitWriter{buf: &stdout, limit: plan.MaxOutput}
	errW := &limitWriter{buf: &stderr, limit: plan.MaxOutput}
	// Overflow aborts the context, which kills the process.
	outW.overflow = func() { abort(errOutputCap) }
	errW.overflow = func() { abort(errOutputCap) }
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if outW.truncated || errW.truncated {
		return nil, fault.Newf(fault.CodeOutputTruncated,
			"output exceeded %d bytes, command terminated", plan.MaxOutput)
	}

	if runErr != nil {
		switch context.Cause(ctx) {
		case errDeadline:
			return nil, fault.Newf(fault.CodeTimeout,
				"command timed out after %s", plan.Timeout)
		case errOutputCap:
			return nil, fault.Newf(fault.CodeOutputTruncated,
				"output exceeded %d bytes, command terminated", plan.MaxOutput)
		}

		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Interpreter could not be started at all.
			return nil, fault.Wrap(fault.CodeUnclassified, "spawning "+shell, runErr)
		}

		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return nil, fault.Newf(fault.CodeProcessSignaled,
				"command terminated by signal %s", ws.Signal())
		}

		msg := "command exited with status " + strconv.Itoa(exitErr.ExitCode())
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			msg += ": " + detail
		}
		return nil, fault.New(fault.CodeProcessFailed, msg)
	}

	// Well-behaved tools write informational text to stderr; surface it
	// in the log, not as a failure.
	if stderr.Len() > 0 {
		e.Logger.Warn().
			Str("run_id", runID).
			Str("command", plan.Command).
			Int("stderr_bytes", stderr.Len()).
			Msg("command wrote to stderr")
	}

	e.Logger.Debug().
		Str("run_id", runID).
		Str("command", plan.Command).
		Dur("duration", elapsed).
		Msg("command completed")

	return &Result{
		RunID:    runID,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}, nil
}

// limitWriter writes up to limit bytes to buf. The first write past the
// limit marks the stream truncated and fires overflow once.
type limitWriter struct {
	buf       *bytes.Buffer
	limit     int
	truncated bool
	overflow  func()
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if len(p) <= remaining {
		return w.buf.Write(p)
	}
	if remaining > 0 {
		w.buf.Write(p[:remaining])
	}
	if !w.truncated {
		w.truncated = true
		if w.overflow != nil {
			w.overflow()
		}
	}
	// Report all bytes as consumed to avoid short-write errors while
	// the kill signal is in flight.
	return len(p), nil
}
