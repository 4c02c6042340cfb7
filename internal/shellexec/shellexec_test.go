package shellexec

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/fault"
	"github.com/wardenlabs/warden/internal/policy"
)

func testPlan(command string) *policy.Plan {
	return &policy.Plan{
		Command:   command,
		Timeout:   10 * time.Second,
		MaxOutput: 1 << 20,
	}
}

func newExecutor() *Executor {
	return &Executor{Logger: zerolog.Nop()}
}

func TestRun_Success(t *testing.T) {
	res, err := newExecutor().Run(context.Background(), testPlan("echo hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "hello") {
		t.Errorf("Stdout = %q, want to contain 'hello'", res.Stdout)
	}
	if res.RunID == "" {
		t.Error("RunID is empty")
	}
}

func TestRun_StdoutVerbatim(t *testing.T) {
	res, err := newExecutor().Run(context.Background(), testPlan("printf '  padded  \\n\\n'"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "  padded  \n\n" {
		t.Errorf("Stdout = %q, want untrimmed output", res.Stdout)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	_, err := newExecutor().Run(context.Background(), testPlan("exit 3"))
	if fault.CodeOf(err) != fault.CodeProcessFailed {
		t.Fatalf("err = %v, want process_failed", err)
	}
	if !strings.Contains(err.Error(), "status 3") {
		t.Errorf("err = %v, want to mention status 3", err)
	}
}

func TestRun_NonZeroExitIncludesStderr(t *testing.T) {
	_, err := newExecutor().Run(context.Background(), testPlan("echo broken >&2; exit 1"))
	if fault.CodeOf(err) != fault.CodeProcessFailed {
		t.Fatalf("err = %v, want process_failed", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("err = %v, want to carry stderr text", err)
	}
}

func TestRun_StderrOnSuccessIsNotFailure(t *testing.T) {
	res, err := newExecutor().Run(context.Background(), testPlan("echo warn >&2; echo ok"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "ok") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "warn") {
		t.Errorf("Stderr = %q", res.Stderr)
	}
}

func TestRun_Timeout(t *testing.T) {
	plan := &policy.Plan{
		Command:   "sleep 5",
		Timeout:   100 * time.Millisecond,
		MaxOutput: 1 << 20,
	}
	start := time.Now()
	_, err := newExecutor().Run(context.Background(), plan)
	if fault.CodeOf(err) != fault.CodeTimeout {
		t.Fatalf("err = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("took %v, process was not terminated promptly", elapsed)
	}
}

func TestRun_OutputTruncated(t *testing.T) {
	plan := &policy.Plan{
		Command:   "yes truncate-me",
		Timeout:   10 * time.Second,
		MaxOutput: 4096,
	}
	_, err := newExecutor().Run(context.Background(), plan)
	if fault.CodeOf(err) != fault.CodeOutputTruncated {
		t.Fatalf("err = %v, want output_truncated", err)
	}
}

func TestRun_Signaled(t *testing.T) {
	_, err := newExecutor().Run(context.Background(), testPlan("kill -TERM $$"))
	if fault.CodeOf(err) != fault.CodeProcessSignaled {
		t.Fatalf("err = %v, want process_signaled", err)
	}
	if !strings.Contains(err.Error(), "terminated") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_CustomShell(t *testing.T) {
	e := &Executor{Shell: "/bin/sh", Logger: zerolog.Nop()}
	res, err := e.Run(context.Background(), testPlan("echo custom"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "custom") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
}

func TestLimitWriter(t *testing.T) {
	fired := 0
	w := &limitWriter{buf: &bytes.Buffer{}, limit: 5}
	w.overflow = func() { fired++ }

	if n, err := w.Write([]byte("abc")); n != 3 || err != nil {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if w.truncated {
		t.Error("truncated before limit")
	}
	if n, err := w.Write([]byte("defgh")); n != 5 || err != nil {
		t.Fatalf("Write past limit = %d, %v", n, err)
	}
	if !w.truncated {
		t.Error("not truncated after overflow")
	}
	if fired != 1 {
		t.Errorf("overflow fired %d times, want 1", fired)
	}
	if got := w.buf.String(); got != "abcde" {
		t.Errorf("buffer = %q, want %q", got, "abcde")
	}

	// Further writes are discarded without firing overflow again.
	if n, _ := w.Write([]byte("xyz")); n != 3 {
		t.Error("discarded write should report all bytes consumed")
	}
	if fired != 1 {
		t.Errorf("overflow fired %d times after discard, want 1", fired)
	}
}
