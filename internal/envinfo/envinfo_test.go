package envinfo

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/policy"
	"github.com/wardenlabs/warden/internal/shellexec"
)

// fakeRunner returns canned probe output per command.
type fakeRunner struct {
	outputs map[string]string
	err     error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, plan *policy.Plan) (*shellexec.Result, error) {
	f.calls = append(f.calls, plan.Command)
	if f.err != nil {
		return nil, f.err
	}
	return &shellexec.Result{Stdout: f.outputs[plan.Command]}, nil
}

func TestCollect_Redaction(t *testing.T) {
	r := &Reporter{Logger: zerolog.Nop()}
	environ := []string{
		"API_KEY=secret123",
		"GITHUB_TOKEN=ghp_abc",
		"DB_PASSWORD=hunter2",
		"AWS_SECRET_ACCESS_KEY=xyz",
		"OAUTH_CLIENT=abc",
		"my_credential=v",
		"HOME=/home/user",
		"LANG=en_US.UTF-8",
	}

	snap := r.Collect(context.Background(), environ)

	redacted := []string{"API_KEY", "GITHUB_TOKEN", "DB_PASSWORD", "AWS_SECRET_ACCESS_KEY", "OAUTH_CLIENT", "my_credential"}
	for _, k := range redacted {
		if got := snap.Variables[k]; got != RedactionMarker {
			t.Errorf("Variables[%s] = %q, want %q", k, got, RedactionMarker)
		}
	}
	if snap.Variables["HOME"] != "/home/user" {
		t.Errorf("Variables[HOME] = %q", snap.Variables["HOME"])
	}
	if snap.Variables["LANG"] != "en_US.UTF-8" {
		t.Errorf("Variables[LANG] = %q", snap.Variables["LANG"])
	}

	for k, v := range snap.Variables {
		if v == "secret123" || v == "ghp_abc" || v == "hunter2" {
			t.Errorf("sensitive value leaked through %s=%q", k, v)
		}
	}
}

func TestCollect_ExtraMarkers(t *testing.T) {
	r := &Reporter{Extra: []string{"session"}, Logger: zerolog.Nop()}
	snap := r.Collect(context.Background(), []string{"SESSION_ID=abc", "PATH=/bin"})
	if snap.Variables["SESSION_ID"] != RedactionMarker {
		t.Errorf("SESSION_ID = %q, want redacted", snap.Variables["SESSION_ID"])
	}
	if snap.Variables["PATH"] != "/bin" {
		t.Errorf("PATH = %q", snap.Variables["PATH"])
	}
}

func TestCollect_Probes(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{
		"go version": "go version go1.25.1 linux/amd64\n",
		"uname -srm": "Linux 6.8.0 x86_64\n",
	}}
	r := &Reporter{Exec: runner, Logger: zerolog.Nop()}

	snap := r.Collect(context.Background(), nil)

	if snap.RuntimeVersion != runtime.Version() {
		t.Errorf("RuntimeVersion = %q", snap.RuntimeVersion)
	}
	if snap.ToolchainVersion != "go version go1.25.1 linux/amd64" {
		t.Errorf("ToolchainVersion = %q", snap.ToolchainVersion)
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH + " (Linux 6.8.0 x86_64)"; snap.OSInfo != want {
		t.Errorf("OSInfo = %q, want %q", snap.OSInfo, want)
	}
}

func TestCollect_ProbeFailureDegrades(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exec unavailable")}
	r := &Reporter{Exec: runner, Logger: zerolog.Nop()}

	snap := r.Collect(context.Background(), []string{"HOME=/h"})

	if snap.ToolchainVersion != Unknown {
		t.Errorf("ToolchainVersion = %q, want %q", snap.ToolchainVersion, Unknown)
	}
	if want := runtime.GOOS + "/" + runtime.GOARCH; snap.OSInfo != want {
		t.Errorf("OSInfo = %q, want %q", snap.OSInfo, want)
	}
	// Variables are still collected.
	if snap.Variables["HOME"] != "/h" {
		t.Errorf("Variables[HOME] = %q", snap.Variables["HOME"])
	}
}

func TestCollect_NilRunner(t *testing.T) {
	r := &Reporter{Logger: zerolog.Nop()}
	snap := r.Collect(context.Background(), nil)
	if snap.ToolchainVersion != Unknown {
		t.Errorf("ToolchainVersion = %q, want %q", snap.ToolchainVersion, Unknown)
	}
}

func TestRender(t *testing.T) {
	snap := Snapshot{
		RuntimeVersion:   "go1.25.1",
		ToolchainVersion: "go version go1.25.1",
		OSInfo:           "linux/amd64",
		Variables:        map[string]string{"B": "2", "A": "1"},
	}
	out := snap.Render()
	if !strings.Contains(out, "Runtime: go1.25.1") {
		t.Errorf("Render = %q", out)
	}
	// Sorted keys.
	if strings.Index(out, "A=1") > strings.Index(out, "B=2") {
		t.Error("variables not sorted")
	}
}
