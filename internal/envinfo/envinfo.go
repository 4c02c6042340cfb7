// Package envinfo produces a diagnostic snapshot of the host runtime
// with sensitive environment values redacted. Each data point is
// collected independently; a failed probe degrades to a placeholder
// rather than failing the snapshot.
package envinfo

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/policy"
	"github.com/wardenlabs/warden/internal/shellexec"
)

// RedactionMarker replaces any environment value whose key looks
// sensitive. The true value never appears in a snapshot.
const RedactionMarker = "[REDACTED]"

// Unknown is the placeholder for a data point that could not be probed.
const Unknown = "unknown"

// sensitiveMarkers flag an environment key as sensitive when any of
// them appears in the key, case-insensitively.
var sensitiveMarkers = []string{"token", "key", "secret", "password", "credential", "auth"}

// probeTimeout bounds each version probe; a stuck probe must not stall
// the snapshot.
const probeTimeout = 5 * time.Second

// Snapshot is the collected host metadata.
type Snapshot struct {
	RuntimeVersion   string            `json:"runtimeVersion"`
	ToolchainVersion string            `json:"toolchainVersion"`
	OSInfo           string            `json:"osInfo"`
	Variables        map[string]string `json:"variables"`
}

// CommandRunner runs a probe command. Implemented by shellexec.Executor.
type CommandRunner interface {
	Run(ctx context.Context, plan *policy.Plan) (*shellexec.Result, error)
}

// Reporter collects snapshots. Extra markers extend the built-in
// sensitivity list.
type Reporter struct {
	Exec   CommandRunner
	Extra  []string
	Logger zerolog.Logger
}

// Collect builds a snapshot from the supplied environment. The
// environment is passed in rather than read from the process, so tests
// can supply a synthetic one and the redaction path is exercised
// without global state.
func (r *Reporter) Collect(ctx context.Context, environ []string) Snapshot {
	return Snapshot{
		RuntimeVersion:   runtime.Version(),
		ToolchainVersion: r.probe(ctx, "go version"),
		OSInfo:           r.osInfo(ctx),
		Variables:        r.redact(environ),
	}
}

// probe runs a version command and returns its first output line, or
// Unknown on any failure.
func (r *Reporter) probe(ctx context.Context, command string) string {
	if r.Exec == nil {
		return Unknown
	}
	res, err := r.Exec.Run(ctx, &policy.Plan{
		Command:   command,
		Timeout:   probeTimeout,
		MaxOutput: 4096,
	})
	if err != nil {
		r.Logger.Debug().Str("command", command).Err(err).Msg("version probe failed")
		return Unknown
	}
	out := strings.TrimSpace(res.Stdout)
	if out == "" {
		return Unknown
	}
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return out
}

// osInfo always includes GOOS/GOARCH and appends the kernel string when
// uname is available.
func (r *Reporter) osInfo(ctx context.Context) string {
	base := runtime.GOOS + "/" + runtime.GOARCH
	if kernel := r.probe(ctx, "uname -srm"); kernel != Unknown {
		return base + " (" + kernel + ")"
	}
	return base
}

// redact maps the environment into key/value pairs, replacing values
// of sensitive-looking keys with the redaction marker.
func (r *Reporter) redact(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if r.sensitive(key) {
			value = RedactionMarker
		}
		vars[key] = value
	}
	return vars
}

func (r *Reporter) sensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, marker := range r.Extra {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// Render formats the snapshot as readable text, variables sorted by key.
func (s Snapshot) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Runtime: %s\n", s.RuntimeVersion)
	fmt.Fprintf(&b, "Toolchain: %s\n", s.ToolchainVersion)
	fmt.Fprintf(&b, "OS: %s\n", s.OSInfo)
	fmt.Fprintf(&b, "\nEnvironment (%d variables):\n", len(s.Variables))

	keys := make([]string, 0, len(s.Variables))
	for k := range s.Variables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s=%s\n", k, s.Variables[k])
	}
	return b.String()
}
