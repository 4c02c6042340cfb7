// Package policy decides whether a shell command may run and under what
// resource bounds. Vet is a pure function of its input: it performs no
// I/O and spawns nothing. The deny tables are data, not code, so a
// config file can extend them and tests can pin them against a corpus
// of known-bad and known-good commands.
//
// The gate is a deny-list plus pattern match, not a shell parser. False
// negatives (creative bypasses) and false positives (a legitimate
// filename containing ';') are both possible; ambiguous input is denied.
package policy

import (
	"strings"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/wardenlabs/warden/internal/fault"
)

// Bounds for execution plans. Caller-supplied values are clamped, never
// rejected.
const (
	MaxCommandLength = 500

	MinTimeoutMs     = 1
	MaxTimeoutMs     = 600000
	DefaultTimeoutMs = 60000

	MinOutputBytes     = 1
	MaxOutputBytes     = 10 << 20 // 10485760
	DefaultOutputBytes = 1 << 20  // 1048576
)

// Request is a caller-supplied execution request before vetting.
// Zero-valued optional fields mean "not supplied".
type Request struct {
	Command        string
	TimeoutMs      int
	MaxOutputBytes int
	AllowNetwork   bool
}

// Plan holds the normalized, bounds-clamped parameters for an approved
// command. Plans are derived per request and never persisted.
type Plan struct {
	Command   string
	Timeout   time.Duration
	MaxOutput int // bytes
}

// Policy holds the deny tables and the bounds applied to requests that
// do not supply their own. Construct with Default, then Extend and
// SetDefaults.
type Policy struct {
	banned  []string // ordered, for prefix matching
	network []string
	rules   []Rule

	bannedSet  map[string]struct{}
	networkSet map[string]struct{}

	defaultTimeoutMs int // zero means DefaultTimeoutMs
	defaultOutput    int // zero means DefaultOutputBytes
}

// SetDefaults overrides the bounds used when a request omits them, so a
// config file can raise or lower the execution defaults. The values are
// clamped to the same limits requests are.
func (p *Policy) SetDefaults(timeout time.Duration, outputBytes int) {
	if timeout > 0 {
		p.defaultTimeoutMs = clamp(int(timeout.Milliseconds()), MinTimeoutMs, MaxTimeoutMs, DefaultTimeoutMs)
	}
	if outputBytes > 0 {
		p.defaultOutput = clamp(outputBytes, MinOutputBytes, MaxOutputBytes, DefaultOutputBytes)
	}
}

// Vet checks a command against the policy and produces an execution
// plan. Checks run in order and stop at the first denial: empty
// command, length ceiling, banned base token, banned prefix, dangerous
// pattern, network opt-in.
func (p *Policy) Vet(req Request) (*Plan, error) {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return nil, fault.New(fault.CodeEmptyCommand, "command is empty")
	}
	if len(command) > MaxCommandLength {
		return nil, fault.Newf(fault.CodeCommandTooLong,
			"command is %d characters, limit is %d", len(command), MaxCommandLength)
	}

	base := baseToken(command)
	if _, ok := p.bannedSet[base]; ok {
		return nil, fault.Newf(fault.CodeBannedCommand, "command %q is not allowed", base)
	}

	// Prefix match catches deny-listed commands that the token check
	// misses, e.g. quoted or oddly spaced invocations.
	for _, name := range p.banned {
		if hasCommandPrefix(command, name) {
			return nil, fault.Newf(fault.CodeBannedCommand, "command %q is not allowed", name)
		}
	}

	for _, r := range p.rules {
		if r.re.MatchString(command) {
			return nil, fault.Newf(fault.CodeDangerousPattern,
				"command matches dangerous pattern: %s", r.Name)
		}
	}

	if !req.AllowNetwork {
		if _, ok := p.networkSet[base]; ok {
			return nil, fault.Newf(fault.CodeNetworkRequiresOptIn,
				"network command %q requires allow_network", base)
		}
	}

	defTimeoutMs := p.defaultTimeoutMs
	if defTimeoutMs == 0 {
		defTimeoutMs = DefaultTimeoutMs
	}
	defOutput := p.defaultOutput
	if defOutput == 0 {
		defOutput = DefaultOutputBytes
	}

	return &Plan{
		Command:   command,
		Timeout:   time.Duration(clamp(req.TimeoutMs, MinTimeoutMs, MaxTimeoutMs, defTimeoutMs)) * time.Millisecond,
		MaxOutput: clamp(req.MaxOutputBytes, MinOutputBytes, MaxOutputBytes, defOutput),
	}, nil
}

// Extend adds entries to the deny tables. Built-ins cannot be removed:
// a config file may tighten the policy, never disarm it.
func (p *Policy) Extend(banned, network []string, rules []Rule) {
	for _, name := range banned {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := p.bannedSet[name]; ok {
			continue
		}
		p.banned = append(p.banned, name)
		p.bannedSet[name] = struct{}{}
	}
	for _, name := range network {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := p.networkSet[name]; ok {
			continue
		}
		p.network = append(p.network, name)
		p.networkSet[name] = struct{}{}
	}
	p.rules = append(p.rules, rules...)
}

// baseToken extracts the command name: the first shell word, falling
// back to whitespace splitting when the command does not parse as shell
// words (unterminated quotes and the like).
func baseToken(command string) string {
	parser := shellwords.NewParser()
	words, err := parser.Parse(command)
	if err == nil && len(words) > 0 {
		return words[0]
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// hasCommandPrefix reports whether command is name followed by
// whitespace or end-of-string.
func hasCommandPrefix(command, name string) bool {
	if command == name {
		return true
	}
	if !strings.HasPrefix(command, name) {
		return false
	}
	next := command[len(name)]
	return next == ' ' || next == '\t'
}

func clamp(v, min, max, def int) int {
	if v == 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
