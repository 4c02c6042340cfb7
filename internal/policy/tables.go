package policy

import (
	"fmt"
	"regexp"
)

// Rule is a compiled dangerous-shell-construct pattern. Name is the
// human-readable description reported on denial.
type Rule struct {
	Name string
	re   *regexp.Regexp
}

// CompileRule builds a Rule from a regex string, for config-supplied
// patterns.
func CompileRule(name, expr string) (Rule, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("pattern %q: %w", name, err)
	}
	return Rule{Name: name, re: re}, nil
}

func mustRule(name, expr string) Rule {
	return Rule{Name: name, re: regexp.MustCompile(expr)}
}

// bannedCommands are never executed, regardless of flags or opt-ins.
// Grouped by the class of damage they can do.
var bannedCommands = []string{
	// Network clients and remote shells / file transfer.
	"curl", "wget", "nc", "ncat", "netcat", "socat", "telnet",
	"ssh", "scp", "sftp", "ftp", "rsync",
	// Privilege escalation and ownership/permission changes.
	"sudo", "su", "doas", "passwd", "chown", "chgrp", "chmod",
	// Mount and disk operations.
	"mount", "umount", "fdisk", "parted", "mkfs", "fsck", "dd",
	// Process and service lifecycle control.
	"kill", "killall", "pkill", "systemctl", "service", "launchctl",
	"shutdown", "reboot", "halt", "poweroff", "init",
	// Shell-state mutation.
	"alias", "unalias", "export", "unset", "source", "eval", "exec",
	"set", "history",
	// Package managers.
	"apt", "apt-get", "yum", "dnf", "pacman", "apk", "brew", "snap",
	"npm", "pip", "pip3", "gem",
	// User and group management.
	"useradd", "userdel", "usermod", "groupadd", "groupdel", "groupmod",
	"adduser", "deluser", "addgroup", "delgroup",
	// Resource-control wrappers.
	"nice", "renice", "nohup", "ionice",
	// Secure and destructive deletion.
	"shred", "srm", "wipe", "rm", "rmdir",
}

// networkCommands are diagnostics that only run with an explicit
// allow_network opt-in.
var networkCommands = []string{
	"ping", "ping6", "traceroute", "traceroute6", "tracepath", "mtr",
	"dig", "nslookup", "host", "whois",
	"ifconfig", "ip", "route", "netstat", "ss", "arp",
}

// dangerousRules match shell constructs that could smuggle a second
// command or redirect data past the gate. Conservative: a legitimate
// argument containing one of these characters is also denied.
var dangerousRules = []Rule{
	mustRule("command separator or pipe", `[;&|]`),
	mustRule("backtick substitution", "`"),
	mustRule("command substitution", `\$\(`),
	mustRule("input or output redirection", `[<>]`),
	mustRule("parameter expansion", `\$\{`),
	mustRule("variable expansion", `\$[A-Za-z_]`),
	mustRule("bare wildcard argument", `(?:^|\s)\*+(?:\s|$)`),
	mustRule("recursive force flags with path argument",
		`\s-(?i:[a-z]*r[a-z]*f[a-z]*|[a-z]*f[a-z]*r[a-z]*)\s+[/.~]`),
	mustRule("recursive delete from root",
		`\brm\s+(?:-\S+\s+)*-\S*(?:[rR]\S*[fF]|[fF]\S*[rR])\S*\s+/`),
	mustRule("dd with input and output files", `\bdd\b.*\bif=.*\bof=|\bdd\b.*\bof=.*\bif=`),
	mustRule("download with output file", `\b(?:wget|curl)\b.*\s(?:-O|-o|--output)\b`),
}

// Default returns the built-in policy.
func Default() *Policy {
	p := &Policy{
		bannedSet:  make(map[string]struct{}, len(bannedCommands)),
		networkSet: make(map[string]struct{}, len(networkCommands)),
	}
	p.Extend(bannedCommands, networkCommands, dangerousRules)
	return p
}
