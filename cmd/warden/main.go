// Command warden exposes vetted host capabilities to coding agents.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden"
	"github.com/wardenlabs/warden/internal/config"
	"github.com/wardenlabs/warden/internal/envinfo"
	"github.com/wardenlabs/warden/internal/fault"
	"github.com/wardenlabs/warden/internal/fsops"
	wardenmcp "github.com/wardenlabs/warden/internal/mcp"
	"github.com/wardenlabs/warden/internal/policy"
	"github.com/wardenlabs/warden/internal/shellexec"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(args)
	case "vet":
		err = vetMain(args)
	case "exec":
		err = execMain(args)
	case "env":
		err = envMain(args)
	case "version":
		fmt.Println(warden.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "warden: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: warden <command> [flags]

Commands:
  mcp         Start the MCP server (stdio by default)
  vet         Check a command against the policy without running it
  exec        Vet and run a command, printing its stdout
  env         Print the environment snapshot (sensitive values redacted)
  version     Print the version
  help        Show this help

Use "warden <command> -h" for command-specific flags.`)
}

// newLogger builds the process logger. Logs go to stderr so they never
// mix with MCP stdio framing or command output on stdout.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var out zerolog.Logger
	if isatty.IsTerminal(os.Stderr.Fd()) {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(level).With().Timestamp().Logger()
}

// newDeps loads configuration and assembles the policy, executor,
// filesystem and environment layers shared by every subcommand.
func newDeps(logger zerolog.Logger) (*policy.Policy, *shellexec.Executor, *fsops.Ops, *envinfo.Reporter, string, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, nil, nil, nil, "", fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, nil, nil, nil, "", fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	pol := policy.Default()
	rules := make([]policy.Rule, 0, len(cfg.Policy.Patterns))
	for _, p := range cfg.Policy.Patterns {
		r, err := policy.CompileRule(p.Name, p.Regex)
		if err != nil {
			return nil, nil, nil, nil, "", fmt.Errorf("policy extension: %w", err)
		}
		rules = append(rules, r)
	}
	pol.Extend(cfg.Policy.BannedCommands, cfg.Policy.NetworkCommands, rules)
	pol.SetDefaults(cfg.Timeout(), cfg.MaxOutputBytes())

	exec := &shellexec.Executor{Shell: cfg.Shell(), Logger: logger}
	files := &fsops.Ops{Logger: logger}
	env := &envinfo.Reporter{Exec: exec, Extra: cfg.Redact, Logger: logger}

	return pol, exec, files, env, workspace, nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "serve over HTTP on address (e.g. :9090) instead of stdio")
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(wardenmcp.Instructions)
		return nil
	}

	logger := newLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pol, exec, files, env, workspace, err := newDeps(logger)
	if err != nil {
		return err
	}

	server := wardenmcp.NewServer(pol, exec, files, env, workspace, logger)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr, logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger zerolog.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- vet ---

func vetMain(args []string) error {
	fs := flag.NewFlagSet("vet", flag.ExitOnError)
	allowNetwork := fs.Bool("allow-network", false, "permit network diagnostic commands")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("vet: exactly one command argument required")
	}

	logger := newLogger(false)
	pol, _, _, _, _, err := newDeps(logger)
	if err != nil {
		return err
	}

	plan, err := pol.Vet(policy.Request{Command: fs.Arg(0), AllowNetwork: *allowNetwork})
	if err != nil {
		fmt.Printf("denied: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("allowed: %s\n", plan.Command)
	fmt.Printf("  timeout:    %s\n", plan.Timeout)
	fmt.Printf("  max output: %d bytes\n", plan.MaxOutput)
	return nil
}

// --- exec ---

func execMain(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	allowNetwork := fs.Bool("allow-network", false, "permit network diagnostic commands")
	timeout := fs.Duration("timeout", 0, "override configured timeout (e.g. 30s)")
	verbose := fs.Bool("v", false, "debug logging")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("exec: exactly one command argument required")
	}

	logger := newLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pol, exec, _, _, _, err := newDeps(logger)
	if err != nil {
		return err
	}

	plan, err := pol.Vet(policy.Request{
		Command:      fs.Arg(0),
		TimeoutMs:    int(timeout.Milliseconds()),
		AllowNetwork: *allowNetwork,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "denied: %v\n", err)
		os.Exit(1)
	}

	res, err := exec.Run(ctx, plan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed (%s): %v\n", fault.CodeOf(err), err)
		os.Exit(1)
	}

	fmt.Print(res.Stdout)
	return nil
}

// --- env ---

func envMain(args []string) error {
	fs := flag.NewFlagSet("env", flag.ExitOnError)
	_ = fs.Parse(args)

	logger := newLogger(false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	_, _, _, env, _, err := newDeps(logger)
	if err != nil {
		return err
	}

	snap := env.Collect(ctx, os.Environ())
	fmt.Print(snap.Render())
	return nil
}
