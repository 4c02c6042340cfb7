// Package mcp provides the warden MCP server: it binds each capability
// to its input shape, delegates to the policy/executor/filesystem
// layers, and renders every outcome into the tool-result envelope.
// No error and no panic escapes a handler to the transport.
package mcp

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden"
	"github.com/wardenlabs/warden/internal/envinfo"
	"github.com/wardenlabs/warden/internal/fault"
	"github.com/wardenlabs/warden/internal/fsops"
	"github.com/wardenlabs/warden/internal/policy"
	"github.com/wardenlabs/warden/internal/shellexec"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool and resource handlers.
// Nothing in it is mutated after construction; concurrent calls share
// it safely.
type handler struct {
	policy *policy.Policy
	exec   *shellexec.Executor
	files  *fsops.Ops
	env    *envinfo.Reporter
	root   string // default root for relative paths and searches
	logger zerolog.Logger
}

// NewServer creates an MCP server with all warden capabilities
// registered. root is the directory searches default to.
func NewServer(pol *policy.Policy, exec *shellexec.Executor, files *fsops.Ops, env *envinfo.Reporter, root string, logger zerolog.Logger) *mcp.Server {
	h := &handler{
		policy: pol,
		exec:   exec,
		files:  files,
		env:    env,
		root:   root,
		logger: logger,
	}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools:     &mcp.ToolCapabilities{ListChanged: false},
			Resources: &mcp.ResourceCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "warden", Version: warden.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "execute_command",
		Description: `Run a shell command on the host and return its stdout.

Commands are checked against a safety policy before anything is spawned:
remote-access, privilege-escalation, package-management and destructive
commands are denied, as are shell metacharacters (;, |, $(), redirection).
Network diagnostics (ping, dig, ...) require allow_network=true.`,
	}, guard(h.executeHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a file as text, optionally a window of lines (offset_line is 1-based).",
	}, guard(h.readFileHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories and overwriting any existing file.",
	}, guard(h.writeFileHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_files",
		Description: "List a directory's entries with size and modification time.",
	}, guard(h.listFilesHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "search_glob",
		Description: "Find files by name pattern (doublestar globs, e.g. **/*.go) under a directory.",
	}, guard(h.searchGlobHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "grep_search",
		Description: "Search file contents for a regular expression, optionally filtered by an include glob.",
	}, guard(h.grepSearchHandler))

	mcp.AddTool(s, &mcp.Tool{
		Name:        "environment_snapshot",
		Description: "Report runtime, toolchain, and OS versions plus environment variables (sensitive values redacted).",
	}, guard(h.environmentHandler))

	h.registerResources(s)

	return s
}

// textResult builds a success tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult builds an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}

// faultResult renders a classified error into the envelope.
func faultResult(err error) (*mcp.CallToolResult, any, error) {
	return errorResult(err.Error())
}

// guard wraps a tool handler so an unexpected panic becomes an
// unclassified error payload instead of tearing down the session.
func guard[In any](h func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error)) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (res *mcp.CallToolResult, out any, err error) {
		defer func() {
			if r := recover(); r != nil {
				res, out, err = errorResult(fmt.Sprintf("%s: internal failure: %v", fault.CodeUnclassified, r))
			}
		}()
		return h(ctx, req, in)
	}
}
