package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wardenlabs/warden/internal/fault"
)

// Sentinels distinguishing an empty-but-valid search result from a
// failure.
const (
	noFilesSentinel   = "No files found"
	noMatchesSentinel = "No matches found"
)

type searchGlobParams struct {
	Pattern string `json:"pattern" jsonschema:"Glob pattern to match file paths against (doublestar syntax, e.g. **/*.go)."`
	Path    string `json:"path,omitempty" jsonschema:"Directory to search under. Defaults to the server root."`
}

func (h *handler) searchGlobHandler(ctx context.Context, req *mcp.CallToolRequest, params searchGlobParams) (*mcp.CallToolResult, any, error) {
	if params.Pattern == "" {
		return faultResult(fault.New(fault.CodeValidation, "pattern is required"))
	}
	root := params.Path
	if root == "" {
		root = h.root
	}

	paths, err := h.files.Glob(params.Pattern, root)
	if err != nil {
		return faultResult(err)
	}
	if len(paths) == 0 {
		return textResult(noFilesSentinel)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d files\n", len(paths))
	for _, p := range paths {
		fmt.Fprintln(&b, p)
	}
	return textResult(b.String())
}

type grepSearchParams struct {
	Pattern string `json:"pattern" jsonschema:"Regular expression to search file contents for."`
	Path    string `json:"path,omitempty" jsonschema:"File or directory to search. Defaults to the server root."`
	Include string `json:"include,omitempty" jsonschema:"Glob restricting which files are searched, e.g. *.go or src/**/*.ts."`
}

func (h *handler) grepSearchHandler(ctx context.Context, req *mcp.CallToolRequest, params grepSearchParams) (*mcp.CallToolResult, any, error) {
	if params.Pattern == "" {
		return faultResult(fault.New(fault.CodeValidation, "pattern is required"))
	}
	root := params.Path
	if root == "" {
		root = h.root
	}

	matches, err := h.files.Grep(params.Pattern, root, params.Include)
	if err != nil {
		return faultResult(err)
	}
	if len(matches) == 0 {
		return textResult(noMatchesSentinel)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d matches\n", len(matches))
	for _, m := range matches {
		fmt.Fprintln(&b, m)
	}
	return textResult(b.String())
}
