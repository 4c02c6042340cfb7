package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wardenlabs/warden/internal/fault"
	"github.com/wardenlabs/warden/internal/fsops"
)

type readFileParams struct {
	Path       string `json:"path" jsonschema:"Path to the file to read."`
	OffsetLine int    `json:"offset_line,omitempty" jsonschema:"1-based line to start reading from."`
	LimitLines int    `json:"limit_lines,omitempty" jsonschema:"Maximum number of lines to return."`
}

func (h *handler) readFileHandler(ctx context.Context, req *mcp.CallToolRequest, params readFileParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return faultResult(fault.New(fault.CodeValidation, "path is required"))
	}
	if params.OffsetLine < 0 {
		return faultResult(fault.New(fault.CodeValidation, "offset_line must be at least 1"))
	}
	if params.LimitLines < 0 {
		return faultResult(fault.New(fault.CodeValidation, "limit_lines must be at least 1"))
	}

	text, err := h.files.Read(params.Path, params.OffsetLine, params.LimitLines)
	if err != nil {
		return faultResult(err)
	}
	return textResult(text)
}

type writeFileParams struct {
	Path    string  `json:"path" jsonschema:"Path to the file to write."`
	Content *string `json:"content" jsonschema:"Content to write. May be empty, but must be present."`
}

func (h *handler) writeFileHandler(ctx context.Context, req *mcp.CallToolRequest, params writeFileParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return faultResult(fault.New(fault.CodeValidation, "path is required"))
	}
	if params.Content == nil {
		return faultResult(fault.New(fault.CodeValidation, "content is required (may be empty)"))
	}

	n, err := h.files.Write(params.Path, *params.Content)
	if err != nil {
		return faultResult(err)
	}
	return textResult(fmt.Sprintf("wrote %d bytes to %s", n, params.Path))
}

type listFilesParams struct {
	Path string `json:"path" jsonschema:"Path to the directory to list."`
}

func (h *handler) listFilesHandler(ctx context.Context, req *mcp.CallToolRequest, params listFilesParams) (*mcp.CallToolResult, any, error) {
	if params.Path == "" {
		return faultResult(fault.New(fault.CodeValidation, "path is required"))
	}

	entries, err := h.files.List(params.Path)
	if err != nil {
		return faultResult(err)
	}
	return textResult(renderEntries(params.Path, entries))
}

// renderEntries formats a listing, one entry per line. Entries whose
// metadata could not be read keep their name with the error noted.
func renderEntries(path string, entries []fsops.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d entries in %s\n", len(entries), path)
	for _, e := range entries {
		if e.Err != "" {
			fmt.Fprintf(&b, "?    %-30s (error: %s)\n", e.Name, e.Err)
			continue
		}
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		fmt.Fprintf(&b, "%-4s %-30s %10d  %s\n", kind, e.Name, e.Size, e.ModTime.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
