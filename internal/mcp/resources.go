package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wardenlabs/warden/internal/fault"
)

// Resource URIs. Files and directories are addressed by absolute path;
// the environment snapshot has a fixed locator. These are read-only
// alternate entry points into the same filesystem and environment
// layers the tools use.
const envResourceURI = "env://snapshot"

// registerResources adds the passive resource entry points.
func (h *handler) registerResources(s *mcp.Server) {
	s.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "file",
		URITemplate: "file:///{+path}",
		Description: "Content of a file on the host.",
		MIMEType:    "text/plain",
	}, guardResource(h.fileResource))

	s.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "directory",
		URITemplate: "dir:///{+path}",
		Description: "Listing of a directory on the host.",
		MIMEType:    "text/plain",
	}, guardResource(h.dirResource))

	s.AddResource(&mcp.Resource{
		Name:        "environment",
		URI:         envResourceURI,
		Description: "Host runtime and OS versions plus redacted environment variables.",
		MIMEType:    "text/plain",
	}, guardResource(h.envResource))
}

// guardResource is the resource-side counterpart of guard: a panic in a
// resource handler becomes an unclassified error instead of tearing
// down the session.
func guardResource(h mcp.ResourceHandler) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (res *mcp.ReadResourceResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				res, err = nil, fmt.Errorf("%s: internal failure: %v", fault.CodeUnclassified, r)
			}
		}()
		return h(ctx, req)
	}
}

func (h *handler) fileResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	path, err := uriPath(req.Params.URI, "file://")
	if err != nil {
		return nil, err
	}
	text, err := h.files.Read(path, 0, 0)
	if err != nil {
		return nil, err
	}
	return textResource(req.Params.URI, text), nil
}

func (h *handler) dirResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	path, err := uriPath(req.Params.URI, "dir://")
	if err != nil {
		return nil, err
	}
	entries, err := h.files.List(path)
	if err != nil {
		return nil, err
	}
	return textResource(req.Params.URI, renderEntries(path, entries)), nil
}

func (h *handler) envResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	snap := h.env.Collect(ctx, os.Environ())
	return textResource(req.Params.URI, snap.Render()), nil
}

// uriPath extracts the absolute filesystem path from a scheme://-style
// resource URI.
func uriPath(uri, scheme string) (string, error) {
	rest, ok := strings.CutPrefix(uri, scheme)
	if !ok {
		return "", fmt.Errorf("resource URI %q does not match scheme %s", uri, scheme)
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest, nil
}

func textResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "text/plain", Text: text},
		},
	}
}
