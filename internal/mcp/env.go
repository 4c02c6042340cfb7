package mcp

import (
	"context"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type environmentParams struct{}

func (h *handler) environmentHandler(ctx context.Context, req *mcp.CallToolRequest, _ environmentParams) (*mcp.CallToolResult, any, error) {
	snap := h.env.Collect(ctx, os.Environ())
	return textResult(snap.Render())
}
