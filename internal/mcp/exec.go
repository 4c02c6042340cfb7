package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wardenlabs/warden/internal/policy"
)

type executeParams struct {
	Command        string `json:"command" jsonschema:"The shell command to execute."`
	TimeoutMs      int    `json:"timeout_ms,omitempty" jsonschema:"Wall-clock timeout in milliseconds, clamped to [1, 600000]. Default: 60000."`
	MaxOutputBytes int    `json:"max_output_bytes,omitempty" jsonschema:"Output cap in bytes, clamped to [1, 10485760]. Default: 1048576."`
	AllowNetwork   bool   `json:"allow_network,omitempty" jsonschema:"Allow network diagnostic commands (ping, dig, ...). Default: false."`
}

func (h *handler) executeHandler(ctx context.Context, req *mcp.CallToolRequest, params executeParams) (*mcp.CallToolResult, any, error) {
	plan, err := h.policy.Vet(policy.Request{
		Command:        params.Command,
		TimeoutMs:      params.TimeoutMs,
		MaxOutputBytes: params.MaxOutputBytes,
		AllowNetwork:   params.AllowNetwork,
	})
	if err != nil {
		h.logger.Warn().Str("command", params.Command).Err(err).Msg("command denied")
		return faultResult(err)
	}

	res, err := h.exec.Run(ctx, plan)
	if err != nil {
		return faultResult(err)
	}
	return textResult(res.Stdout)
}
