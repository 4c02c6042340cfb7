// Package warden exposes host capabilities (shell execution, file
// access, search, environment inspection) to MCP clients behind a
// command validation and sandboxing layer.
package warden

// Version is the warden release version.
const Version = "0.1.0"
