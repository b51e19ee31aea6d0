// Package mcp provides an MCP (Model Context Protocol) server adapter for AFIQ.
// It lets AI assistants like Claude query AFI/DAFI regulatory documents through
// the grounded ask pipeline.
package mcp

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("mcp: ask service is required")
