// Package mcp provides an MCP (Model Context Protocol) server adapter for WikiRag.
// It lets AI assistants ask questions against the indexed Wikipedia corpus
// and inspect the retrieved context.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
