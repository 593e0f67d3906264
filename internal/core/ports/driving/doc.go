// Package driving holds the interfaces the CLI and the MCP server call:
// asking and retrieving, the ingestion stages, the collection and the
// settings. internal/core/services implements all of them.
package driving
