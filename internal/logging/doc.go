// Package logging provides opt-in file-based structured logging with
// rotation for linkmap.
//
// With --debug, JSON logs are written to ~/.linkmap/logs/ and mirrored to
// stderr. The MCP server always logs to file only, because stdout carries
// the JSON-RPC stream.
package logging
