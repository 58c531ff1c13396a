// Package mcpui reads ui:// template resources and invokes agent tools on an
// MCP server.
//
// Each operation opens its own client session and closes it when done, so a
// Connector can be shared freely between goroutines.
package mcpui
