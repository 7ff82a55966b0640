// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes
// tools for answering questions about tabular data. It uses the
// mark3labs/mcp-go library to handle the protocol details and provides the
// ask_data tool as the primary interface, plus run_analysis_code and
// get_schema for direct access.
//
// The server supports both stdio and HTTP transports as configured by the
// application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, pipeline, data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
