// Package main is the entry point for the QueryBox MCP server.
//
// The QueryBox server implements a Model Context Protocol (MCP) server that
// answers natural-language questions about a tabular dataset. Each question
// is turned into a short analysis script by a local language model, checked
// against an allowlist policy, executed in a sandbox under resource limits,
// and classified into a display-safe answer. The server supports both stdio
// and HTTP transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
