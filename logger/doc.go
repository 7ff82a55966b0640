// Package logger provides structured logging capabilities.
//
// The logger package sets up the application's logging system using zap.
// All output goes to stderr so that logs never interleave with the MCP
// stdio transport on stdout.
//
// Usage:
//
//	logger, err := logger.New("production", "info")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger.Info("Application started")
package logger
