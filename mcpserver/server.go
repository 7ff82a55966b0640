// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes
// tools for answering questions about tabular data. It uses the
// mark3labs/mcp-go library to handle the protocol details and provides the
// ask_data tool as the primary interface, plus run_analysis_code and
// get_schema for direct access.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/querybox/config"
	"github.com/isdmx/querybox/dataset"
	"github.com/isdmx/querybox/pipeline"
)

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	pipeline  *pipeline.Pipeline
	data      *dataset.Manager
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, pipe *pipeline.Pipeline, data *dataset.Manager) (*MCPServer, error) {
	s := &MCPServer{
		config:   cfg,
		logger:   logger,
		pipeline: pipe,
		data:     data,
	}

	// Log configuration parameters on startup
	logger.Info("configuration loaded",
		zap.String("server.transport", s.config.Server.Transport),
		zap.Int("server.http_port", s.config.Server.HTTPPort),
		zap.String("sandbox.backend", s.config.Sandbox.Backend),
		zap.Int("sandbox.timeout_sec", s.config.Sandbox.TimeoutSec),
		zap.Int("sandbox.memory_mb", s.config.Sandbox.MemoryMB),
		zap.Int("security.max_input_length", s.config.Security.MaxInputLength),
		zap.String("generator.model", s.config.Generator.Model),
		zap.String("data.path", s.config.Data.Path),
	)

	// Create the MCP server
	s.mcpServer = server.NewMCPServer("querybox", "A natural-language data analysis server")

	s.registerAskDataTool()
	s.registerRunAnalysisCodeTool()
	s.registerGetSchemaTool()

	return s, nil
}

// registerAskDataTool registers the ask_data tool
func (s *MCPServer) registerAskDataTool() {
	tool := mcp.Tool{
		Name:        "ask_data",
		Description: "Answer a natural-language question about the loaded dataset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to answer, in plain language",
				},
			},
			Required: []string{"question"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleAskData)
}

// registerRunAnalysisCodeTool registers the run_analysis_code tool
func (s *MCPServer) registerRunAnalysisCodeTool() {
	tool := mcp.Tool{
		Name:        "run_analysis_code",
		Description: "Validate and execute analysis code against the loaded dataset, skipping generation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Analysis code over the data variable",
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunAnalysisCode)
}

// registerGetSchemaTool registers the get_schema tool
func (s *MCPServer) registerGetSchemaTool() {
	tool := mcp.Tool{
		Name:        "get_schema",
		Description: "Describe the loaded dataset: shape, columns, types and example values",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}

	s.mcpServer.AddTool(tool, s.handleGetSchema)
}

// handleAskData handles the ask_data tool
func (s *MCPServer) handleAskData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return nil, fmt.Errorf("question parameter is required: %w", err)
	}

	s.logger.Info("question received", zap.Int("length", len(question)))
	result := s.pipeline.Ask(ctx, question)
	return s.toolResult(result)
}

// handleRunAnalysisCode handles the run_analysis_code tool
func (s *MCPServer) handleRunAnalysisCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}

	s.logger.Info("direct code execution requested", zap.Int("length", len(code)))
	result := s.pipeline.RunCode(ctx, code)
	return s.toolResult(result)
}

// handleGetSchema handles the get_schema tool
func (s *MCPServer) handleGetSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	schema, err := s.data.Schema()
	if err != nil {
		s.logger.Error("schema unavailable", zap.Error(err))
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: "Could not load the data file. Please check that it exists.",
				},
			},
			IsError: true,
		}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: schema},
		},
	}, nil
}

// toolResult serializes a pipeline result as the tool reply. Pipeline
// failures are ordinary replies with IsError set, never protocol errors.
func (s *MCPServer) toolResult(result *pipeline.QueryResult) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(payload)},
		},
		IsError: !result.Success,
	}, nil
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the server on HTTP
func (s *MCPServer) ServeHTTP() error {
	port := s.config.Server.HTTPPort
	s.logger.Info("starting MCP server on HTTP", zap.Int("port", port))

	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	return httpServer.Start(fmt.Sprintf(":%d", port))
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
