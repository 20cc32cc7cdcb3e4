package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"agentherd.dev/internal/logs"
)

// registerSessionLogTools registers access to the recorder's on-disk copy of
// agent output, which outlives registry cleanup.
func (s *Server) registerSessionLogTools() {
	listTool := mcp.Tool{
		Name:        "list_sessions",
		Description: "List recorded agent sessions, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of sessions to return (default: 20)",
				},
			},
		},
	}

	s.mcpServer.AddTool(listTool, s.handleListSessions)

	readTool := mcp.Tool{
		Name:        "read_session_log",
		Description: "Read the recorded output of an agent session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"process_id": map[string]interface{}{
					"type":        "string",
					"description": "Agent process id",
				},
				"lines": map[string]interface{}{
					"type":        "number",
					"description": "Number of lines to tail (default: 100)",
				},
				"filter": map[string]interface{}{
					"type":        "string",
					"description": "Regex pattern to filter lines",
				},
				"stderr": map[string]interface{}{
					"type":        "boolean",
					"description": "Read the stderr log instead of stdout",
				},
			},
			Required: []string{"process_id"},
		},
	}

	s.mcpServer.AddTool(readTool, s.handleReadSessionLog)
}

func (s *Server) handleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 20
	if l, ok := req.GetArguments()["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	sessions, err := logs.ListSessions(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	return toolResult(map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	}), nil
}

func (s *Server) handleReadSessionLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	processID, _ := args["process_id"].(string)

	opts := logs.ReadOptions{Lines: 100}
	if lines, ok := args["lines"].(float64); ok {
		opts.Lines = int(lines)
	}
	if filter, ok := args["filter"].(string); ok {
		opts.Filter = filter
	}
	if stderr, ok := args["stderr"].(bool); ok {
		opts.Stderr = stderr
	}

	logLines, err := logs.ReadLog(processID, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read log: %v", err)), nil
	}
	return toolResult(map[string]interface{}{
		"lines": logLines,
		"count": len(logLines),
	}), nil
}
