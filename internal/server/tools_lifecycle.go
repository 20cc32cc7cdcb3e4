package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerLifecycleTools registers stop_agent, force_stop_agent, and
// stop_all_agents.
func (s *Server) registerLifecycleTools() {
	stopTool := mcp.Tool{
		Name:        "stop_agent",
		Description: "Gracefully stop an agent (SIGTERM, escalating to SIGKILL after a grace period)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"process_id": map[string]interface{}{
					"type":        "string",
					"description": "Agent process id",
				},
				"force_after_seconds": map[string]interface{}{
					"type":        "number",
					"description": "Seconds to wait before force-killing (0 = configured grace period)",
				},
			},
			Required: []string{"process_id"},
		},
	}

	s.mcpServer.AddTool(stopTool, s.handleStopAgent)

	forceTool := mcp.Tool{
		Name:        "force_stop_agent",
		Description: "Immediately kill an agent with the non-ignorable signal",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"process_id": map[string]interface{}{
					"type":        "string",
					"description": "Agent process id",
				},
			},
			Required: []string{"process_id"},
		},
	}

	s.mcpServer.AddTool(forceTool, s.handleForceStopAgent)

	allTool := mcp.Tool{
		Name:        "stop_all_agents",
		Description: "Gracefully stop every running agent",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: make(map[string]interface{})},
	}

	s.mcpServer.AddTool(allTool, s.handleStopAllAgents)
}

func (s *Server) handleStopAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	processID, _ := args["process_id"].(string)

	var forceAfter time.Duration
	if secs, ok := args["force_after_seconds"].(float64); ok && secs > 0 {
		forceAfter = time.Duration(secs * float64(time.Second))
	}

	delivered := s.orch.Kill(processID, forceAfter)
	if _, known := s.orch.Status(processID); !known {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(map[string]interface{}{"signaled": delivered}), nil
}

func (s *Server) handleForceStopAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	processID, _ := req.GetArguments()["process_id"].(string)

	delivered := s.orch.ForceKill(processID)
	if _, known := s.orch.Status(processID); !known {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(map[string]interface{}{"signaled": delivered}), nil
}

func (s *Server) handleStopAllAgents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	running := s.orch.CountRunning()
	s.orch.KillAll()
	return toolResult(map[string]interface{}{"stopped": running}), nil
}
