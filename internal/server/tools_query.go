package server

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerQueryTools registers record queries, session-id association,
// buffer access, and registry cleanup.
func (s *Server) registerQueryTools() {
	s.registerStatusTools()
	s.registerSessionTools()
	s.registerBufferTools()
	s.registerCleanupTools()
}

func (s *Server) registerStatusTools() {
	statusTool := mcp.Tool{
		Name:        "agent_status",
		Description: "Get the full record of one agent process",
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

	s.mcpServer.AddTool(statusTool, s.handleAgentStatus)

	listTool := mcp.Tool{
		Name:        "list_agents",
		Description: "List every supervised agent process, oldest first",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: make(map[string]interface{})},
	}

	s.mcpServer.AddTool(listTool, s.handleListAgents)
}

func (s *Server) handleAgentStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	processID, _ := req.GetArguments()["process_id"].(string)

	info, ok := s.orch.Get(processID)
	if !ok {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(info), nil
}

func (s *Server) handleListAgents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(map[string]interface{}{
		"agents":  s.orch.List(),
		"running": s.orch.CountRunning(),
	}), nil
}

func (s *Server) registerSessionTools() {
	linkTool := mcp.Tool{
		Name:        "link_session",
		Description: "Associate an agent process with its owning chat session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"process_id": map[string]interface{}{
					"type":        "string",
					"description": "Agent process id",
				},
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Chat session id",
				},
			},
			Required: []string{"process_id", "session_id"},
		},
	}

	s.mcpServer.AddTool(linkTool, s.handleLinkSession)

	cliTool := mcp.Tool{
		Name:        "set_cli_session",
		Description: "Store the session id the agent CLI emitted, for later resume",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"process_id": map[string]interface{}{
					"type":        "string",
					"description": "Agent process id",
				},
				"cli_session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session id emitted by the agent CLI itself",
				},
			},
			Required: []string{"process_id", "cli_session_id"},
		},
	}

	s.mcpServer.AddTool(cliTool, s.handleSetCLISession)

	bySessionTool := mcp.Tool{
		Name:        "get_agent_for_session",
		Description: "Find the agent process associated with a chat session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Chat session id",
				},
			},
			Required: []string{"session_id"},
		},
	}

	s.mcpServer.AddTool(bySessionTool, s.handleGetAgentForSession)
}

func (s *Server) handleLinkSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	processID, _ := args["process_id"].(string)
	sessionID, _ := args["session_id"].(string)

	if !s.orch.SetSessionID(processID, sessionID) {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(map[string]interface{}{"linked": true}), nil
}

func (s *Server) handleSetCLISession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	processID, _ := args["process_id"].(string)
	cliSessionID, _ := args["cli_session_id"].(string)

	if !s.orch.SetCLISessionID(processID, cliSessionID) {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(map[string]interface{}{"set": true}), nil
}

func (s *Server) handleGetAgentForSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := req.GetArguments()["session_id"].(string)

	info, ok := s.orch.GetBySessionID(sessionID)
	if !ok {
		return mcp.NewToolResultError("no agent for session"), nil
	}
	return toolResult(info), nil
}

func (s *Server) registerBufferTools() {
	readTool := mcp.Tool{
		Name:        "read_output",
		Description: "Read an agent's accumulated output buffer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"process_id": map[string]interface{}{
					"type":        "string",
					"description": "Agent process id",
				},
				"stream": map[string]interface{}{
					"type":        "string",
					"description": "Buffer to read: stdout (default) or stderr",
				},
				"lines": map[string]interface{}{
					"type":        "number",
					"description": "Number of trailing lines to return (0 = all)",
				},
				"filter": map[string]interface{}{
					"type":        "string",
					"description": "Regex pattern to filter lines",
				},
			},
			Required: []string{"process_id"},
		},
	}

	s.mcpServer.AddTool(readTool, s.handleReadOutput)

	clearTool := mcp.Tool{
		Name:        "clear_output",
		Description: "Empty an agent's stdout buffer",
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

	s.mcpServer.AddTool(clearTool, s.handleClearOutput)
}

func (s *Server) handleReadOutput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	processID, _ := args["process_id"].(string)
	stream, _ := args["stream"].(string)

	var output string
	var ok bool
	if stream == "stderr" {
		output, ok = s.orch.GetStderr(processID)
	} else {
		output, ok = s.orch.GetOutput(processID)
	}
	if !ok {
		return mcp.NewToolResultError("process not found"), nil
	}

	filter, _ := args["filter"].(string)
	tail := 0
	if l, ok := args["lines"].(float64); ok && l > 0 {
		tail = int(l)
	}
	if filter != "" || tail > 0 {
		trimmed, err := tailAndFilter(output, tail, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		output = trimmed
	}

	return toolResult(map[string]interface{}{"output": output}), nil
}

// tailAndFilter narrows a buffer to lines matching pattern, then to the last
// tail lines. A trailing newline on the buffer does not count as a line.
func tailAndFilter(buf string, tail int, pattern string) (string, error) {
	lines := strings.Split(strings.TrimSuffix(buf, "\n"), "\n")

	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return "", fmt.Errorf("invalid filter pattern: %w", err)
		}
		matched := lines[:0]
		for _, line := range lines {
			if re.MatchString(line) {
				matched = append(matched, line)
			}
		}
		lines = matched
	}
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	if len(lines) == 0 {
		return "", nil
	}
	return strings.Join(lines, "\n") + "\n", nil
}

func (s *Server) handleClearOutput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	processID, _ := req.GetArguments()["process_id"].(string)

	if !s.orch.ClearOutput(processID) {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(map[string]interface{}{"cleared": true}), nil
}

func (s *Server) registerCleanupTools() {
	cleanupTool := mcp.Tool{
		Name:        "cleanup_finished",
		Description: "Remove every stopped or errored agent record from the registry",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: make(map[string]interface{})},
	}

	s.mcpServer.AddTool(cleanupTool, s.handleCleanupFinished)

	removeTool := mcp.Tool{
		Name:        "remove_agent",
		Description: "Remove one agent record from the registry",
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

	s.mcpServer.AddTool(removeTool, s.handleRemoveAgent)
}

func (s *Server) handleCleanupFinished(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(map[string]interface{}{"removed": s.orch.CleanupFinished()}), nil
}

func (s *Server) handleRemoveAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	processID, _ := req.GetArguments()["process_id"].(string)

	if !s.orch.Remove(processID) {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(map[string]interface{}{"removed": true}), nil
}
