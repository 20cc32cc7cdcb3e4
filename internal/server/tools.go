package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"agentherd.dev/internal/orchestrator"
)

// registerTools registers the full orchestrator tool surface.
func (s *Server) registerTools() {
	s.registerSpawnTool()
	s.registerInputTools()
	s.registerLifecycleTools()
	s.registerQueryTools()
	s.registerSessionLogTools()
}

// toolResult marshals a payload as a JSON text result.
func toolResult(payload interface{}) *mcp.CallToolResult {
	data, _ := json.Marshal(payload)
	return mcp.NewToolResultText(string(data))
}

func (s *Server) registerSpawnTool() {
	tool := mcp.Tool{
		Name:        "spawn_agent",
		Description: "Launch a supervised AI-assistant CLI process and return its process id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"model": map[string]interface{}{
					"type":        "string",
					"description": "AI provider to invoke (claude, gemini, codex)",
				},
				"cwd": map[string]interface{}{
					"type":        "string",
					"description": "Working directory for the agent process",
				},
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "Initial prompt; written to stdin once, then stdin is closed",
				},
				"system_prompt": map[string]interface{}{
					"type":        "string",
					"description": "System prompt passed to the agent",
				},
				"resume_session_id": map[string]interface{}{
					"type":        "string",
					"description": "CLI session id from a prior run to resume",
				},
				"max_turns": map[string]interface{}{
					"type":        "number",
					"description": "Maximum agent turns (0 = provider default)",
				},
				"skip_permissions": map[string]interface{}{
					"type":        "boolean",
					"description": "Pass the dangerous skip-permissions flag",
				},
				"timeout_ms": map[string]interface{}{
					"type":        "number",
					"description": "Watchdog timeout in milliseconds (0 = settings default)",
				},
				"env": map[string]interface{}{
					"type":        "object",
					"description": "Environment overlay for the agent process",
				},
			},
			Required: []string{"model"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleSpawnAgent)
}

func (s *Server) handleSpawnAgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	model, _ := args["model"].(string)
	if model == "" {
		return mcp.NewToolResultError("model is required"), nil
	}

	opts := orchestrator.SpawnOptions{
		Model:   model,
		Timeout: s.settings.DefaultTimeout(),
		Env:     map[string]string{},
	}
	if cwd, ok := args["cwd"].(string); ok {
		opts.Cwd = cwd
	}
	if prompt, ok := args["prompt"].(string); ok {
		opts.Prompt = prompt
	}
	if sysPrompt, ok := args["system_prompt"].(string); ok {
		opts.SystemPrompt = sysPrompt
	}
	if resume, ok := args["resume_session_id"].(string); ok {
		opts.ResumeSessionID = resume
	}
	if maxTurns, ok := args["max_turns"].(float64); ok && maxTurns > 0 {
		opts.MaxTurns = int(maxTurns)
	} else {
		opts.MaxTurns = s.settings.DefaultMaxTurns
	}
	if skip, ok := args["skip_permissions"].(bool); ok {
		opts.SkipPermissions = skip
	}
	if timeoutMs, ok := args["timeout_ms"].(float64); ok && timeoutMs > 0 {
		opts.Timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	for k, v := range s.settings.Env {
		opts.Env[k] = v
	}
	if env, ok := args["env"].(map[string]interface{}); ok {
		for k, v := range env {
			if val, ok := v.(string); ok {
				opts.Env[k] = val
			}
		}
	}

	info, err := s.orch.Spawn(opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return toolResult(info), nil
}

func (s *Server) registerInputTools() {
	sendTool := mcp.Tool{
		Name:        "send_input",
		Description: "Write data to a running agent's stdin",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"process_id": map[string]interface{}{
					"type":        "string",
					"description": "Agent process id",
				},
				"input": map[string]interface{}{
					"type":        "string",
					"description": "Data to write",
				},
			},
			Required: []string{"process_id", "input"},
		},
	}

	s.mcpServer.AddTool(sendTool, s.handleSendInput)

	closeTool := mcp.Tool{
		Name:        "close_input",
		Description: "Signal end-of-input to an agent by closing its stdin",
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

	s.mcpServer.AddTool(closeTool, s.handleCloseInput)
}

func (s *Server) handleSendInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	processID, _ := args["process_id"].(string)
	input, _ := args["input"].(string)

	if !s.orch.WriteStdin(processID, input) {
		return mcp.NewToolResultError("process not found, finished, or stdin closed"), nil
	}
	return toolResult(map[string]interface{}{"written": true}), nil
}

func (s *Server) handleCloseInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	processID, _ := req.GetArguments()["process_id"].(string)

	if !s.orch.CloseStdin(processID) {
		return mcp.NewToolResultError("process not found"), nil
	}
	return toolResult(map[string]interface{}{"closed": true}), nil
}
