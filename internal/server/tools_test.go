package server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"agentherd.dev/internal/config"
	"agentherd.dev/internal/events"
	"agentherd.dev/internal/logs"
	"agentherd.dev/internal/orchestrator"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			t.Errorf("failed to restore working directory: %v", err)
		}
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	return tmpDir
}

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stub.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write stub: %v", err)
	}
	return path
}

func newTestServer(t *testing.T, stub string) *Server {
	t.Helper()
	chdirTemp(t)
	if err := logs.Setup(); err != nil {
		t.Fatalf("logs.Setup failed: %v", err)
	}

	settings := config.Default()
	settings.Binaries = map[string]string{"claude": stub}

	orch := orchestrator.New(orchestrator.Config{
		Binaries:    settings.Binaries,
		GracePeriod: 200 * time.Millisecond,
	}, events.NewBus())
	t.Cleanup(orch.ClearAll)

	return NewServer(orch, settings, "test")
}

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("result has no content")
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("result content is not text: %T", res.Content[0])
	}
	return tc.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, out interface{}) {
	t.Helper()
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), out); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}

func waitForStatus(t *testing.T, s *Server, id string, want orchestrator.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := s.orch.Status(id); ok && status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	status, _ := s.orch.Status(id)
	t.Fatalf("process %s never reached %s (last %s)", id, want, status)
}

func TestSpawnAgentTool(t *testing.T) {
	stub := writeStub(t, "echo ready\nsleep 30\n")
	s := newTestServer(t, stub)
	ctx := context.Background()

	res, err := s.handleSpawnAgent(ctx, callReq(map[string]interface{}{"model": "claude"}))
	if err != nil {
		t.Fatalf("handleSpawnAgent: %v", err)
	}
	var info orchestrator.ProcessInfo
	decodeResult(t, res, &info)
	if info.ID == "" {
		t.Fatalf("expected a process id")
	}
	if info.Model != "claude" {
		t.Errorf("expected model claude, got %q", info.Model)
	}
	waitForStatus(t, s, info.ID, orchestrator.StatusRunning)

	res, err = s.handleAgentStatus(ctx, callReq(map[string]interface{}{"process_id": info.ID}))
	if err != nil {
		t.Fatalf("handleAgentStatus: %v", err)
	}
	var got orchestrator.ProcessInfo
	decodeResult(t, res, &got)
	if got.Status != orchestrator.StatusRunning {
		t.Errorf("expected running status, got %s", got.Status)
	}

	res, err = s.handleStopAgent(ctx, callReq(map[string]interface{}{"process_id": info.ID}))
	if err != nil {
		t.Fatalf("handleStopAgent: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	waitForStatus(t, s, info.ID, orchestrator.StatusStopped)
}

func TestSpawnAgentToolRejectsMissingModel(t *testing.T) {
	s := newTestServer(t, writeStub(t, "exit 0\n"))

	res, err := s.handleSpawnAgent(context.Background(), callReq(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handleSpawnAgent: %v", err)
	}
	if !res.IsError {
		t.Errorf("expected a tool error for a missing model")
	}
}

func TestSpawnAgentToolUnknownModel(t *testing.T) {
	s := newTestServer(t, writeStub(t, "exit 0\n"))

	res, err := s.handleSpawnAgent(context.Background(),
		callReq(map[string]interface{}{"model": "mystery"}))
	if err != nil {
		t.Fatalf("handleSpawnAgent: %v", err)
	}
	if !res.IsError {
		t.Errorf("expected a tool error for an unknown model")
	}
	if !strings.Contains(resultText(t, res), "mystery") {
		t.Errorf("expected the unknown model to be named, got %s", resultText(t, res))
	}
}

func TestInputToolsRoundTrip(t *testing.T) {
	stub := writeStub(t, "while read line; do echo \"echo: $line\"; done\n")
	s := newTestServer(t, stub)
	ctx := context.Background()

	res, err := s.handleSpawnAgent(ctx, callReq(map[string]interface{}{"model": "claude"}))
	if err != nil {
		t.Fatalf("handleSpawnAgent: %v", err)
	}
	var info orchestrator.ProcessInfo
	decodeResult(t, res, &info)

	res, err = s.handleSendInput(ctx, callReq(map[string]interface{}{
		"process_id": info.ID,
		"input":      "hello agent\n",
	}))
	if err != nil {
		t.Fatalf("handleSendInput: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if out, ok := s.orch.GetOutput(info.ID); ok && strings.Contains(out, "echo: hello agent") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	res, err = s.handleReadOutput(ctx, callReq(map[string]interface{}{"process_id": info.ID}))
	if err != nil {
		t.Fatalf("handleReadOutput: %v", err)
	}
	var payload struct {
		Output string `json:"output"`
	}
	decodeResult(t, res, &payload)
	if !strings.Contains(payload.Output, "echo: hello agent") {
		t.Errorf("expected the echoed input in the output buffer, got %q", payload.Output)
	}

	// EOF ends the read loop and the process exits cleanly.
	res, err = s.handleCloseInput(ctx, callReq(map[string]interface{}{"process_id": info.ID}))
	if err != nil {
		t.Fatalf("handleCloseInput: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	waitForStatus(t, s, info.ID, orchestrator.StatusStopped)

	res, err = s.handleSendInput(ctx, callReq(map[string]interface{}{
		"process_id": info.ID,
		"input":      "too late\n",
	}))
	if err != nil {
		t.Fatalf("handleSendInput: %v", err)
	}
	if !res.IsError {
		t.Errorf("expected a tool error writing to a finished agent")
	}
}

func TestLifecycleToolsUnknownProcess(t *testing.T) {
	s := newTestServer(t, writeStub(t, "exit 0\n"))
	ctx := context.Background()

	for name, call := range map[string]func() (*mcp.CallToolResult, error){
		"stop_agent": func() (*mcp.CallToolResult, error) {
			return s.handleStopAgent(ctx, callReq(map[string]interface{}{"process_id": "ghost"}))
		},
		"force_stop_agent": func() (*mcp.CallToolResult, error) {
			return s.handleForceStopAgent(ctx, callReq(map[string]interface{}{"process_id": "ghost"}))
		},
		"agent_status": func() (*mcp.CallToolResult, error) {
			return s.handleAgentStatus(ctx, callReq(map[string]interface{}{"process_id": "ghost"}))
		},
		"clear_output": func() (*mcp.CallToolResult, error) {
			return s.handleClearOutput(ctx, callReq(map[string]interface{}{"process_id": "ghost"}))
		},
		"remove_agent": func() (*mcp.CallToolResult, error) {
			return s.handleRemoveAgent(ctx, callReq(map[string]interface{}{"process_id": "ghost"}))
		},
	} {
		res, err := call()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !res.IsError {
			t.Errorf("%s: expected a tool error for an unknown process", name)
		}
	}
}

func TestStopAllAndCleanupTools(t *testing.T) {
	stub := writeStub(t, "sleep 30\n")
	s := newTestServer(t, stub)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 2; i++ {
		res, err := s.handleSpawnAgent(ctx, callReq(map[string]interface{}{"model": "claude"}))
		if err != nil {
			t.Fatalf("handleSpawnAgent: %v", err)
		}
		var info orchestrator.ProcessInfo
		decodeResult(t, res, &info)
		ids = append(ids, info.ID)
	}

	res, err := s.handleStopAllAgents(ctx, callReq(nil))
	if err != nil {
		t.Fatalf("handleStopAllAgents: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	for _, id := range ids {
		waitForStatus(t, s, id, orchestrator.StatusStopped)
	}

	res, err = s.handleCleanupFinished(ctx, callReq(nil))
	if err != nil {
		t.Fatalf("handleCleanupFinished: %v", err)
	}
	var payload struct {
		Removed int `json:"removed"`
	}
	decodeResult(t, res, &payload)
	if payload.Removed != 2 {
		t.Errorf("expected 2 removed records, got %d", payload.Removed)
	}

	res, err = s.handleListAgents(ctx, callReq(nil))
	if err != nil {
		t.Fatalf("handleListAgents: %v", err)
	}
	var listing struct {
		Agents  []orchestrator.ProcessInfo `json:"agents"`
		Running int                        `json:"running"`
	}
	decodeResult(t, res, &listing)
	if len(listing.Agents) != 0 || listing.Running != 0 {
		t.Errorf("expected an empty registry, got %+v", listing)
	}
}

func TestSessionAssociationTools(t *testing.T) {
	stub := writeStub(t, "sleep 30\n")
	s := newTestServer(t, stub)
	ctx := context.Background()

	res, err := s.handleSpawnAgent(ctx, callReq(map[string]interface{}{"model": "claude"}))
	if err != nil {
		t.Fatalf("handleSpawnAgent: %v", err)
	}
	var info orchestrator.ProcessInfo
	decodeResult(t, res, &info)

	res, err = s.handleLinkSession(ctx, callReq(map[string]interface{}{
		"process_id": info.ID,
		"session_id": "chat-42",
	}))
	if err != nil {
		t.Fatalf("handleLinkSession: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	res, err = s.handleSetCLISession(ctx, callReq(map[string]interface{}{
		"process_id":     info.ID,
		"cli_session_id": "cli-uuid",
	}))
	if err != nil {
		t.Fatalf("handleSetCLISession: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	res, err = s.handleGetAgentForSession(ctx, callReq(map[string]interface{}{"session_id": "chat-42"}))
	if err != nil {
		t.Fatalf("handleGetAgentForSession: %v", err)
	}
	var got orchestrator.ProcessInfo
	decodeResult(t, res, &got)
	if got.ID != info.ID || got.CLISessionID != "cli-uuid" {
		t.Errorf("expected the linked agent, got %+v", got)
	}

	res, err = s.handleGetAgentForSession(ctx, callReq(map[string]interface{}{"session_id": "nobody"}))
	if err != nil {
		t.Fatalf("handleGetAgentForSession: %v", err)
	}
	if !res.IsError {
		t.Errorf("expected a tool error for an unlinked session")
	}
}

func TestSessionLogTools(t *testing.T) {
	s := newTestServer(t, writeStub(t, "exit 0\n"))
	ctx := context.Background()

	if err := logs.CreateSessionDirectory("proc-1"); err != nil {
		t.Fatalf("failed to create session directory: %v", err)
	}
	meta := &logs.SessionMetadata{ProcessID: "proc-1", Model: "claude", StartTime: time.Now(), Status: "stopped"}
	if err := logs.WriteSessionMetadata("proc-1", meta); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
	content := "alpha\nbeta\nalpha again\n"
	if err := os.WriteFile(logs.GetOutputLogPath("proc-1"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}

	res, err := s.handleListSessions(ctx, callReq(nil))
	if err != nil {
		t.Fatalf("handleListSessions: %v", err)
	}
	var listing struct {
		Sessions []logs.SessionInfo `json:"sessions"`
		Count    int                `json:"count"`
	}
	decodeResult(t, res, &listing)
	if listing.Count != 1 || listing.Sessions[0].ProcessID != "proc-1" {
		t.Errorf("expected the recorded session, got %+v", listing)
	}

	res, err = s.handleReadSessionLog(ctx, callReq(map[string]interface{}{
		"process_id": "proc-1",
		"filter":     "^alpha",
	}))
	if err != nil {
		t.Fatalf("handleReadSessionLog: %v", err)
	}
	var lines struct {
		Lines []string `json:"lines"`
		Count int      `json:"count"`
	}
	decodeResult(t, res, &lines)
	if lines.Count != 2 || lines.Lines[1] != "alpha again" {
		t.Errorf("expected the filtered lines, got %+v", lines)
	}
}

func TestNewServerPrunesOldSessions(t *testing.T) {
	chdirTemp(t)
	if err := logs.Setup(); err != nil {
		t.Fatalf("logs.Setup failed: %v", err)
	}

	now := time.Now()
	for i, id := range []string{"old-1", "old-2", "new-1"} {
		if err := logs.CreateSessionDirectory(id); err != nil {
			t.Fatalf("failed to create session directory: %v", err)
		}
		meta := &logs.SessionMetadata{
			ProcessID: id,
			Model:     "claude",
			StartTime: now.Add(time.Duration(i-3) * time.Hour),
			Status:    "stopped",
		}
		if err := logs.WriteSessionMetadata(id, meta); err != nil {
			t.Fatalf("failed to write metadata: %v", err)
		}
	}

	settings := config.Default()
	settings.Retention.MaxSessions = 1
	settings.Retention.MaxAgeDays = 0

	orch := orchestrator.New(orchestrator.Config{GracePeriod: time.Second}, events.NewBus())
	NewServer(orch, settings, "test")

	sessions, err := logs.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ProcessID != "new-1" {
		t.Errorf("expected only the newest session to survive, got %+v", sessions)
	}
}

func TestTailAndFilter(t *testing.T) {
	buf := "alpha one\nbeta two\nalpha three\n"

	got, err := tailAndFilter(buf, 0, "^alpha")
	if err != nil {
		t.Fatalf("tailAndFilter: %v", err)
	}
	if got != "alpha one\nalpha three\n" {
		t.Errorf("filter result = %q", got)
	}

	got, err = tailAndFilter(buf, 1, "")
	if err != nil {
		t.Fatalf("tailAndFilter: %v", err)
	}
	if got != "alpha three\n" {
		t.Errorf("tail result = %q", got)
	}

	got, err = tailAndFilter(buf, 0, "nothing matches")
	if err != nil {
		t.Fatalf("tailAndFilter: %v", err)
	}
	if got != "" {
		t.Errorf("expected an empty result, got %q", got)
	}

	if _, err := tailAndFilter(buf, 0, "[bad"); err == nil {
		t.Errorf("expected an error for an invalid pattern")
	}
}

func TestNormalizeAddr(t *testing.T) {
	if got := normalizeAddr(":8080"); got != "http://localhost:8080" {
		t.Errorf("normalizeAddr(:8080) = %q", got)
	}
	if got := normalizeAddr("example.com:9000"); got != "example.com:9000" {
		t.Errorf("normalizeAddr(host:port) = %q", got)
	}
}
