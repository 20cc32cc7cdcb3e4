// Package server exposes the orchestrator's operations as MCP tools, so a
// supervising agent can spawn and control worker agents over stdio or HTTP.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"agentherd.dev/internal/config"
	"agentherd.dev/internal/logs"
	"agentherd.dev/internal/orchestrator"
)

// Server wraps the MCP server with agent process management.
type Server struct {
	mcpServer *server.MCPServer
	orch      *orchestrator.Orchestrator
	settings  *config.Settings
	version   string
}

// NewServer creates an MCP server exposing the orchestrator's tool surface.
func NewServer(orch *orchestrator.Orchestrator, settings *config.Settings, version string) *Server {
	mcpServer := server.NewMCPServer(
		"agentherd",
		version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		orch:      orch,
		settings:  settings,
		version:   version,
	}

	// Clean up old recorded sessions at startup to bound directory size
	retention := logs.SessionRetention{
		MaxSessions: settings.Retention.MaxSessions,
		MaxAge:      settings.Retention.MaxAge(),
	}
	if _, err := logs.CleanupOldSessions(retention); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: session cleanup failed: %v\n", err)
	}

	s.registerTools()

	return s
}

// Serve starts the MCP server over stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP starts the MCP server as a standalone HTTP server using
// StreamableHTTP transport. It handles graceful shutdown on SIGINT/SIGTERM,
// killing every supervised agent before exiting.
func (s *Server) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nShutting down HTTP server...")

		if err := httpServer.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down HTTP server: %v\n", err)
		}

		s.orch.KillAll()
	}()

	fmt.Fprintf(os.Stderr, "agentherd MCP server listening on %s\n", normalizeAddr(addr))
	return httpServer.Start(addr)
}

// normalizeAddr expands a bare port like ":8080" to "http://localhost:8080".
func normalizeAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return addr
}
