// Package mcp exposes daemon control as MCP tools over stdio so agents can
// inspect and drive the focus daemon. Every tool is a thin bridge over the
// IPC client; the daemon stays the single owner of all state.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/ipc"
)

const (
	ServerName    = "focus"
	ServerVersion = "0.1.0"
)

// Server is the MCP server bridging tools to the focus daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	client    *ipc.Client
	log       zerolog.Logger
}

// NewServer creates the MCP server. The daemon does not have to be running
// yet; each tool call dials the IPC socket fresh, so tools recover as soon
// as the daemon comes up.
func NewServer(log zerolog.Logger) *Server {
	s := &Server{
		client: ipc.NewClient(),
		log:    log.With().Str("component", "mcp").Logger(),
	}

	if err := s.client.Ping(); err != nil {
		s.log.Warn().Err(err).Msg("focus daemon not reachable; tools will fail until it starts")
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Get the focus daemon's status: whether single-app coordination is enabled, the target window size, how many shortcuts are bound and the daemon uptime.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_running_apps",
		Description: "List the applications the daemon currently sees, with their identifier (WM_CLASS class), PID, activation policy and hidden state. Use the identifier when binding shortcuts.",
	}, s.handleListRunningApps)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_shortcuts",
		Description: "List the global hotkey bindings: which key combination activates or launches which application.",
	}, s.handleListShortcuts)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_shortcut",
		Description: "Bind a global hotkey to an application. Pressing it brings the app to the foreground, launching it first if needed. A combination already bound to another app is silently moved to this one.",
	}, s.handleSetShortcut)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "clear_shortcut",
		Description: "Remove the global hotkey binding for an application.",
	}, s.handleClearShortcut)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_enabled",
		Description: "Turn single-app coordination on or off. The setting is persisted to the daemon's config file.",
	}, s.handleSetEnabled)
}
