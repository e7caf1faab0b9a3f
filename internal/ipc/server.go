package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/config"
	"github.com/BSN4/focus/internal/focus"
	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/runtimepath"
)

// Server answers CLI requests over the unix socket. Mutations are forwarded
// to the engine, which serializes them on its loop.
type Server struct {
	socketPath   string
	listener     net.Listener
	engine       *focus.Coordinator
	configPath   string
	log          zerolog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. configPath is where SET_ENABLED and
// RELOAD read and write the daemon configuration.
func NewServer(engine *focus.Coordinator, configPath string, log zerolog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove a stale socket from a previous run.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		engine:     engine,
		configPath: configPath,
		log:        log.With().Str("component", "ipc").Logger(),
		startTime:  time.Now(),
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.log.Info().Str("socket", s.socketPath).Msg("ipc server listening")

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.log.Warn().Err(err).Msg("ipc accept error")
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Requests are a single JSON line.
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.log.Warn().Err(err).Msg("ipc read error")
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal response")
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.log.Warn().Err(err).Msg("failed to send response")
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetConfig:
		return s.handleGetConfig()
	case CommandSetEnabled:
		return s.handleSetEnabled(req.Payload)
	case CommandReload:
		return s.handleReload()
	case CommandListApps:
		return s.handleListApps()
	case CommandListShortcuts:
		return s.handleListShortcuts()
	case CommandSetShortcut:
		return s.handleSetShortcut(req.Payload)
	case CommandClearShortcut:
		return s.handleClearShortcut(req.Payload)
	case CommandClearShortcuts:
		return s.handleClearShortcuts()
	default:
		return NewErrorResponse(fmt.Sprintf("unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	st, err := s.engine.Status()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to query engine: %v", err))
	}

	status := StatusData{
		DaemonRunning: true,
		Enabled:       st.Enabled,
		CenterOnly:    st.CenterOnly,
		TargetWidth:   st.TargetSize.Width,
		TargetHeight:  st.TargetSize.Height,
		ShortcutCount: st.Shortcuts,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleGetConfig() *Response {
	cfg, err := s.engine.Config()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to query engine: %v", err))
	}

	data := ConfigData{
		Enabled:        cfg.Enabled,
		CenterOnly:     cfg.CenterOnly,
		TargetWidth:    cfg.TargetSize.Width,
		TargetHeight:   cfg.TargetSize.Height,
		ExcludedApps:   cfg.ExcludedApps,
		ShellApps:      cfg.ShellApps,
		LaunchCommands: cfg.LaunchCommands,
		LogLevel:       cfg.Logging.Level,
		LogFile:        cfg.Logging.File,
	}

	resp, _ := NewOKResponse(data)
	return resp
}

// handleSetEnabled persists the flag to the config file first, then pushes
// the reloaded config into the engine so the change applies immediately.
func (s *Server) handleSetEnabled(payload json.RawMessage) *Response {
	var req SetEnabledPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid set-enabled payload: %v", err))
	}

	if err := config.SetEnabled(s.configPath, req.Enabled); err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to persist enabled flag: %v", err))
	}

	cfg, err := config.LoadFromPath(s.configPath)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to reload config: %v", err))
	}
	s.engine.UpdateConfig(cfg)

	s.log.Info().Bool("enabled", req.Enabled).Msg("coordination toggled")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleReload() *Response {
	s.log.Info().Msg("reload requested")

	cfg, err := config.LoadFromPath(s.configPath)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to reload config: %v", err))
	}
	s.engine.UpdateConfig(cfg)

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleListApps() *Response {
	apps, err := s.engine.RunningApps()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to list apps: %v", err))
	}

	infos := make([]AppInfo, len(apps))
	for i, app := range apps {
		infos[i] = AppInfo{
			ID:     app.ID,
			PID:    app.PID,
			Policy: app.Policy.String(),
			Hidden: app.Hidden,
			Shell:  app.Shell,
		}
	}

	resp, _ := NewOKResponse(AppsData{Apps: infos})
	return resp
}

func (s *Server) handleListShortcuts() *Response {
	shortcuts, err := s.engine.Shortcuts()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to list shortcuts: %v", err))
	}

	apps := make([]string, 0, len(shortcuts))
	for app := range shortcuts {
		apps = append(apps, app)
	}
	sort.Strings(apps)

	infos := make([]ShortcutInfo, len(apps))
	for i, app := range apps {
		combo := shortcuts[app]
		infos[i] = ShortcutInfo{
			App:       app,
			KeyCode:   combo.KeyCode,
			Modifiers: combo.Modifiers,
			Display:   combo.String(),
		}
	}

	resp, _ := NewOKResponse(ShortcutsData{Shortcuts: infos})
	return resp
}

func (s *Server) handleSetShortcut(payload json.RawMessage) *Response {
	var req SetShortcutPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid set-shortcut payload: %v", err))
	}
	if req.App == "" {
		return NewErrorResponse("app is required")
	}

	combo := keycombo.Combo{KeyCode: req.KeyCode, Modifiers: req.Modifiers}
	if err := s.engine.SetShortcut(req.App, combo); err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to set shortcut: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleClearShortcut(payload json.RawMessage) *Response {
	var req ClearShortcutPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid clear-shortcut payload: %v", err))
	}
	if req.App == "" {
		return NewErrorResponse("app is required")
	}

	if err := s.engine.ClearShortcut(req.App); err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to clear shortcut: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleClearShortcuts() *Response {
	if err := s.engine.ClearShortcuts(); err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to clear shortcuts: %v", err))
	}

	resp, _ := NewOKResponse(nil)
	return resp
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
