// Package ipc implements the control channel between the focus daemon and
// the CLI: newline-delimited JSON requests over a unix socket.
package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus      CommandType = "GET_STATUS"
	CommandGetConfig      CommandType = "GET_CONFIG"
	CommandSetEnabled     CommandType = "SET_ENABLED"
	CommandReload         CommandType = "RELOAD"
	CommandListApps       CommandType = "LIST_APPS"
	CommandListShortcuts  CommandType = "LIST_SHORTCUTS"
	CommandSetShortcut    CommandType = "SET_SHORTCUT"
	CommandClearShortcut  CommandType = "CLEAR_SHORTCUT"
	CommandClearShortcuts CommandType = "CLEAR_SHORTCUTS"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData is returned by GET_STATUS.
type StatusData struct {
	DaemonRunning bool  `json:"daemon_running"`
	Enabled       bool  `json:"enabled"`
	CenterOnly    bool  `json:"center_only"`
	TargetWidth   int   `json:"target_width"`
	TargetHeight  int   `json:"target_height"`
	ShortcutCount int   `json:"shortcut_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ConfigData is returned by GET_CONFIG.
type ConfigData struct {
	Enabled        bool              `json:"enabled"`
	CenterOnly     bool              `json:"center_only"`
	TargetWidth    int               `json:"target_width"`
	TargetHeight   int               `json:"target_height"`
	ExcludedApps   []string          `json:"excluded_apps"`
	ShellApps      []string          `json:"shell_apps"`
	LaunchCommands map[string]string `json:"launch_commands"`
	LogLevel       string            `json:"log_level"`
	LogFile        string            `json:"log_file,omitempty"`
}

// AppInfo describes one running application.
type AppInfo struct {
	ID     string `json:"id"`
	PID    int    `json:"pid"`
	Policy string `json:"policy"`
	Hidden bool   `json:"hidden"`
	Shell  bool   `json:"shell,omitempty"`
}

// AppsData is returned by LIST_APPS.
type AppsData struct {
	Apps []AppInfo `json:"apps"`
}

// ShortcutInfo describes one hotkey binding.
type ShortcutInfo struct {
	App       string `json:"app"`
	KeyCode   uint32 `json:"key_code"`
	Modifiers uint16 `json:"modifiers"`
	Display   string `json:"display"`
}

// ShortcutsData is returned by LIST_SHORTCUTS.
type ShortcutsData struct {
	Shortcuts []ShortcutInfo `json:"shortcuts"`
}

// SetEnabledPayload is the payload for SET_ENABLED.
type SetEnabledPayload struct {
	Enabled bool `json:"enabled"`
}

// SetShortcutPayload is the payload for SET_SHORTCUT. A zero key code
// removes the binding.
type SetShortcutPayload struct {
	App       string `json:"app"`
	KeyCode   uint32 `json:"key_code"`
	Modifiers uint16 `json:"modifiers"`
}

// ClearShortcutPayload is the payload for CLEAR_SHORTCUT.
type ClearShortcutPayload struct {
	App string `json:"app"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
