package mcp

// GetStatusInput is the input for the get_status tool.
type GetStatusInput struct{}

// GetStatusOutput is the output for the get_status tool.
type GetStatusOutput struct {
	DaemonRunning bool  `json:"daemon_running"`
	Enabled       bool  `json:"enabled"`
	CenterOnly    bool  `json:"center_only"`
	TargetWidth   int   `json:"target_width"`
	TargetHeight  int   `json:"target_height"`
	ShortcutCount int   `json:"shortcut_count"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// ListRunningAppsInput is the input for the list_running_apps tool.
type ListRunningAppsInput struct{}

// RunningAppInfo describes one application the daemon can see.
type RunningAppInfo struct {
	ID     string `json:"id"`
	PID    int    `json:"pid"`
	Policy string `json:"policy"`
	Hidden bool   `json:"hidden"`
	Shell  bool   `json:"shell,omitempty"`
}

// ListRunningAppsOutput is the output for the list_running_apps tool.
type ListRunningAppsOutput struct {
	Apps []RunningAppInfo `json:"apps"`
}

// ListShortcutsInput is the input for the list_shortcuts tool.
type ListShortcutsInput struct{}

// ShortcutEntry describes one hotkey binding.
type ShortcutEntry struct {
	App       string `json:"app"`
	Display   string `json:"display"`
	KeyCode   uint32 `json:"key_code"`
	Modifiers uint16 `json:"modifiers"`
}

// ListShortcutsOutput is the output for the list_shortcuts tool.
type ListShortcutsOutput struct {
	Shortcuts []ShortcutEntry `json:"shortcuts"`
}

// SetShortcutInput is the input for the set_shortcut tool.
type SetShortcutInput struct {
	App       string `json:"app" jsonschema:"required,Application identifier (WM_CLASS class, e.g. Firefox)"`
	Key       string `json:"key,omitempty" jsonschema:"Key name (X11 keysym name such as f, F5 or Return). Requires a reachable X display to resolve; pass key_code instead when none is available."`
	KeyCode   int    `json:"key_code,omitempty" jsonschema:"Raw X11 keycode. Takes precedence over key when non-zero."`
	Modifiers string `json:"modifiers" jsonschema:"required,Modifier list such as super or ctrl+alt. At least one of ctrl, alt or super is required."`
}

// SetShortcutOutput is the output for the set_shortcut tool.
type SetShortcutOutput struct {
	App     string `json:"app"`
	Display string `json:"display"`
}

// ClearShortcutInput is the input for the clear_shortcut tool.
type ClearShortcutInput struct {
	App string `json:"app" jsonschema:"required,Application identifier whose shortcut should be removed"`
}

// ClearShortcutOutput is the output for the clear_shortcut tool.
type ClearShortcutOutput struct {
	App     string `json:"app"`
	Cleared bool   `json:"cleared"`
}

// SetEnabledInput is the input for the set_enabled tool.
type SetEnabledInput struct {
	Enabled bool `json:"enabled" jsonschema:"required,true to enable single-app coordination, false to disable it"`
}

// SetEnabledOutput is the output for the set_enabled tool.
type SetEnabledOutput struct {
	Enabled bool `json:"enabled"`
}
