package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/x11"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetStatusInput) (*mcpsdk.CallToolResult, GetStatusOutput, error) {
	status, err := s.client.GetStatus()
	if err != nil {
		return nil, GetStatusOutput{}, err
	}

	return nil, GetStatusOutput{
		DaemonRunning: status.DaemonRunning,
		Enabled:       status.Enabled,
		CenterOnly:    status.CenterOnly,
		TargetWidth:   status.TargetWidth,
		TargetHeight:  status.TargetHeight,
		ShortcutCount: status.ShortcutCount,
		UptimeSeconds: status.UptimeSeconds,
	}, nil
}

func (s *Server) handleListRunningApps(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListRunningAppsInput) (*mcpsdk.CallToolResult, ListRunningAppsOutput, error) {
	data, err := s.client.ListApps()
	if err != nil {
		return nil, ListRunningAppsOutput{}, err
	}

	apps := make([]RunningAppInfo, len(data.Apps))
	for i, app := range data.Apps {
		apps[i] = RunningAppInfo{
			ID:     app.ID,
			PID:    app.PID,
			Policy: app.Policy,
			Hidden: app.Hidden,
			Shell:  app.Shell,
		}
	}

	return nil, ListRunningAppsOutput{Apps: apps}, nil
}

func (s *Server) handleListShortcuts(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListShortcutsInput) (*mcpsdk.CallToolResult, ListShortcutsOutput, error) {
	data, err := s.client.ListShortcuts()
	if err != nil {
		return nil, ListShortcutsOutput{}, err
	}

	shortcuts := make([]ShortcutEntry, len(data.Shortcuts))
	for i, sc := range data.Shortcuts {
		shortcuts[i] = ShortcutEntry{
			App:       sc.App,
			Display:   sc.Display,
			KeyCode:   sc.KeyCode,
			Modifiers: sc.Modifiers,
		}
	}

	return nil, ListShortcutsOutput{Shortcuts: shortcuts}, nil
}

func (s *Server) handleSetShortcut(_ context.Context, _ *mcpsdk.CallToolRequest, args SetShortcutInput) (*mcpsdk.CallToolResult, SetShortcutOutput, error) {
	if args.App == "" {
		return nil, SetShortcutOutput{}, fmt.Errorf("app is required")
	}

	mods, err := keycombo.ParseModifiers(args.Modifiers)
	if err != nil {
		return nil, SetShortcutOutput{}, err
	}

	keyCode, err := resolveKeyCode(args.Key, args.KeyCode)
	if err != nil {
		return nil, SetShortcutOutput{}, err
	}

	combo := keycombo.Combo{KeyCode: keyCode, Modifiers: mods}
	if err := s.client.SetShortcut(args.App, combo); err != nil {
		return nil, SetShortcutOutput{}, err
	}

	s.log.Info().Str("app", args.App).Stringer("combo", combo).Msg("shortcut set")
	return nil, SetShortcutOutput{App: args.App, Display: combo.String()}, nil
}

func (s *Server) handleClearShortcut(_ context.Context, _ *mcpsdk.CallToolRequest, args ClearShortcutInput) (*mcpsdk.CallToolResult, ClearShortcutOutput, error) {
	if args.App == "" {
		return nil, ClearShortcutOutput{}, fmt.Errorf("app is required")
	}

	if err := s.client.ClearShortcut(args.App); err != nil {
		return nil, ClearShortcutOutput{}, err
	}

	return nil, ClearShortcutOutput{App: args.App, Cleared: true}, nil
}

func (s *Server) handleSetEnabled(_ context.Context, _ *mcpsdk.CallToolRequest, args SetEnabledInput) (*mcpsdk.CallToolResult, SetEnabledOutput, error) {
	if err := s.client.SetEnabled(args.Enabled); err != nil {
		return nil, SetEnabledOutput{}, err
	}

	return nil, SetEnabledOutput{Enabled: args.Enabled}, nil
}

// resolveKeyCode turns the tool's key spec into an X11 keycode. Raw
// keycodes pass through; key names need a live X display to resolve.
func resolveKeyCode(key string, keyCode int) (uint32, error) {
	if keyCode > 0 {
		return uint32(keyCode), nil
	}
	if key == "" {
		return 0, fmt.Errorf("either key or key_code is required")
	}

	conn, err := x11.NewConnection()
	if err != nil {
		return 0, fmt.Errorf("cannot resolve key name %q without an X display: %w", key, err)
	}
	defer conn.Close()

	code := conn.KeycodeForName(key)
	if code == 0 {
		return 0, fmt.Errorf("unknown key name %q", key)
	}
	return uint32(code), nil
}
