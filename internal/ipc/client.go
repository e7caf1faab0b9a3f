package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// GetConfig retrieves the daemon's current configuration.
func (c *Client) GetConfig() (*ConfigData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetConfig})
	if err != nil {
		return nil, err
	}

	var data ConfigData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse config data: %w", err)
	}

	return &data, nil
}

// SetEnabled turns coordination on or off.
func (c *Client) SetEnabled(enabled bool) error {
	payload, err := json.Marshal(SetEnabledPayload{Enabled: enabled})
	if err != nil {
		return fmt.Errorf("failed to marshal set-enabled payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandSetEnabled, Payload: payload})
	return err
}

// Reload tells the daemon to re-read its config file.
func (c *Client) Reload() error {
	_, err := c.sendRequest(&Request{Command: CommandReload})
	return err
}

// ListApps retrieves the running applications the daemon can see.
func (c *Client) ListApps() (*AppsData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListApps})
	if err != nil {
		return nil, err
	}

	var data AppsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse apps data: %w", err)
	}

	return &data, nil
}

// ListShortcuts retrieves the current hotkey bindings.
func (c *Client) ListShortcuts() (*ShortcutsData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandListShortcuts})
	if err != nil {
		return nil, err
	}

	var data ShortcutsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse shortcuts data: %w", err)
	}

	return &data, nil
}

// SetShortcut binds combo to an app. A zero combo removes the binding.
func (c *Client) SetShortcut(app string, combo keycombo.Combo) error {
	payload, err := json.Marshal(SetShortcutPayload{
		App:       app,
		KeyCode:   combo.KeyCode,
		Modifiers: combo.Modifiers,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal set-shortcut payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandSetShortcut, Payload: payload})
	return err
}

// ClearShortcut removes the binding for an app.
func (c *Client) ClearShortcut(app string) error {
	payload, err := json.Marshal(ClearShortcutPayload{App: app})
	if err != nil {
		return fmt.Errorf("failed to marshal clear-shortcut payload: %w", err)
	}

	_, err = c.sendRequest(&Request{Command: CommandClearShortcut, Payload: payload})
	return err
}

// ClearShortcuts removes every binding.
func (c *Client) ClearShortcuts() error {
	_, err := c.sendRequest(&Request{Command: CommandClearShortcuts})
	return err
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
