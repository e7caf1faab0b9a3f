package focus

import (
	"errors"

	"github.com/BSN4/focus/internal/config"
	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/platform"
)

var errNotRunning = errors.New("engine is not running")

// callWait runs fn on the engine loop and blocks until it has run. It
// returns errNotRunning when the loop has exited before fn could run.
func (c *Coordinator) callWait(fn func()) error {
	ran := make(chan struct{})
	select {
	case c.calls <- func() { fn(); close(ran) }:
	case <-c.done:
		return errNotRunning
	}
	select {
	case <-ran:
		return nil
	case <-c.done:
		// The loop may have run fn just before exiting.
		select {
		case <-ran:
			return nil
		default:
			return errNotRunning
		}
	}
}

// UpdateConfig hands the engine a new config snapshot. All three reload
// paths (SIGHUP, IPC RELOAD, the file watcher) converge here. Does not
// block on the engine loop.
func (c *Coordinator) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	select {
	case c.calls <- func() {
		c.cfg = cfg
		c.log.Info().Bool("enabled", cfg.Enabled).Msg("configuration updated")
	}:
	case <-c.done:
	}
}

// Status is a point-in-time view of the engine for status queries.
type Status struct {
	Enabled    bool
	CenterOnly bool
	TargetSize config.Size
	Shortcuts  int
}

// Status reports the engine's current state.
func (c *Coordinator) Status() (Status, error) {
	var st Status
	err := c.callWait(func() {
		st = Status{
			Enabled:    c.cfg.Enabled,
			CenterOnly: c.cfg.CenterOnly,
			TargetSize: c.cfg.TargetSize,
			Shortcuts:  len(c.registry.Shortcuts()),
		}
	})
	return st, err
}

// Config returns a copy of the engine's config snapshot. The caller must
// treat nested slices and maps as read-only.
func (c *Coordinator) Config() (*config.Config, error) {
	var snap config.Config
	if err := c.callWait(func() { snap = *c.cfg }); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RunningApps lists running apps through the engine loop so external
// queries serialize with event handling.
func (c *Coordinator) RunningApps() ([]platform.App, error) {
	var apps []platform.App
	var err error
	if cerr := c.callWait(func() { apps, err = c.backend.RunningApps() }); cerr != nil {
		return nil, cerr
	}
	return apps, err
}

// SetShortcut binds combo to appID. An empty combo removes the binding.
func (c *Coordinator) SetShortcut(appID string, combo keycombo.Combo) error {
	var err error
	if cerr := c.callWait(func() { err = c.registry.SetShortcut(appID, combo) }); cerr != nil {
		return cerr
	}
	return err
}

// ClearShortcut removes the binding for appID.
func (c *Coordinator) ClearShortcut(appID string) error {
	var err error
	if cerr := c.callWait(func() { err = c.registry.ClearShortcut(appID) }); cerr != nil {
		return cerr
	}
	return err
}

// ClearShortcuts removes every binding.
func (c *Coordinator) ClearShortcuts() error {
	var err error
	if cerr := c.callWait(func() { err = c.registry.ClearAll() }); cerr != nil {
		return cerr
	}
	return err
}

// Shortcuts returns the current binding table.
func (c *Coordinator) Shortcuts() (map[string]keycombo.Combo, error) {
	var m map[string]keycombo.Combo
	if err := c.callWait(func() { m = c.registry.Shortcuts() }); err != nil {
		return nil, err
	}
	return m, nil
}
