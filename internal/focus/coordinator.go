// Package focus implements the activation coordinator: the daemon's engine
// loop that reacts to app activations by hiding every other app and
// resizing/centering the activated app's window, and that dispatches global
// hotkey presses to their bound apps.
package focus

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/config"
	"github.com/BSN4/focus/internal/geometry"
	"github.com/BSN4/focus/internal/hotkeys"
	"github.com/BSN4/focus/internal/platform"
)

// debounceDelay is how long an activation must stay current before the
// coordinator acts on it. Rapid app switching coalesces into one action for
// the last app. Fixed; not part of the config surface.
const debounceDelay = 100 * time.Millisecond

// eventBuffer bounds the channel carrying window-system events into the
// engine loop. The backend drops events when it is full.
const eventBuffer = 64

// dropReason says why an activation event was not acted on.
type dropReason int

const (
	dropNone dropReason = iota
	dropDisabled
	dropSelf
	dropAccessory
	dropExcluded
	dropShell
	dropNotVisible
)

func (r dropReason) String() string {
	switch r {
	case dropNone:
		return "none"
	case dropDisabled:
		return "coordination disabled"
	case dropSelf:
		return "own process"
	case dropAccessory:
		return "not a regular app"
	case dropExcluded:
		return "excluded app"
	case dropShell:
		return "desktop shell without visible windows"
	case dropNotVisible:
		return "no visible window"
	}
	return "unknown"
}

// filterActivation decides whether an activation should be acted on. Filters
// run in a fixed order and the first match wins. Pure function of its inputs.
func filterActivation(cfg *config.Config, ev platform.ActivationEvent) dropReason {
	switch {
	case !cfg.Enabled:
		return dropDisabled
	case ev.IsSelf:
		return dropSelf
	case ev.App.Policy != platform.PolicyRegular:
		return dropAccessory
	case cfg.IsExcluded(ev.App.ID):
		return dropExcluded
	case (ev.App.Shell || cfg.IsShellApp(ev.App.ID)) && !ev.HasVisibleWindow:
		return dropShell
	case !ev.HasVisibleWindow:
		return dropNotVisible
	}
	return dropNone
}

// Coordinator is the daemon engine. A single goroutine (the run loop) owns
// all mutable state: the config snapshot, the pending activation, and the
// hotkey registry. External callers reach that state only through the calls
// channel.
type Coordinator struct {
	backend  platform.Backend
	registry *hotkeys.Registry
	geo      *geometry.Transformer
	log      zerolog.Logger
	pid      int

	events chan platform.Event
	calls  chan func()
	quit   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	// launch starts an external process. Swapped out in tests.
	launch func(argv []string)

	// debounce is debounceDelay except in tests.
	debounce time.Duration

	// Loop-owned state. Only the run goroutine touches these fields.
	// pending is meaningful only while timerC is non-nil.
	cfg     *config.Config
	pending platform.App
	timerC  <-chan time.Time
}

// NewCoordinator wires the engine together. The registry becomes loop-owned
// once Start is called.
func NewCoordinator(backend platform.Backend, registry *hotkeys.Registry, cfg *config.Config, log zerolog.Logger) *Coordinator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := &Coordinator{
		backend:  backend,
		registry: registry,
		geo:      geometry.NewTransformer(backend, log),
		log:      log.With().Str("component", "engine").Logger(),
		pid:      os.Getpid(),
		events:   make(chan platform.Event, eventBuffer),
		calls:    make(chan func(), 16),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		debounce: debounceDelay,
		cfg:      cfg,
	}
	c.launch = c.startProcess
	return c
}

// Start subscribes to window-system events, re-registers persisted shortcuts
// and starts the engine loop.
func (c *Coordinator) Start() error {
	var err error
	c.startOnce.Do(func() {
		if serr := c.backend.Subscribe(c.events); serr != nil {
			err = fmt.Errorf("failed to subscribe to window events: %w", serr)
			return
		}
		c.registry.Restore()
		go c.run()
	})
	return err
}

// Stop shuts the engine down: the pending activation is discarded, all
// hotkeys are unregistered and the event subscription is removed. Safe to
// call more than once; it blocks until the loop has exited.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.quit) })
	<-c.done
}

func (c *Coordinator) run() {
	defer close(c.done)
	c.log.Info().Msg("engine started")

	for {
		select {
		case ev := <-c.events:
			c.handleEvent(ev)
		case fn := <-c.calls:
			fn()
		case <-c.timerC:
			c.timerC = nil
			c.firePending()
		case <-c.quit:
			c.timerC = nil
			c.registry.UnregisterAll()
			c.backend.Unsubscribe()
			c.log.Info().Msg("engine stopped")
			return
		}
	}
}

func (c *Coordinator) handleEvent(ev platform.Event) {
	switch ev := ev.(type) {
	case platform.ActivationEvent:
		c.handleActivation(ev)
	case platform.HotkeyEvent:
		c.handleHotkey(ev)
	}
}

func (c *Coordinator) handleActivation(ev platform.ActivationEvent) {
	if reason := filterActivation(c.cfg, ev); reason != dropNone {
		c.log.Debug().Str("app", ev.App.ID).Stringer("reason", reason).Msg("activation ignored")
		return
	}

	// Last writer wins: re-arming replaces any pending activation, so a
	// burst of switches acts once, on the final app.
	c.pending = ev.App
	c.timerC = time.After(c.debounce)
	c.log.Debug().Str("app", ev.App.ID).Msg("activation pending")
}

// firePending acts on the debounced activation. The enabled flag is not
// re-checked here; the decision was made when the event was admitted.
func (c *Coordinator) firePending() {
	app := c.pending
	c.log.Info().Str("app", app.ID).Int("pid", app.PID).Msg("focusing app")

	c.hideOthers(app)
	c.geo.ResizeAndCenter(app, c.cfg.CenterOnly, platform.Size{
		Width:  c.cfg.TargetSize.Width,
		Height: c.cfg.TargetSize.Height,
	})
}

// hideOthers minimizes every running regular app except the activated one.
// Individual failures are logged and skipped; the sweep always finishes.
func (c *Coordinator) hideOthers(active platform.App) {
	apps, err := c.backend.RunningApps()
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to enumerate running apps")
		return
	}

	for _, app := range apps {
		if platform.SameApp(app, active) {
			continue
		}
		if app.Hidden || app.Policy != platform.PolicyRegular {
			continue
		}
		if app.PID != 0 && app.PID == c.pid {
			continue
		}
		if err := c.backend.Hide(app); err != nil {
			c.log.Warn().Err(err).Str("app", app.ID).Msg("failed to hide app")
		}
	}
}

// handleHotkey runs immediately, never through the debounce. Foregrounding a
// running app makes the window system emit a normal activation event, which
// then flows through the activation path like any other.
func (c *Coordinator) handleHotkey(ev platform.HotkeyEvent) {
	appID, ok := c.registry.Resolve(ev.RegistrationID)
	if !ok {
		c.log.Debug().Uint32("registration", ev.RegistrationID).Msg("press for unknown registration, ignoring")
		return
	}

	if app, ok := c.backend.RunningApp(appID); ok {
		if err := c.backend.Activate(app); err != nil {
			c.log.Warn().Err(err).Str("app", appID).Msg("failed to activate app")
		}
		return
	}
	c.launchApp(appID)
}

// launchApp starts the app bound to a hotkey when it is not running. The
// command comes from launch_commands, falling back to a PATH lookup on the
// lowercased identifier.
func (c *Coordinator) launchApp(appID string) {
	command, ok := c.cfg.LaunchCommand(appID)
	if !ok {
		path, err := exec.LookPath(strings.ToLower(appID))
		if err != nil {
			c.log.Warn().Str("app", appID).Msg("no launch command configured and no matching binary in PATH")
			return
		}
		command = path
	}

	argv := strings.Fields(command)
	if len(argv) == 0 {
		c.log.Warn().Str("app", appID).Msg("launch command is empty")
		return
	}

	c.log.Info().Str("app", appID).Str("command", command).Msg("launching app")
	c.launch(argv)
}

func (c *Coordinator) startProcess(argv []string) {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		c.log.Warn().Err(err).Str("command", argv[0]).Msg("failed to launch app")
		return
	}
	// Do not wait for the app; reap it in the background when it exits.
	go func() { _ = cmd.Wait() }()
}
