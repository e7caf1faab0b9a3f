package focus

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/config"
	"github.com/BSN4/focus/internal/hotkeys"
	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/platform"
)

// fakeBackend is an in-memory platform.Backend. All mutable state sits
// behind one mutex because the engine loop and the test goroutine both
// touch it.
type fakeBackend struct {
	mu sync.Mutex

	display    platform.Display
	hasDisplay bool
	apps       []platform.App
	windows    map[string][]platform.WindowID
	fullscreen map[platform.WindowID]bool

	events chan<- platform.Event

	hideFail  map[string]error
	hidden    []string
	activated []string
	resized   []platform.WindowID
	moved     []platform.WindowID

	subscribeErr error
	unsubscribed bool

	nextGrab  uint32
	grabs     map[uint32]keycombo.Combo
	ungrabbed []uint32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		display: platform.Display{
			ID:     1,
			Bounds: platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
			Usable: platform.Rect{X: 0, Y: 28, Width: 1920, Height: 1052},
		},
		hasDisplay: true,
		windows:    make(map[string][]platform.WindowID),
		fullscreen: make(map[platform.WindowID]bool),
		hideFail:   make(map[string]error),
		grabs:      make(map[uint32]keycombo.Combo),
	}
}

func (f *fakeBackend) PrimaryDisplay() (platform.Display, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.display, f.hasDisplay
}

func (f *fakeBackend) RunningApps() ([]platform.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.App(nil), f.apps...), nil
}

func (f *fakeBackend) RunningApp(id string) (platform.App, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, app := range f.apps {
		if app.ID == id {
			return app, true
		}
	}
	return platform.App{}, false
}

func (f *fakeBackend) AppWindows(app platform.App) ([]platform.WindowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.WindowID(nil), f.windows[app.ID]...), nil
}

func (f *fakeBackend) HasVisibleWindow(app platform.App) bool { return !app.Hidden }

func (f *fakeBackend) IsFullscreen(id platform.WindowID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fullscreen[id]
}

func (f *fakeBackend) WindowPosition(id platform.WindowID) (int, int, bool) { return 0, 0, true }

func (f *fakeBackend) WindowSize(id platform.WindowID) (platform.Size, bool) {
	return platform.Size{Width: 800, Height: 600}, true
}

func (f *fakeBackend) MoveWindow(id platform.WindowID, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = append(f.moved, id)
	return nil
}

func (f *fakeBackend) ResizeWindow(id platform.WindowID, size platform.Size) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resized = append(f.resized, id)
	return nil
}

func (f *fakeBackend) Hide(app platform.App) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden = append(f.hidden, app.ID)
	return f.hideFail[app.ID]
}

func (f *fakeBackend) Activate(app platform.App) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, app.ID)
	return nil
}

func (f *fakeBackend) RegisterHotkey(combo keycombo.Combo) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextGrab++
	f.grabs[f.nextGrab] = combo
	return f.nextGrab, nil
}

func (f *fakeBackend) UnregisterHotkey(id uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ungrabbed = append(f.ungrabbed, id)
	delete(f.grabs, id)
}

func (f *fakeBackend) Subscribe(ch chan<- platform.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.events = ch
	return nil
}

func (f *fakeBackend) Unsubscribe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = true
	f.events = nil
}

func (f *fakeBackend) emit(ev platform.Event) {
	f.mu.Lock()
	ch := f.events
	f.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

func (f *fakeBackend) hiddenApps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hidden...)
}

func (f *fakeBackend) activatedApps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.activated...)
}

func (f *fakeBackend) resizedWindows() []platform.WindowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.WindowID(nil), f.resized...)
}

func (f *fakeBackend) grabCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grabs)
}

func (f *fakeBackend) lastGrabID() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextGrab
}

func (f *fakeBackend) wasUnsubscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

func regularApp(id string, pid int) platform.App {
	return platform.App{PID: pid, ID: id, Policy: platform.PolicyRegular}
}

func activationOf(app platform.App) platform.ActivationEvent {
	return platform.ActivationEvent{App: app, HasVisibleWindow: true}
}

func newTestCoordinator(t *testing.T, cfg *config.Config) (*Coordinator, *fakeBackend) {
	t.Helper()
	fb := newFakeBackend()
	store := hotkeys.NewStore(filepath.Join(t.TempDir(), "shortcuts.json"), zerolog.Nop())
	reg := hotkeys.NewRegistry(fb, store, zerolog.Nop())
	c := NewCoordinator(fb, reg, cfg, zerolog.Nop())
	c.debounce = 30 * time.Millisecond
	return c, fb
}

func startCoordinator(t *testing.T, c *Coordinator) {
	t.Helper()
	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(c.Stop)
}

func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// settle waits long enough for any pending debounce to have fired.
func settle(c *Coordinator) {
	time.Sleep(4 * c.debounce)
}

func TestFilterActivation(t *testing.T) {
	base := regularApp("Firefox", 100)

	cases := []struct {
		name   string
		mutate func(*config.Config)
		event  platform.ActivationEvent
		want   dropReason
	}{
		{
			name:  "regular visible app passes",
			event: activationOf(base),
			want:  dropNone,
		},
		{
			name:   "disabled",
			mutate: func(c *config.Config) { c.Enabled = false },
			event:  activationOf(base),
			want:   dropDisabled,
		},
		{
			name:  "own process",
			event: platform.ActivationEvent{App: base, IsSelf: true, HasVisibleWindow: true},
			want:  dropSelf,
		},
		{
			name: "accessory policy",
			event: activationOf(platform.App{
				PID: 100, ID: "Dock", Policy: platform.PolicyAccessory,
			}),
			want: dropAccessory,
		},
		{
			name:   "excluded app",
			mutate: func(c *config.Config) { c.ExcludedApps = []string{"Firefox"} },
			event:  activationOf(base),
			want:   dropExcluded,
		},
		{
			name: "shell without visible window",
			event: platform.ActivationEvent{
				App: platform.App{PID: 5, ID: "Plasmashell", Policy: platform.PolicyRegular, Shell: true},
			},
			want: dropShell,
		},
		{
			name:   "configured shell app without visible window",
			mutate: func(c *config.Config) { c.ShellApps = []string{"Nautilus"} },
			event: platform.ActivationEvent{
				App: platform.App{PID: 6, ID: "Nautilus", Policy: platform.PolicyRegular},
			},
			want: dropShell,
		},
		{
			name:  "no visible window",
			event: platform.ActivationEvent{App: base},
			want:  dropNotVisible,
		},
		{
			name: "shell with visible window passes",
			event: platform.ActivationEvent{
				App:              platform.App{PID: 5, ID: "Plasmashell", Policy: platform.PolicyRegular, Shell: true},
				HasVisibleWindow: true,
			},
			want: dropNone,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tc.mutate != nil {
				tc.mutate(cfg)
			}

			if got := filterActivation(cfg, tc.event); got != tc.want {
				t.Fatalf("filterActivation = %v, want %v", got, tc.want)
			}
			// The filter has no side effects; a second pass must agree.
			if got := filterActivation(cfg, tc.event); got != tc.want {
				t.Fatalf("second evaluation = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCoordinator_ActivationHidesOthersAndTransformsActive(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	editor := regularApp("Editor", 10)
	browser := regularApp("Browser", 20)
	mail := regularApp("Mail", 30)
	mail.Hidden = true
	dock := platform.App{PID: 40, ID: "Dock", Policy: platform.PolicyAccessory}
	fb.apps = []platform.App{editor, browser, mail, dock}
	fb.windows["Browser"] = []platform.WindowID{201, 202}

	startCoordinator(t, c)
	fb.emit(activationOf(browser))

	waitUntil(t, time.Second, "hide sweep", func() bool {
		return len(fb.hiddenApps()) == 1
	})

	if got := fb.hiddenApps(); len(got) != 1 || got[0] != "Editor" {
		t.Fatalf("hidden = %v, want [Editor]", got)
	}
	if got := fb.resizedWindows(); len(got) != 1 || got[0] != 201 {
		t.Fatalf("resized = %v, want frontmost window 201", got)
	}
}

func TestCoordinator_BurstCoalescesToLastApp(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	a := regularApp("A", 1)
	b := regularApp("B", 2)
	cApp := regularApp("C", 3)
	fb.apps = []platform.App{a, b, cApp}
	fb.windows["C"] = []platform.WindowID{3001}

	startCoordinator(t, c)
	fb.emit(activationOf(a))
	time.Sleep(10 * time.Millisecond)
	fb.emit(activationOf(b))
	time.Sleep(10 * time.Millisecond)
	fb.emit(activationOf(cApp))

	settle(c)

	hidden := fb.hiddenApps()
	if len(hidden) != 2 {
		t.Fatalf("expected one sweep hiding A and B, got %v", hidden)
	}
	for _, id := range hidden {
		if id == "C" {
			t.Fatalf("activated app C was hidden: %v", hidden)
		}
	}
	if got := fb.resizedWindows(); len(got) != 1 || got[0] != 3001 {
		t.Fatalf("resized = %v, want exactly [3001]", got)
	}
}

func TestCoordinator_RepeatedActivationActsOnce(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	a := regularApp("A", 1)
	b := regularApp("B", 2)
	fb.apps = []platform.App{a, b}
	fb.windows["A"] = []platform.WindowID{11}

	startCoordinator(t, c)
	for i := 0; i < 3; i++ {
		fb.emit(activationOf(a))
		time.Sleep(5 * time.Millisecond)
	}

	settle(c)

	if got := fb.hiddenApps(); len(got) != 1 || got[0] != "B" {
		t.Fatalf("hidden = %v, want [B] exactly once", got)
	}
	if got := fb.resizedWindows(); len(got) != 1 {
		t.Fatalf("resized %d times, want 1", len(got))
	}
}

func TestCoordinator_ExcludedAppLeavesOthersVisible(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ExcludedApps = []string{"org.gnome.Evolution"}
	c, fb := newTestCoordinator(t, cfg)

	evolution := regularApp("org.gnome.Evolution", 50)
	browser := regularApp("Browser", 20)
	fb.apps = []platform.App{evolution, browser}
	fb.windows["org.gnome.Evolution"] = []platform.WindowID{500}

	startCoordinator(t, c)
	fb.emit(activationOf(evolution))

	settle(c)

	if got := fb.hiddenApps(); len(got) != 0 {
		t.Fatalf("excluded app activation hid %v, want none", got)
	}
	if got := fb.resizedWindows(); len(got) != 0 {
		t.Fatalf("excluded app activation resized %v, want none", got)
	}
}

func TestCoordinator_DisabledDropsActivations(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Enabled = false
	c, fb := newTestCoordinator(t, cfg)

	a := regularApp("A", 1)
	b := regularApp("B", 2)
	fb.apps = []platform.App{a, b}

	startCoordinator(t, c)
	fb.emit(activationOf(a))

	settle(c)

	if got := fb.hiddenApps(); len(got) != 0 {
		t.Fatalf("disabled coordinator hid %v", got)
	}
}

func TestCoordinator_DisableAfterPendingStillFires(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)
	c.debounce = 80 * time.Millisecond

	a := regularApp("A", 1)
	b := regularApp("B", 2)
	fb.apps = []platform.App{a, b}
	fb.windows["A"] = []platform.WindowID{11}

	startCoordinator(t, c)
	fb.emit(activationOf(a))

	// Disabling while the timer is pending must not cancel it; the event
	// was admitted under the old config.
	disabled := config.DefaultConfig()
	disabled.Enabled = false
	c.UpdateConfig(disabled)

	waitUntil(t, time.Second, "pending activation to fire", func() bool {
		return len(fb.hiddenApps()) == 1
	})
}

func TestCoordinator_DoesNotHideItself(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)
	c.pid = 999

	a := regularApp("A", 1)
	self := regularApp("Focus", 999)
	fb.apps = []platform.App{a, self}
	fb.windows["A"] = []platform.WindowID{11}

	startCoordinator(t, c)
	fb.emit(activationOf(a))

	settle(c)

	for _, id := range fb.hiddenApps() {
		if id == "Focus" {
			t.Fatal("coordinator hid its own process")
		}
	}
}

func TestCoordinator_HideFailureContinuesSweep(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	a := regularApp("A", 1)
	b := regularApp("B", 2)
	cApp := regularApp("C", 3)
	fb.apps = []platform.App{a, b, cApp}
	fb.windows["C"] = []platform.WindowID{31}
	fb.hideFail["A"] = errors.New("window gone")

	startCoordinator(t, c)
	fb.emit(activationOf(cApp))

	settle(c)

	if got := fb.hiddenApps(); len(got) != 2 {
		t.Fatalf("hide attempts = %v, want both A and B", got)
	}
	if got := fb.resizedWindows(); len(got) != 1 {
		t.Fatalf("resize skipped after hide failure: %v", got)
	}
}

func TestCoordinator_HotkeyActivatesRunningApp(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	firefox := regularApp("Firefox", 10)
	fb.apps = []platform.App{firefox}
	fb.windows["Firefox"] = []platform.WindowID{101}

	var launched [][]string
	var mu sync.Mutex
	c.launch = func(argv []string) {
		mu.Lock()
		launched = append(launched, argv)
		mu.Unlock()
	}

	startCoordinator(t, c)
	if err := c.SetShortcut("Firefox", keycombo.Combo{KeyCode: 38, Modifiers: keycombo.ModSuper}); err != nil {
		t.Fatalf("set shortcut: %v", err)
	}

	fb.emit(platform.HotkeyEvent{RegistrationID: fb.lastGrabID()})

	waitUntil(t, time.Second, "activation", func() bool {
		return len(fb.activatedApps()) == 1
	})

	if got := fb.activatedApps(); got[0] != "Firefox" {
		t.Fatalf("activated = %v, want [Firefox]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(launched) != 0 {
		t.Fatalf("running app was launched again: %v", launched)
	}
}

func TestCoordinator_HotkeyLaunchesConfiguredCommand(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LaunchCommands = map[string]string{"Mail": "thunderbird --compose"}
	c, fb := newTestCoordinator(t, cfg)

	var launched [][]string
	var mu sync.Mutex
	c.launch = func(argv []string) {
		mu.Lock()
		launched = append(launched, argv)
		mu.Unlock()
	}

	startCoordinator(t, c)
	if err := c.SetShortcut("Mail", keycombo.Combo{KeyCode: 58, Modifiers: keycombo.ModSuper}); err != nil {
		t.Fatalf("set shortcut: %v", err)
	}

	fb.emit(platform.HotkeyEvent{RegistrationID: fb.lastGrabID()})

	waitUntil(t, time.Second, "launch", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(launched) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	want := []string{"thunderbird", "--compose"}
	if len(launched[0]) != len(want) || launched[0][0] != want[0] || launched[0][1] != want[1] {
		t.Fatalf("launched argv = %v, want %v", launched[0], want)
	}
}

func TestCoordinator_HotkeyFallsBackToPathLookup(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	var launched [][]string
	var mu sync.Mutex
	c.launch = func(argv []string) {
		mu.Lock()
		launched = append(launched, argv)
		mu.Unlock()
	}

	startCoordinator(t, c)
	// "Sh" lowercases to "sh", which is always on PATH.
	if err := c.SetShortcut("Sh", keycombo.Combo{KeyCode: 39, Modifiers: keycombo.ModSuper}); err != nil {
		t.Fatalf("set shortcut: %v", err)
	}

	fb.emit(platform.HotkeyEvent{RegistrationID: fb.lastGrabID()})

	waitUntil(t, time.Second, "fallback launch", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(launched) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(launched[0]) != 1 || !strings.HasSuffix(launched[0][0], "sh") {
		t.Fatalf("fallback argv = %v, want a path to sh", launched[0])
	}
}

func TestCoordinator_StaleRegistrationIgnored(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	fb.apps = []platform.App{regularApp("A", 1)}

	startCoordinator(t, c)
	fb.emit(platform.HotkeyEvent{RegistrationID: 999})

	settle(c)

	if got := fb.activatedApps(); len(got) != 0 {
		t.Fatalf("stale registration activated %v", got)
	}
}

func TestCoordinator_StopUnregistersAndDetaches(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)

	startCoordinator(t, c)
	if err := c.SetShortcut("Firefox", keycombo.Combo{KeyCode: 38, Modifiers: keycombo.ModSuper}); err != nil {
		t.Fatalf("set shortcut: %v", err)
	}

	c.Stop()
	c.Stop() // second call must be a no-op

	if !fb.wasUnsubscribed() {
		t.Fatal("event subscription not removed on stop")
	}
	if got := fb.grabCount(); got != 0 {
		t.Fatalf("%d grabs still active after stop", got)
	}
	if _, err := c.Status(); err == nil {
		t.Fatal("expected error from Status after stop")
	}
}

func TestCoordinator_StartSubscribeError(t *testing.T) {
	cfg := config.DefaultConfig()
	c, fb := newTestCoordinator(t, cfg)
	fb.subscribeErr = errors.New("display gone")

	if err := c.Start(); err == nil {
		t.Fatal("expected start to fail when subscription fails")
	}
}

func TestCoordinator_UpdateConfigSwapsSnapshot(t *testing.T) {
	cfg := config.DefaultConfig()
	c, _ := newTestCoordinator(t, cfg)

	startCoordinator(t, c)

	st, err := c.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.CenterOnly {
		t.Fatal("unexpected center_only before update")
	}

	next := config.DefaultConfig()
	next.CenterOnly = true
	next.TargetSize = config.Size{Width: 1600, Height: 1000}
	c.UpdateConfig(next)

	waitUntil(t, time.Second, "config swap", func() bool {
		st, err := c.Status()
		return err == nil && st.CenterOnly
	})

	st, err = c.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.TargetSize != (config.Size{Width: 1600, Height: 1000}) {
		t.Fatalf("target size = %+v after update", st.TargetSize)
	}
}
