package geometry

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/platform"
)

// fakeBackend implements platform.Backend for transform tests. Only the
// geometry-facing methods do anything; the rest satisfy the interface.
type fakeBackend struct {
	display    platform.Display
	hasDisplay bool
	windows    []platform.WindowID
	fullscreen bool
	size       platform.Size
	sizeOK     bool
	resizeErr  error

	calls []string
	moved struct{ x, y int }
	sized platform.Size
}

func (f *fakeBackend) PrimaryDisplay() (platform.Display, bool) {
	return f.display, f.hasDisplay
}

func (f *fakeBackend) AppWindows(platform.App) ([]platform.WindowID, error) {
	return f.windows, nil
}

func (f *fakeBackend) IsFullscreen(platform.WindowID) bool { return f.fullscreen }

func (f *fakeBackend) WindowSize(platform.WindowID) (platform.Size, bool) {
	return f.size, f.sizeOK
}

func (f *fakeBackend) ResizeWindow(_ platform.WindowID, size platform.Size) error {
	f.calls = append(f.calls, "resize")
	f.sized = size
	return f.resizeErr
}

func (f *fakeBackend) MoveWindow(_ platform.WindowID, x, y int) error {
	f.calls = append(f.calls, "move")
	f.moved.x, f.moved.y = x, y
	return nil
}

func (f *fakeBackend) RunningApps() ([]platform.App, error)          { return nil, nil }
func (f *fakeBackend) RunningApp(string) (platform.App, bool)        { return platform.App{}, false }
func (f *fakeBackend) HasVisibleWindow(platform.App) bool            { return true }
func (f *fakeBackend) WindowPosition(platform.WindowID) (int, int, bool) {
	return 0, 0, false
}
func (f *fakeBackend) Hide(platform.App) error                            { return nil }
func (f *fakeBackend) Activate(platform.App) error                        { return nil }
func (f *fakeBackend) RegisterHotkey(keycombo.Combo) (uint32, error)      { return 0, nil }
func (f *fakeBackend) UnregisterHotkey(uint32)                            {}
func (f *fakeBackend) Subscribe(chan<- platform.Event) error              { return nil }
func (f *fakeBackend) Unsubscribe()                                       {}

func testDisplay() platform.Display {
	return platform.Display{
		ID:     0,
		Name:   "eDP-1",
		Bounds: platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
		// Top panel takes 28px.
		Usable: platform.Rect{X: 0, Y: 28, Width: 1920, Height: 1052},
	}
}

func newTestBackend() *fakeBackend {
	return &fakeBackend{
		display:    testDisplay(),
		hasDisplay: true,
		windows:    []platform.WindowID{42},
	}
}

func TestFitWithin_ClampsToArea(t *testing.T) {
	area := platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1052}

	got := FitWithin(platform.Size{Width: 1280, Height: 800}, area)
	if got != (platform.Size{Width: 1280, Height: 800}) {
		t.Fatalf("size within area changed: %+v", got)
	}

	got = FitWithin(platform.Size{Width: 2560, Height: 1600}, area)
	if got != (platform.Size{Width: 1920, Height: 1052}) {
		t.Fatalf("oversized target not clamped: %+v", got)
	}

	got = FitWithin(platform.Size{Width: 2560, Height: 600}, area)
	if got != (platform.Size{Width: 1920, Height: 600}) {
		t.Fatalf("per-axis clamp wrong: %+v", got)
	}
}

func TestCenterIn_AddsWorkAreaOffset(t *testing.T) {
	area := platform.Rect{X: 0, Y: 28, Width: 1920, Height: 1052}

	x, y := CenterIn(platform.Size{Width: 1280, Height: 800}, area)
	if x != 320 {
		t.Errorf("x = %d, want 320", x)
	}
	// (1052-800)/2 = 126, plus the 28px reserved strip.
	if y != 154 {
		t.Errorf("y = %d, want 154", y)
	}
}

func TestCenterIn_NoReservedStrip(t *testing.T) {
	area := platform.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	x, y := CenterIn(platform.Size{Width: 1920, Height: 1080}, area)
	if x != 0 || y != 0 {
		t.Fatalf("full-area window should sit at origin, got (%d,%d)", x, y)
	}
}

func TestResizeAndCenter_AppliesSizeBeforePosition(t *testing.T) {
	b := newTestBackend()
	tr := NewTransformer(b, zerolog.Nop())

	tr.ResizeAndCenter(platform.App{ID: "Firefox"}, false, platform.Size{Width: 1280, Height: 800})

	if len(b.calls) != 2 || b.calls[0] != "resize" || b.calls[1] != "move" {
		t.Fatalf("expected resize then move, got %v", b.calls)
	}
	if b.sized != (platform.Size{Width: 1280, Height: 800}) {
		t.Fatalf("applied size = %+v", b.sized)
	}
	if b.moved.x != 320 || b.moved.y != 154 {
		t.Fatalf("applied position = (%d,%d)", b.moved.x, b.moved.y)
	}
}

func TestResizeAndCenter_ClampsOversizedTarget(t *testing.T) {
	b := newTestBackend()
	tr := NewTransformer(b, zerolog.Nop())

	tr.ResizeAndCenter(platform.App{ID: "Gimp"}, false, platform.Size{Width: 4000, Height: 4000})

	if b.sized != (platform.Size{Width: 1920, Height: 1052}) {
		t.Fatalf("applied size = %+v, want work area", b.sized)
	}
	if b.moved.x != 0 || b.moved.y != 28 {
		t.Fatalf("applied position = (%d,%d), want work area origin", b.moved.x, b.moved.y)
	}
}

func TestResizeAndCenter_CenterOnlyKeepsCurrentSize(t *testing.T) {
	b := newTestBackend()
	b.size = platform.Size{Width: 900, Height: 600}
	b.sizeOK = true
	tr := NewTransformer(b, zerolog.Nop())

	tr.ResizeAndCenter(platform.App{ID: "Alacritty"}, true, platform.Size{Width: 1280, Height: 800})

	if b.sized != (platform.Size{Width: 900, Height: 600}) {
		t.Fatalf("center-only changed size: %+v", b.sized)
	}
	if b.moved.x != 510 || b.moved.y != 254 {
		t.Fatalf("applied position = (%d,%d)", b.moved.x, b.moved.y)
	}
}

func TestResizeAndCenter_CenterOnlyFallsBackToTarget(t *testing.T) {
	b := newTestBackend()
	b.sizeOK = false
	tr := NewTransformer(b, zerolog.Nop())

	tr.ResizeAndCenter(platform.App{ID: "Alacritty"}, true, platform.Size{Width: 1280, Height: 800})

	if b.sized != (platform.Size{Width: 1280, Height: 800}) {
		t.Fatalf("fallback size = %+v, want target", b.sized)
	}
}

func TestResizeAndCenter_FullscreenLeavesGeometry(t *testing.T) {
	b := newTestBackend()
	b.fullscreen = true
	tr := NewTransformer(b, zerolog.Nop())

	tr.ResizeAndCenter(platform.App{ID: "mpv"}, false, platform.Size{Width: 1280, Height: 800})

	if len(b.calls) != 0 {
		t.Fatalf("expected no geometry calls, got %v", b.calls)
	}
}

func TestResizeAndCenter_NoDisplayNoOp(t *testing.T) {
	b := newTestBackend()
	b.hasDisplay = false
	tr := NewTransformer(b, zerolog.Nop())

	tr.ResizeAndCenter(platform.App{ID: "Firefox"}, false, platform.Size{Width: 1280, Height: 800})

	if len(b.calls) != 0 {
		t.Fatalf("expected no geometry calls, got %v", b.calls)
	}
}

func TestResizeAndCenter_MoveStillAppliedAfterResizeFailure(t *testing.T) {
	b := newTestBackend()
	b.resizeErr = errors.New("window gone")
	tr := NewTransformer(b, zerolog.Nop())

	tr.ResizeAndCenter(platform.App{ID: "Firefox"}, false, platform.Size{Width: 1280, Height: 800})

	if len(b.calls) != 2 || b.calls[1] != "move" {
		t.Fatalf("expected move after failed resize, got %v", b.calls)
	}
}
