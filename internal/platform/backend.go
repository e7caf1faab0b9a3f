package platform

import "github.com/BSN4/focus/internal/keycombo"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Size is a window size in pixels.
type Size struct {
	Width  int
	Height int
}

// Display describes a physical display and its usable work area. Usable is
// Bounds minus space reserved by panels and docks; its origin carries the
// reserved top strip offset.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// ActivationPolicy classifies how an application participates in activation.
type ActivationPolicy int

const (
	// PolicyRegular marks ordinary applications with normal windows.
	PolicyRegular ActivationPolicy = iota
	// PolicyAccessory marks applications whose windows are all auxiliary
	// surfaces (docks, notifications, splash screens).
	PolicyAccessory
)

func (p ActivationPolicy) String() string {
	switch p {
	case PolicyRegular:
		return "regular"
	case PolicyAccessory:
		return "accessory"
	default:
		return "unknown"
	}
}

// App describes a running application as seen by the window system.
type App struct {
	// PID is the process identity used to tell apps apart. Zero when the
	// window system does not report one.
	PID int
	// ID is the application identifier (WM_CLASS class), matched exactly.
	ID string
	// Policy is the app's activation policy derived from its window types.
	Policy ActivationPolicy
	// Hidden reports whether every window of the app is hidden.
	Hidden bool
	// Shell marks the desktop shell (the app owning the desktop window).
	Shell bool
}

// SameApp reports whether two apps are the same by process identity,
// falling back to the identifier when no PID is available.
func SameApp(a, b App) bool {
	if a.PID != 0 && b.PID != 0 {
		return a.PID == b.PID
	}
	return a.ID != "" && a.ID == b.ID
}

// Event is a window-system event delivered to the subscriber channel.
type Event interface {
	event()
}

// ActivationEvent reports that an application came to the foreground.
type ActivationEvent struct {
	App App
	// IsSelf is true when the activated app is this process.
	IsSelf bool
	// HasVisibleWindow reports whether the app had at least one visible
	// regular window at event time.
	HasVisibleWindow bool
}

// HotkeyEvent reports a press of a registered global hotkey.
type HotkeyEvent struct {
	RegistrationID uint32
}

func (ActivationEvent) event() {}
func (HotkeyEvent) event()     {}

// Backend abstracts window-system operations across platforms. All mutating
// calls are best-effort: failures are reported once and never retried.
type Backend interface {
	// PrimaryDisplay returns the primary display, or ok=false when no
	// display is available.
	PrimaryDisplay() (Display, bool)

	// RunningApps enumerates applications currently known to the window
	// system.
	RunningApps() ([]App, error)
	// RunningApp looks up a running application by identifier.
	RunningApp(id string) (App, bool)

	// AppWindows lists the app's windows, frontmost first.
	AppWindows(app App) ([]WindowID, error)
	// HasVisibleWindow reports whether the app has at least one visible
	// regular window. Failures count as false.
	HasVisibleWindow(app App) bool
	// IsFullscreen reports whether the window is fullscreen. Failures
	// count as false.
	IsFullscreen(id WindowID) bool

	// WindowPosition reads a window's top-left corner in screen
	// coordinates. ok=false when the read fails.
	WindowPosition(id WindowID) (x, y int, ok bool)
	// WindowSize reads a window's size. ok=false when the read fails.
	WindowSize(id WindowID) (Size, bool)
	// MoveWindow repositions a window.
	MoveWindow(id WindowID, x, y int) error
	// ResizeWindow resizes a window.
	ResizeWindow(id WindowID, size Size) error

	// Hide hides all windows of the app.
	Hide(app App) error
	// Activate brings the app's frontmost window to the foreground.
	Activate(app App) error

	// RegisterHotkey registers a global hotkey and returns an opaque
	// registration ID. IDs are never reused within a process.
	RegisterHotkey(combo keycombo.Combo) (uint32, error)
	// UnregisterHotkey releases a registration. Unknown IDs are ignored.
	UnregisterHotkey(id uint32)

	// Subscribe starts delivering events to ch. Posting never blocks;
	// events are dropped when ch is full.
	Subscribe(ch chan<- Event) error
	// Unsubscribe stops event delivery. Idempotent.
	Unsubscribe()
}
