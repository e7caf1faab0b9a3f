//go:build linux

package platform

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/keycombo"
	"github.com/BSN4/focus/internal/x11"
)

// LinuxBackend implements Backend on top of an X11 connection. Window and
// application state is re-queried on every call; nothing is cached across
// events.
type LinuxBackend struct {
	conn *x11.Connection
	log  zerolog.Logger
	pid  int

	mu         sync.Mutex
	events     chan<- Event
	activeAtom xproto.Atom
	nextGrabID uint32
	grabs      map[uint32]keycombo.Combo
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, log zerolog.Logger) *LinuxBackend {
	return &LinuxBackend{
		conn:  conn,
		log:   log.With().Str("component", "x11").Logger(),
		pid:   os.Getpid(),
		grabs: make(map[uint32]keycombo.Combo),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay(log zerolog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn, log), nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// StopEventLoop asks a running event loop to return.
func (b *LinuxBackend) StopEventLoop() {
	if b != nil && b.conn != nil {
		b.conn.StopEventLoop()
	}
}

// PrimaryDisplay returns the RandR primary display with its usable work
// area (struts subtracted, origin carrying the reserved offsets).
func (b *LinuxBackend) PrimaryDisplay() (Display, bool) {
	monitor, err := b.conn.PrimaryMonitor()
	if err != nil {
		b.log.Debug().Err(err).Msg("no usable display")
		return Display{}, false
	}

	usable := b.conn.WorkArea(*monitor)
	return Display{
		ID:     monitor.ID,
		Name:   monitor.Name,
		Bounds: Rect{X: monitor.X, Y: monitor.Y, Width: monitor.Width, Height: monitor.Height},
		Usable: Rect{X: usable.X, Y: usable.Y, Width: usable.Width, Height: usable.Height},
	}, true
}

// appGroup collects the windows belonging to one application.
type appGroup struct {
	app     App
	windows []xproto.Window
}

// appGroups enumerates client-list windows grouped into applications by
// process ID, falling back to the WM_CLASS class for windows without one.
func (b *LinuxBackend) appGroups() ([]*appGroup, error) {
	clients, err := b.conn.ClientList()
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*appGroup)
	var order []string
	for _, win := range clients {
		class := b.conn.WindowClass(win)
		pid := b.conn.WindowPID(win)
		if class == "" && pid == 0 {
			continue
		}

		key := fmt.Sprintf("pid:%d", pid)
		if pid == 0 {
			key = "class:" + class
		}

		g, ok := groups[key]
		if !ok {
			g = &appGroup{app: App{PID: pid, ID: class}}
			groups[key] = g
			order = append(order, key)
		}
		if g.app.ID == "" {
			g.app.ID = class
		}
		g.windows = append(g.windows, win)
	}

	result := make([]*appGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		b.classify(g)
		result = append(result, g)
	}
	return result, nil
}

// classify derives the policy, hidden and shell flags from the group's windows.
func (b *LinuxBackend) classify(g *appGroup) {
	g.app.Policy = PolicyAccessory
	g.app.Hidden = true
	for _, win := range g.windows {
		if b.conn.IsRegularWindow(win) {
			g.app.Policy = PolicyRegular
		}
		if b.conn.IsDesktopWindow(win) {
			g.app.Shell = true
		}
		if !b.conn.IsWindowHidden(win) {
			g.app.Hidden = false
		}
	}
}

func (b *LinuxBackend) findGroup(app App) (*appGroup, error) {
	groups, err := b.appGroups()
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if SameApp(g.app, app) {
			return g, nil
		}
	}
	return nil, nil
}

// appForWindow resolves the application owning the window. Windows not yet
// in the client list are classified from their own properties.
func (b *LinuxBackend) appForWindow(win xproto.Window) *appGroup {
	groups, err := b.appGroups()
	if err == nil {
		for _, g := range groups {
			for _, w := range g.windows {
				if w == win {
					return g
				}
			}
		}
	}

	class := b.conn.WindowClass(win)
	pid := b.conn.WindowPID(win)
	if class == "" && pid == 0 {
		return nil
	}
	g := &appGroup{app: App{PID: pid, ID: class}, windows: []xproto.Window{win}}
	b.classify(g)
	return g
}

// RunningApps enumerates applications with at least one managed window.
func (b *LinuxBackend) RunningApps() ([]App, error) {
	groups, err := b.appGroups()
	if err != nil {
		return nil, err
	}

	apps := make([]App, 0, len(groups))
	for _, g := range groups {
		apps = append(apps, g.app)
	}

	sort.Slice(apps, func(i, j int) bool {
		if apps[i].ID != apps[j].ID {
			return apps[i].ID < apps[j].ID
		}
		return apps[i].PID < apps[j].PID
	})

	return apps, nil
}

// RunningApp looks up a running application by identifier (exact match).
func (b *LinuxBackend) RunningApp(id string) (App, bool) {
	groups, err := b.appGroups()
	if err != nil {
		return App{}, false
	}
	for _, g := range groups {
		if g.app.ID == id {
			return g.app, true
		}
	}
	return App{}, false
}

// AppWindows lists the app's windows, frontmost first when the window
// manager maintains a stacking list.
func (b *LinuxBackend) AppWindows(app App) ([]WindowID, error) {
	g, err := b.findGroup(app)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}

	ordered := g.windows
	if stacking, err := b.conn.ClientListStacking(); err == nil && len(stacking) > 0 {
		ordered = orderFrontmostFirst(g.windows, stacking)
	}

	ids := make([]WindowID, 0, len(ordered))
	for _, win := range ordered {
		ids = append(ids, WindowID(win))
	}
	return ids, nil
}

// orderFrontmostFirst sorts wins topmost first. The stacking list is bottom
// to top; windows missing from it sort last, keeping their relative order.
func orderFrontmostFirst(wins, stacking []xproto.Window) []xproto.Window {
	pos := make(map[xproto.Window]int, len(stacking))
	for i, w := range stacking {
		pos[w] = i + 1
	}

	ordered := append([]xproto.Window(nil), wins...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return pos[ordered[i]] > pos[ordered[j]]
	})
	return ordered
}

// HasVisibleWindow reports whether the app has at least one mapped,
// non-hidden regular window. The desktop surface never counts.
func (b *LinuxBackend) HasVisibleWindow(app App) bool {
	g, err := b.findGroup(app)
	if err != nil || g == nil {
		return false
	}
	return b.groupHasVisibleWindow(g)
}

func (b *LinuxBackend) groupHasVisibleWindow(g *appGroup) bool {
	for _, win := range g.windows {
		if !b.conn.IsRegularWindow(win) {
			continue
		}
		if b.conn.IsWindowHidden(win) {
			continue
		}
		if !b.conn.IsWindowViewable(win) {
			continue
		}
		return true
	}
	return false
}

// IsFullscreen reports whether the window is in fullscreen state.
func (b *LinuxBackend) IsFullscreen(id WindowID) bool {
	return b.conn.IsWindowFullscreen(xproto.Window(id))
}

// WindowPosition reads a window's top-left corner in root coordinates.
func (b *LinuxBackend) WindowPosition(id WindowID) (x, y int, ok bool) {
	x, y, _, _, ok = b.conn.WindowGeometry(xproto.Window(id))
	return x, y, ok
}

// WindowSize reads a window's current size.
func (b *LinuxBackend) WindowSize(id WindowID) (Size, bool) {
	_, _, width, height, ok := b.conn.WindowGeometry(xproto.Window(id))
	if !ok {
		return Size{}, false
	}
	return Size{Width: width, Height: height}, true
}

// MoveWindow repositions a window.
func (b *LinuxBackend) MoveWindow(id WindowID, x, y int) error {
	return b.conn.MoveWindow(xproto.Window(id), x, y)
}

// ResizeWindow resizes a window.
func (b *LinuxBackend) ResizeWindow(id WindowID, size Size) error {
	return b.conn.ResizeWindow(xproto.Window(id), size.Width, size.Height)
}

// Hide iconifies every window of the app. The first failure is reported
// after all windows were attempted.
func (b *LinuxBackend) Hide(app App) error {
	g, err := b.findGroup(app)
	if err != nil {
		return err
	}
	if g == nil {
		return fmt.Errorf("app %q not found", app.ID)
	}

	var firstErr error
	for _, win := range g.windows {
		if err := b.conn.IconifyWindow(win); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Activate brings the app's frontmost window to the foreground.
func (b *LinuxBackend) Activate(app App) error {
	windows, err := b.AppWindows(app)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return fmt.Errorf("app %q has no windows", app.ID)
	}
	return b.conn.FocusWindow(xproto.Window(windows[0]))
}

// RegisterHotkey grabs the combination on the root window and returns a
// registration ID. IDs are monotonically increasing and never reused.
func (b *LinuxBackend) RegisterHotkey(combo keycombo.Combo) (uint32, error) {
	if err := b.conn.GrabKey(combo.Modifiers, xproto.Keycode(combo.KeyCode)); err != nil {
		return 0, fmt.Errorf("grab %s: %w", combo, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextGrabID++
	id := b.nextGrabID
	b.grabs[id] = combo
	return id, nil
}

// UnregisterHotkey releases the grab for a registration ID. Unknown IDs
// are ignored.
func (b *LinuxBackend) UnregisterHotkey(id uint32) {
	b.mu.Lock()
	combo, ok := b.grabs[id]
	if ok {
		delete(b.grabs, id)
	}
	b.mu.Unlock()

	if ok {
		b.conn.UngrabKey(combo.Modifiers, xproto.Keycode(combo.KeyCode))
	}
}

// Subscribe starts watching _NET_ACTIVE_WINDOW on the root window and
// dispatching grabbed key presses. Events are posted to ch without
// blocking; a full channel drops the event with a warning.
func (b *LinuxBackend) Subscribe(ch chan<- Event) error {
	atomReply, err := xproto.InternAtom(b.conn.XUtil.Conn(), false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	err = xproto.ChangeWindowAttributesChecked(
		b.conn.XUtil.Conn(),
		b.conn.Root,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to select root property events: %w", err)
	}

	b.mu.Lock()
	b.events = ch
	b.activeAtom = atomReply.Atom
	b.mu.Unlock()

	xevent.PropertyNotifyFun(b.onPropertyNotify).Connect(b.conn.XUtil, b.conn.Root)
	xevent.KeyPressFun(b.onKeyPress).Connect(b.conn.XUtil, b.conn.Root)

	return nil
}

// Unsubscribe stops event delivery. Safe to call more than once.
func (b *LinuxBackend) Unsubscribe() {
	b.mu.Lock()
	attached := b.events != nil
	b.events = nil
	b.mu.Unlock()

	if attached {
		xevent.Detach(b.conn.XUtil, b.conn.Root)
	}
}

func (b *LinuxBackend) onPropertyNotify(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	b.mu.Lock()
	atom := b.activeAtom
	b.mu.Unlock()

	if ev.Atom != atom {
		return
	}

	win, err := b.conn.ActiveWindow()
	if err != nil || win == 0 {
		return
	}

	g := b.appForWindow(win)
	if g == nil {
		return
	}

	b.post(ActivationEvent{
		App:              g.app,
		IsSelf:           g.app.PID != 0 && g.app.PID == b.pid,
		HasVisibleWindow: b.groupHasVisibleWindow(g),
	})
}

func (b *LinuxBackend) onKeyPress(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
	mods := x11.CleanMods(ev.State)
	keycode := uint32(ev.Detail)

	b.mu.Lock()
	var id uint32
	for grabID, combo := range b.grabs {
		if combo.KeyCode == keycode && combo.Modifiers == mods {
			id = grabID
			break
		}
	}
	b.mu.Unlock()

	if id == 0 {
		return
	}
	b.post(HotkeyEvent{RegistrationID: id})
}

func (b *LinuxBackend) post(ev Event) {
	b.mu.Lock()
	ch := b.events
	b.mu.Unlock()
	if ch == nil {
		return
	}

	select {
	case ch <- ev:
	default:
		b.log.Warn().Msg("event channel full, dropping event")
	}
}
