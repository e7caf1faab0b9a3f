package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// _NET_MOVERESIZE_WINDOW flag layout (EWMH): bits 8-11 select which of
// x/y/width/height in the message are meaningful, bits 12-15 carry the
// source indication.
const (
	moveResizeFlagX      = 1 << 8
	moveResizeFlagY      = 1 << 9
	moveResizeFlagWidth  = 1 << 10
	moveResizeFlagHeight = 1 << 11
	moveResizeSourceUser = 2 << 12
)

// ResizeWindow resizes a window without moving it. Maximized state is
// removed first since window managers pin the geometry of maximized windows.
func (c *Connection) ResizeWindow(windowID xproto.Window, width, height int) error {
	c.unmaximizeWindow(windowID)

	err := c.sendMoveResize(windowID, moveResizeFlagWidth|moveResizeFlagHeight, 0, 0, width, height)
	if err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).Resize(width, height)
	}
	return nil
}

// MoveWindow repositions a window without touching its size.
func (c *Connection) MoveWindow(windowID xproto.Window, x, y int) error {
	err := c.sendMoveResize(windowID, moveResizeFlagX|moveResizeFlagY, x, y, 0, 0)
	if err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).Move(x, y)
	}
	return nil
}

// sendMoveResize sends a _NET_MOVERESIZE_WINDOW client message to the root
// window per EWMH spec. We build the message manually because the xgbutil
// ewmh helpers panic on this library version (uint vs int type assertion)
// and only support setting all four fields at once.
func (c *Connection) sendMoveResize(windowID xproto.Window, flags, x, y, width, height int) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_MOVERESIZE_WINDOW")), "_NET_MOVERESIZE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_MOVERESIZE_WINDOW: %w", err)
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(flags | moveResizeSourceUser),
			uint32(x), uint32(y), uint32(width), uint32(height),
		}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return
	}

	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			// Request state removal (action 0)
			ewmh.WmStateReq(c.XUtil, windowID, 0, state)
		}
	}
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// Sends a client message to the root window per EWMH spec. We build the
// message manually because the xgbutil ewmh helpers panic on this library
// version.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// IconifyWindow minimizes a window via WM_CHANGE_STATE.
func (c *Connection) IconifyWindow(windowID xproto.Window) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("WM_CHANGE_STATE")), "WM_CHANGE_STATE").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern WM_CHANGE_STATE: %w", err)
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// WindowGeometry returns a window's rectangle in root coordinates.
func (c *Connection) WindowGeometry(windowID xproto.Window) (x, y, width, height int, ok bool) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return 0, 0, 0, 0, false
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), true
}

// windowHasState reports whether _NET_WM_STATE of the window contains state.
func (c *Connection) windowHasState(windowID xproto.Window, state string) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

// IsWindowFullscreen reports whether the window is in fullscreen state.
func (c *Connection) IsWindowFullscreen(windowID xproto.Window) bool {
	return c.windowHasState(windowID, "_NET_WM_STATE_FULLSCREEN")
}

// IsWindowHidden reports whether the window is hidden (minimized).
func (c *Connection) IsWindowHidden(windowID xproto.Window) bool {
	return c.windowHasState(windowID, "_NET_WM_STATE_HIDDEN")
}

// IsWindowViewable reports whether the window is currently mapped.
func (c *Connection) IsWindowViewable(windowID xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// IsRegularWindow checks if a window is a normal application window.
// Dialogs count as regular; windows with no explicit type are treated as
// normal per EWMH.
func (c *Connection) IsRegularWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_NORMAL" || t == "_NET_WM_WINDOW_TYPE_DIALOG" {
			return true
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

// IsDesktopWindow reports whether the window is the desktop surface drawn
// by the shell.
func (c *Connection) IsDesktopWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == "_NET_WM_WINDOW_TYPE_DESKTOP" {
			return true
		}
	}
	return false
}

// WindowClass returns the WM_CLASS class name, the stable application
// identifier under X11. Empty when the property is missing.
func (c *Connection) WindowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// WindowPID returns the _NET_WM_PID of the window's owning process, or 0
// when the property is missing.
func (c *Connection) WindowPID(windowID xproto.Window) int {
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil {
		return 0
	}
	return int(pid)
}

// ActiveWindow returns the currently focused window.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// ClientList returns all client windows managed by the window manager.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// ClientListStacking returns client windows in stacking order, bottom to
// top. Not all window managers maintain it.
func (c *Connection) ClientListStacking() ([]xproto.Window, error) {
	return ewmh.ClientListStackingGet(c.XUtil)
}
