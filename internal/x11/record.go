package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/BSN4/focus/internal/keycombo"
)

const keysymEscape = 0xff1b

// ErrRecordCancelled is returned when the user presses Escape during a
// shortcut recording.
var ErrRecordCancelled = errors.New("recording cancelled")

// RecordCombo grabs the keyboard and blocks until the user presses a
// non-modifier key, returning the pressed combination with lock modifiers
// stripped. Escape cancels. The connection must not be running its event
// loop already; RecordCombo drives it for the duration of the capture.
func (c *Connection) RecordCombo() (keycombo.Combo, error) {
	grab := func() (*xproto.GrabKeyboardReply, error) {
		cookie := xproto.GrabKeyboard(
			c.XUtil.Conn(),
			false, // owner_events (report events to grab_window)
			c.Root,
			xproto.TimeCurrentTime,
			xproto.GrabModeAsync,
			xproto.GrabModeAsync,
		)
		return cookie.Reply()
	}

	reply, err := grab()
	if err != nil {
		return keycombo.Combo{}, fmt.Errorf("failed to grab keyboard: %w", err)
	}
	if reply.Status == xproto.GrabStatusAlreadyGrabbed {
		xproto.UngrabKeyboard(c.XUtil.Conn(), xproto.TimeCurrentTime)
		reply, err = grab()
		if err != nil {
			return keycombo.Combo{}, fmt.Errorf("failed to grab keyboard: %w", err)
		}
	}
	if reply.Status != xproto.GrabStatusSuccess {
		return keycombo.Combo{}, fmt.Errorf("keyboard grab failed with status %d", reply.Status)
	}
	defer xproto.UngrabKeyboard(c.XUtil.Conn(), xproto.TimeCurrentTime)

	var captured keycombo.Combo
	var cancelled bool

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		if keybind.KeysymGet(xu, ev.Detail, 0) == keysymEscape {
			cancelled = true
			xevent.Quit(xu)
			return
		}
		// Modifier presses arrive first; keep waiting for the
		// terminating non-modifier key.
		if c.IsModifierKeycode(ev.Detail) {
			return
		}
		captured = keycombo.Combo{
			KeyCode:   uint32(ev.Detail),
			Modifiers: CleanMods(ev.State),
		}
		xevent.Quit(xu)
	}).Connect(c.XUtil, c.Root)
	defer xevent.Detach(c.XUtil, c.Root)

	xevent.Main(c.XUtil)

	if cancelled {
		return keycombo.Combo{}, ErrRecordCancelled
	}
	return captured, nil
}
