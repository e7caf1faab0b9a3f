package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// lockMask accumulates the modifier bits claimed by lock keys so pressed
// combinations can be compared against grabs with lock state stripped.
var lockMask uint16

// GrabKey installs a global grab for the modifier+keycode combination on
// the root window. keybind installs one server-side grab per ignored
// lock-modifier combination, so the hotkey fires regardless of CapsLock or
// NumLock state.
func (c *Connection) GrabKey(mods uint16, keycode xproto.Keycode) error {
	return keybind.GrabChecked(c.XUtil, c.Root, mods, keycode)
}

// UngrabKey removes a grab installed by GrabKey, covering the same
// lock-modifier combinations.
func (c *Connection) UngrabKey(mods uint16, keycode xproto.Keycode) {
	keybind.Ungrab(c.XUtil, c.Root, mods, keycode)
}

// CleanMods strips lock modifiers from a key event state so the remainder
// can be compared against a registered combination.
func CleanMods(state uint16) uint16 {
	return state &^ lockMask
}

// IsModifierKeycode reports whether the keycode maps to a modifier keysym
// (Shift, Control, Alt, Super, lock keys). Used while recording shortcuts
// to wait for a terminating non-modifier key.
func (c *Connection) IsModifierKeycode(keycode xproto.Keycode) bool {
	keysym := keybind.KeysymGet(c.XUtil, keycode, 0)
	switch {
	case keysym >= 0xffe1 && keysym <= 0xffee:
		// Shift_L through Hyper_R
		return true
	case keysym == 0xff7f || keysym == 0xff14:
		// Num_Lock, Scroll_Lock
		return true
	case keysym == 0xfe03:
		// ISO_Level3_Shift (AltGr)
		return true
	}
	return false
}

// KeycodeForName resolves a keysym name ("a", "Return", "F5") to a keycode
// under the current keyboard mapping. Returns 0 when unknown.
func (c *Connection) KeycodeForName(name string) xproto.Keycode {
	for _, keycode := range keybind.StrToKeycodes(c.XUtil, name) {
		if keycode != 0 {
			return keycode
		}
	}
	return 0
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
		lockMask |= mask
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
