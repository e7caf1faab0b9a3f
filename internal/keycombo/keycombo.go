package keycombo

import (
	"fmt"
	"strings"
)

// Modifier mask bits. Values match the X11 modifier masks so combos can be
// passed to key-grab calls without translation.
const (
	ModShift   uint16 = 1 << 0 // ShiftMask
	ModControl uint16 = 1 << 2 // ControlMask
	ModAlt     uint16 = 1 << 3 // Mod1Mask
	ModSuper   uint16 = 1 << 6 // Mod4Mask
)

// Combo is a global keyboard shortcut: a hardware keycode plus a modifier
// mask. The zero value means "no shortcut".
type Combo struct {
	KeyCode   uint32 `json:"key_code" yaml:"key_code"`
	Modifiers uint16 `json:"modifiers" yaml:"modifiers"`
}

// Valid reports whether the combo can be registered as a global shortcut.
// A combo needs a non-zero keycode and at least one of Control, Alt or
// Super. Shift alone does not qualify.
func (c Combo) Valid() bool {
	if c.KeyCode == 0 {
		return false
	}
	return c.Modifiers&(ModControl|ModAlt|ModSuper) != 0
}

// IsZero reports whether the combo is unset.
func (c Combo) IsZero() bool {
	return c == Combo{}
}

// String renders the combo as "Ctrl+Alt+key38". Keycodes are hardware
// codes, so no keysym name is attempted here; callers with an X connection
// can produce friendlier names.
func (c Combo) String() string {
	if c.IsZero() {
		return "(none)"
	}
	mods := FormatModifiers(c.Modifiers)
	if mods == "" {
		return fmt.Sprintf("key%d", c.KeyCode)
	}
	return fmt.Sprintf("%s+key%d", mods, c.KeyCode)
}

// FormatModifiers renders a modifier mask as "Ctrl+Alt+Shift+Super",
// including only the bits that are set.
func FormatModifiers(mask uint16) string {
	var parts []string
	if mask&ModControl != 0 {
		parts = append(parts, "Ctrl")
	}
	if mask&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if mask&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if mask&ModSuper != 0 {
		parts = append(parts, "Super")
	}
	return strings.Join(parts, "+")
}

// ParseModifiers parses a modifier list such as "ctrl+alt" or
// "super,shift" into a mask. Recognized names: ctrl/control, alt/option,
// shift, super/cmd/win. An empty string yields an empty mask.
func ParseModifiers(s string) (uint16, error) {
	var mask uint16
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' }) {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "ctrl", "control":
			mask |= ModControl
		case "alt", "option":
			mask |= ModAlt
		case "shift":
			mask |= ModShift
		case "super", "cmd", "win":
			mask |= ModSuper
		case "":
			continue
		default:
			return 0, fmt.Errorf("unknown modifier %q", tok)
		}
	}
	return mask, nil
}
