// Package geometry computes and applies the resize-and-center transform for
// an application's frontmost window.
package geometry

import (
	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/platform"
)

// FitWithin clamps size to the area's dimensions, per axis.
func FitWithin(size platform.Size, area platform.Rect) platform.Size {
	if size.Width > area.Width {
		size.Width = area.Width
	}
	if size.Height > area.Height {
		size.Height = area.Height
	}
	return size
}

// CenterIn returns the top-left corner that centers size inside area. The
// area origin already carries any reserved strip offset (menu bars, panels),
// so centering within it reapplies that offset.
func CenterIn(size platform.Size, area platform.Rect) (x, y int) {
	x = area.X + (area.Width-size.Width)/2
	y = area.Y + (area.Height-size.Height)/2
	return x, y
}

// Transformer applies the geometry transform through a platform backend.
type Transformer struct {
	backend platform.Backend
	log     zerolog.Logger
}

// NewTransformer creates a Transformer on top of backend.
func NewTransformer(backend platform.Backend, log zerolog.Logger) *Transformer {
	return &Transformer{
		backend: backend,
		log:     log.With().Str("component", "geometry").Logger(),
	}
}

// ResizeAndCenter resizes the app's frontmost window and centers it in the
// primary display's usable work area. With centerOnly the current size is
// kept (falling back to target when unreadable); otherwise target is clamped
// to the work area. The size is applied before the position; write failures
// are logged and not retried.
//
// No-ops: no primary display, no windows, or a fullscreen frontmost window.
func (t *Transformer) ResizeAndCenter(app platform.App, centerOnly bool, target platform.Size) {
	display, ok := t.backend.PrimaryDisplay()
	if !ok {
		t.log.Debug().Str("app", app.ID).Msg("no primary display, skipping transform")
		return
	}

	windows, err := t.backend.AppWindows(app)
	if err != nil || len(windows) == 0 {
		t.log.Debug().Str("app", app.ID).Msg("no windows to transform")
		return
	}
	front := windows[0]

	if t.backend.IsFullscreen(front) {
		t.log.Debug().Str("app", app.ID).Msg("frontmost window is fullscreen, leaving geometry alone")
		return
	}

	size := FitWithin(target, display.Usable)
	if centerOnly {
		if current, ok := t.backend.WindowSize(front); ok {
			size = current
		}
	}

	x, y := CenterIn(size, display.Usable)
	if fromX, fromY, ok := t.backend.WindowPosition(front); ok {
		t.log.Debug().Str("app", app.ID).
			Int("from_x", fromX).Int("from_y", fromY).
			Int("x", x).Int("y", y).
			Int("width", size.Width).Int("height", size.Height).
			Msg("applying window transform")
	}

	if err := t.backend.ResizeWindow(front, size); err != nil {
		t.log.Warn().Err(err).Str("app", app.ID).Msg("window resize failed")
	}
	if err := t.backend.MoveWindow(front, x, y); err != nil {
		t.log.Warn().Err(err).Str("app", app.ID).Msg("window move failed")
	}
}
