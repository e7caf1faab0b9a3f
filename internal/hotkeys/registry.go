package hotkeys

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/keycombo"
)

// Registrar grabs and releases global hotkeys with the window system.
// Registration IDs are opaque, monotonically increasing and never reused.
// platform.Backend satisfies this interface.
type Registrar interface {
	RegisterHotkey(combo keycombo.Combo) (uint32, error)
	UnregisterHotkey(id uint32)
}

// binding ties a combination to its window-system registration. id is zero
// when the combination is persisted intent only (registration failed, or
// the registry runs without a registrar).
type binding struct {
	combo keycombo.Combo
	id    uint32
}

// Registry owns the mapping from application identifiers to global
// shortcuts and keeps it in sync with the window system and the persistent
// store. A combination binds to at most one application; setting a combo
// another app holds silently reassigns it (last writer wins).
//
// The registry is not safe for concurrent use. The engine loop owns it in
// the daemon; CLI commands own a short-lived instance with a nil registrar,
// which persists mutations without touching the window system.
type Registry struct {
	registrar Registrar
	store     *Store
	log       zerolog.Logger

	shortcuts     map[string]binding
	registrations map[uint32]string
}

// NewRegistry creates a registry persisting to store. registrar may be nil.
func NewRegistry(registrar Registrar, store *Store, log zerolog.Logger) *Registry {
	return &Registry{
		registrar:     registrar,
		store:         store,
		log:           log.With().Str("component", "hotkeys").Logger(),
		shortcuts:     make(map[string]binding),
		registrations: make(map[uint32]string),
	}
}

// Restore loads the persisted mapping and registers each combination.
// Invalid entries are skipped with a warning; registration failures keep
// the intent so a later restart can try again.
func (r *Registry) Restore() {
	mapping := r.store.Load()

	apps := make([]string, 0, len(mapping))
	for appID := range mapping {
		apps = append(apps, appID)
	}
	sort.Strings(apps)

	for _, appID := range apps {
		combo := mapping[appID]
		if !combo.Valid() {
			r.log.Warn().Str("app", appID).Str("combo", combo.String()).Msg("skipping invalid persisted shortcut")
			continue
		}
		r.shortcuts[appID] = r.register(appID, combo)
	}
}

// SetShortcut binds combo to the application. Any existing registration
// for the app is released first. A zero combo removes the binding. The
// entire mapping is persisted after every mutation; the in-memory change
// takes effect even when persisting fails.
func (r *Registry) SetShortcut(appID string, combo keycombo.Combo) error {
	if appID == "" {
		return fmt.Errorf("app identifier is required")
	}
	if !combo.IsZero() && !combo.Valid() {
		return fmt.Errorf("invalid combination %s: a key and at least one of ctrl, alt, super are required", combo)
	}

	r.release(appID)

	if combo.IsZero() {
		delete(r.shortcuts, appID)
		return r.persist()
	}

	// The combination binds to at most one app: evict the previous holder.
	for other, b := range r.shortcuts {
		if other != appID && b.combo == combo {
			r.release(other)
			delete(r.shortcuts, other)
			r.log.Debug().Str("from", other).Str("to", appID).Str("combo", combo.String()).Msg("shortcut reassigned")
		}
	}

	r.shortcuts[appID] = r.register(appID, combo)
	return r.persist()
}

// ClearShortcut removes the application's binding.
func (r *Registry) ClearShortcut(appID string) error {
	return r.SetShortcut(appID, keycombo.Combo{})
}

// ClearAll releases every registration, empties the mapping and persists.
func (r *Registry) ClearAll() error {
	for appID := range r.shortcuts {
		r.release(appID)
	}
	r.shortcuts = make(map[string]binding)
	return r.persist()
}

// UnregisterAll releases every active registration without touching the
// persisted mapping. Used during shutdown; safe to call repeatedly.
func (r *Registry) UnregisterAll() {
	for appID := range r.shortcuts {
		r.release(appID)
	}
}

// Shortcut returns the combination bound to the application, including
// persisted intent whose registration failed.
func (r *Registry) Shortcut(appID string) (keycombo.Combo, bool) {
	b, ok := r.shortcuts[appID]
	return b.combo, ok
}

// Shortcuts returns a copy of the full mapping.
func (r *Registry) Shortcuts() map[string]keycombo.Combo {
	mapping := make(map[string]keycombo.Combo, len(r.shortcuts))
	for appID, b := range r.shortcuts {
		mapping[appID] = b.combo
	}
	return mapping
}

// IsActive reports whether the app's shortcut is currently registered with
// the window system.
func (r *Registry) IsActive(appID string) bool {
	b, ok := r.shortcuts[appID]
	return ok && b.id != 0
}

// IsComboInUse returns the app currently holding the combination, ignoring
// excludingApp. Used by the recorder to warn before reassigning.
func (r *Registry) IsComboInUse(combo keycombo.Combo, excludingApp string) (string, bool) {
	if combo.IsZero() {
		return "", false
	}
	for appID, b := range r.shortcuts {
		if appID != excludingApp && b.combo == combo {
			return appID, true
		}
	}
	return "", false
}

// Resolve maps a registration ID to its application. IDs removed by
// unregistration resolve to nothing.
func (r *Registry) Resolve(registrationID uint32) (string, bool) {
	appID, ok := r.registrations[registrationID]
	return appID, ok
}

// register grabs the combination and returns the resulting binding. On
// failure the binding carries the combo as intent only.
func (r *Registry) register(appID string, combo keycombo.Combo) binding {
	b := binding{combo: combo}
	if r.registrar == nil {
		return b
	}

	id, err := r.registrar.RegisterHotkey(combo)
	if err != nil {
		r.log.Warn().Err(err).Str("app", appID).Str("combo", combo.String()).Msg("hotkey registration failed")
		return b
	}

	b.id = id
	r.registrations[id] = appID
	return b
}

// release drops the app's active registration, keeping the shortcut entry.
func (r *Registry) release(appID string) {
	b, ok := r.shortcuts[appID]
	if !ok || b.id == 0 {
		return
	}

	r.registrar.UnregisterHotkey(b.id)
	delete(r.registrations, b.id)
	b.id = 0
	r.shortcuts[appID] = b
}

// persist writes the entire mapping to the store.
func (r *Registry) persist() error {
	if err := r.store.Save(r.Shortcuts()); err != nil {
		r.log.Error().Err(err).Msg("failed to persist shortcuts")
		return err
	}
	return nil
}
