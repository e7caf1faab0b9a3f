package hotkeys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/BSN4/focus/internal/keycombo"
)

// Store persists shortcut intent as a JSON file mapping application
// identifiers to key combinations. Combos round-trip exactly: keycode and
// modifier bits are stored as-is.
type Store struct {
	path string
	log  zerolog.Logger
}

// DefaultStorePath returns the per-user shortcuts file,
// ~/.config/focus/shortcuts.json.
func DefaultStorePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "focus", "shortcuts.json"), nil
}

// NewStore creates a store backed by the given file path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("component", "shortcuts").Logger(),
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted mapping. A missing file is an empty mapping;
// an unreadable or malformed file is logged and also yields an empty
// mapping so startup never blocks on persistence.
func (s *Store) Load() map[string]keycombo.Combo {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("failed to read shortcuts, starting empty")
		}
		return map[string]keycombo.Combo{}
	}

	var mapping map[string]keycombo.Combo
	if err := json.Unmarshal(data, &mapping); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("failed to parse shortcuts, starting empty")
		return map[string]keycombo.Combo{}
	}
	if mapping == nil {
		mapping = map[string]keycombo.Combo{}
	}
	return mapping
}

// Save writes the entire mapping, replacing the previous contents.
func (s *Store) Save(mapping map[string]keycombo.Combo) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create shortcuts directory: %w", err)
	}

	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode shortcuts: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write shortcuts: %w", err)
	}
	return nil
}
