// Package prefs stores user preferences in the key-value store.
package prefs

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/audiolibrelab/tunefinder/internal/kv"
)

// ThemeKey is the storage key of the theme preference.
const ThemeKey = "theme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme accepts "dark" and "light" in any case.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Dark:
		return Dark, nil
	case Light:
		return Light, nil
	}
	return Light, fmt.Errorf("invalid theme %q (valid: dark, light)", s)
}

// Themes reads and writes the theme preference.
type Themes struct {
	store kv.Store
}

func NewThemes(store kv.Store) *Themes {
	return &Themes{store: store}
}

// Get returns the stored theme. A missing value means Light; an invalid one
// is replaced with Light.
func (t *Themes) Get() (Theme, error) {
	raw, ok, err := t.store.Get(ThemeKey)
	if err != nil {
		return Light, fmt.Errorf("failed to read theme: %w", err)
	}
	if !ok {
		return Light, nil
	}

	theme, err := ParseTheme(raw)
	if err != nil {
		slog.Warn("Resetting invalid theme preference", "value", raw)
		return Light, t.Set(Light)
	}
	return theme, nil
}

func (t *Themes) Set(theme Theme) error {
	if err := t.store.Set(ThemeKey, string(theme)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Toggle flips between dark and light and returns the new theme.
func (t *Themes) Toggle() (Theme, error) {
	current, err := t.Get()
	if err != nil {
		return current, err
	}
	next := Dark
	if current == Dark {
		next = Light
	}
	return next, t.Set(next)
}
