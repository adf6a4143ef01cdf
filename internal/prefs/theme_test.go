package prefs

import (
	"testing"

	"github.com/audiolibrelab/tunefinder/internal/kv"
)

func TestThemeDefaultsToLight(t *testing.T) {
	store := kv.NewMemoryStore()
	theme, err := NewThemes(store).Get()
	if err != nil {
		t.Fatal(err)
	}
	if theme != Light {
		t.Errorf("Get() = %q, want light", theme)
	}
	if _, ok, _ := store.Get(ThemeKey); ok {
		t.Error("missing theme should not be written")
	}
}

func TestThemeMalformedIsRewritten(t *testing.T) {
	store := kv.NewMemoryStore()
	_ = store.Set(ThemeKey, "solarized")

	theme, err := NewThemes(store).Get()
	if err != nil {
		t.Fatal(err)
	}
	if theme != Light {
		t.Errorf("Get() = %q, want light", theme)
	}
	if raw, _, _ := store.Get(ThemeKey); raw != "light" {
		t.Errorf("stored = %q, want light", raw)
	}
}

func TestThemeToggle(t *testing.T) {
	themes := NewThemes(kv.NewMemoryStore())

	for _, want := range []Theme{Dark, Light, Dark} {
		got, err := themes.Toggle()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Toggle() = %q, want %q", got, want)
		}
	}

	if got, _ := themes.Get(); got != Dark {
		t.Errorf("Get() after toggles = %q, want dark", got)
	}
}

func TestParseTheme(t *testing.T) {
	if got, err := ParseTheme(" DARK "); err != nil || got != Dark {
		t.Errorf("ParseTheme(DARK) = %q, %v", got, err)
	}
	if _, err := ParseTheme("blue"); err == nil {
		t.Error("ParseTheme(blue) should fail")
	}
}
