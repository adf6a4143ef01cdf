package locale

import (
	"testing"
	"time"

	"golang.org/x/text/language"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		locale string
		want   time.Weekday
	}{
		{"en-US", time.Sunday},
		{"en-GB", time.Monday},
		{"bn-BD", time.Monday},
		{"de-DE", time.Monday},
		{"ar-EG", time.Saturday},
		{"ja-JP", time.Sunday},
		{"", time.Sunday},
		{"not a locale", time.Sunday},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			if got := WeekStart(Parse(tt.locale)); got != tt.want {
				t.Errorf("WeekStart(%q) = %v, want %v", tt.locale, got, tt.want)
			}
		})
	}
}

func TestPrinter(t *testing.T) {
	en := Printer(language.AmericanEnglish)
	if got := en.Sprintf(MsgFound, "Yesterday", "The Beatles"); got != "Found: Yesterday by The Beatles" {
		t.Errorf("English Found = %q", got)
	}

	bn := Printer(Parse("bn-BD"))
	if got := bn.Sprintf(MsgListening); got != "শুনছি..." {
		t.Errorf("Bengali Listening = %q", got)
	}

	// Unsupported languages fall back to English.
	fr := Printer(Parse("fr-FR"))
	if got := fr.Sprintf(MsgTryAgain); got != MsgTryAgain {
		t.Errorf("fallback TryAgain = %q", got)
	}
}
