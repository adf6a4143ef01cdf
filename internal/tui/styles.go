package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/audiolibrelab/tunefinder/internal/prefs"
)

// styles is the palette for one theme.
type styles struct {
	title       lipgloss.Style
	activeTab   lipgloss.Style
	inactiveTab lipgloss.Style
	tabBar      lipgloss.Style
	status      lipgloss.Style
	heading     lipgloss.Style
	trackTitle  lipgloss.Style
	label       lipgloss.Style
	dim         lipgloss.Style
	errorText   lipgloss.Style
	selected    lipgloss.Style
	link        lipgloss.Style
	hint        lipgloss.Style
	card        lipgloss.Style
}

func newStyles(theme prefs.Theme) styles {
	// Dark follows the 256-colour palette; light swaps foreground and
	// background roles.
	fg, bg, muted, accent, bar := "15", "62", "245", "86", "235"
	selFg, selBg, errFg, linkFg := "15", "237", "196", "39"
	if theme == prefs.Light {
		fg, bg, muted, accent, bar = "0", "153", "242", "25", "254"
		selFg, selBg, errFg, linkFg = "0", "252", "160", "26"
	}

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fg)).
			Background(lipgloss.Color(bg)).
			Padding(0, 2),
		activeTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fg)).
			Background(lipgloss.Color(bg)).
			Padding(0, 1),
		inactiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(muted)).
			Background(lipgloss.Color(bar)).
			Padding(0, 1),
		tabBar: lipgloss.NewStyle().
			Background(lipgloss.Color(bar)),
		status: lipgloss.NewStyle().
			Background(lipgloss.Color(bar)).
			Foreground(lipgloss.Color(muted)).
			Padding(0, 1),
		heading: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(accent)),
		trackTitle: lipgloss.NewStyle().
			Bold(true),
		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(linkFg)).
			Bold(true),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color(muted)),
		errorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(errFg)).
			Bold(true),
		selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(selFg)).
			Background(lipgloss.Color(selBg)),
		link: lipgloss.NewStyle().
			Foreground(lipgloss.Color(linkFg)).
			Underline(true),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color(muted)),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(accent)).
			Padding(0, 2),
	}
}
