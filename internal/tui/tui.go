// Package tui provides a Bubble Tea terminal UI for listening and browsing
// the history.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/audiolibrelab/tunefinder/internal/history"
	"github.com/audiolibrelab/tunefinder/internal/locale"
	"github.com/audiolibrelab/tunefinder/internal/prefs"
	"github.com/audiolibrelab/tunefinder/internal/service"
	"github.com/audiolibrelab/tunefinder/internal/session"
	"github.com/audiolibrelab/tunefinder/internal/share"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

// ── Tabs ─────────────────

type tabID int

const (
	tabListen tabID = iota
	tabHistory
	tabCount
)

var tabNames = [tabCount]string{"Listen", "History"}

var scopes = []history.Scope{history.All, history.Today, history.ThisWeek}

var scopeNames = map[history.Scope]string{
	history.All:      "All",
	history.Today:    "Today",
	history.ThisWeek: "This Week",
}

// ── Messages ─────────────────

type stateMsg session.State

type historyChangedMsg struct{}

type actionDoneMsg struct {
	action string
	err    error
}

type shareDoneMsg struct {
	receipt share.Receipt
	err     error
}

type themeMsg struct {
	theme prefs.Theme
	err   error
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	ctx context.Context
	svc *service.Service
	now func() time.Time

	state   session.State
	entries []track.Track

	tab          tabID
	scope        history.Scope
	search       textinput.Model
	searching    bool
	cursor       int
	confirmClear bool
	notice       string

	theme   prefs.Theme
	styles  styles
	spinner spinner.Model
	level   progress.Model

	width  int
	height int
}

// New creates the model for svc.
func New(ctx context.Context, svc *service.Service) Model {
	theme, _ := svc.Themes.Get()

	search := textinput.New()
	search.Placeholder = "search title or artist"
	search.Prompt = "/ "
	search.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:     ctx,
		svc:     svc,
		now:     time.Now,
		state:   svc.Controller.Snapshot(),
		scope:   history.All,
		search:  search,
		theme:   theme,
		styles:  newStyles(theme),
		spinner: sp,
		level:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		width:   80,
		height:  24,
	}
	m.refresh()
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return m.spinner.Tick }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case stateMsg:
		st := session.State(msg)
		// Observer messages are delivered from separate goroutines and may
		// arrive out of order.
		if st.Version >= m.state.Version {
			m.state = st
		}
		return m, nil

	case historyChangedMsg:
		m.refresh()
		return m, nil

	case actionDoneMsg:
		m.notice = ""
		if msg.err != nil {
			var serr *session.Error
			if errors.As(msg.err, &serr) {
				m.notice = m.svc.DescribeFailure(serr.Kind)
			} else {
				m.notice = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			}
		} else {
			switch msg.action {
			case "clear":
				m.notice = m.svc.Printer.Sprintf(locale.MsgHistoryCleared)
			}
		}
		return m, nil

	case shareDoneMsg:
		m.notice = m.shareNotice(msg.receipt, msg.err)
		return m, nil

	case themeMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("theme: %v", msg.err)
			return m, nil
		}
		m.theme = msg.theme
		m.styles = newStyles(msg.theme)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.searching {
		switch msg.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.refresh()
			return m, nil
		case "enter":
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.refresh()
		return m, cmd
	}

	if m.confirmClear {
		m.confirmClear = false
		if msg.String() == "y" || msg.String() == "Y" {
			return m, m.clearHistory()
		}
		m.notice = ""
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.tab = (m.tab + 1) % tabCount
		return m, nil
	case "shift+tab":
		m.tab = (m.tab - 1 + tabCount) % tabCount
		return m, nil
	case "t":
		return m, m.toggleTheme()
	}

	if m.tab == tabListen {
		switch msg.String() {
		case " ", "enter", "r":
			return m, m.toggleListening()
		case "s":
			if m.state.CurrentTrack != nil {
				return m, m.share(*m.state.CurrentTrack)
			}
		case "o":
			if m.state.CurrentTrack != nil {
				return m, m.open(*m.state.CurrentTrack)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "left", "h":
		m.scope = scopes[(indexOfScope(m.scope)+len(scopes)-1)%len(scopes)]
		m.refresh()
	case "right", "l":
		m.scope = scopes[(indexOfScope(m.scope)+1)%len(scopes)]
		m.refresh()
	case "1", "2", "3":
		m.scope = scopes[msg.String()[0]-'1']
		m.refresh()
	case "/":
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		if t, ok := m.selected(); ok {
			m.svc.Controller.Select(t)
			m.state = m.svc.Controller.Snapshot()
			m.tab = tabListen
		}
	case "s":
		if t, ok := m.selected(); ok {
			return m, m.share(t)
		}
	case "c":
		if len(m.entries) > 0 {
			m.confirmClear = true
			m.notice = m.svc.Printer.Sprintf(locale.MsgConfirmClear)
		}
	}
	return m, nil
}

func (m *Model) refresh() {
	m.entries = m.svc.History.Filter(m.scope, m.search.Value())
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (track.Track, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return track.Track{}, false
	}
	return m.entries[m.cursor], true
}

// ── Commands ─────────────────

func (m Model) toggleListening() tea.Cmd {
	ctrl := m.svc.Controller
	ctx := m.ctx
	if m.state.Capturing {
		return func() tea.Msg {
			return actionDoneMsg{action: "stop", err: ctrl.Stop(ctx)}
		}
	}
	return func() tea.Msg {
		return actionDoneMsg{action: "start", err: ctrl.Start(ctx)}
	}
}

func (m Model) share(t track.Track) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		r, err := svc.Share(ctx, t)
		return shareDoneMsg{receipt: r, err: err}
	}
}

// shareNotice shows the text itself whenever no share method took it
func (m Model) shareNotice(r share.Receipt, err error) string {
	text := r.Payload.String()
	switch {
	case errors.Is(err, share.ErrUnavailable):
		return m.svc.Printer.Sprintf(locale.MsgShareManual, text)
	case err != nil:
		return fmt.Sprintf("share failed: %v", err)
	case r.Method == share.ByClipboard:
		return m.svc.Printer.Sprintf(locale.MsgCopied, text)
	}
	return m.svc.Printer.Sprintf(locale.MsgShared)
}

func (m Model) open(t track.Track) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		_, err := svc.Open(ctx, t, "")
		return actionDoneMsg{action: "open", err: err}
	}
}

func (m Model) clearHistory() tea.Cmd {
	store := m.svc.History
	return func() tea.Msg {
		return actionDoneMsg{action: "clear", err: store.Clear()}
	}
}

func (m Model) toggleTheme() tea.Cmd {
	themes := m.svc.Themes
	return func() tea.Msg {
		theme, err := themes.Toggle()
		return themeMsg{theme: theme, err: err}
	}
}

// ── Views ────────────────────

func (m Model) View() string {
	s := m.styles

	title := s.title.Width(m.width).Render("  tunefinder")

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %s ", tabNames[i])
		if i == m.tab {
			tabParts = append(tabParts, s.activeTab.Render(label))
		} else {
			tabParts = append(tabParts, s.inactiveTab.Render(label))
		}
	}
	tabRow := s.tabBar.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	var content string
	if m.tab == tabListen {
		content = m.viewListen()
	} else {
		content = m.viewHistory()
	}
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	content = lipgloss.NewStyle().Height(max(m.height-3, 1)).Render(content)

	hint := "  tab switch  t theme  q quit"
	if m.tab == tabListen {
		hint = "  space listen/stop  s share  o open" + hint
	} else {
		hint = "  ←/→ scope  / search  enter open  s share  c clear" + hint
	}
	if m.notice != "" {
		hint = "  " + m.notice
	}
	statusBar := s.status.Width(m.width).Render(hint)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

func (m Model) viewListen() string {
	s := m.styles
	st := m.state
	var sb strings.Builder
	sb.WriteString("\n")

	switch st.Phase {
	case session.Recording:
		sb.WriteString("  " + s.heading.Render(m.svc.Describe(st)) + "\n\n")
		sb.WriteString("  " + s.label.Render(formatElapsed(st.ElapsedSeconds, m.svc.Config().Audio.MaxDuration)) + "\n\n")
		sb.WriteString("  " + m.level.ViewAs(st.Level) + "\n")
	case session.Processing:
		sb.WriteString("  " + m.spinner.View() + " " + s.heading.Render(m.svc.Describe(st)) + "\n")
	case session.ShowingResult:
		if st.CurrentTrack != nil {
			sb.WriteString(m.viewTrack(*st.CurrentTrack))
		}
	case session.ShowingError:
		sb.WriteString("  " + s.errorText.Render(m.svc.Describe(st)) + "\n\n")
		sb.WriteString("  " + s.dim.Render(m.svc.Printer.Sprintf(locale.MsgTryAgain)) + "\n")
	default:
		sb.WriteString("  " + s.heading.Render(m.svc.Describe(st)) + "\n")
		if st.Failure != nil {
			sb.WriteString("\n  " + s.errorText.Render(m.svc.DescribeFailure(st.Failure.Kind)) + "\n")
		}
	}
	return sb.String()
}

func (m Model) viewTrack(t track.Track) string {
	s := m.styles
	var sb strings.Builder
	sb.WriteString(s.trackTitle.Render(t.Title) + "\n")
	sb.WriteString(t.Artist + "\n")
	if t.Album != "" {
		sb.WriteString(s.dim.Render(t.Album) + "\n")
	}
	if t.ReleaseDate != "" {
		sb.WriteString(s.dim.Render(t.ReleaseDate) + "\n")
	}
	sb.WriteString("\n")

	row := func(label, url string) {
		if url != "" {
			sb.WriteString(s.label.Render(fmt.Sprintf("%-12s", label)) + " " + s.link.Render(url) + "\n")
		}
	}
	row("Spotify", t.Links.Spotify)
	row("Apple Music", t.Links.AppleMusic)
	if t.Links.HasNativeLinks() {
		row("YouTube", t.Links.YouTube)
	} else {
		row(m.svc.Printer.Sprintf(locale.MsgSearchOnYT), t.YouTubeURL())
	}
	row("Artwork", t.Artwork())

	return lipgloss.NewStyle().MarginLeft(2).Render(s.card.Render(strings.TrimRight(sb.String(), "\n"))) + "\n"
}

func (m Model) viewHistory() string {
	s := m.styles
	var sb strings.Builder

	var scopeParts []string
	for i, sc := range scopes {
		label := fmt.Sprintf(" %d %s ", i+1, scopeNames[sc])
		if sc == m.scope {
			scopeParts = append(scopeParts, s.activeTab.Render(label))
		} else {
			scopeParts = append(scopeParts, s.inactiveTab.Render(label))
		}
	}
	sb.WriteString("\n  " + lipgloss.JoinHorizontal(lipgloss.Top, scopeParts...) + "\n")
	if m.searching || m.search.Value() != "" {
		sb.WriteString("  " + m.search.View() + "\n")
	}
	sb.WriteString("\n")

	if len(m.entries) == 0 {
		sb.WriteString("  " + s.dim.Render(m.svc.Printer.Sprintf(locale.MsgHistoryEmpty)) + "\n")
		return sb.String()
	}

	now := m.now()
	lastDay := ""
	for i, t := range m.entries {
		at := t.RecordedTime()
		if day := m.dayLabel(at, now); day != lastDay {
			sb.WriteString("  " + s.heading.Render(day) + "\n")
			lastDay = day
		}
		row := fmt.Sprintf("  %-32s %-24s %s", truncate(t.Title, 32), truncate(t.Artist, 24), s.dim.Render(humanize.RelTime(at, now, "ago", "from now")))
		if i == m.cursor {
			row = s.selected.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

// dayLabel groups entries under Today, Yesterday or their date.
func (m Model) dayLabel(at, now time.Time) string {
	at, now = at.Local(), now.Local()
	y1, m1, d1 := at.Date()
	y2, m2, d2 := now.Date()
	switch {
	case y1 == y2 && m1 == m2 && d1 == d2:
		return m.svc.Printer.Sprintf(locale.MsgToday)
	case at.Before(now):
		yy, ym, yd := now.AddDate(0, 0, -1).Date()
		if y1 == yy && m1 == ym && d1 == yd {
			return m.svc.Printer.Sprintf(locale.MsgYesterday)
		}
	}
	return at.Format("Mon, Jan 2 2006")
}

// ── Helpers ───────────────────

func formatElapsed(seconds int, limit time.Duration) string {
	elapsed := fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
	if limit <= 0 {
		return elapsed
	}
	total := int(limit / time.Second)
	return fmt.Sprintf("%s / %02d:%02d", elapsed, total/60, total%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func indexOfScope(sc history.Scope) int {
	for i, s := range scopes {
		if s == sc {
			return i
		}
	}
	return 0
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, svc *service.Service) error {
	p := tea.NewProgram(New(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))

	// Send from a goroutine: observers run while the controller holds its
	// publish lock and Update itself may be the caller.
	offState := svc.Controller.OnStateChange(func(st session.State) {
		go p.Send(stateMsg(st))
	})
	defer offState()
	offHistory := svc.History.OnChange(func([]track.Track) {
		go p.Send(historyChangedMsg{})
	})
	defer offHistory()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
