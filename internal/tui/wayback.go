// Package tui contains the interactive Wayback Machine snapshot picker:
// a human-driven binary search over a page's archive history.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sobjornstad/rabbitmark/internal/bisect"
	"github.com/sobjornstad/rabbitmark/internal/wayback"
)

const dateFormat = "2006-01-02 15:04"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	snapshotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

type snapshotsMsg struct {
	snaps []wayback.Snapshot
	err   error
}

// WaybackPicker walks the user through bisecting a page's snapshot
// history: show one candidate at a time, let the user judge it, and
// narrow the window with the bisection state machine.
type WaybackPicker struct {
	client  *wayback.Client
	pageURL string
	openURL func(string) // opens a URL in the browser; may be nil

	spinner spinner.Model
	loading bool

	snaps []wayback.Snapshot
	state *bisect.BisectionState

	chosen    bool
	cancelled bool
	err       error
}

// NewWaybackPicker creates a picker that will fetch the snapshot list
// for pageURL when run. openURL is called to preview a candidate in the
// browser.
func NewWaybackPicker(client *wayback.Client, pageURL string,
	openURL func(string)) WaybackPicker {

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return WaybackPicker{
		client:  client,
		pageURL: pageURL,
		openURL: openURL,
		spinner: sp,
		loading: true,
	}
}

// Init implements tea.Model.
func (p WaybackPicker) Init() tea.Cmd {
	return tea.Batch(p.spinner.Tick, p.fetchSnapshots)
}

func (p WaybackPicker) fetchSnapshots() tea.Msg {
	snaps, err := p.client.Snapshots(context.Background(), p.pageURL)
	return snapshotsMsg{snaps: snaps, err: err}
}

// Update implements tea.Model.
func (p WaybackPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotsMsg:
		p.loading = false
		if msg.err != nil {
			p.err = msg.err
			return p, tea.Quit
		}
		if len(msg.snaps) == 0 {
			return p, tea.Quit
		}
		p.snaps = msg.snaps
		// The most recent snapshot is unusually likely to be the one the
		// user wants, so start there.
		p.state = bisect.New(len(msg.snaps), true)
		return p, nil

	case spinner.TickMsg:
		if !p.loading {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			p.cancelled = true
			return p, tea.Quit
		}
		if p.loading || p.state == nil {
			return p, nil
		}

		switch msg.String() {
		case "h", "left":
			// The page was already wrong here: look at an older snapshot.
			if p.state.CanGoBefore() {
				p.state.MarkBefore()
			}
		case "l", "right":
			// The page still looked right here: look at a newer snapshot.
			if p.state.CanGoAfter() {
				p.state.MarkAfter()
			}
		case "u":
			if p.state.CanBacktrack() {
				p.state.Backtrack()
			}
		case "o":
			if p.openURL != nil {
				p.openURL(p.current().ArchivedURL())
			}
		case "enter":
			p.chosen = true
			return p, tea.Quit
		}
	}

	return p, nil
}

func (p WaybackPicker) current() wayback.Snapshot {
	return p.snaps[p.state.Index()]
}

// View implements tea.Model.
func (p WaybackPicker) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Wayback Machine: " + p.pageURL))
	b.WriteString("\n\n")

	if p.err != nil {
		b.WriteString(errStyle.Render("Error: " + p.err.Error()))
		b.WriteString("\n")
		return b.String()
	}

	if p.loading {
		b.WriteString(p.spinner.View())
		b.WriteString(" Searching the archives...\n")
		return b.String()
	}

	if len(p.snaps) == 0 {
		b.WriteString("No snapshots of this page were found in the archives.\n")
		return b.String()
	}

	snap := p.current()
	b.WriteString(fmt.Sprintf("Snapshot %s of %s\n",
		snapshotStyle.Render(fmt.Sprintf("%d", p.state.Index()+1)),
		snapshotStyle.Render(fmt.Sprintf("%d", p.state.NumItems()))))
	b.WriteString(fmt.Sprintf("Taken %s\n",
		snapshotStyle.Render(snap.FormattedTimestamp(dateFormat))))
	b.WriteString(urlStyle.Render(snap.ArchivedURL()))
	b.WriteString("\n\n")

	var position string
	switch {
	case p.state.AtOnly():
		position = "This is the only snapshot."
	case p.state.AtEnd():
		position = "This is the newest snapshot."
	case p.state.AtStart():
		position = "This is the oldest snapshot."
	default:
		position = fmt.Sprintf("At most %d steps remain.", p.state.RemainingSteps())
	}
	b.WriteString(statusStyle.Render(position))
	b.WriteString("\n\n")

	var keys []string
	keys = append(keys, "o: preview")
	if p.state.CanGoBefore() {
		keys = append(keys, "h: try older")
	}
	if p.state.CanGoAfter() {
		keys = append(keys, "l: try newer")
	}
	if p.state.CanBacktrack() {
		keys = append(keys, "u: undo")
	}
	keys = append(keys, "Enter: accept", "q: cancel")
	b.WriteString(dimStyle.Render(strings.Join(keys, "  ")))
	b.WriteString("\n")

	return b.String()
}

// Chosen returns the accepted snapshot, or nil if the user cancelled or
// nothing was found.
func (p WaybackPicker) Chosen() *wayback.Snapshot {
	if !p.chosen || p.state == nil {
		return nil
	}
	snap := p.current()
	return &snap
}

// Cancelled reports whether the user backed out.
func (p WaybackPicker) Cancelled() bool {
	return p.cancelled
}

// Err returns the error that aborted the picker, if any.
func (p WaybackPicker) Err() error {
	return p.err
}
