package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cleanify/internal/tasks"
)

// WatchState represents the current state of the watch view.
type WatchState int

const (
	Watching WatchState = iota
	Finished
	Errored
)

// snapshotMsg carries one progress snapshot into the Elm loop.
type snapshotMsg tasks.Snapshot

// streamClosedMsg signals that the progress channel was closed without a
// terminal snapshot.
type streamClosedMsg struct{}

// WatchModel renders live progress for one cleanup job.
//
// Snapshots arrive on a channel from the cleanup engine; the model follows
// bubbletea's standard Init/Update/View pattern and quits once a terminal
// snapshot (done or failed) is seen.
type WatchModel struct {
	jobID    string
	state    WatchState
	snapshot tasks.Snapshot
	updates  <-chan tasks.Snapshot

	bar   progress.Model
	spin  spinner.Model
	width int
	keys  watchKeyMap
}

// watchKeyMap defines the [key.Binding] mapping for the watch view.
type watchKeyMap struct {
	quit key.Binding
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// NewWatchModel creates a watch model consuming snapshots for the given job.
func NewWatchModel(jobID string, updates <-chan tasks.Snapshot) *WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &WatchModel{
		jobID:   jobID,
		state:   Watching,
		updates: updates,
		bar:     progress.New(progress.WithDefaultGradient()),
		spin:    sp,
		keys:    newWatchKeyMap(),
	}
}

// Init starts the spinner and begins consuming snapshots.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitForSnapshot())
}

// Update handles incoming messages and updates the model state.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(msg.Width-8, 60)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.snapshot = tasks.Snapshot(msg)
		switch {
		case m.snapshot.Failed:
			m.state = Errored
			return m, tea.Quit
		case m.snapshot.Done:
			m.state = Finished
			return m, tea.Quit
		}
		return m, m.waitForSnapshot()

	case streamClosedMsg:
		if m.state == Watching {
			m.state = Finished
		}
		return m, tea.Quit
	}

	return m, nil
}

// View renders the watch view for the current state.
func (m *WatchModel) View() string {
	switch m.state {
	case Finished:
		return m.renderFinished()
	case Errored:
		return styles.err.Render(fmt.Sprintf("✗ Job failed: %s", m.snapshot.Message)) + "\n"
	default:
		return m.renderWatching()
	}
}

// Snapshot returns the latest snapshot seen, for callers inspecting the
// final state after the program exits.
func (m *WatchModel) Snapshot() tasks.Snapshot { return m.snapshot }

// State returns the watch view's terminal state.
func (m *WatchModel) State() WatchState { return m.state }

func (m *WatchModel) renderWatching() string {
	title := styles.title.Render(fmt.Sprintf("Cleaning playlist (job %s)", m.jobID))

	percent := 0.0
	if m.snapshot.Total > 0 {
		percent = float64(m.snapshot.Processed) / float64(m.snapshot.Total)
	}

	status := m.snapshot.Message
	if status == "" {
		status = "Waiting for updates..."
	}

	counts := ""
	if m.snapshot.Total > 0 {
		counts = fmt.Sprintf(" %d/%d", m.snapshot.Processed, m.snapshot.Total)
	}

	help := styles.help.Render("q to quit")

	return fmt.Sprintf("%s\n%s %s\n\n%s%s\n\n%s\n",
		title, m.spin.View(), status, m.bar.ViewAs(percent), counts, help)
}

func (m *WatchModel) renderFinished() string {
	title := styles.ok.Render("✓ Cleanup complete")
	if m.snapshot.Message != "" {
		return fmt.Sprintf("%s\n%s\n", title, m.snapshot.Message)
	}
	return title + "\n"
}

// waitForSnapshot blocks on the progress channel and converts the next
// snapshot into a message.
func (m *WatchModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.updates
		if !ok {
			return streamClosedMsg{}
		}
		return snapshotMsg(s)
	}
}
