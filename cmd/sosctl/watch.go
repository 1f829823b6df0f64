package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"sos/config"
	"sos/statusfile"
)

// watchCmd renders a live-updating view of a running sos instance's
// counters, grounded on dh-cli's doctor screen (spinner.Model plus a
// tea.Tick-driven refresh loop) narrowed to a single read-only gauge
// view instead of a multi-step wizard.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch a running sos instance's counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			boot, err := config.Load(configPath)
			if err != nil {
				return err
			}
			m := newWatchModel(boot.Status.Path)
			p := tea.NewProgram(m)
			_, err = p.Run()
			return err
		},
	}
}

type statusTickMsg struct {
	snap statusfile.Snapshot
	err  error
}

type watchModel struct {
	path    string
	spinner spinner.Model
	last    statusfile.Snapshot
	lastErr error
	got     bool
}

func newWatchModel(path string) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return watchModel{path: path, spinner: s}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, pollStatus(m.path))
}

func pollStatus(path string) tea.Cmd {
	return func() tea.Msg {
		snap, err := statusfile.Read(path)
		return statusTickMsg{snap: snap, err: err}
	}
}

func tickAgain(path string) tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return pollStatus(path)()
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case statusTickMsg:
		m.got = true
		m.lastErr = msg.err
		if msg.err == nil {
			m.last = msg.snap
		}
		return m, tickAgain(m.path)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

var (
	watchHeading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	watchLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(20)
)

func (m watchModel) View() string {
	if !m.got {
		return fmt.Sprintf("%s waiting for %s\n", m.spinner.View(), m.path)
	}
	if m.lastErr != nil {
		return fmt.Sprintf("%s could not read %s: %v (retrying)\n", m.spinner.View(), m.path, m.lastErr)
	}
	s := m.last
	row := func(label, value string) string {
		return watchLabel.Render(label) + value + "\n"
	}
	out := watchHeading.Render("sos live status") + "\n"
	out += row("sampled", s.Time.Format(time.RFC3339))
	out += row("processes", fmt.Sprintf("%d", s.Procs))
	out += row("frames free", fmt.Sprintf("%d / %d", s.FramesFree, s.FramesTotal))
	out += row("swap free", fmt.Sprintf("%d", s.SwapFree))
	out += row("page faults", fmt.Sprintf("%d", s.PageFaults))
	out += row("page ins", fmt.Sprintf("%d", s.PageIns))
	out += row("page outs", fmt.Sprintf("%d", s.PageOuts))
	out += row("evictions", fmt.Sprintf("%d", s.Evictions))
	out += row("syscalls", fmt.Sprintf("%d", s.SyscallsServed))
	out += "\npress q to quit\n"
	return out
}
