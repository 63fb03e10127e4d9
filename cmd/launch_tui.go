package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"modpack-launcher/launch"
)

// maxLogLines is how many game output lines stay on screen.
const maxLogLines = 8

// launchSession is the part of launch.Session the UI drives.
type launchSession interface {
	Events() <-chan launch.Event
	Stop() error
}

// launchDoneMsg is sent once the session's event stream is closed.
type launchDoneMsg struct{}

type stopResultMsg struct{ err error }

// LaunchModel controls the UI for the launch command
type LaunchModel struct {
	spinner spinner.Model
	session launchSession
	title   string

	// State
	state    launch.State
	status   string
	notices  []string
	progress launch.Progress
	logs     []string
	errors   []string
	stopping bool
	done     bool
	code     int
}

func initialLaunchModel(session launchSession, title string) LaunchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return LaunchModel{
		spinner: s,
		session: session,
		title:   title,
		status:  "Preparing...",
	}
}

func (m LaunchModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForActivity(),
	)
}

func (m LaunchModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.session.Events()
		if !ok {
			return launchDoneMsg{}
		}
		return e
	}
}

func (m LaunchModel) stop() tea.Cmd {
	return func() tea.Msg {
		return stopResultMsg{err: m.session.Stop()}
	}
}

func (m LaunchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// If done, allow any key to exit
		if m.done {
			return m, tea.Quit
		}
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			if m.stopping {
				return m, nil
			}
			m.stopping = true
			m.status = "Stopping..."
			return m, m.stop()
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stopResultMsg:
		if msg.err != nil {
			m.errors = append(m.errors, describeError(msg.err))
		}

	case launchDoneMsg:
		m.done = true
		return m, tea.Quit

	case launch.Event:
		m.handleEvent(msg)
		return m, m.waitForActivity()
	}

	return m, nil
}

func (m *LaunchModel) handleEvent(e launch.Event) {
	switch e.Kind {
	case launch.EventState:
		m.state = e.State
		m.status = stateStatus(e.State, e.Message)
		if e.State == launch.Aborted && e.Message != "" {
			m.errors = append(m.errors, e.Message)
		}
	case launch.EventNotice:
		m.notices = append(m.notices, e.Message)
	case launch.EventProgress:
		m.progress = e.Progress
	case launch.EventDebug, launch.EventData:
		m.logs = append(m.logs, e.Message)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
	case launch.EventClose:
		m.code = e.Code
	}
}

func stateStatus(s launch.State, msg string) string {
	var status string
	switch s {
	case launch.Preparing:
		status = "Preparing..."
	case launch.StagingMods:
		status = "Copying mods into the instance..."
	case launch.ProvisioningLoader:
		status = "Installing the mod loader..."
	case launch.Starting:
		status = "Starting Minecraft..."
	case launch.Running:
		status = "Minecraft is running (q to stop)"
	case launch.Closed:
		status = "Minecraft closed"
	case launch.Aborted:
		status = "Launch aborted"
	default:
		status = s.String()
	}
	if msg != "" && !s.Terminal() {
		status += " " + msg
	}
	return status
}

func (m LaunchModel) View() string {
	var symbol string
	switch {
	case m.done && m.state == launch.Aborted:
		symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("✗")
	case m.done:
		symbol = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓")
	default:
		symbol = m.spinner.View()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n %s\n", lipgloss.NewStyle().Bold(true).Render(m.title))
	fmt.Fprintf(&b, " %s %s\n\n", symbol, m.status)

	if m.progress.Total > 0 && !m.done {
		fmt.Fprintf(&b, "  %s %d/%d\n\n", m.progress.Type, m.progress.Task, m.progress.Total)
	}

	if len(m.notices) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Render("Notices:") + "\n")
		for _, n := range m.notices {
			fmt.Fprintf(&b, "  • %s\n", n)
		}
		b.WriteString("\n")
	}

	if len(m.errors) > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render("Errors:") + "\n")
		for _, e := range m.errors {
			fmt.Fprintf(&b, "  • %s\n", e)
		}
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		logStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		for _, l := range m.logs {
			b.WriteString(logStyle.Render("  "+truncate(l, 120)) + "\n")
		}
		b.WriteString("\n")
	}

	if m.done && m.state == launch.Closed {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Exit code %d", m.code)) + "\n")
	}

	return b.String()
}
