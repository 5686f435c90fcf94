package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BioHazard786/Warpcall/internal/call"
	"github.com/BioHazard786/Warpcall/internal/media"
)

const volumeStep = 0.1

// Controller is the part of the call coordinator the view drives.
type Controller interface {
	Snapshot() call.Snapshot
	Updates() <-chan call.Snapshot
	Done() <-chan struct{}
	ToggleMic() (bool, error)
	ToggleCamera() (bool, error)
	SwitchCamera(ctx context.Context) (media.DeviceInfo, error)
	AdjustVolume(id string, v float64) error
	Reset()
}

type snapshotMsg call.Snapshot

type doneMsg struct{}

type resultMsg struct {
	status string
	err    error
}

// CallModel is the Bubble Tea model for an active call.
type CallModel struct {
	ctrl     Controller
	snapshot call.Snapshot
	selected int
	spinner  spinner.Model
	status   string
	err      error
	quitting bool
}

func NewCallModel(ctrl Controller) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		ctrl:     ctrl,
		snapshot: ctrl.Snapshot(),
		spinner:  s,
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.waitForUpdates(),
	)
}

// waitForUpdates returns a command that listens for coordinator snapshots
func (m *CallModel) waitForUpdates() tea.Cmd {
	updates, done := m.ctrl.Updates(), m.ctrl.Done()
	return func() tea.Msg {
		select {
		case s := <-updates:
			return snapshotMsg(s)
		case <-done:
			return doneMsg{}
		}
	}
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.snapshot = call.Snapshot(msg)
		m.clampSelection()
		return m, m.waitForUpdates()

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case resultMsg:
		m.status, m.err = msg.status, msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *CallModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, func() tea.Msg {
			ctrl.Reset()
			return doneMsg{}
		}

	case "m":
		return m, func() tea.Msg {
			on, err := ctrl.ToggleMic()
			return resultMsg{status: "Microphone " + onOff(on), err: err}
		}

	case "c":
		return m, func() tea.Msg {
			on, err := ctrl.ToggleCamera()
			return resultMsg{status: "Camera " + onOff(on), err: err}
		}

	case "s":
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			d, err := ctrl.SwitchCamera(ctx)
			return resultMsg{status: "Switched to " + d.Label, err: err}
		}

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.snapshot.Participants)-1 {
			m.selected++
		}

	case "+", "=", "-":
		p, ok := m.selectedParticipant()
		if !ok {
			return m, nil
		}
		v := p.Volume + volumeStep
		if msg.String() == "-" {
			v = p.Volume - volumeStep
		}
		v = media.ClampVolume(v)
		return m, func() tea.Msg {
			err := ctrl.AdjustVolume(p.ID, v)
			return resultMsg{status: fmt.Sprintf("%s %s volume %.0f%%", IconVolume, p.ID, v*100), err: err}
		}
	}
	return m, nil
}

func (m *CallModel) selectedParticipant() (call.Participant, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.Participants) {
		return call.Participant{}, false
	}
	return m.snapshot.Participants[m.selected], true
}

func (m *CallModel) clampSelection() {
	if n := len(m.snapshot.Participants); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

func (m *CallModel) View() string {
	var b strings.Builder

	header := HeaderStyle.Render(IconConnect + " Warpcall")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header, " ", StatusStyle.Render(m.snapshot.State.String())) + "\n")
	b.WriteString(SessionBox(m.snapshot.SessionID, m.snapshot.Identity) + "\n\n")

	if m.quitting {
		b.WriteString(MutedStyle.Render("Leaving session...") + "\n")
		return ContainerStyle.Render(b.String())
	}

	b.WriteString(NewParticipantTable(m.snapshot.Participants, m.selected).View() + "\n")
	if len(m.snapshot.Participants) <= 1 {
		b.WriteString(fmt.Sprintf("\n%s Waiting for others to join...\n", m.spinner.View()))
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + ErrorStyle.Render(fmt.Sprintf("%s %v", IconError, m.err)) + "\n")
	case m.status != "":
		b.WriteString("\n" + MutedStyle.Render(m.status) + "\n")
	}

	b.WriteString(FooterStyle.Render("m mic • c camera • s switch camera • ↑/↓ select • +/- volume • q leave"))
	return ContainerStyle.Render(b.String())
}

// RunCall shows the call view until the user leaves or the call ends.
func RunCall(ctrl Controller) error {
	_, err := tea.NewProgram(NewCallModel(ctrl)).Run()
	return err
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
