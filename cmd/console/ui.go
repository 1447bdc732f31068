package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jordanmarch/clocktower/internal/storage"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
)

// ConsoleUI is the BubbleTea model for the spectator view: a live transcript
// of the game's event stream next to a summary panel.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	stream *storage.RedisStream
	gameID uuid.UUID

	logViewport  viewport.Model
	metaViewport viewport.Model
	events       []eventlog.Event
	ready        bool
	width        int
	height       int
	err          error
	finished     bool
	copied       bool

	showQuitModal bool
}

type eventsMsg struct {
	events []eventlog.Event
	err    error
}

type pollTickMsg struct{}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	deathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	voteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(stream *storage.RedisStream, gameID uuid.UUID) ConsoleUI {
	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true
	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		stream:       stream,
		gameID:       gameID,
		logViewport:  logVp,
		metaViewport: metaVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.fetchEvents()
}

func (m ConsoleUI) fetchEvents() tea.Cmd {
	offset := int64(len(m.events))
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		events, err := m.stream.Events(ctx, m.gameID, offset, -1)
		return eventsMsg{events: events, err: err}
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		logWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - logWidth - 6

		m.logViewport.Width = logWidth - 2
		m.logViewport.Height = m.height - 5
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4

		m.ready = true
		m.writeLogContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		switch msg.String() {
		case "q":
			m.showQuitModal = true
			return m, nil
		case "c":
			if err := clipboard.WriteAll(m.transcript()); err == nil {
				m.copied = true
				m.metaViewport.SetContent(m.writeMetadata())
			}
		}

	case pollTickMsg:
		if m.finished {
			return m, nil
		}
		return m, m.fetchEvents()

	case eventsMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			if len(msg.events) > 0 {
				m.events = append(m.events, msg.events...)
				for _, e := range msg.events {
					if e.Kind == eventlog.KindGameEnd {
						m.finished = true
					}
				}
				m.writeLogContent()
				m.metaViewport.SetContent(m.writeMetadata())
			}
		}
		if m.finished {
			return m, nil
		}
		return m, pollTick()
	}

	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m *ConsoleUI) writeLogContent() {
	logWidth := m.logViewport.Width - 6
	if logWidth <= 0 {
		logWidth = 60
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("CLOCKTOWER") + "\n\n")
	content.WriteString(fmt.Sprintf("Watching game %s\n\n", m.gameID.String()[:8]))
	content.WriteString(separatorStyle.Render(strings.Repeat("─", logWidth)) + "\n\n")

	for _, e := range m.events {
		content.WriteString(formatEvent(e, logWidth) + "\n")
	}
	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func formatEvent(e eventlog.Event, width int) string {
	prefix := fmt.Sprintf("[R%d %s] ", e.Round, e.Phase)
	line := wordwrap.String(prefix+e.Description, width)

	switch e.Kind {
	case eventlog.KindRoundStart, eventlog.KindPhaseChange, eventlog.KindGameStart, eventlog.KindGameEnd:
		return phaseStyle.Render(line)
	case eventlog.KindPlayerDeath, eventlog.KindExecution:
		return deathStyle.Render(line)
	case eventlog.KindNomination, eventlog.KindNominationResult, eventlog.KindVote:
		return voteStyle.Render(line)
	default:
		return infoStyle.Render(line)
	}
}

func (m *ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME") + "\n\n")

	content.WriteString("Game ID:\n")
	content.WriteString(m.gameID.String()[:8] + "...\n\n")

	stats := eventlog.Summarize(m.events)
	content.WriteString(fmt.Sprintf("Events: %d\n", stats.TotalEvents))
	content.WriteString(fmt.Sprintf("Rounds: %d\n", stats.TotalRounds))
	content.WriteString(fmt.Sprintf("Deaths: %d\n", len(stats.Deaths)))
	content.WriteString(fmt.Sprintf("Executions: %d\n", len(stats.Executions)))
	content.WriteString(fmt.Sprintf("Nominations: %d\n\n", len(stats.Nominations)))

	if m.finished {
		content.WriteString(phaseStyle.Render("Game over") + "\n\n")
	} else {
		content.WriteString("Live\n\n")
	}
	if m.copied {
		content.WriteString("Transcript copied.\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• q: Quit\n")
	content.WriteString("• c: Copy transcript\n")
	content.WriteString("• Mouse wheel: Scroll\n")

	return content.String()
}

func (m ConsoleUI) transcript() string {
	var b strings.Builder
	for _, e := range m.events {
		fmt.Fprintf(&b, "[R%d %s] %s\n", e.Round, e.Phase, e.Description)
	}
	return b.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y", "q":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, pollTick()
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Stop Watching?"))
	content.WriteString("\n\n")
	content.WriteString("The game keeps running without you.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep watching"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Connecting to the event stream..."
	}

	logWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(m.logViewport.View())
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(m.metaViewport.View())

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}
