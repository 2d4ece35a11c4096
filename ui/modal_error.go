package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrorModal reports a startup failure before the main window exists.
type ErrorModal struct {
	title   string
	message string
	hint    string
	width   int
	height  int
}

// NewErrorModal builds a modal for err. hint, when set, is shown under the
// message, typically the path of a file to fix.
func NewErrorModal(title string, err error, hint string) ErrorModal {
	return ErrorModal{
		title:   title,
		message: errorMessage(err),
		hint:    hint,
	}
}

func (m ErrorModal) Init() tea.Cmd {
	return nil
}

func (m ErrorModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", "q", "ctrl+c":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m ErrorModal) View() string {
	if m.width < 20 || m.height < 8 {
		return m.title + ": " + m.message
	}

	modalWidth := min(64, m.width-6)

	section := lipgloss.NewStyle().
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(dangerColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render(m.title)

	body := lipgloss.NewStyle().Width(modalWidth).Padding(1, 1).Render(m.message)
	if m.hint != "" {
		body += "\n" + DimStyle.Width(modalWidth).Padding(0, 1, 1).Render(m.hint)
	}

	footer := section.
		Foreground(dimColor).
		Align(lipgloss.Center).
		Render("Press Enter to quit")

	content := strings.Join([]string{title, section.Render(body), footer}, "\n")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
