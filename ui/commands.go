package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"thoughtprint/storage"

	tea "github.com/charmbracelet/bubbletea"
)

const historyLimit = 10

type command struct {
	name  string
	usage string
	help  string
}

var commands = []command{
	{"/config", "/config", "Manage AI providers and pick a model"},
	{"/prompt", "/prompt [text]", "Show or replace the system prompt"},
	{"/history", "/history", "List recent requests and their PDFs"},
	{"/last", "/last", "Preview the Markdown of the last PDF"},
	{"/help", "/help", "List commands"},
	{"/quit", "/quit", "Exit"},
}

func (a App) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/config":
		a.openSettings()
		return a, nil

	case "/prompt":
		if arg == "" {
			a.setStatus(statusInfo, "System prompt: "+a.deps.Settings.SystemPrompt())
			return a, nil
		}
		store := a.deps.Settings
		return a, func() tea.Msg {
			return settingsSavedMsg{note: "System prompt updated.", err: store.UpdateSystemPrompt(arg)}
		}

	case "/history":
		if a.deps.History == nil {
			a.setStatus(statusWarning, "History is not available.")
			return a, nil
		}
		return a, a.loadHistory()

	case "/last":
		return a, a.loadLastPreview()

	case "/help":
		a.showPager(viewPreview, helpText())
		return a, nil

	case "/quit", "/exit":
		return a, tea.Quit
	}

	a.setStatus(statusWarning, fmt.Sprintf("Unknown command %s. Type /help for the list.", name))
	return a, nil
}

func helpText() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Commands"))
	b.WriteString("\n\n")
	for _, c := range commands {
		b.WriteString(fmt.Sprintf("  %-16s %s\n", c.usage, DimStyle.Render(c.help)))
	}
	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Keys"))
	b.WriteString("\n\n")
	b.WriteString("  ctrl+y           " + DimStyle.Render("Copy the last PDF path") + "\n")
	b.WriteString("  ctrl+t           " + DimStyle.Render("Toggle the compact window") + "\n")
	b.WriteString("  esc / ctrl+c     " + DimStyle.Render("Quit") + "\n")
	return b.String()
}

func (a App) loadHistory() tea.Cmd {
	ctx, history := a.ctx, a.deps.History
	return func() tea.Msg {
		entries, err := history.Recent(ctx, historyLimit)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (a App) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.log.Error().Err(msg.err).Msg("failed to load history")
		a.setStatus(statusError, "Could not load history: "+msg.err.Error())
		return a, nil
	}
	a.history = msg.entries
	a.showPager(viewHistory, a.renderHistory())
	return a, nil
}

func (a App) renderHistory() string {
	if len(a.history) == 0 {
		return DimStyle.Render("No requests yet.")
	}

	width := max(20, a.width-2)
	var b strings.Builder
	for _, e := range a.history {
		stamp := e.CreatedAt.Local().Format("2006-01-02 15:04")
		marker := SuccessStyle.Render("✓")
		if e.Status != storage.StatusSucceeded {
			marker = ErrorStyle.Render("✗")
		}
		b.WriteString(fmt.Sprintf("%s %s  %s\n", marker, DimStyle.Render(stamp), ProviderStyle.Render(e.Provider+" · "+e.Model)))

		b.WriteString("  " + truncate(oneLine(e.Prompt), width-2) + "\n")
		if e.Summary != "" {
			b.WriteString("  " + DimStyle.Render(truncate(e.Summary, width-2)) + "\n")
		}
		switch {
		case e.Status == storage.StatusSucceeded:
			b.WriteString("  " + truncate(e.PDFPath, width-2) + "\n")
		case e.ErrorMessage != "":
			b.WriteString("  " + WarningStyle.Render(truncate(e.ErrorKind+": "+e.ErrorMessage, width-2)) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// loadLastPreview reads the Markdown saved next to the last PDF. Without a
// PDF from this session it falls back to the newest successful history entry.
func (a App) loadLastPreview() tea.Cmd {
	ctx, history, lastPDF := a.ctx, a.deps.History, a.lastPDF
	return func() tea.Msg {
		mdPath := ""
		if lastPDF != "" {
			mdPath = strings.TrimSuffix(lastPDF, filepath.Ext(lastPDF)) + ".md"
		} else if history != nil {
			entry, err := history.LastSucceeded(ctx)
			if err != nil {
				return previewLoadedMsg{err: err}
			}
			if entry != nil {
				mdPath = entry.MarkdownPath
			}
		}
		if mdPath == "" {
			return previewLoadedMsg{}
		}

		data, err := os.ReadFile(mdPath)
		return previewLoadedMsg{path: mdPath, markdown: string(data), err: err}
	}
}

func (a App) handlePreviewLoaded(msg previewLoadedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err != nil:
		a.log.Warn().Err(msg.err).Str("path", msg.path).Msg("failed to load preview")
		a.setStatus(statusError, "Could not open the last document: "+msg.err.Error())
	case msg.path == "":
		a.setStatus(statusWarning, "No PDF has been generated yet.")
	default:
		header := DimStyle.Render(msg.path) + "\n\n"
		a.showPager(viewPreview, header+renderMarkdown(msg.markdown, a.width))
	}
	return a, nil
}

func (a *App) showPager(mode viewMode, content string) {
	a.mode = mode
	a.pager.SetContent(content)
	a.pager.GotoTop()
}

func (a App) updatePager(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.mode = viewPrompt
		if a.running {
			return a, nil
		}
		return a, a.input.Focus()
	}
	var cmd tea.Cmd
	a.pager, cmd = a.pager.Update(msg)
	return a, cmd
}

func (a App) viewPager() string {
	title := "History"
	if a.mode == viewPreview {
		title = "Preview"
	}
	footer := FormatFooter("↑/↓", "Scroll", "Esc", "Back")
	return TitleStyle.Render(title) + "\n" + divider(a.width) + "\n" +
		a.pager.View() + "\n" + divider(a.width) + "\n" + DimStyle.Render(footer)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
