package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"thoughtprint/config"
	"thoughtprint/job"
	"thoughtprint/model"
	"thoughtprint/storage"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

type viewMode int

const (
	viewPrompt viewMode = iota
	viewSettings
	viewHistory
	viewPreview
)

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusSuccess
	statusWarning
	statusError
)

// Deps are the collaborators the interface drives. History may be nil.
type Deps struct {
	Settings  *config.SettingsStore
	Requests  *job.RequestOrchestrator
	Discovery *job.ModelDiscoveryOrchestrator
	History   *storage.History
	Log       zerolog.Logger

	// SurfaceErrors shows job failures in the status line. Failures are
	// always logged either way.
	SurfaceErrors bool
	Version       string
}

// App is the single-prompt window.
type App struct {
	ctx  context.Context
	deps Deps
	log  zerolog.Logger

	width  int
	height int
	mode   viewMode

	input   textinput.Model
	spinner spinner.Model
	pager   viewport.Model

	running    bool
	savedInput string
	runningFor string

	status      string
	statusLevel statusLevel

	lastPDF string
	compact bool

	settings settingsState
	history  []storage.Entry
}

func NewApp(ctx context.Context, deps Deps) App {
	ti := textinput.New()
	ti.Placeholder = "Ask anything, or type /help"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	return App{
		ctx:     ctx,
		deps:    deps,
		log:     deps.Log.With().Str("component", "ui").Logger(),
		input:   ti,
		spinner: sp,
		pager:   viewport.New(0, 0),
	}
}

func (a App) Init() tea.Cmd {
	return textinput.Blink
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(10, msg.Width-4)
		a.pager.Width = msg.Width
		a.pager.Height = max(1, msg.Height-4)
		return a, nil

	case spinner.TickMsg:
		if !a.running && !a.settings.fetching {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case requestEventMsg:
		return a.handleRequestEvent(msg)

	case discoveryEventMsg:
		return a.handleDiscoveryEvent(msg)

	case settingsSavedMsg:
		return a.handleSettingsSaved(msg)

	case historyLoadedMsg:
		return a.handleHistoryLoaded(msg)

	case previewLoadedMsg:
		return a.handlePreviewLoaded(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.mode {
		case viewSettings:
			return a.updateSettings(msg)
		case viewHistory, viewPreview:
			return a.updatePager(msg)
		}
		return a.updatePrompt(msg)
	}

	if a.mode == viewPrompt && !a.running {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return a, tea.Quit
	case "ctrl+t":
		a.compact = !a.compact
		return a, nil
	case "ctrl+y":
		return a.copyLastPath()
	}

	// The input is disabled while a job runs.
	if a.running {
		return a, nil
	}

	if msg.String() == "enter" {
		value := a.input.Value()
		if strings.HasPrefix(strings.TrimSpace(value), "/") {
			a.input.Reset()
			return a.runCommand(strings.TrimSpace(value))
		}
		return a.submit(value)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) submit(prompt string) (tea.Model, tea.Cmd) {
	if strings.TrimSpace(prompt) == "" {
		return a, nil
	}

	cfg, ok := a.deps.Settings.SelectedProvider()
	if !ok {
		a.setStatus(statusWarning, "No AI provider is selected. Open /config to add or pick one.")
		return a, nil
	}

	events, err := a.deps.Requests.Submit(a.ctx, prompt, cfg, a.deps.Settings.SystemPrompt())
	if err != nil {
		switch {
		case errors.Is(err, job.ErrBusy):
			a.setStatus(statusWarning, "A request is already running.")
		case errors.Is(err, job.ErrEmptyPrompt):
		default:
			a.setStatus(statusError, err.Error())
		}
		return a, nil
	}

	a.running = true
	a.runningFor = cfg.Name
	a.savedInput = prompt
	a.input.Reset()
	a.input.Blur()
	a.setStatus(statusInfo, "")
	return a, tea.Batch(waitForRequest(events), a.spinner.Tick)
}

func (a App) handleRequestEvent(msg requestEventMsg) (tea.Model, tea.Cmd) {
	ev := msg.event
	switch ev.Type {
	case job.Succeeded:
		a.lastPDF = ev.Result
		a.setStatus(statusSuccess, "PDF saved: "+ev.Result)

	case job.Failed:
		a.log.Error().
			Str("kind", string(ev.Err.Kind)).
			Str("stage", stageOf(ev.Err.Kind)).
			Msg(ev.Err.Message)
		if a.deps.SurfaceErrors {
			a.setStatus(statusError, describeFailure(ev.Err))
		} else {
			a.setStatus(statusWarning, "The request failed. Details were written to the error log.")
		}

	case job.Completed:
		a.running = false
		a.runningFor = ""
		a.input.SetValue(a.savedInput)
		a.input.CursorEnd()
		a.savedInput = ""
		return a, a.input.Focus()
	}
	return a, waitForRequest(msg.events)
}

func (a App) copyLastPath() (tea.Model, tea.Cmd) {
	if a.lastPDF == "" {
		a.setStatus(statusWarning, "No PDF has been generated yet.")
		return a, nil
	}
	if err := clipboard.WriteAll(a.lastPDF); err != nil {
		a.log.Warn().Err(err).Msg("clipboard write failed")
		a.setStatus(statusWarning, "Could not copy to clipboard: "+err.Error())
		return a, nil
	}
	a.setStatus(statusSuccess, "Copied: "+a.lastPDF)
	return a, nil
}

func (a *App) setStatus(level statusLevel, text string) {
	a.statusLevel = level
	a.status = text
}

// stageOf names the pipeline stage that raises errors of kind.
func stageOf(kind model.ErrorKind) string {
	switch kind {
	case model.KindInvalidConfig, model.KindNetwork, model.KindEmptyResponse, model.KindMalformedResponse:
		return "AI error"
	case model.KindUnexpected:
		return "Unexpected error"
	default:
		return "PDF generation error"
	}
}

func describeFailure(err *model.Error) string {
	return fmt.Sprintf("%s (%s): %s", stageOf(err.Kind), err.Kind.Title(), err.Message)
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	switch a.mode {
	case viewSettings:
		return a.viewSettings()
	case viewHistory, viewPreview:
		return a.viewPager()
	}

	if a.compact {
		return a.viewCompact()
	}

	var b strings.Builder
	b.WriteString(a.viewHeader())
	b.WriteString("\n")
	b.WriteString(divider(a.width))
	b.WriteString("\n\n")
	b.WriteString(a.viewInputLine())
	b.WriteString("\n\n")
	b.WriteString(a.viewStatus(a.width))
	b.WriteString("\n")

	used := lipgloss.Height(b.String())
	if gap := a.height - used - 2; gap > 0 {
		b.WriteString(strings.Repeat("\n", gap))
	}
	b.WriteString(divider(a.width))
	b.WriteString("\n")
	b.WriteString(DimStyle.Render(truncate(FormatFooter(
		"Enter", "Send",
		"/config", "Providers",
		"/history", "History",
		"ctrl+y", "Copy path",
		"ctrl+t", "Compact",
		"Esc", "Quit",
	), a.width*2)))
	return b.String()
}

func (a App) viewHeader() string {
	title := TitleStyle.Render("ThoughtPrint")
	if a.deps.Version != "" {
		title += " " + DimStyle.Render(a.deps.Version)
	}

	provider := DimStyle.Render("no provider selected")
	if cfg, ok := a.deps.Settings.SelectedProvider(); ok {
		provider = ProviderStyle.Render(cfg.Name) + DimStyle.Render(" · "+cfg.Model)
	}
	return title + "  " + provider
}

func (a App) viewInputLine() string {
	if a.running {
		return a.spinner.View() + " " + DimStyle.Render(truncate("Asking "+a.runningFor+" and rendering the PDF...", a.width-4))
	}
	return a.input.View()
}

func (a App) viewStatus(width int) string {
	if a.status == "" {
		return ""
	}
	return a.styleLevel(a.statusLevel, truncate(a.status, width))
}

// viewCompact is the pinned mini window: the input and one status line.
func (a App) viewCompact() string {
	return a.viewInputLine() + "\n" + a.viewStatus(a.width)
}
