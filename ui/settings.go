package ui

import (
	"errors"
	"fmt"
	"strings"
	"thoughtprint/config"
	"thoughtprint/job"
	"thoughtprint/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

type settingsMode int

const (
	settingsList settingsMode = iota
	settingsForm
	settingsModels
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// settingsState is the provider manager screen.
type settingsState struct {
	mode      settingsMode
	cursor    int
	providers []model.ProviderConfig
	selected  string

	message      string
	messageLevel statusLevel

	confirmRemove bool

	form providerForm

	// Model picker. When pickForForm is set the chosen model fills the form
	// instead of being saved to pickFor.
	fetching    bool
	models      []string
	filtered    []string
	filter      textinput.Model
	modelCursor int
	pickForForm bool
	pickFor     string

	// pickIncomplete marks a fetch for a config without a kind or base URL.
	// Its empty result is not worth a message.
	pickIncomplete bool
}

// Form fields in focus order. The type selector sits between name and URL.
const (
	fieldName = iota
	fieldKind
	fieldBaseURL
	fieldAPIKey
	fieldModel
	fieldCount
)

type providerForm struct {
	editing string // original name, empty when adding
	kind    int
	focus   int
	inputs  map[int]*textinput.Model
	err     string
}

func newProviderForm(existing *model.ProviderConfig) providerForm {
	f := providerForm{inputs: make(map[int]*textinput.Model)}
	for _, field := range []int{fieldName, fieldBaseURL, fieldAPIKey, fieldModel} {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 512
		ti.Width = 48
		f.inputs[field] = &ti
	}
	f.inputs[fieldAPIKey].EchoMode = textinput.EchoPassword
	f.inputs[fieldAPIKey].EchoCharacter = '•'

	if existing != nil {
		f.editing = existing.Name
		f.inputs[fieldName].SetValue(existing.Name)
		f.inputs[fieldBaseURL].SetValue(existing.BaseURL)
		f.inputs[fieldAPIKey].SetValue(existing.APIKey)
		f.inputs[fieldModel].SetValue(existing.Model)
		for i, k := range model.Kinds() {
			if k == existing.Kind {
				f.kind = i
			}
		}
	}
	f.updatePlaceholders()
	f.inputs[fieldName].Focus()
	return f
}

func (f *providerForm) selectedKind() model.Kind {
	return model.Kinds()[f.kind]
}

func (f *providerForm) updatePlaceholders() {
	if f.selectedKind() == model.KindOllama {
		f.inputs[fieldBaseURL].Placeholder = config.DefaultOllamaBaseURL
		f.inputs[fieldAPIKey].Placeholder = "not used"
		f.inputs[fieldModel].Placeholder = config.DefaultOllamaModel
	} else {
		f.inputs[fieldBaseURL].Placeholder = defaultOpenAIBaseURL
		f.inputs[fieldAPIKey].Placeholder = "sk-..."
		f.inputs[fieldModel].Placeholder = "gpt-4o-mini"
	}
}

func (f *providerForm) moveFocus(delta int) {
	if in, ok := f.inputs[f.focus]; ok {
		in.Blur()
	}
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	if in, ok := f.inputs[f.focus]; ok {
		in.Focus()
	}
}

// draft is the form content as typed, without validation.
func (f *providerForm) draft() model.ProviderConfig {
	return model.ProviderConfig{
		Name:    strings.TrimSpace(f.inputs[fieldName].Value()),
		Kind:    f.selectedKind(),
		BaseURL: strings.TrimSpace(f.inputs[fieldBaseURL].Value()),
		APIKey:  strings.TrimSpace(f.inputs[fieldAPIKey].Value()),
		Model:   strings.TrimSpace(f.inputs[fieldModel].Value()),
	}
}

func (a *App) openSettings() {
	a.mode = viewSettings
	a.input.Blur()
	a.settings.mode = settingsList
	a.settings.message = ""
	a.settings.confirmRemove = false
	a.reloadProviders()
}

func (a *App) reloadProviders() {
	current := a.deps.Settings.Current()
	a.settings.providers = current.Providers
	a.settings.selected = current.SelectedProviderName
	if a.settings.cursor >= len(a.settings.providers) {
		a.settings.cursor = max(0, len(a.settings.providers)-1)
	}
}

func (a *App) setSettingsMessage(level statusLevel, text string) {
	a.settings.messageLevel = level
	a.settings.message = text
}

func (a App) closeSettings() (tea.Model, tea.Cmd) {
	a.mode = viewPrompt
	if a.running {
		return a, nil
	}
	return a, a.input.Focus()
}

func (a App) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.settings.mode {
	case settingsForm:
		return a.updateProviderForm(msg)
	case settingsModels:
		return a.updateModelPicker(msg)
	}
	return a.updateProviderList(msg)
}

func (a App) updateProviderList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	store := a.deps.Settings
	s := &a.settings

	if s.confirmRemove {
		s.confirmRemove = false
		if msg.String() != "y" || len(s.providers) == 0 {
			s.message = ""
			return a, nil
		}
		name := s.providers[s.cursor].Name
		return a, func() tea.Msg {
			return settingsSavedMsg{note: "Removed " + name + ".", err: store.RemoveProvider(name)}
		}
	}

	switch msg.String() {
	case "esc", "q":
		return a.closeSettings()

	case "up", "k":
		if s.cursor > 0 {
			s.cursor--
		}

	case "down", "j":
		if s.cursor < len(s.providers)-1 {
			s.cursor++
		}

	case "enter", " ":
		if len(s.providers) == 0 {
			return a, nil
		}
		name := s.providers[s.cursor].Name
		return a, func() tea.Msg {
			return settingsSavedMsg{note: "Using " + name + ".", err: store.SelectProvider(name)}
		}

	case "a":
		s.form = newProviderForm(nil)
		s.mode = settingsForm

	case "e":
		if len(s.providers) == 0 {
			return a, nil
		}
		existing := s.providers[s.cursor]
		s.form = newProviderForm(&existing)
		s.mode = settingsForm

	case "x", "delete":
		if len(s.providers) == 0 {
			return a, nil
		}
		s.confirmRemove = true
		a.setSettingsMessage(statusWarning, fmt.Sprintf("Remove %s? (y/n)", s.providers[s.cursor].Name))

	case "m":
		if len(s.providers) == 0 {
			return a, nil
		}
		cfg := s.providers[s.cursor]
		return a.fetchModels(cfg, false)
	}
	return a, nil
}

func (a App) updateProviderForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &a.settings.form

	switch msg.String() {
	case "esc":
		a.settings.mode = settingsList
		return a, nil

	case "tab", "down":
		f.moveFocus(1)
		return a, nil

	case "shift+tab", "up":
		f.moveFocus(-1)
		return a, nil

	case "ctrl+l":
		return a.fetchModels(f.draft(), true)

	case "enter":
		d := f.draft()
		cfg, err := model.NewProviderConfig(d.Name, d.Kind, d.BaseURL, d.APIKey, d.Model)
		if err != nil {
			f.err = errorMessage(err)
			return a, nil
		}
		f.err = ""
		store, editing := a.deps.Settings, f.editing
		return a, func() tea.Msg {
			if editing == "" {
				return settingsSavedMsg{note: "Added " + cfg.Name + ".", err: store.AddProvider(cfg)}
			}
			return settingsSavedMsg{note: "Saved " + cfg.Name + ".", err: store.UpdateProvider(editing, cfg)}
		}
	}

	if f.focus == fieldKind {
		switch msg.String() {
		case "left", "right", " ", "h", "l":
			f.kind = (f.kind + 1) % len(model.Kinds())
			f.updatePlaceholders()
		}
		return a, nil
	}

	in := f.inputs[f.focus]
	updated, cmd := in.Update(msg)
	*in = updated
	return a, cmd
}

func (a App) fetchModels(cfg model.ProviderConfig, forForm bool) (tea.Model, tea.Cmd) {
	events, err := a.deps.Discovery.Submit(a.ctx, cfg)
	if err != nil {
		if errors.Is(err, job.ErrBusy) {
			a.setSettingsMessage(statusWarning, "Model discovery is already running.")
		} else {
			a.setSettingsMessage(statusError, errorMessage(err))
		}
		return a, nil
	}
	a.settings.fetching = true
	a.settings.pickForForm = forForm
	a.settings.pickFor = cfg.Name
	a.settings.pickIncomplete = cfg.Kind == "" || strings.TrimSpace(cfg.BaseURL) == ""
	a.setSettingsMessage(statusInfo, "Fetching models...")
	return a, tea.Batch(waitForDiscovery(events), a.spinner.Tick)
}

func (a App) handleDiscoveryEvent(msg discoveryEventMsg) (tea.Model, tea.Cmd) {
	s := &a.settings
	ev := msg.event

	switch ev.Type {
	case job.Succeeded:
		if len(ev.Result) == 0 {
			if s.pickIncomplete {
				s.message = ""
			} else {
				a.setSettingsMessage(statusWarning, "No models were reported. Check the base URL and key.")
			}
			break
		}
		s.message = ""
		s.models = ev.Result
		s.filtered = ev.Result
		s.modelCursor = 0
		s.filter = textinput.New()
		s.filter.Placeholder = "Filter models"
		s.filter.Prompt = "/ "
		s.filter.Focus()
		if a.mode == viewSettings {
			s.mode = settingsModels
		}

	case job.Failed:
		a.log.Warn().Str("kind", string(ev.Err.Kind)).Msg("model discovery failed: " + ev.Err.Message)
		a.setSettingsMessage(statusError, ev.Err.Kind.Title()+": "+ev.Err.Message)

	case job.Completed:
		s.fetching = false
		return a, nil
	}
	return a, waitForDiscovery(msg.events)
}

func (a App) updateModelPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &a.settings

	switch msg.String() {
	case "esc":
		if s.pickForForm {
			s.mode = settingsForm
		} else {
			s.mode = settingsList
		}
		return a, nil

	case "up", "ctrl+p":
		if s.modelCursor > 0 {
			s.modelCursor--
		}
		return a, nil

	case "down", "ctrl+n":
		if s.modelCursor < len(s.filtered)-1 {
			s.modelCursor++
		}
		return a, nil

	case "enter":
		if len(s.filtered) == 0 {
			return a, nil
		}
		chosen := s.filtered[s.modelCursor]
		if s.pickForForm {
			s.form.inputs[fieldModel].SetValue(chosen)
			s.mode = settingsForm
			return a, nil
		}
		s.mode = settingsList
		store, name := a.deps.Settings, s.pickFor
		return a, func() tea.Msg {
			return settingsSavedMsg{note: name + " now uses " + chosen + ".", err: store.UpdateModel(name, chosen)}
		}
	}

	var cmd tea.Cmd
	s.filter, cmd = s.filter.Update(msg)
	s.applyModelFilter()
	return a, cmd
}

func (s *settingsState) applyModelFilter() {
	value := strings.TrimSpace(s.filter.Value())
	if value == "" {
		s.filtered = s.models
	} else {
		matches := fuzzy.Find(value, s.models)
		s.filtered = make([]string, len(matches))
		for i, match := range matches {
			s.filtered[i] = s.models[match.Index]
		}
	}
	if s.modelCursor >= len(s.filtered) {
		s.modelCursor = max(0, len(s.filtered)-1)
	}
}

func (a App) handleSettingsSaved(msg settingsSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.log.Error().Err(msg.err).Msg("failed to save settings")
		if a.mode == viewSettings && a.settings.mode == settingsForm {
			a.settings.form.err = errorMessage(msg.err)
		} else if a.mode == viewSettings {
			a.setSettingsMessage(statusError, errorMessage(msg.err))
		} else {
			a.setStatus(statusError, errorMessage(msg.err))
		}
		return a, nil
	}

	if a.mode != viewSettings {
		a.setStatus(statusSuccess, msg.note)
		return a, nil
	}
	a.reloadProviders()
	a.settings.mode = settingsList
	a.setSettingsMessage(statusSuccess, msg.note)
	return a, nil
}

func errorMessage(err error) string {
	if e, ok := model.AsError(err); ok {
		return e.Message
	}
	return err.Error()
}

func (a App) viewSettings() string {
	var body string
	var footer string

	switch a.settings.mode {
	case settingsForm:
		body = a.viewProviderForm()
		footer = FormatFooter("Tab", "Next field", "←/→", "Type", "ctrl+l", "Fetch models", "Enter", "Save", "Esc", "Cancel")
	case settingsModels:
		body = a.viewModelPicker()
		footer = FormatFooter("↑/↓", "Move", "Enter", "Pick", "Esc", "Back")
	default:
		body = a.viewProviderList()
		footer = FormatFooter("Enter", "Use", "a", "Add", "e", "Edit", "x", "Remove", "m", "Models", "Esc", "Back")
	}

	status := ""
	if a.settings.fetching {
		status = a.spinner.View() + " "
	}
	if a.settings.message != "" {
		status += a.styleLevel(a.settings.messageLevel, truncate(a.settings.message, a.width-2))
	}

	return TitleStyle.Render("AI providers") + "\n" +
		divider(a.width) + "\n\n" +
		body + "\n" +
		status + "\n" +
		divider(a.width) + "\n" +
		DimStyle.Render(footer)
}

func (a App) styleLevel(level statusLevel, text string) string {
	switch level {
	case statusSuccess:
		return SuccessStyle.Render(text)
	case statusWarning:
		return WarningStyle.Render(text)
	case statusError:
		return ErrorStyle.Render(text)
	default:
		return DimStyle.Render(text)
	}
}

func (a App) viewProviderList() string {
	s := a.settings
	if len(s.providers) == 0 {
		return DimStyle.Render("No providers yet. Press a to add one.") + "\n"
	}

	var b strings.Builder
	for i, p := range s.providers {
		cursor := "  "
		if i == s.cursor {
			cursor = "> "
		}
		mark := " "
		if p.Name == s.selected {
			mark = "●"
		}
		name := cursor + mark + " " + p.Name
		if i == s.cursor {
			name = SelectedStyle.Render(name)
		}
		b.WriteString(name + "  " + DimStyle.Render(p.Kind.String()+" · "+p.Model) + "\n")
		if i == s.cursor {
			b.WriteString("     " + DimStyle.Render(truncate(p.BaseURL, a.width-6)) + "\n")
		}
	}
	return b.String()
}

func (a App) viewProviderForm() string {
	f := a.settings.form
	title := "New provider"
	if f.editing != "" {
		title = "Edit " + f.editing
	}

	label := func(field int, text string) string {
		if field == f.focus {
			return HighlightStyle.Render(fmt.Sprintf("%-10s", text))
		}
		return DimStyle.Render(fmt.Sprintf("%-10s", text))
	}

	var kinds []string
	for i, k := range model.Kinds() {
		if i == f.kind {
			kinds = append(kinds, SelectedStyle.Render("["+k.String()+"]"))
		} else {
			kinds = append(kinds, DimStyle.Render(" "+k.String()+" "))
		}
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(title) + "\n\n")
	b.WriteString(label(fieldName, "Name") + " " + f.inputs[fieldName].View() + "\n")
	b.WriteString(label(fieldKind, "Type") + " " + strings.Join(kinds, " ") + "\n")
	b.WriteString(label(fieldBaseURL, "Base URL") + " " + f.inputs[fieldBaseURL].View() + "\n")
	if f.selectedKind().RequiresAPIKey() {
		b.WriteString(label(fieldAPIKey, "API key") + " " + f.inputs[fieldAPIKey].View() + "\n")
	} else {
		b.WriteString(label(fieldAPIKey, "API key") + " " + DimStyle.Render("not used by "+f.selectedKind().String()) + "\n")
	}
	b.WriteString(label(fieldModel, "Model") + " " + f.inputs[fieldModel].View() + "\n")
	if f.err != "" {
		b.WriteString("\n" + ErrorStyle.Render(f.err) + "\n")
	}
	return b.String()
}

func (a App) viewModelPicker() string {
	s := a.settings
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Models for "+s.pickFor) + "\n\n")
	b.WriteString(s.filter.View() + "\n\n")

	if len(s.filtered) == 0 {
		b.WriteString(DimStyle.Render("No matches.") + "\n")
		return b.String()
	}

	visible := max(5, a.height-12)
	start := 0
	if s.modelCursor >= visible {
		start = s.modelCursor - visible + 1
	}
	end := min(len(s.filtered), start+visible)
	for i := start; i < end; i++ {
		name := truncate(s.filtered[i], a.width-4)
		if i == s.modelCursor {
			b.WriteString(SelectedStyle.Render("> "+name) + "\n")
		} else {
			b.WriteString("  " + name + "\n")
		}
	}
	b.WriteString(DimStyle.Render(fmt.Sprintf("\n%d of %d", len(s.filtered), len(s.models))) + "\n")
	return b.String()
}
