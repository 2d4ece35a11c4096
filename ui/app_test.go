package ui

import (
	"context"
	"strings"
	"testing"
	"thoughtprint/config"
	"thoughtprint/job"
	"thoughtprint/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

type blockingChatter struct {
	release chan struct{}
	calls   int
}

func (c *blockingChatter) Chat(ctx context.Context, req model.ChatRequest, cfg model.ProviderConfig) (string, error) {
	c.calls++
	<-c.release
	return "# Answer", nil
}

type stubRenderer struct{}

func (stubRenderer) DerivePaths(seed string) (string, string, error) {
	return "/out", "abc", nil
}

func (stubRenderer) Render(ctx context.Context, markdown, dir, baseName string) (string, error) {
	return dir + "/" + baseName + ".pdf", nil
}

type stubLister struct{}

func (stubLister) ListModels(ctx context.Context, cfg model.ProviderConfig) ([]string, error) {
	return []string{"llama3"}, nil
}

func newTestApp(t *testing.T, chat job.Chatter, surface bool) (App, *config.SettingsStore) {
	t.Helper()
	store := config.NewSettingsStore(t.TempDir(), zerolog.Nop())
	store.Load()

	app := NewApp(context.Background(), Deps{
		Settings:      store,
		Requests:      job.NewRequestOrchestrator(chat, stubRenderer{}, zerolog.Nop()),
		Discovery:     job.NewModelDiscoveryOrchestrator(stubLister{}, zerolog.Nop()),
		Log:           zerolog.Nop(),
		SurfaceErrors: surface,
	})
	updated, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(App), store
}

func press(t *testing.T, a App, msg tea.KeyMsg) App {
	t.Helper()
	updated, _ := a.Update(msg)
	return updated.(App)
}

func deliver(t *testing.T, a App, ev job.Event[string]) App {
	t.Helper()
	updated, _ := a.Update(requestEventMsg{event: ev})
	return updated.(App)
}

func TestSubmitClearsAndRestoresInput(t *testing.T) {
	chat := &blockingChatter{release: make(chan struct{})}
	defer close(chat.release)
	a, _ := newTestApp(t, chat, true)

	a.input.SetValue("explain channels")
	a = press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	if !a.running {
		t.Fatal("Expected app to be running after submit")
	}
	if a.input.Value() != "" {
		t.Errorf("Expected input to be cleared, got %q", a.input.Value())
	}
	if a.input.Focused() {
		t.Error("Expected input to be disabled while running")
	}

	a = press(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if a.input.Value() != "" {
		t.Errorf("Expected keystrokes to be ignored while running, got %q", a.input.Value())
	}

	a = deliver(t, a, job.Event[string]{Type: job.Succeeded, Result: "/out/abc.pdf"})
	if a.lastPDF != "/out/abc.pdf" {
		t.Errorf("Expected last PDF to be recorded, got %q", a.lastPDF)
	}
	if !a.running {
		t.Error("Expected app to stay running until Completed")
	}

	a = deliver(t, a, job.Event[string]{Type: job.Completed})
	if a.running {
		t.Error("Expected app to stop running after Completed")
	}
	if a.input.Value() != "explain channels" {
		t.Errorf("Expected input to be restored, got %q", a.input.Value())
	}
	if !a.input.Focused() {
		t.Error("Expected input to be re-enabled")
	}
}

func TestSubmitWithoutProviderSendsNothing(t *testing.T) {
	chat := &blockingChatter{release: make(chan struct{})}
	a, store := newTestApp(t, chat, true)
	if err := store.RemoveProvider(config.DefaultProviderName); err != nil {
		t.Fatalf("RemoveProvider() error = %v", err)
	}

	a.input.SetValue("hello")
	a = press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	if a.running {
		t.Error("Expected no job without a selected provider")
	}
	if chat.calls != 0 {
		t.Errorf("Expected no chat calls, got %d", chat.calls)
	}
	if a.input.Value() != "hello" {
		t.Errorf("Expected input to be kept, got %q", a.input.Value())
	}
	if a.statusLevel != statusWarning || !strings.Contains(a.status, "/config") {
		t.Errorf("Expected a warning pointing at /config, got %q", a.status)
	}
}

func TestFailureSurfacing(t *testing.T) {
	failure := model.Errorf(model.KindNetwork, "connection refused")

	tests := []struct {
		name    string
		surface bool
		want    string
	}{
		{"surfaced", true, "AI error (Network error): connection refused"},
		{"logged only", false, "error log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t, &blockingChatter{}, tt.surface)
			a.running = true

			a = deliver(t, a, job.Event[string]{Type: job.Failed, Err: failure})
			if !strings.Contains(a.status, tt.want) {
				t.Errorf("Expected status to contain %q, got %q", tt.want, a.status)
			}
		})
	}
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		kind model.ErrorKind
		want string
	}{
		{model.KindInvalidConfig, "AI error"},
		{model.KindNetwork, "AI error"},
		{model.KindEmptyResponse, "AI error"},
		{model.KindMalformedResponse, "AI error"},
		{model.KindDependencyMissing, "PDF generation error"},
		{model.KindConversionFailed, "PDF generation error"},
		{model.KindConversionTimeout, "PDF generation error"},
		{model.KindFilesystem, "PDF generation error"},
		{model.KindUnexpected, "Unexpected error"},
	}

	for _, tt := range tests {
		if got := stageOf(tt.kind); got != tt.want {
			t.Errorf("stageOf(%s) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	a, _ := newTestApp(t, &blockingChatter{}, true)

	a.input.SetValue("/frobnicate")
	a = press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	if a.running {
		t.Error("Expected commands not to start a job")
	}
	if !strings.Contains(a.status, "/frobnicate") {
		t.Errorf("Expected status to name the command, got %q", a.status)
	}
}

func TestConfigCommandOpensSettings(t *testing.T) {
	a, _ := newTestApp(t, &blockingChatter{}, true)

	a.input.SetValue("/config")
	a = press(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	if a.mode != viewSettings {
		t.Fatalf("Expected settings view, got %v", a.mode)
	}
	if len(a.settings.providers) != 1 || a.settings.selected != config.DefaultProviderName {
		t.Errorf("Expected the default provider to be listed and selected, got %+v", a.settings.providers)
	}

	a = press(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.mode != viewPrompt {
		t.Errorf("Expected Esc to return to the prompt, got %v", a.mode)
	}
}

func TestModelFilter(t *testing.T) {
	s := settingsState{
		models: []string{"gpt-4o", "gpt-4o-mini", "llama3", "qwen2.5"},
		filter: textinput.New(),
	}

	s.filter.SetValue("llm")
	s.applyModelFilter()
	if len(s.filtered) != 1 || s.filtered[0] != "llama3" {
		t.Errorf("Expected [llama3], got %v", s.filtered)
	}

	s.modelCursor = 3
	s.filter.SetValue("4o")
	s.applyModelFilter()
	if len(s.filtered) != 2 {
		t.Errorf("Expected two gpt-4o matches, got %v", s.filtered)
	}
	if s.modelCursor != 1 {
		t.Errorf("Expected cursor to be clamped to 1, got %d", s.modelCursor)
	}

	s.filter.SetValue("")
	s.applyModelFilter()
	if len(s.filtered) != len(s.models) {
		t.Errorf("Expected an empty filter to show every model, got %v", s.filtered)
	}
}

func TestProviderFormValidation(t *testing.T) {
	a, _ := newTestApp(t, &blockingChatter{}, true)
	a.openSettings()
	a = press(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})

	if a.settings.mode != settingsForm {
		t.Fatalf("Expected the provider form, got %v", a.settings.mode)
	}

	a = press(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if a.settings.form.err == "" {
		t.Error("Expected a validation error for an empty form")
	}
}

func TestIncompleteDraftDiscoveryIsQuiet(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantMsg bool
	}{
		{"no base url", "", false},
		{"complete config", "http://localhost:11434", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t, &blockingChatter{}, true)
			a.openSettings()

			cfg := model.ProviderConfig{Name: "draft", Kind: model.KindOllama, BaseURL: tt.baseURL}
			updated, _ := a.fetchModels(cfg, true)
			a = updated.(App)

			updated, _ = a.Update(discoveryEventMsg{event: job.Event[[]string]{Type: job.Succeeded, Result: []string{}}})
			a = updated.(App)

			if got := a.settings.message != ""; got != tt.wantMsg {
				t.Errorf("Expected message shown = %v, got %q", tt.wantMsg, a.settings.message)
			}
			if a.settings.mode == settingsModels {
				t.Error("Expected the picker to stay closed for an empty list")
			}
		})
	}
}
