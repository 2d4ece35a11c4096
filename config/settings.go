package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"thoughtprint/model"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Settings is the user-editable document stored in settings.json.
type Settings struct {
	Providers            []model.ProviderConfig `json:"providers"`
	SelectedProviderName string                 `json:"selected_provider_name"`
	SystemPrompt         string                 `json:"system_prompt"`
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	out := *s
	out.Providers = append([]model.ProviderConfig(nil), s.Providers...)
	return &out
}

// Provider returns the provider called name.
func (s *Settings) Provider(name string) (model.ProviderConfig, bool) {
	for _, p := range s.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return model.ProviderConfig{}, false
}

var requiredSettingsKeys = []string{"providers", "selected_provider_name", "system_prompt"}

// SettingsStore persists Settings as JSON and is the only writer of
// provider configs. It is safe for concurrent use.
type SettingsStore struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	current *Settings
}

func NewSettingsStore(configDir string, log zerolog.Logger) *SettingsStore {
	return &SettingsStore{
		path: GetSettingsFilePath(configDir),
		log:  log.With().Str("component", "settings").Logger(),
	}
}

func (s *SettingsStore) Path() string {
	return s.path
}

// Load reads the settings file. A missing, unreadable or invalid file, or
// one lacking a required key, is replaced on disk by the defaults.
func (s *SettingsStore) Load() *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked().Clone()
}

func (s *SettingsStore) loadLocked() *Settings {
	settings, err := s.read()
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("using default settings")
		settings = DefaultSettings()
		if err := s.write(settings); err != nil {
			s.log.Error().Err(err).Msg("could not save default settings")
		}
	}

	s.current = settings
	return settings
}

func (s *SettingsStore) read() (*Settings, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("settings file is not valid JSON")
	}
	for _, key := range requiredSettingsKeys {
		if !gjson.GetBytes(data, key).Exists() {
			return nil, fmt.Errorf("settings file is missing %q", key)
		}
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	settings.Providers = s.dedupe(settings.Providers)
	return &settings, nil
}

// dedupe drops providers with an empty or repeated name; the first wins.
func (s *SettingsStore) dedupe(providers []model.ProviderConfig) []model.ProviderConfig {
	seen := make(map[string]bool, len(providers))
	out := make([]model.ProviderConfig, 0, len(providers))
	for i, p := range providers {
		name := strings.TrimSpace(p.Name)
		switch {
		case name == "":
			s.log.Warn().Int("index", i).Msg("dropping provider without a name")
			continue
		case seen[name]:
			s.log.Warn().Str("name", name).Msg("dropping duplicate provider")
			continue
		}
		seen[name] = true
		p.Name = name
		out = append(out, p)
	}
	return out
}

// Save writes settings to disk.
func (s *SettingsStore) Save(settings *Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(settings); err != nil {
		return err
	}
	s.current = settings.Clone()
	return nil
}

func (s *SettingsStore) write(settings *Settings) error {
	if err := EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	// 0600: the file holds API keys
	if err := os.WriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// snapshot returns the cached settings, loading them on first use.
func (s *SettingsStore) snapshot() *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.loadLocked()
	}
	return s.current.Clone()
}

// Current returns a copy of the settings as last loaded or saved.
func (s *SettingsStore) Current() *Settings {
	return s.snapshot()
}

// SelectedProvider returns a copy of the selected provider. It reports false
// when nothing is selected or the selection names no provider.
func (s *SettingsStore) SelectedProvider() (model.ProviderConfig, bool) {
	settings := s.snapshot()
	if settings.SelectedProviderName == "" {
		return model.ProviderConfig{}, false
	}
	return settings.Provider(settings.SelectedProviderName)
}

func (s *SettingsStore) SystemPrompt() string {
	return s.snapshot().SystemPrompt
}

// update applies fn to a copy of the settings and saves the result. The
// store stays locked throughout so concurrent edits do not interleave.
func (s *SettingsStore) update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.loadLocked()
	}
	settings := s.current.Clone()
	if err := fn(settings); err != nil {
		return err
	}
	if err := s.write(settings); err != nil {
		return err
	}
	s.current = settings
	return nil
}

// AddProvider appends cfg after validating it. Names must be unique.
func (s *SettingsStore) AddProvider(cfg model.ProviderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.update(func(settings *Settings) error {
		if _, exists := settings.Provider(cfg.Name); exists {
			return model.Errorf(model.KindInvalidConfig, "provider %q already exists", cfg.Name)
		}
		settings.Providers = append(settings.Providers, cfg)
		if settings.SelectedProviderName == "" {
			settings.SelectedProviderName = cfg.Name
		}
		return nil
	})
}

// UpdateProvider replaces the provider called name with cfg, which may carry
// a new name.
func (s *SettingsStore) UpdateProvider(name string, cfg model.ProviderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.update(func(settings *Settings) error {
		index := -1
		for i, p := range settings.Providers {
			if p.Name == name {
				index = i
			} else if p.Name == cfg.Name {
				return model.Errorf(model.KindInvalidConfig, "provider %q already exists", cfg.Name)
			}
		}
		if index < 0 {
			return fmt.Errorf("provider %q not found", name)
		}
		settings.Providers[index] = cfg
		if settings.SelectedProviderName == name {
			settings.SelectedProviderName = cfg.Name
		}
		return nil
	})
}

// RemoveProvider deletes the provider called name. Removing the selected
// provider selects the first remaining one, or none.
func (s *SettingsStore) RemoveProvider(name string) error {
	return s.update(func(settings *Settings) error {
		kept := settings.Providers[:0:0]
		for _, p := range settings.Providers {
			if p.Name != name {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(settings.Providers) {
			return fmt.Errorf("provider %q not found", name)
		}
		settings.Providers = kept

		if settings.SelectedProviderName == name {
			settings.SelectedProviderName = ""
			if len(kept) > 0 {
				settings.SelectedProviderName = kept[0].Name
			}
		}
		return nil
	})
}

func (s *SettingsStore) SelectProvider(name string) error {
	return s.update(func(settings *Settings) error {
		if _, ok := settings.Provider(name); !ok {
			return fmt.Errorf("cannot select provider %q: not found", name)
		}
		settings.SelectedProviderName = name
		return nil
	})
}

func (s *SettingsStore) UpdateSystemPrompt(prompt string) error {
	return s.update(func(settings *Settings) error {
		settings.SystemPrompt = prompt
		return nil
	})
}

// UpdateModel sets the model of the provider called name.
func (s *SettingsStore) UpdateModel(name, modelName string) error {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		return model.Errorf(model.KindInvalidConfig, "model name is empty")
	}
	return s.update(func(settings *Settings) error {
		for i := range settings.Providers {
			if settings.Providers[i].Name == name {
				settings.Providers[i].Model = modelName
				return nil
			}
		}
		return fmt.Errorf("provider %q not found", name)
	})
}
