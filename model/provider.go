package model

import (
	"fmt"
	"strings"
)

// Kind identifies the wire protocol spoken by a provider endpoint.
//
// Kind is a closed set. Values read from a settings file that are not part of
// the set are kept as-is so the file round-trips, but Valid reports false and
// every gateway call rejects them.
type Kind string

const (
	KindOpenAICompatible Kind = "openai_compatible"
	KindOllama           Kind = "ollama"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindOllama, KindOpenAICompatible}
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindOpenAICompatible, KindOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey reports whether requests for this kind carry a bearer token.
func (k Kind) RequiresAPIKey() bool {
	return k == KindOpenAICompatible
}

func (k Kind) String() string {
	switch k {
	case KindOpenAICompatible:
		return "OpenAI-compatible"
	case KindOllama:
		return "Ollama"
	default:
		return string(k)
	}
}

// ProviderConfig describes one backend endpoint.
//
// It only holds strings, so assigning or passing a ProviderConfig by value is
// a full copy. Jobs rely on that to stay isolated from later settings edits.
type ProviderConfig struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"type"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model"`
}

// NewProviderConfig builds a validated provider config. Surrounding
// whitespace is trimmed from every field, and the API key is dropped for kinds
// that do not use one.
func NewProviderConfig(name string, kind Kind, baseURL, apiKey, modelName string) (ProviderConfig, error) {
	cfg := ProviderConfig{
		Name:    strings.TrimSpace(name),
		Kind:    Kind(strings.TrimSpace(string(kind))),
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(modelName),
	}
	if !cfg.Kind.RequiresAPIKey() {
		cfg.APIKey = ""
	}
	if err := cfg.Validate(); err != nil {
		return ProviderConfig{}, err
	}
	return cfg, nil
}

// Validate checks the invariants of a usable provider config: a name, a
// supported kind, a base URL, a model, and an API key iff the kind requires one.
func (c ProviderConfig) Validate() error {
	if c.Name == "" {
		return Errorf(KindInvalidConfig, "provider name is required")
	}
	if !c.Kind.Valid() {
		return Errorf(KindInvalidConfig, "unsupported provider type %q", string(c.Kind))
	}
	if c.BaseURL == "" {
		return Errorf(KindInvalidConfig, "provider %q is missing a base URL", c.Name)
	}
	if c.Model == "" {
		return Errorf(KindInvalidConfig, "provider %q is missing a model", c.Name)
	}
	if c.Kind.RequiresAPIKey() && c.APIKey == "" {
		return Errorf(KindInvalidConfig, "provider %q requires an API key", c.Name)
	}
	return nil
}

// Redacted returns a log-safe description of the config.
func (c ProviderConfig) Redacted() string {
	key := "none"
	if c.APIKey != "" {
		key = "set"
	}
	return fmt.Sprintf("%s (%s, %s, model=%s, key=%s)", c.Name, c.Kind, c.BaseURL, c.Model, key)
}
