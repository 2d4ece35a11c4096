package config

import "thoughtprint/model"

const (
	DefaultProviderName  = "Ollama Local Llama3"
	DefaultSystemPrompt  = "You are a helpful assistant. Please format your response in Markdown."
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "llama3"

	DefaultConvertTimeoutSeconds = 60
	DefaultNetworkTimeoutSeconds = 300
)

func DefaultConfig() *Config {
	return &Config{
		Converter: ConverterConfig{
			Pandoc:         "pandoc",
			XeLaTeX:        "xelatex",
			PDFEngine:      "xelatex",
			CJKFont:        "SimSun",
			TimeoutSeconds: DefaultConvertTimeoutSeconds,
		},
		Network: NetworkConfig{
			TimeoutSeconds: DefaultNetworkTimeoutSeconds,
		},
	}
}

// DefaultSettings is the document written when settings.json is missing or
// unusable.
func DefaultSettings() *Settings {
	return &Settings{
		Providers: []model.ProviderConfig{
			{
				Name:    DefaultProviderName,
				Kind:    model.KindOllama,
				BaseURL: DefaultOllamaBaseURL,
				Model:   DefaultOllamaModel,
			},
		},
		SelectedProviderName: DefaultProviderName,
		SystemPrompt:         DefaultSystemPrompt,
	}
}

func GenerateConfigTemplate() string {
	return `# ThoughtPrint Configuration
# Location: ~/.config/thoughtprint/config.toml
# This file uses TOML format: https://toml.io
# Providers and the system prompt live in settings.json next to this file.

[output]
# Where .md/.pdf pairs are written. Empty means <Documents>/ThoughtPrint,
# falling back to $XDG_DOCUMENTS_DIR, the home directory, then the working directory.
directory = ""

[converter]
pandoc = "pandoc"
xelatex = "xelatex"
pdf_engine = "xelatex"
# Empty means ./no-remote-images.lua relative to the working directory
lua_filter = ""
cjk_font = "SimSun"
timeout_seconds = 60

[network]
# Upper bound for one request to a provider
timeout_seconds = 300

[ui]
# Show job failures in the window (they are always written to the log)
surface_errors = false

[log]
# Empty means <data directory>/logs
directory = ""
# Also write human-readable log lines to stderr
console = false
`
}
