package provider

import (
	"net/http"
	"thoughtprint/model"
)

// newBackend binds the wire protocol for cfg.Kind to one HTTP client.
//
// The config must already have passed validation; an unknown kind is still
// rejected here so the dispatch stays exhaustive.
func newBackend(cfg model.ProviderConfig, httpClient *http.Client) (backend, error) {
	switch cfg.Kind {
	case model.KindOpenAICompatible:
		return newOpenAIBackend(cfg, httpClient), nil
	case model.KindOllama:
		return newOllamaBackend(cfg, httpClient)
	default:
		return nil, model.Errorf(model.KindInvalidConfig, "unsupported provider type: %s", cfg.Kind)
	}
}
