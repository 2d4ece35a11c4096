package provider

import (
	"strings"
	"thoughtprint/model"
)

// validateForChat checks everything Chat needs before touching the network.
func validateForChat(cfg model.ProviderConfig) error {
	if err := validateEndpoint(cfg); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return model.Errorf(model.KindInvalidConfig, "provider config is missing a model")
	}
	return nil
}

// validateForListing checks everything ListModels needs before touching the
// network. The model is not required since listing is how one gets picked.
func validateForListing(cfg model.ProviderConfig) error {
	return validateEndpoint(cfg)
}

func validateEndpoint(cfg model.ProviderConfig) error {
	if strings.TrimSpace(string(cfg.Kind)) == "" {
		return model.Errorf(model.KindInvalidConfig, "provider config is missing a type")
	}
	if !cfg.Kind.Valid() {
		return model.Errorf(model.KindInvalidConfig, "unsupported provider type: %s", cfg.Kind)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return model.Errorf(model.KindInvalidConfig, "provider config is missing a base URL")
	}
	if cfg.Kind.RequiresAPIKey() && strings.TrimSpace(cfg.APIKey) == "" {
		return model.Errorf(model.KindInvalidConfig, "API key is missing for OpenAI-compatible provider")
	}
	return nil
}

func trimTrailingSlash(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
