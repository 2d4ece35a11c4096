package job

import (
	"context"
	"strings"
	"thoughtprint/model"

	"github.com/rs/zerolog"
)

// ModelLister lists the models a provider offers.
type ModelLister interface {
	ListModels(ctx context.Context, cfg model.ProviderConfig) ([]string, error)
}

// ModelDiscoveryOrchestrator fetches model lists while a provider is being
// edited, one fetch at a time.
type ModelDiscoveryOrchestrator struct {
	lister ModelLister
	runner *runner[[]string]
	log    zerolog.Logger
}

func NewModelDiscoveryOrchestrator(lister ModelLister, log zerolog.Logger) *ModelDiscoveryOrchestrator {
	log = log.With().Str("component", "discovery").Logger()
	return &ModelDiscoveryOrchestrator{
		lister: lister,
		runner: newRunner[[]string](log),
		log:    log,
	}
}

func (o *ModelDiscoveryOrchestrator) Running() bool {
	return o.runner.busy()
}

// Submit starts a model listing for cfg. A config without a kind or base URL
// succeeds with an empty list without contacting anything: there is not
// enough information to fetch yet, which is not a failure.
func (o *ModelDiscoveryOrchestrator) Submit(ctx context.Context, cfg model.ProviderConfig) (<-chan Event[[]string], error) {
	return o.runner.start(ctx, func(ctx context.Context) ([]string, error) {
		if strings.TrimSpace(string(cfg.Kind)) == "" || strings.TrimSpace(cfg.BaseURL) == "" {
			o.log.Debug().Msg("skipping model discovery for incomplete config")
			return []string{}, nil
		}

		models, err := o.lister.ListModels(ctx, cfg)
		if err != nil {
			o.log.Error().Err(err).Str("provider", cfg.Redacted()).Msg("model discovery failed")
			return nil, err
		}
		if models == nil {
			models = []string{}
		}
		o.log.Info().Str("provider", cfg.Name).Int("count", len(models)).Msg("models discovered")
		return models, nil
	})
}
