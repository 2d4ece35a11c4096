package provider

import (
	"context"
	"net/http"
	"strings"
	"thoughtprint/model"
	"time"

	"github.com/rs/zerolog"
)

// Gateway sends whole-response chat requests and model listings to any
// configured provider.
//
// A Gateway holds no per-provider state: each call builds a fresh HTTP client
// from the config it is given, so a Gateway is safe for concurrent use and
// calls against different providers never share connections.
type Gateway struct {
	// Timeout bounds one call end to end. Zero means DefaultTimeout.
	Timeout time.Duration

	// Proxy picks the proxy for remote endpoints. Nil means a direct
	// connection. Loopback endpoints ignore it.
	Proxy ProxyFunc

	log zerolog.Logger
}

// NewGateway returns a gateway with DefaultTimeout that honours the proxy
// environment variables.
func NewGateway(log zerolog.Logger) *Gateway {
	return &Gateway{
		Timeout: DefaultTimeout,
		Proxy:   http.ProxyFromEnvironment,
		log:     log.With().Str("component", "gateway").Logger(),
	}
}

// Chat sends the system prompt and the user text to cfg's endpoint and returns
// the answer with surrounding whitespace trimmed.
//
// Errors are always *model.Error:
//   - KindInvalidConfig before any request when cfg is incomplete
//   - KindNetwork when no usable response arrived
//   - KindMalformedResponse when a 2xx body could not be decoded
//   - KindEmptyResponse when the answer text is missing or blank
func (g *Gateway) Chat(ctx context.Context, req model.ChatRequest, cfg model.ProviderConfig) (string, error) {
	if err := validateForChat(cfg); err != nil {
		return "", err
	}

	httpClient, obs := g.newHTTPClient(cfg.BaseURL)
	defer httpClient.CloseIdleConnections()

	b, err := newBackend(cfg, httpClient)
	if err != nil {
		return "", err
	}

	g.log.Debug().
		Str("provider", cfg.Name).
		Str("kind", string(cfg.Kind)).
		Str("model", cfg.Model).
		Str("endpoint", b.chatEndpoint()).
		Bool("direct", bypassesProxy(cfg.BaseURL)).
		Msg("sending chat request")

	started := time.Now()
	text, err := b.chat(ctx, req)
	if err != nil {
		classified := classify(err, obs, "chat request to "+b.chatEndpoint())
		g.log.Debug().Err(classified).Dur("elapsed", time.Since(started)).Msg("chat request failed")
		return "", classified
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", model.Errorf(model.KindEmptyResponse, "%s returned no content", b.chatEndpoint())
	}

	g.log.Debug().
		Int("chars", len(text)).
		Dur("elapsed", time.Since(started)).
		Msg("chat request succeeded")
	return text, nil
}

// ListModels returns the model identifiers cfg's endpoint advertises,
// deduplicated and sorted. The config's own model field is not required.
func (g *Gateway) ListModels(ctx context.Context, cfg model.ProviderConfig) ([]string, error) {
	if err := validateForListing(cfg); err != nil {
		return nil, err
	}

	httpClient, obs := g.newHTTPClient(cfg.BaseURL)
	defer httpClient.CloseIdleConnections()

	b, err := newBackend(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	g.log.Debug().
		Str("provider", cfg.Name).
		Str("endpoint", b.modelsEndpoint()).
		Msg("listing models")

	names, err := b.listModels(ctx)
	if err != nil {
		return nil, classify(err, obs, "models request to "+b.modelsEndpoint())
	}

	names = normalizeModels(names)
	g.log.Debug().Int("count", len(names)).Msg("models listed")
	return names, nil
}

func (g *Gateway) newHTTPClient(baseURL string) (*http.Client, *observingTransport) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	obs := &observingTransport{base: newTransport(baseURL, g.Proxy)}
	return &http.Client{Timeout: timeout, Transport: obs}, obs
}
