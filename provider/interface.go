// Package provider is the gateway between ThoughtPrint and its AI backends.
//
// Two incompatible HTTP APIs are normalised into one contract:
//
//   - OpenAI-compatible chat APIs (POST {base}/chat/completions, GET {base}/v1/models)
//   - Ollama's local API (POST {base}/api/chat, GET {base}/api/tags)
//
// Callers only see Gateway.Chat and Gateway.ListModels, both taking a
// model.ProviderConfig by value. Every call validates the config before any
// network I/O, builds a fresh HTTP client for the endpoint, performs exactly one
// attempt and returns either a result or a *model.Error whose kind tells the
// caller what went wrong:
//
//   - model.KindInvalidConfig: missing fields or an unsupported kind (no request sent)
//   - model.KindNetwork: no response, timeout, or a non-2xx status
//   - model.KindEmptyResponse: 2xx status but no answer text
//   - model.KindMalformedResponse: 2xx status but an undecodable body
//
// # Proxies
//
// System proxies (HTTP_PROXY, HTTPS_PROXY, NO_PROXY) are honoured for remote
// endpoints. A base URL containing "localhost" or "127.0.0.1" is always dialed
// directly.
//
// # Usage
//
//	gw := provider.NewGateway(logger)
//	text, err := gw.Chat(ctx, model.ChatRequest{UserText: "Explain TCP"}, cfg)
//	if err != nil {
//	    kind := model.KindOf(err)
//	    // handle error
//	}
package provider

import (
	"context"
	"thoughtprint/model"
	"time"
)

// DefaultTimeout bounds every outbound call made by the gateway.
const DefaultTimeout = 300 * time.Second

// backend is one wire protocol bound to a single config and HTTP client.
type backend interface {
	chat(ctx context.Context, req model.ChatRequest) (string, error)
	listModels(ctx context.Context) ([]string, error)
	chatEndpoint() string
	modelsEndpoint() string
}
