package provider

import (
	"context"
	"net/http"
	"thoughtprint/model"
	"thoughtprint/ollama"

	"github.com/ollama/ollama/api"
)

// ollamaBackend adapts the ollama.Client to the gateway contract.
type ollamaBackend struct {
	client *ollama.Client
	model  string
}

func newOllamaBackend(cfg model.ProviderConfig, httpClient *http.Client) (*ollamaBackend, error) {
	client, err := ollama.NewClient(cfg.BaseURL, httpClient)
	if err != nil {
		return nil, model.Wrap(model.KindInvalidConfig, err, "failed to create Ollama client")
	}
	return &ollamaBackend{client: client, model: cfg.Model}, nil
}

func (b *ollamaBackend) chat(ctx context.Context, req model.ChatRequest) (string, error) {
	return b.client.Chat(ctx, b.model, toOllamaMessages(req.Messages()))
}

func (b *ollamaBackend) listModels(ctx context.Context) ([]string, error) {
	return b.client.ListModels(ctx)
}

func (b *ollamaBackend) chatEndpoint() string {
	return b.client.ChatEndpoint()
}

func (b *ollamaBackend) modelsEndpoint() string {
	return b.client.TagsEndpoint()
}

func toOllamaMessages(messages []model.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		out = append(out, api.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}
