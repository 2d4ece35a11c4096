package provider

import (
	"context"
	"io"
	"net/http"
	"strings"
	"thoughtprint/model"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIBackend speaks the OpenAI chat completions protocol.
//
// Chat goes through the official SDK with retries disabled, so every call is
// exactly one attempt. Model listing is read raw because OpenAI-compatible
// servers disagree on its shape (an object with "data" or a bare list).
type openAIBackend struct {
	client  openai.Client
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

func newOpenAIBackend(cfg model.ProviderConfig, httpClient *http.Client) *openAIBackend {
	baseURL := trimTrailingSlash(cfg.BaseURL)

	client := openai.NewClient(
		option.WithBaseURL(baseURL+"/"),
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
		// NewClient applies OPENAI_ORG_ID and OPENAI_PROJECT_ID from the
		// environment; third-party endpoints must not receive them.
		option.WithHeaderDel("OpenAI-Organization"),
		option.WithHeaderDel("OpenAI-Project"),
	)

	return &openAIBackend{
		client:  client,
		http:    httpClient,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   strings.TrimSpace(cfg.Model),
	}
}

func (b *openAIBackend) chat(ctx context.Context, req model.ChatRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserText),
		},
		Model: openai.ChatModel(b.model),
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (b *openAIBackend) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.modelsEndpoint(), nil)
	if err != nil {
		return nil, model.Wrap(model.KindInvalidConfig, err, "invalid models URL %s", b.modelsEndpoint())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.Wrap(model.KindNetwork, err, "reading models response from %s", b.modelsEndpoint())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.Errorf(model.KindNetwork, "models request to %s returned HTTP %d: %s",
			b.modelsEndpoint(), resp.StatusCode, snippet(body))
	}

	return parseOpenAIModels(body)
}

func (b *openAIBackend) chatEndpoint() string {
	return b.baseURL + "/chat/completions"
}

// modelsEndpoint avoids doubling the version segment when the base URL
// already ends in /v1.
func (b *openAIBackend) modelsEndpoint() string {
	if strings.HasSuffix(b.baseURL, "/v1") {
		return b.baseURL + "/models"
	}
	return b.baseURL + "/v1/models"
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
