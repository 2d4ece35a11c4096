package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/tidwall/gjson"
)

// ErrNoMessage is returned when a 2xx chat response produced no decodable
// message, as happens when a line exceeds the SDK's scanner buffer.
var ErrNoMessage = errors.New("chat response contained no decodable message")

// Client is a whole-response Ollama client bound to one base URL.
//
// The HTTP client is injected so callers control the transport (timeouts,
// proxy policy). A Client is meant to live for a single call.
type Client struct {
	client  *api.Client
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("Ollama base URL is required")
	}

	parsedURL, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid Ollama URL %q: scheme and host are required", baseURL)
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		client:  api.NewClient(parsedURL, httpClient),
		http:    httpClient,
		baseURL: trimmed,
	}, nil
}

// Chat posts to /api/chat with stream disabled and returns the answer text
// exactly as the server sent it. An empty string means the server sent a
// message with no content; a response with no message at all is ErrNoMessage.
func (c *Client) Chat(ctx context.Context, model string, messages []api.Message) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
	}

	var content strings.Builder
	decoded := false
	respFunc := func(resp api.ChatResponse) error {
		decoded = true
		content.WriteString(resp.Message.Content)
		return nil
	}

	if err := c.client.Chat(ctx, req, respFunc); err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	if !decoded {
		return "", ErrNoMessage
	}
	return content.String(), nil
}

// ListModels returns the names reported by /api/tags, in server order.
//
// The body is read raw so a 2xx answer without a "models" array is an error
// rather than an empty list. Non-2xx statuses are returned as errors too.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TagsEndpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build models request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read models response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("models request returned HTTP %d", resp.StatusCode)
	}
	return parseTags(body)
}

// parseTags accepts only {"models":[{"name":...}]}. Entries without a string
// name are skipped.
func parseTags(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("models response is not valid JSON")
	}
	models := gjson.GetBytes(body, "models")
	if !models.IsArray() {
		return nil, fmt.Errorf("unexpected response structure for Ollama models list")
	}

	names := make([]string, 0, len(models.Array()))
	models.ForEach(func(_, item gjson.Result) bool {
		if name := item.Get("name"); name.Type == gjson.String {
			names = append(names, name.String())
		}
		return true
	})
	return names, nil
}

// ChatEndpoint is the URL Chat posts to.
func (c *Client) ChatEndpoint() string {
	return c.baseURL + "/api/chat"
}

// TagsEndpoint is the URL ListModels reads from.
func (c *Client) TagsEndpoint() string {
	return c.baseURL + "/api/tags"
}
