package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"thoughtprint/model"
	"time"

	"github.com/rs/zerolog"
)

func newTestGateway() *Gateway {
	return &Gateway{Timeout: 5 * time.Second, log: zerolog.Nop()}
}

func openAIConfig(baseURL string) model.ProviderConfig {
	return model.ProviderConfig{
		Name:    "test-openai",
		Kind:    model.KindOpenAICompatible,
		BaseURL: baseURL,
		APIKey:  "sk-test",
		Model:   "gpt-4",
	}
}

func ollamaConfig(baseURL string) model.ProviderConfig {
	return model.ProviderConfig{
		Name:    "test-ollama",
		Kind:    model.KindOllama,
		BaseURL: baseURL,
		Model:   "llama3",
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func completionBody(content string) string {
	payload := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestChatOpenAICompatible(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusOK, completionBody("\n  # Answer\n\nBody text.  \n"))
	}))
	defer server.Close()

	req := model.ChatRequest{UserText: "Explain TCP", SystemPrompt: "Use Markdown."}
	text, err := newTestGateway().Chat(context.Background(), req, openAIConfig(server.URL+"/v1/"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if text != "# Answer\n\nBody text." {
		t.Errorf("text: got %q", text)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization: got %q", gotAuth)
	}
	if gotBody.Model != "gpt-4" {
		t.Errorf("model: got %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(gotBody.Messages))
	}
	if gotBody.Messages[0].Role != "system" || gotBody.Messages[0].Content != "Use Markdown." {
		t.Errorf("system message: %+v", gotBody.Messages[0])
	}
	if gotBody.Messages[1].Role != "user" || gotBody.Messages[1].Content != "Explain TCP" {
		t.Errorf("user message: %+v", gotBody.Messages[1])
	}
}

func TestChatOpenAIIgnoresEnvironmentHeaders(t *testing.T) {
	t.Setenv("OPENAI_ORG_ID", "org-from-env")
	t.Setenv("OPENAI_PROJECT_ID", "proj-from-env")

	var gotOrg, gotProject string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrg = r.Header.Get("OpenAI-Organization")
		gotProject = r.Header.Get("OpenAI-Project")
		writeJSON(w, http.StatusOK, completionBody("ok"))
	}))
	defer server.Close()

	if _, err := newTestGateway().Chat(context.Background(), model.ChatRequest{UserText: "q"}, openAIConfig(server.URL)); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotOrg != "" {
		t.Errorf("OpenAI-Organization forwarded: %q", gotOrg)
	}
	if gotProject != "" {
		t.Errorf("OpenAI-Project forwarded: %q", gotProject)
	}
}

func TestChatOllama(t *testing.T) {
	var gotStream *bool
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Stream *bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotStream = body.Stream
		writeJSON(w, http.StatusOK, `{"model":"llama3","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"  hello from ollama\n"},"done":true}`)
	}))
	defer server.Close()

	text, err := newTestGateway().Chat(context.Background(), model.ChatRequest{UserText: "hi"}, ollamaConfig(server.URL))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if text != "hello from ollama" {
		t.Errorf("text: got %q", text)
	}
	if gotPath != "/api/chat" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotStream == nil || *gotStream {
		t.Errorf("stream should be sent as false, got %v", gotStream)
	}
}

func TestChatErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		config   func(url string) model.ProviderConfig
		status   int
		body     string
		wantKind model.ErrorKind
	}{
		{
			name:     "openai empty content",
			config:   openAIConfig,
			status:   http.StatusOK,
			body:     completionBody(""),
			wantKind: model.KindEmptyResponse,
		},
		{
			name:     "openai whitespace content",
			config:   openAIConfig,
			status:   http.StatusOK,
			body:     completionBody(" \n\t "),
			wantKind: model.KindEmptyResponse,
		},
		{
			name:     "openai no choices",
			config:   openAIConfig,
			status:   http.StatusOK,
			body:     `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4","choices":[]}`,
			wantKind: model.KindEmptyResponse,
		},
		{
			name:     "openai server error",
			config:   openAIConfig,
			status:   http.StatusInternalServerError,
			body:     `{"error":{"message":"boom"}}`,
			wantKind: model.KindNetwork,
		},
		{
			name:     "openai unauthorized",
			config:   openAIConfig,
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"bad key"}}`,
			wantKind: model.KindNetwork,
		},
		{
			name:     "openai undecodable body",
			config:   openAIConfig,
			status:   http.StatusOK,
			body:     `this is not json`,
			wantKind: model.KindMalformedResponse,
		},
		{
			name:     "ollama empty content",
			config:   ollamaConfig,
			status:   http.StatusOK,
			body:     `{"model":"llama3","message":{"role":"assistant","content":""},"done":true}`,
			wantKind: model.KindEmptyResponse,
		},
		{
			name:     "ollama missing model",
			config:   ollamaConfig,
			status:   http.StatusNotFound,
			body:     `{"error":"model 'llama3' not found"}`,
			wantKind: model.KindNetwork,
		},
		{
			name:     "ollama line longer than the decoder buffer",
			config:   ollamaConfig,
			status:   http.StatusOK,
			body:     `{"model":"llama3","message":{"role":"assistant","content":"` + strings.Repeat("a", 600000) + `"},"done":true}`,
			wantKind: model.KindMalformedResponse,
		},
		{
			name:     "ollama undecodable body",
			config:   ollamaConfig,
			status:   http.StatusOK,
			body:     `<html>proxy login</html>`,
			wantKind: model.KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			_, err := newTestGateway().Chat(context.Background(), model.ChatRequest{UserText: "q"}, tt.config(server.URL))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := model.KindOf(err); got != tt.wantKind {
				t.Errorf("kind: got %q, want %q (err: %v)", got, tt.wantKind, err)
			}
			if got := hits.Load(); got != 1 {
				t.Errorf("expected exactly one attempt, got %d", got)
			}
		})
	}
}

func TestChatInvalidConfigSendsNothing(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	tests := []struct {
		name   string
		config model.ProviderConfig
	}{
		{name: "missing model", config: model.ProviderConfig{Name: "x", Kind: model.KindOllama, BaseURL: server.URL}},
		{name: "missing base url", config: model.ProviderConfig{Name: "x", Kind: model.KindOllama, Model: "llama3"}},
		{name: "missing kind", config: model.ProviderConfig{Name: "x", BaseURL: server.URL, Model: "llama3"}},
		{name: "unsupported kind", config: model.ProviderConfig{Name: "x", Kind: "anthropic", BaseURL: server.URL, Model: "claude"}},
		{name: "openai missing key", config: model.ProviderConfig{Name: "x", Kind: model.KindOpenAICompatible, BaseURL: server.URL, Model: "gpt-4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestGateway().Chat(context.Background(), model.ChatRequest{UserText: "q"}, tt.config)
			if got := model.KindOf(err); got != model.KindInvalidConfig {
				t.Errorf("kind: got %q, want %q", got, model.KindInvalidConfig)
			}
		})
	}

	if got := hits.Load(); got != 0 {
		t.Errorf("invalid configs should not reach the server, got %d requests", got)
	}
}

func TestChatConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := newTestGateway().Chat(context.Background(), model.ChatRequest{UserText: "q"}, ollamaConfig(baseURL))
	if got := model.KindOf(err); got != model.KindNetwork {
		t.Errorf("kind: got %q, want %q (err: %v)", got, model.KindNetwork, err)
	}
}

func TestChatTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	gw := newTestGateway()
	gw.Timeout = 100 * time.Millisecond

	started := time.Now()
	_, err := gw.Chat(context.Background(), model.ChatRequest{UserText: "q"}, openAIConfig(server.URL))
	if got := model.KindOf(err); got != model.KindNetwork {
		t.Errorf("kind: got %q, want %q (err: %v)", got, model.KindNetwork, err)
	}
	if elapsed := time.Since(started); elapsed > 3*time.Second {
		t.Errorf("timeout not enforced, call took %v", elapsed)
	}
}

func TestListModelsOpenAICompatible(t *testing.T) {
	tests := []struct {
		name     string
		suffix   string
		body     string
		wantPath string
		want     []string
	}{
		{
			name:     "data object with v1 base",
			suffix:   "/v1",
			body:     `{"object":"list","data":[{"id":"gpt-4"},{"id":"gpt-3.5-turbo"},{"id":"gpt-4"}]}`,
			wantPath: "/v1/models",
			want:     []string{"gpt-3.5-turbo", "gpt-4"},
		},
		{
			name:     "bare list without v1 base",
			suffix:   "",
			body:     `[{"id":"mixtral"},{"id":"llama-3"},{"name":"no-id"}]`,
			wantPath: "/v1/models",
			want:     []string{"llama-3", "mixtral"},
		},
		{
			name:     "trailing slash on base",
			suffix:   "/v1/",
			body:     `{"data":[]}`,
			wantPath: "/v1/models",
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				writeJSON(w, http.StatusOK, tt.body)
			}))
			defer server.Close()

			cfg := openAIConfig(server.URL + tt.suffix)
			cfg.Model = ""
			got, err := newTestGateway().ListModels(context.Background(), cfg)
			if err != nil {
				t.Fatalf("ListModels: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("models: got %v, want %v", got, tt.want)
			}
			if gotPath != tt.wantPath {
				t.Errorf("path: got %q, want %q", gotPath, tt.wantPath)
			}
			if gotAuth != "Bearer sk-test" {
				t.Errorf("authorization: got %q", gotAuth)
			}
		})
	}
}

func TestListModelsOllama(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeJSON(w, http.StatusOK, `{"models":[{"name":"mistral:latest"},{"name":"llama3:latest"}]}`)
	}))
	defer server.Close()

	got, err := newTestGateway().ListModels(context.Background(), ollamaConfig(server.URL+"/"))
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if want := []string{"llama3:latest", "mistral:latest"}; !reflect.DeepEqual(got, want) {
		t.Errorf("models: got %v, want %v", got, want)
	}
	if gotPath != "/api/tags" {
		t.Errorf("path: got %q", gotPath)
	}
}

func TestListModelsErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		config   func(url string) model.ProviderConfig
		status   int
		body     string
		wantKind model.ErrorKind
	}{
		{name: "openai unexpected structure", config: openAIConfig, status: http.StatusOK, body: `{"models":["a"]}`, wantKind: model.KindMalformedResponse},
		{name: "openai not json", config: openAIConfig, status: http.StatusOK, body: `nope`, wantKind: model.KindMalformedResponse},
		{name: "openai forbidden", config: openAIConfig, status: http.StatusForbidden, body: `{}`, wantKind: model.KindNetwork},
		{name: "ollama server error", config: ollamaConfig, status: http.StatusInternalServerError, body: `{"error":"boom"}`, wantKind: model.KindNetwork},
		{name: "ollama not json", config: ollamaConfig, status: http.StatusOK, body: `nope`, wantKind: model.KindMalformedResponse},
		{name: "ollama missing models array", config: ollamaConfig, status: http.StatusOK, body: `{"foo":1}`, wantKind: model.KindMalformedResponse},
		{name: "ollama models not an array", config: ollamaConfig, status: http.StatusOK, body: `{"models":"llama3"}`, wantKind: model.KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			_, err := newTestGateway().ListModels(context.Background(), tt.config(server.URL))
			if got := model.KindOf(err); got != tt.wantKind {
				t.Errorf("kind: got %q, want %q (err: %v)", got, tt.wantKind, err)
			}
		})
	}
}

func TestListModelsRequiresKeyForOpenAI(t *testing.T) {
	cfg := openAIConfig("http://127.0.0.1:1")
	cfg.APIKey = ""
	_, err := newTestGateway().ListModels(context.Background(), cfg)
	if got := model.KindOf(err); got != model.KindInvalidConfig {
		t.Errorf("kind: got %q, want %q", got, model.KindInvalidConfig)
	}
}

func TestLoopbackBypassesProxy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"models":[{"name":"llama3"}]}`)
	}))
	defer server.Close()

	var proxyCalls atomic.Int32
	gw := newTestGateway()
	gw.Proxy = func(*http.Request) (*url.URL, error) {
		proxyCalls.Add(1)
		return url.Parse("http://127.0.0.1:1")
	}

	if _, err := gw.ListModels(context.Background(), ollamaConfig(server.URL)); err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if got := proxyCalls.Load(); got != 0 {
		t.Errorf("loopback endpoint consulted the proxy %d times", got)
	}
}

func TestRemoteEndpointUsesProxy(t *testing.T) {
	var proxiedHost atomic.Value
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxiedHost.Store(r.Host)
		writeJSON(w, http.StatusOK, `{"models":[{"name":"remote-model"}]}`)
	}))
	defer proxy.Close()

	proxyURL, err := url.Parse(proxy.URL)
	if err != nil {
		t.Fatal(err)
	}
	gw := newTestGateway()
	gw.Proxy = http.ProxyURL(proxyURL)

	got, err := gw.ListModels(context.Background(), ollamaConfig("http://models.example.test"))
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if want := []string{"remote-model"}; !reflect.DeepEqual(got, want) {
		t.Errorf("models: got %v, want %v", got, want)
	}
	if host, _ := proxiedHost.Load().(string); host != "models.example.test" {
		t.Errorf("proxy saw host %q", host)
	}
}

func TestBypassesProxy(t *testing.T) {
	tests := []struct {
		baseURL string
		want    bool
	}{
		{"http://localhost:11434", true},
		{"http://127.0.0.1:8080/v1", true},
		{"https://api.openai.com/v1", false},
		{"http://10.0.0.5:11434", false},
	}
	for _, tt := range tests {
		if got := bypassesProxy(tt.baseURL); got != tt.want {
			t.Errorf("bypassesProxy(%q) = %v, want %v", tt.baseURL, got, tt.want)
		}
	}
}
