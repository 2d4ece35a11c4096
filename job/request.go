package job

import (
	"context"
	"path/filepath"
	"strings"
	"thoughtprint/model"
	"thoughtprint/render"
	"thoughtprint/storage"
	"time"

	"github.com/rs/zerolog"
)

// Chatter sends one whole-response chat request.
type Chatter interface {
	Chat(ctx context.Context, req model.ChatRequest, cfg model.ProviderConfig) (string, error)
}

// Renderer turns an answer into an artifact pair.
type Renderer interface {
	DerivePaths(seed string) (dir, baseName string, err error)
	Render(ctx context.Context, markdown, dir, baseName string) (string, error)
}

// HistorySink records finished jobs.
type HistorySink interface {
	Record(ctx context.Context, entry storage.Entry) error
}

// RequestOrchestrator runs chat-then-render jobs, one at a time.
type RequestOrchestrator struct {
	chat    Chatter
	render  Renderer
	history HistorySink
	runner  *runner[string]
	log     zerolog.Logger
}

func NewRequestOrchestrator(chat Chatter, render Renderer, log zerolog.Logger) *RequestOrchestrator {
	log = log.With().Str("component", "request").Logger()
	return &RequestOrchestrator{
		chat:   chat,
		render: render,
		runner: newRunner[string](log),
		log:    log,
	}
}

// WithHistory makes the orchestrator record every finished job in sink.
func (o *RequestOrchestrator) WithHistory(sink HistorySink) *RequestOrchestrator {
	o.history = sink
	return o
}

// Running reports whether a job is in flight.
func (o *RequestOrchestrator) Running() bool {
	return o.runner.busy()
}

// Submit starts a job that asks cfg's provider about prompt and renders the
// answer. On success the outcome event carries the PDF path.
//
// cfg is copied, so later edits to the caller's settings do not reach the
// job. Submit returns ErrBusy while another job runs and ErrEmptyPrompt for
// a blank prompt; in both cases nothing is started.
func (o *RequestOrchestrator) Submit(ctx context.Context, prompt string, cfg model.ProviderConfig, systemPrompt string) (<-chan Event[string], error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	events, err := o.runner.start(ctx, func(ctx context.Context) (string, error) {
		return o.run(ctx, prompt, cfg, systemPrompt)
	})
	if err != nil {
		o.log.Warn().Msg("submission rejected: a job is already running")
		return nil, err
	}
	return events, nil
}

func (o *RequestOrchestrator) run(ctx context.Context, prompt string, cfg model.ProviderConfig, systemPrompt string) (pdfPath string, err error) {
	entry := storage.Entry{
		Provider:  cfg.Name,
		Model:     cfg.Model,
		Prompt:    prompt,
		CreatedAt: time.Now(),
	}
	defer func() {
		if p := recover(); p != nil {
			o.finish(entry, "", model.Errorf(model.KindUnexpected, "an unexpected error occurred: %v", p))
			panic(p)
		}
		o.finish(entry, pdfPath, err)
	}()

	o.log.Info().Str("provider", cfg.Redacted()).Int("prompt_len", len(prompt)).Msg("job started")

	answer, err := o.chat.Chat(ctx, model.ChatRequest{UserText: prompt, SystemPrompt: systemPrompt}, cfg)
	if err != nil {
		return "", err
	}
	entry.Summary = render.Summarize(answer, 80)

	dir, baseName, err := o.render.DerivePaths(prompt)
	if err != nil {
		return "", err
	}
	entry.MarkdownPath = filepath.Join(dir, baseName+".md")

	return o.render.Render(ctx, answer, dir, baseName)
}

// finish logs the outcome and records it in the ledger. Ledger failures are
// only logged.
func (o *RequestOrchestrator) finish(entry storage.Entry, pdfPath string, err error) {
	entry.FinishedAt = time.Now()
	if err != nil {
		jobErr := asJobError(err)
		entry.Status = storage.StatusFailed
		entry.ErrorKind = string(jobErr.Kind)
		entry.ErrorMessage = jobErr.Error()
		o.log.Error().Err(jobErr).Str("kind", string(jobErr.Kind)).Msg("job failed")
	} else {
		entry.Status = storage.StatusSucceeded
		entry.PDFPath = pdfPath
		o.log.Info().Str("pdf", pdfPath).Dur("elapsed", entry.FinishedAt.Sub(entry.CreatedAt)).Msg("job succeeded")
	}

	if o.history == nil {
		return
	}
	if recErr := o.history.Record(context.Background(), entry); recErr != nil {
		o.log.Warn().Err(recErr).Msg("failed to record job in history")
	}
}
