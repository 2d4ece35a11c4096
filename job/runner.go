package job

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"thoughtprint/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrBusy is returned when a job from the same orchestrator is still running.
	ErrBusy = errors.New("a job is already running")

	// ErrEmptyPrompt is returned for prompts that are blank after trimming.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// runner is the single-flight executor shared by the orchestrators.
type runner[T any] struct {
	gate    *semaphore.Weighted
	running atomic.Bool
	log     zerolog.Logger
}

func newRunner[T any](log zerolog.Logger) *runner[T] {
	return &runner[T]{
		gate: semaphore.NewWeighted(1),
		log:  log,
	}
}

// start runs work on its own goroutine unless a job is already running.
//
// The gate is released before Completed is sent, so a consumer reacting to
// Completed can submit again straight away. The channel has room for both
// events; an abandoned job never blocks.
func (r *runner[T]) start(ctx context.Context, work func(context.Context) (T, error)) (<-chan Event[T], error) {
	if !r.gate.TryAcquire(1) {
		return nil, ErrBusy
	}
	r.running.Store(true)

	events := make(chan Event[T], 2)
	go func() {
		defer close(events)

		outcome := r.execute(ctx, work)
		events <- outcome

		r.running.Store(false)
		r.gate.Release(1)
		events <- Event[T]{Type: Completed}
	}()
	return events, nil
}

func (r *runner[T]) busy() bool {
	return r.running.Load()
}

func (r *runner[T]) execute(ctx context.Context, work func(context.Context) (T, error)) (ev Event[T]) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().
				Str("panic", fmt.Sprint(p)).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
			ev = Event[T]{Type: Failed, Err: model.Errorf(model.KindUnexpected, "an unexpected error occurred: %v", p)}
		}
	}()

	result, err := work(ctx)
	if err != nil {
		return Event[T]{Type: Failed, Err: asJobError(err)}
	}
	return Event[T]{Type: Succeeded, Result: result}
}

// asJobError keeps typed errors and files everything else as unexpected.
func asJobError(err error) *model.Error {
	if e, ok := model.AsError(err); ok {
		return e
	}
	return model.Wrap(model.KindUnexpected, err, "an unexpected error occurred")
}
