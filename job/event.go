// Package job runs chat-then-render jobs and model discoveries off the UI
// loop.
//
// Every orchestrator admits one job at a time. A job reports exactly one
// outcome event (Succeeded or Failed) followed by exactly one Completed
// event, after which its channel is closed.
package job

import "thoughtprint/model"

// EventType is the kind of signal a job emits.
type EventType int

const (
	Succeeded EventType = iota + 1
	Failed
	Completed
)

func (t EventType) String() string {
	switch t {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Event is one signal from a running job. Result is set for Succeeded and
// Err for Failed; Completed carries neither.
type Event[T any] struct {
	Type   EventType
	Result T
	Err    *model.Error
}
