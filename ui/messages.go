package ui

import (
	"thoughtprint/job"
	"thoughtprint/storage"

	tea "github.com/charmbracelet/bubbletea"
)

// requestEventMsg carries one event of the running chat job together with
// the channel the next one will arrive on.
type requestEventMsg struct {
	event  job.Event[string]
	events <-chan job.Event[string]
}

// discoveryEventMsg is requestEventMsg for model discovery.
type discoveryEventMsg struct {
	event  job.Event[[]string]
	events <-chan job.Event[[]string]
}

type historyLoadedMsg struct {
	entries []storage.Entry
	err     error
}

type previewLoadedMsg struct {
	path     string
	markdown string
	err      error
}

// settingsSavedMsg reports the result of a settings write. note is shown on
// success.
type settingsSavedMsg struct {
	note string
	err  error
}

// waitForRequest receives exactly one event, so the outcome is always
// handled before Completed.
func waitForRequest(events <-chan job.Event[string]) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return requestEventMsg{event: ev, events: events}
	}
}

func waitForDiscovery(events <-chan job.Event[[]string]) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return discoveryEventMsg{event: ev, events: events}
	}
}
