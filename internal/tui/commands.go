package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// pollInterval is how often the UI wakes up to poll for completed
// operations. 100ms keeps the spinner smooth without busy-looping.
const pollInterval = 100 * time.Millisecond

// searchDebounce is how long the search input must be idle before a
// query is sent to the backend.
const searchDebounce = 400 * time.Millisecond

func pollTickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func searchDebounceCmd(query string) tea.Cmd {
	return tea.Tick(searchDebounce, func(time.Time) tea.Msg {
		return searchDebounceMsg{query: query}
	})
}
