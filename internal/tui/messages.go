package tui

import "time"

// pollTickMsg drives the redraw loop. Every tick the model polls the
// task layer for finished operations and re-renders.
type pollTickMsg time.Time

// searchDebounceMsg fires after the search input has been idle long
// enough to issue the query.
type searchDebounceMsg struct {
	query string
}
