package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mholden/brewdeck/internal/domain"
)

// ID identifies one in-flight task
type ID string

// newID returns a fresh task id
func newID() ID {
	return ID(uuid.NewString())
}

// State is the lifecycle state of a task handle
type State int

const (
	StatePending State = iota
	StateCompleted
	StateCancelled
)

// Request describes the work a task performs. Run executes on a worker
// goroutine with a deadline-carrying context and must return a classified
// outcome; it must not block the caller of Submit.
type Request struct {
	Kind    domain.OperationKind
	Ref     domain.PackageRef // zero value for global operations
	Label   string            // human-readable description for status lines
	Timeout time.Duration     // 0 means the manager default
	Run     func(ctx context.Context) domain.Outcome
}

// Handle is the unit of in-flight asynchronous work. It is owned by the
// Manager from creation until polled to a terminal state.
type Handle struct {
	id  ID
	req Request

	mu        sync.Mutex
	state     State
	outcome   domain.Outcome
	finished  bool // outcome recorded, regardless of cancellation
	cancelled bool
}

func newHandle(req Request) *Handle {
	return &Handle{id: newID(), req: req}
}

// ID returns the task id
func (h *Handle) ID() ID { return h.id }

// complete records the outcome exactly once. A cancelled handle keeps its
// Cancelled state; the outcome is recorded but discarded on poll.
func (h *Handle) complete(outcome domain.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return
	}
	h.finished = true
	h.outcome = outcome
	if h.state == StatePending {
		h.state = StateCompleted
	}
}

// cancel marks the handle cancelled. The worker is not interrupted; the
// result is discarded when polled.
func (h *Handle) cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateCancelled
	h.cancelled = true
}

// poll returns (outcome, terminal, discarded)
func (h *Handle) poll() (domain.Outcome, bool, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.finished {
		return domain.Outcome{}, false, false
	}
	return h.outcome, true, h.cancelled
}
