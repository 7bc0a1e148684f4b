package task

import (
	"log/slog"
	"sync"

	"github.com/mholden/brewdeck/internal/domain"
)

// ItemOutcome pairs one batch item with its terminal outcome
type ItemOutcome struct {
	Ref     domain.PackageRef
	Outcome domain.Outcome
}

// BatchProgress is the display tuple for an active batch
type BatchProgress struct {
	Completed int
	Total     int
	Current   string // name of the item in flight, empty when done
	Done      bool
	Cancelled bool
}

// batchJob is the mutable state of one multi-package run
type batchJob struct {
	kind      domain.OperationKind
	items     []domain.PackageRef
	cursor    int // index of the next item to submit
	outcomes  []ItemOutcome
	cancelled bool
	inFlight  bool
}

// BatchProcessor runs one operation kind over an ordered package list,
// strictly one item at a time: brew is not proven safe under concurrent
// invocation and serial execution gives readable progress. An item failure
// is recorded and the processor moves on; Cancel stops further submissions
// without aborting the in-flight item.
type BatchProcessor struct {
	mu sync.Mutex

	exec   *Executor
	bus    *Bus
	logger *slog.Logger
	job    *batchJob

	// OnItemSuccess, when set, lets the catalog drop a freshly handled
	// package from its outdated set ahead of the next full refresh.
	OnItemSuccess func(ref domain.PackageRef, kind domain.OperationKind)
}

// NewBatchProcessor creates a processor submitting through exec
func NewBatchProcessor(exec *Executor, bus *Bus, logger *slog.Logger) *BatchProcessor {
	return &BatchProcessor{exec: exec, bus: bus, logger: logger}
}

// Start queues items for sequential processing and submits the first one.
// Only one batch runs at a time.
func (p *BatchProcessor) Start(items []domain.PackageRef, kind domain.OperationKind) error {
	if len(items) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.job != nil && !p.finishedLocked() {
		p.mu.Unlock()
		return domain.ErrBatchActive
	}
	p.job = &batchJob{
		kind:     kind,
		items:    items,
		outcomes: make([]ItemOutcome, 0, len(items)),
	}
	p.mu.Unlock()

	p.bus.Publishf("Queued %d packages for sequential %s", len(items), kind)
	p.logger.Info("batch started", "op", kind.String(), "count", len(items))
	p.submitNext()
	return nil
}

// HandleResult consumes a result if it belongs to the current batch item.
// Returns true when consumed; the caller should not treat a consumed result
// as a standalone operation. Advancing to the next item happens here, never
// before the in-flight item reached a terminal outcome.
func (p *BatchProcessor) HandleResult(res Result) bool {
	p.mu.Lock()
	job := p.job
	if job == nil || !job.inFlight || res.Op.Kind != job.kind {
		p.mu.Unlock()
		return false
	}
	current := job.items[job.cursor]
	if !res.Op.HasRef || res.Op.Ref != current {
		p.mu.Unlock()
		return false
	}

	job.inFlight = false
	job.cursor++
	job.outcomes = append(job.outcomes, ItemOutcome{Ref: current, Outcome: res.Outcome})
	cancelled := job.cancelled
	done := job.cursor >= len(job.items)
	completed := job.cursor
	total := len(job.items)
	p.mu.Unlock()

	if res.Outcome.OK() {
		if p.OnItemSuccess != nil {
			p.OnItemSuccess(current, job.kind)
		}
	} else {
		p.bus.Publishf("%s failed for %s: %s", job.kind, current.Name, res.Outcome.Err.Error())
	}

	switch {
	case cancelled:
		p.bus.Publishf("Batch cancelled after %d/%d packages", completed, total)
		p.logger.Info("batch cancelled", "completed", completed, "total", total)
	case done:
		p.bus.Publishf("Batch finished: %d/%d packages processed", completed, total)
		p.logger.Info("batch finished", "total", total)
	default:
		p.submitNext()
	}
	return true
}

// submitNext publishes progress and submits the item at the cursor
func (p *BatchProcessor) submitNext() {
	p.mu.Lock()
	job := p.job
	if job == nil || job.cancelled || job.cursor >= len(job.items) || job.inFlight {
		p.mu.Unlock()
		return
	}
	job.inFlight = true
	ref := job.items[job.cursor]
	position := job.cursor + 1
	total := len(job.items)
	kind := job.kind
	p.mu.Unlock()

	p.bus.Publishf("%s %d/%d: %s", kind.Verb(), position, total, ref.Name)
	p.exec.Start(Operation{Kind: kind, Ref: ref, HasRef: true})
}

// Cancel stops submission of further items. The in-flight item, if any,
// runs to completion and its outcome is still recorded.
func (p *BatchProcessor) Cancel() {
	p.mu.Lock()
	job := p.job
	if job == nil || job.cancelled {
		p.mu.Unlock()
		return
	}
	job.cancelled = true
	inFlight := job.inFlight
	p.mu.Unlock()

	if !inFlight {
		p.bus.Publish("Batch cancelled")
	}
}

// Progress returns the display tuple and whether a batch exists
func (p *BatchProcessor) Progress() (BatchProgress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	job := p.job
	if job == nil {
		return BatchProgress{}, false
	}
	prog := BatchProgress{
		Completed: len(job.outcomes),
		Total:     len(job.items),
		Done:      p.finishedLocked(),
		Cancelled: job.cancelled,
	}
	if job.inFlight {
		prog.Current = job.items[job.cursor].Name
	}
	return prog, true
}

// Outcomes returns a copy of the per-item outcomes recorded so far
func (p *BatchProcessor) Outcomes() []ItemOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job == nil {
		return nil
	}
	out := make([]ItemOutcome, len(p.job.outcomes))
	copy(out, p.job.outcomes)
	return out
}

// Active reports whether a batch is still running
func (p *BatchProcessor) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job != nil && !p.finishedLocked()
}

// finishedLocked reports terminal state. Caller holds p.mu.
func (p *BatchProcessor) finishedLocked() bool {
	job := p.job
	if job == nil {
		return true
	}
	if job.inFlight {
		return false
	}
	return job.cancelled || job.cursor >= len(job.items)
}
