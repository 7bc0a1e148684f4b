package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mholden/brewdeck/internal/domain"
)

// Operation is one logical package operation. It survives credential
// retries: each retry is a brand-new task handle for the same Operation.
type Operation struct {
	Kind   domain.OperationKind
	Ref    domain.PackageRef // target, zero for global operations
	HasRef bool
	Query  string // search operations only
	DryRun bool   // cleanup kinds only: preview instead of removing
}

// Label returns the status-line description of the operation
func (op Operation) Label() string {
	switch {
	case op.Kind == domain.OpSearch:
		return "search for \"" + op.Query + "\""
	case op.Kind == domain.OpUpdateAll:
		return "update of all outdated packages"
	case op.HasRef:
		return op.Kind.String() + " of " + op.Ref.Name
	default:
		return op.Kind.String()
	}
}

// Result is a logical operation that reached a terminal outcome. Auth
// failures on privileged operations never appear here; they are absorbed
// by the credential protocol until resolved or cancelled.
type Result struct {
	Op      Operation
	Outcome domain.Outcome
}

// CredentialPrompt asks the UI for a secret to retry one privileged
// operation. It exists only between a failed attempt and the next one and
// is cleared exactly once: by success, explicit cancellation, or hitting
// the configured rejection cap.
type CredentialPrompt struct {
	ID         string
	Op         Operation
	Message    string
	Rejections int
}

// attempt tracks one in-flight task handle back to its logical operation
type attempt struct {
	op            Operation
	promptID      string // empty until a credential round-trip exists
	hadCredential bool
}

// Executor runs logical operations through the task manager, dispatching
// each kind to the repository, and owns the credential retry protocol. It
// never blocks waiting for input: when brew wants a password the attempt
// dies, a prompt is surfaced, and the UI supplies or cancels it.
type Executor struct {
	mu sync.Mutex

	mgr    *Manager
	repo   domain.PackageRepository
	bus    *Bus
	logger *slog.Logger

	// maxAuthRetries caps credential rejections per logical operation;
	// 0 means unlimited.
	maxAuthRetries int

	// InfoTimeout, when set, bounds detail lookups with a tighter deadline
	// than the manager default. Set before the first Start.
	InfoTimeout time.Duration

	attempts map[ID]attempt
	// prompt is the visible prompt; nil while no credential is needed or a
	// retried attempt is in flight. A queued privileged operation promoted
	// while a prompt is open can hit the auth signature too, so further
	// prompts wait in pending until the visible one is fully resolved.
	prompt  *CredentialPrompt
	pending []*CredentialPrompt
	// retryPromptID reserves the visible slot while the prompted
	// operation's retry is in flight; its prompt may come back rejected.
	retryPromptID string
	rejections    map[string]int // per prompt id, survives retry attempts
	resolved      []Result       // synthesized results (cancellations, cap hits)
}

// NewExecutor creates an executor on top of mgr and repo
func NewExecutor(mgr *Manager, repo domain.PackageRepository, bus *Bus, logger *slog.Logger, maxAuthRetries int) *Executor {
	return &Executor{
		mgr:            mgr,
		repo:           repo,
		bus:            bus,
		logger:         logger,
		maxAuthRetries: maxAuthRetries,
		attempts:       make(map[ID]attempt),
		rejections:     make(map[string]int),
	}
}

// Start submits a fresh attempt of op with no credential attached
func (e *Executor) Start(op Operation) ID {
	return e.submit(op, "", "")
}

// submit creates the task request for one attempt. credential is attached
// to this attempt only and is not retained anywhere.
func (e *Executor) submit(op Operation, credential, promptID string) ID {
	var timeout time.Duration
	if op.Kind == domain.OpGetInfo {
		timeout = e.InfoTimeout
	}
	id := e.mgr.Submit(Request{
		Kind:    op.Kind,
		Ref:     op.Ref,
		Label:   op.Label(),
		Timeout: timeout,
		Run:     e.runFunc(op, credential),
	})

	e.mu.Lock()
	e.attempts[id] = attempt{op: op, promptID: promptID, hadCredential: credential != ""}
	e.mu.Unlock()
	return id
}

// runFunc dispatches the closed operation set to the repository
func (e *Executor) runFunc(op Operation, credential string) func(ctx context.Context) domain.Outcome {
	repo := e.repo
	return func(ctx context.Context) domain.Outcome {
		switch op.Kind {
		case domain.OpList:
			pkgs, err := repo.InstalledPackages(ctx, op.Ref.Kind)
			return outcomeOf(pkgs, err)
		case domain.OpListOutdated:
			pkgs, err := repo.OutdatedPackages(ctx, op.Ref.Kind)
			return outcomeOf(pkgs, err)
		case domain.OpSearch:
			pkgs, err := repo.SearchPackages(ctx, op.Query, op.Ref.Kind)
			return outcomeOf(pkgs, err)
		case domain.OpGetInfo:
			pkg, err := repo.PackageInfo(ctx, op.Ref)
			return outcomeOf(pkg, err)
		case domain.OpInstall:
			return outcomeOf[any](nil, repo.Install(ctx, op.Ref, credential))
		case domain.OpUninstall:
			return outcomeOf[any](nil, repo.Uninstall(ctx, op.Ref, credential))
		case domain.OpUpdate:
			return outcomeOf[any](nil, repo.Update(ctx, op.Ref, credential))
		case domain.OpUpdateAll:
			return outcomeOf[any](nil, repo.UpdateAll(ctx, credential))
		case domain.OpCleanCache:
			if op.DryRun {
				preview, err := repo.CleanupPreview(ctx)
				return outcomeOf(preview, err)
			}
			return outcomeOf[any](nil, repo.CleanCache(ctx))
		case domain.OpCleanupOldVersions:
			if op.DryRun {
				preview, err := repo.OldVersionsPreview(ctx)
				return outcomeOf(preview, err)
			}
			return outcomeOf[any](nil, repo.CleanupOldVersions(ctx))
		case domain.OpPin:
			return outcomeOf[any](nil, repo.Pin(ctx, op.Ref))
		case domain.OpUnpin:
			return outcomeOf[any](nil, repo.Unpin(ctx, op.Ref))
		default:
			return domain.Failed(domain.NewFailure(domain.FailExternalTool, "unsupported operation %s", op.Kind))
		}
	}
}

func outcomeOf[T any](payload T, err error) domain.Outcome {
	if err != nil {
		return domain.Failed(err)
	}
	return domain.Success(payload)
}

// Poll drains the manager and resolves each completion. Auth failures on
// privileged operations become (or refresh) the credential prompt instead
// of surfacing as results.
func (e *Executor) Poll() []Result {
	completions := e.mgr.PollAll()

	e.mu.Lock()
	results := e.resolved
	e.resolved = nil
	e.mu.Unlock()

	for _, c := range completions {
		if r, ok := e.resolve(c); ok {
			results = append(results, r)
		}
	}
	return results
}

// resolve maps one completion to a result, or absorbs it into the
// credential protocol
func (e *Executor) resolve(c Completion) (Result, bool) {
	e.mu.Lock()
	att, known := e.attempts[c.ID]
	delete(e.attempts, c.ID)
	e.mu.Unlock()

	if !known {
		// Not ours (should not happen: all submissions go through Start)
		e.logger.Warn("completion for unknown attempt", "id", c.ID)
		return Result{}, false
	}

	if c.Outcome.NeedsCredential() && att.op.Kind.Privileged() {
		e.handleAuthFailure(att)
		return Result{}, false
	}

	if att.promptID != "" {
		// Logical operation resolved after a credential round-trip
		e.mu.Lock()
		delete(e.rejections, att.promptID)
		if e.prompt != nil && e.prompt.ID == att.promptID {
			e.prompt = nil
		}
		if e.retryPromptID == att.promptID {
			e.retryPromptID = ""
		}
		e.surfaceNextLocked()
		e.mu.Unlock()
	}
	return Result{Op: att.op, Outcome: c.Outcome}, true
}

// surfaceNextLocked makes the oldest waiting prompt visible once the
// current one is fully resolved. Caller holds e.mu.
func (e *Executor) surfaceNextLocked() {
	if e.prompt != nil || e.retryPromptID != "" || len(e.pending) == 0 {
		return
	}
	e.prompt = e.pending[0]
	e.pending = e.pending[1:]
}

// handleAuthFailure drives NeedsCredential transitions: first failure opens
// the prompt, a failed credential attempt re-opens it with the rejection
// counted, and the configured cap converts further rejections into a
// terminal AuthRejected result.
func (e *Executor) handleAuthFailure(att attempt) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !att.hadCredential {
		// First attempt, no credential offered yet. The prompt waits its
		// turn when another prompt is open or mid-retry.
		id := uuid.NewString()
		e.rejections[id] = 0
		p := &CredentialPrompt{
			ID:      id,
			Op:      att.op,
			Message: "Administrator password required to " + att.op.Label(),
		}
		if e.prompt != nil || e.retryPromptID != "" {
			e.pending = append(e.pending, p)
		} else {
			e.prompt = p
		}
		e.logger.Info("credential required", "op", att.op.Kind.String(), "prompt", id)
		e.bus.Publishf("Password required: %s", att.op.Label())
		return
	}

	// Credential was supplied and rejected; the retry reservation frees
	// either way.
	if e.retryPromptID == att.promptID {
		e.retryPromptID = ""
	}
	e.rejections[att.promptID]++
	rejections := e.rejections[att.promptID]
	if e.maxAuthRetries > 0 && rejections >= e.maxAuthRetries {
		delete(e.rejections, att.promptID)
		e.resolved = append(e.resolved, Result{
			Op:      att.op,
			Outcome: domain.Failed(domain.NewFailure(domain.FailAuthRejected, "authentication failed after %d attempts", rejections)),
		})
		e.bus.Publishf("Giving up on %s: too many incorrect passwords", att.op.Label())
		e.surfaceNextLocked()
		return
	}
	e.prompt = &CredentialPrompt{
		ID:         att.promptID,
		Op:         att.op,
		Message:    "Incorrect password, try again",
		Rejections: rejections,
	}
	e.logger.Info("credential rejected", "op", att.op.Kind.String(), "rejections", rejections)
	e.bus.Publish("Incorrect password, try again")
}

// Prompt returns the pending credential prompt, if any
func (e *Executor) Prompt() *CredentialPrompt {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prompt == nil {
		return nil
	}
	p := *e.prompt
	return &p
}

// SupplyCredential retries the prompted operation with the secret attached.
// The secret lives only for the duration of the retried attempt and is
// never logged or persisted.
func (e *Executor) SupplyCredential(promptID, secret string) error {
	e.mu.Lock()
	if e.prompt == nil || e.prompt.ID != promptID {
		e.mu.Unlock()
		return domain.ErrPromptNotFound
	}
	op := e.prompt.Op
	// Hide the prompt while the retried attempt runs, keeping the visible
	// slot reserved; the rejection counter stays keyed by prompt id in
	// case it comes back.
	e.prompt = nil
	e.retryPromptID = promptID
	e.mu.Unlock()

	e.bus.Publishf("Retrying with password: %s", op.Label())
	e.submit(op, secret, promptID)
	return nil
}

// CancelPrompt clears the prompt and terminates its operation as Cancelled.
// The cancellation surfaces as a Result on the next Poll so batch
// processing can move on.
func (e *Executor) CancelPrompt(promptID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.prompt == nil || e.prompt.ID != promptID {
		return domain.ErrPromptNotFound
	}
	op := e.prompt.Op
	delete(e.rejections, promptID)
	e.prompt = nil
	e.surfaceNextLocked()
	e.resolved = append(e.resolved, Result{
		Op:      op,
		Outcome: domain.Failed(domain.NewFailure(domain.FailCancelled, "cancelled by user")),
	})
	e.bus.Publish("Password entry cancelled")
	e.logger.Info("credential prompt cancelled", "op", op.Kind.String())
	return nil
}
