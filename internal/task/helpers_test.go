package task_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mholden/brewdeck/internal/domain"
	"github.com/mholden/brewdeck/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is a scriptable domain.PackageRepository. Unset function fields
// succeed with zero values. Credentials passed to privileged calls are
// recorded for assertions.
type fakeRepo struct {
	mu          sync.Mutex
	credentials []string

	installedFn func(kind domain.PackageKind) ([]domain.Package, error)
	outdatedFn  func(kind domain.PackageKind) ([]domain.Package, error)
	searchFn    func(query string, kind domain.PackageKind) ([]domain.Package, error)
	infoFn      func(ref domain.PackageRef) (domain.Package, error)
	installFn   func(ref domain.PackageRef, credential string) error
	uninstallFn func(ref domain.PackageRef, credential string) error
	updateFn    func(ref domain.PackageRef, credential string) error
	updateAllFn func(credential string) error
}

func (f *fakeRepo) record(credential string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, credential)
}

func (f *fakeRepo) recordedCredentials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.credentials...)
}

func (f *fakeRepo) InstalledPackages(_ context.Context, kind domain.PackageKind) ([]domain.Package, error) {
	if f.installedFn != nil {
		return f.installedFn(kind)
	}
	return nil, nil
}

func (f *fakeRepo) OutdatedPackages(_ context.Context, kind domain.PackageKind) ([]domain.Package, error) {
	if f.outdatedFn != nil {
		return f.outdatedFn(kind)
	}
	return nil, nil
}

func (f *fakeRepo) SearchPackages(_ context.Context, query string, kind domain.PackageKind) ([]domain.Package, error) {
	if f.searchFn != nil {
		return f.searchFn(query, kind)
	}
	return nil, nil
}

func (f *fakeRepo) PackageInfo(_ context.Context, ref domain.PackageRef) (domain.Package, error) {
	if f.infoFn != nil {
		return f.infoFn(ref)
	}
	return domain.NewPackage(ref.Name, ref.Kind), nil
}

func (f *fakeRepo) Install(_ context.Context, ref domain.PackageRef, credential string) error {
	f.record(credential)
	if f.installFn != nil {
		return f.installFn(ref, credential)
	}
	return nil
}

func (f *fakeRepo) Uninstall(_ context.Context, ref domain.PackageRef, credential string) error {
	f.record(credential)
	if f.uninstallFn != nil {
		return f.uninstallFn(ref, credential)
	}
	return nil
}

func (f *fakeRepo) Update(_ context.Context, ref domain.PackageRef, credential string) error {
	f.record(credential)
	if f.updateFn != nil {
		return f.updateFn(ref, credential)
	}
	return nil
}

func (f *fakeRepo) UpdateAll(_ context.Context, credential string) error {
	f.record(credential)
	if f.updateAllFn != nil {
		return f.updateAllFn(credential)
	}
	return nil
}

func (f *fakeRepo) CleanupPreview(context.Context) (domain.CleanupPreview, error) {
	return domain.CleanupPreview{}, nil
}

func (f *fakeRepo) CleanCache(context.Context) error { return nil }

func (f *fakeRepo) OldVersionsPreview(context.Context) (domain.CleanupPreview, error) {
	return domain.CleanupPreview{}, nil
}

func (f *fakeRepo) CleanupOldVersions(context.Context) error { return nil }

func (f *fakeRepo) Pin(context.Context, domain.PackageRef) error { return nil }

func (f *fakeRepo) Unpin(context.Context, domain.PackageRef) error { return nil }

// execEnv bundles a wired orchestration stack for tests
type execEnv struct {
	bus  *task.Bus
	mgr  *task.Manager
	repo *fakeRepo
	exec *task.Executor
}

func newExecEnv(t *testing.T, repo *fakeRepo, maxAuthRetries int) *execEnv {
	t.Helper()
	logger := testLogger()
	bus := task.NewBus(100)
	mgr := task.NewManager(bus, logger, 5*time.Second)
	return &execEnv{
		bus:  bus,
		mgr:  mgr,
		repo: repo,
		exec: task.NewExecutor(mgr, repo, bus, logger, maxAuthRetries),
	}
}

// drainResults polls until want results have accumulated
func (e *execEnv) drainResults(t *testing.T, want int) []task.Result {
	t.Helper()
	var results []task.Result
	require.Eventually(t, func() bool {
		results = append(results, e.exec.Poll()...)
		return len(results) >= want
	}, 2*time.Second, 5*time.Millisecond)
	return results
}

// waitPrompt polls until a credential prompt is visible
func (e *execEnv) waitPrompt(t *testing.T) *task.CredentialPrompt {
	t.Helper()
	var prompt *task.CredentialPrompt
	require.Eventually(t, func() bool {
		e.exec.Poll()
		prompt = e.exec.Prompt()
		return prompt != nil
	}, 2*time.Second, 5*time.Millisecond)
	return prompt
}
