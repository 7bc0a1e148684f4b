package brew

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/mholden/brewdeck/internal/domain"
)

// CommandResult is the raw output of one external invocation
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes one external command. stdin is written to the process
// before waiting; it carries the sudo credential and nothing else.
type Runner interface {
	Run(ctx context.Context, stdin string, name string, args ...string) (CommandResult, error)
}

// execRunner shells out via os/exec. The context deadline kills the
// subprocess so a hung brew never leaks.
type execRunner struct{}

// NewRunner returns the os/exec-backed runner
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, stdin string, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}

// Gateway is the single road to the brew CLI. Every invocation goes through
// Run; credentialed invocations pre-authorize sudo first so brew's internal
// sudo calls hit a warm timestamp instead of prompting.
type Gateway struct {
	runner  Runner
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway creates a gateway with the given per-invocation timeout
func NewGateway(runner Runner, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Gateway{runner: runner, timeout: timeout, logger: logger}
}

// Installed reports whether the brew executable is reachable
func Installed() bool {
	_, err := exec.LookPath("brew")
	return err == nil
}

// Run executes `brew args...` and returns stdout, with failures classified
// into the closed domain taxonomy
func (g *Gateway) Run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("running brew", "args", args)
	res, err := g.runner.Run(ctx, "", "brew", args...)
	return g.classify(ctx, args, res, err)
}

// RunWithCredential pre-authorizes sudo with the secret on stdin, then runs
// the brew command. The secret is handed to sudo and dropped; it never
// reaches a log line or an argument vector.
func (g *Gateway) RunWithCredential(ctx context.Context, credential string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	// -k forces revalidation so a stale timestamp can't mask a bad password
	auth, err := g.runner.Run(ctx, credential+"\n", "sudo", "-S", "-k", "-p", "", "-v")
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", domain.NewFailure(domain.FailTimeout, "sudo validation timed out")
		}
		return "", fmt.Errorf("sudo validation: %w", err)
	}
	if auth.ExitCode != 0 {
		g.logger.Info("sudo rejected credential")
		return "", domain.NewFailure(domain.FailAuthRejected, "incorrect password")
	}

	g.logger.Debug("running brew with sudo timestamp", "args", args)
	res, err := g.runner.Run(ctx, "", "brew", args...)
	return g.classify(ctx, args, res, err)
}

// classify maps an invocation result to stdout or a closed-taxonomy failure
func (g *Gateway) classify(ctx context.Context, args []string, res CommandResult, err error) (string, error) {
	if ctx.Err() == context.DeadlineExceeded {
		return "", domain.NewFailure(domain.FailTimeout, "brew %s exceeded %s", strings.Join(args, " "), g.timeout)
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", domain.ErrBrewMissing
		}
		return "", fmt.Errorf("brew %s: %w", strings.Join(args, " "), err)
	}
	if res.ExitCode != 0 {
		return "", classifyFailure(res.Stderr)
	}
	return res.Stdout, nil
}

// authSignatures are the stderr fragments that mean brew (via sudo) wanted
// a password it never got. Matching is case-insensitive.
var authSignatures = []string{
	"a password is required",
	"authentication failure",
	"permission denied",
	"incorrect password",
	"sorry, try again",
	"password:",
	"sudo:",
	"must be run as root",
}

// notFoundSignatures mean the named package does not exist
var notFoundSignatures = []string{
	"no available formula",
	"no available cask",
	"no formulae found",
	"no casks found",
	"is not installed",
	"no such keg",
}

// classifyFailure turns brew stderr into a closed FailureReason
func classifyFailure(stderr string) *domain.Failure {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	for _, sig := range authSignatures {
		if strings.Contains(lower, sig) {
			return domain.NewFailure(domain.FailAuthRequired, "%s", firstLine(msg))
		}
	}
	for _, sig := range notFoundSignatures {
		if strings.Contains(lower, sig) {
			return domain.NewFailure(domain.FailNotFound, "%s", firstLine(msg))
		}
	}
	if msg == "" {
		msg = "brew exited with an error"
	}
	return domain.NewFailure(domain.FailExternalTool, "%s", firstLine(msg))
}

// firstLine keeps status lines single-line; full output goes to the logger
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
