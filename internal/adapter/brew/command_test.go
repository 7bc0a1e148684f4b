package brew

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mholden/brewdeck/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type runnerCall struct {
	Name  string
	Args  []string
	Stdin string
}

// fakeRunner records invocations and replies from a script function
type fakeRunner struct {
	mu     sync.Mutex
	calls  []runnerCall
	script func(name string, args []string, stdin string) (CommandResult, error)
}

func (f *fakeRunner) Run(_ context.Context, stdin string, name string, args ...string) (CommandResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, runnerCall{Name: name, Args: args, Stdin: stdin})
	f.mu.Unlock()
	if f.script != nil {
		return f.script(name, args, stdin)
	}
	return CommandResult{}, nil
}

func (f *fakeRunner) recorded() []runnerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runnerCall(nil), f.calls...)
}

func TestGatewayRunReturnsStdout(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	runner := &fakeRunner{script: func(name string, args []string, stdin string) (CommandResult, error) {
		return CommandResult{Stdout: "jq 1.7.1\n"}, nil
	}}
	gw := NewGateway(runner, time.Minute, testLogger())

	out, err := gw.Run(context.Background(), "list", "--versions", "--formula")
	require.NoError(err)
	assert.Equal("jq 1.7.1\n", out)

	calls := runner.recorded()
	require.Len(calls, 1)
	assert.Equal("brew", calls[0].Name)
	assert.Equal([]string{"list", "--versions", "--formula"}, calls[0].Args)
	assert.Empty(calls[0].Stdin)
}

func TestGatewayClassifiesFailures(t *testing.T) {
	tests := map[string]struct {
		stderr    string
		expReason domain.FailureReason
	}{
		"Sudo password demand should classify as auth required": {
			stderr:    "sudo: a password is required",
			expReason: domain.FailAuthRequired,
		},
		"PAM authentication failure should classify as auth required": {
			stderr:    "sudo: PAM authentication failure",
			expReason: domain.FailAuthRequired,
		},
		"Permission denied should classify as auth required": {
			stderr:    "Error: Permission denied @ apply2files - /usr/local/bin/jq",
			expReason: domain.FailAuthRequired,
		},
		"Unknown formula should classify as not found": {
			stderr:    "Error: No available formula with the name \"nosuchthing\"",
			expReason: domain.FailNotFound,
		},
		"Uninstalled keg should classify as not found": {
			stderr:    "Error: No such keg: /opt/homebrew/Cellar/zzz",
			expReason: domain.FailNotFound,
		},
		"Anything else should classify as external tool error": {
			stderr:    "Error: some deep internal problem",
			expReason: domain.FailExternalTool,
		},
		"Empty stderr should still produce a message": {
			stderr:    "",
			expReason: domain.FailExternalTool,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			runner := &fakeRunner{script: func(string, []string, string) (CommandResult, error) {
				return CommandResult{ExitCode: 1, Stderr: test.stderr}, nil
			}}
			gw := NewGateway(runner, time.Minute, testLogger())

			_, err := gw.Run(context.Background(), "install", "x")
			require.Error(err)

			failure := domain.AsFailure(err)
			assert.Equal(test.expReason, failure.Reason)
			assert.NotEmpty(failure.Message)
		})
	}
}

func TestGatewayRunWithCredentialPreAuthorizesSudo(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	runner := &fakeRunner{script: func(name string, args []string, stdin string) (CommandResult, error) {
		return CommandResult{Stdout: "ok"}, nil
	}}
	gw := NewGateway(runner, time.Minute, testLogger())

	out, err := gw.RunWithCredential(context.Background(), "s3cret", "install", "--cask", "docker")
	require.NoError(err)
	assert.Equal("ok", out)

	calls := runner.recorded()
	require.Len(calls, 2)

	// First call validates the sudo timestamp with the secret on stdin
	assert.Equal("sudo", calls[0].Name)
	assert.Equal([]string{"-S", "-k", "-p", "", "-v"}, calls[0].Args)
	assert.Equal("s3cret\n", calls[0].Stdin)

	// Second call runs brew without the secret anywhere near it
	assert.Equal("brew", calls[1].Name)
	assert.Equal([]string{"install", "--cask", "docker"}, calls[1].Args)
	assert.Empty(calls[1].Stdin)
}

func TestGatewayRunWithCredentialRejectedPassword(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	runner := &fakeRunner{script: func(name string, args []string, stdin string) (CommandResult, error) {
		if name == "sudo" {
			return CommandResult{ExitCode: 1, Stderr: "sudo: 1 incorrect password attempt"}, nil
		}
		return CommandResult{}, nil
	}}
	gw := NewGateway(runner, time.Minute, testLogger())

	_, err := gw.RunWithCredential(context.Background(), "wrong", "install", "jq")
	require.Error(err)
	assert.Equal(domain.FailAuthRejected, domain.AsFailure(err).Reason)

	// brew never ran
	require.Len(runner.recorded(), 1)
}

func TestClassifyFailureKeepsFirstLineOnly(t *testing.T) {
	assert := assert.New(t)

	failure := classifyFailure("Error: first line\nsecond line\nthird line")
	assert.Equal(domain.FailExternalTool, failure.Reason)
	assert.Equal("Error: first line", failure.Message)
}
