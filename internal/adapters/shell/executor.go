// Package shell provides the subprocess executor adapter.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync/atomic"

	"go.trai.ch/shinobi/internal/core/ports"
	"go.trai.ch/zerr"
)

// completionBuffer bounds how many finished subprocesses can queue up
// between DoWork calls.
const completionBuffer = 256

// Executor implements ports.Executor by running each command through the
// platform shell. Commands are opaque strings; the shell does the parsing.
type Executor struct {
	logger    ports.Logger
	completed chan *Subprocess
}

// NewExecutor creates a new shell Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger:    logger,
		completed: make(chan *Subprocess, completionBuffer),
	}
}

// Subprocess is one spawned command.
type Subprocess struct {
	buf      bytes.Buffer
	exitCode int
	done     atomic.Bool
}

// Done reports whether the command has exited.
func (s *Subprocess) Done() bool {
	return s.done.Load()
}

// Finish returns the exit code. Only valid once Done reports true.
func (s *Subprocess) Finish() int {
	return s.exitCode
}

// Output returns the combined stdout and stderr of the command.
func (s *Subprocess) Output() string {
	return s.buf.String()
}

// Add spawns command and returns its handle. The environment block, when
// non-empty, is merged over the inherited one: its variables override, except
// that PATH entries are prepended to the system PATH.
func (e *Executor) Add(ctx context.Context, command string, env []string) (ports.Subprocess, error) {
	shell, flag := platformShell()
	cmd := exec.CommandContext(ctx, shell, flag, command) //nolint:gosec // command comes from the build description
	cmd.Env = resolveEnvironment(os.Environ(), env)

	s := &Subprocess{}
	cmd.Stdout = &s.buf
	cmd.Stderr = &s.buf

	if err := cmd.Start(); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to spawn subprocess"), "shell", shell)
	}

	go func() {
		err := cmd.Wait()
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				s.exitCode = exitErr.ExitCode()
			} else {
				s.exitCode = -1
			}
		}
		s.done.Store(true)
		e.completed <- s
	}()

	return s, nil
}

// DoWork blocks until at least one spawned subprocess has completed since
// the last call.
func (e *Executor) DoWork() error {
	<-e.completed
	// Drain whatever else finished in the meantime so the dispatcher can
	// collect a batch.
	for {
		select {
		case <-e.completed:
		default:
			return nil
		}
	}
}

func platformShell() (string, string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/c"
	}
	return "/bin/sh", "-c"
}

// resolveEnvironment merges the provided block over the system environment,
// prepending PATH entries rather than replacing them.
func resolveEnvironment(sysEnv, env []string) []string {
	if len(env) == 0 {
		return sysEnv
	}

	envMap := make(map[string]string, len(sysEnv)+len(env))
	order := make([]string, 0, len(sysEnv)+len(env))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			if _, seen := envMap[k]; !seen {
				order = append(order, k)
			}
			envMap[k] = v
		}
	}
	for _, entry := range env {
		k, v, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, seen := envMap[k]; !seen {
			order = append(order, k)
		}
		if k == "PATH" && envMap[k] != "" {
			envMap[k] = v + string(os.PathListSeparator) + envMap[k]
			continue
		}
		envMap[k] = v
	}

	result := make([]string, 0, len(order))
	for _, k := range order {
		result = append(result, k+"="+envMap[k])
	}
	return result
}
