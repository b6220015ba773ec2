// Package ports defines the core interfaces for the application.
package ports

import "context"

// Executor runs edge commands as external subprocesses. Commands are opaque
// strings; the core does no shell parsing. All calls are made from the
// single dispatcher goroutine.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Add spawns command with the optional environment block and returns a
	// handle for it. A spawn failure returns a nil handle and an error.
	Add(ctx context.Context, command string, env []string) (Subprocess, error)

	// DoWork blocks until at least one previously added subprocess has
	// completed.
	DoWork() error
}

// Subprocess is the handle for one spawned command.
type Subprocess interface {
	// Done reports whether the subprocess has exited.
	Done() bool

	// Finish returns the exit code. Only valid once Done reports true.
	Finish() int

	// Output returns the combined stdout and stderr of the subprocess.
	Output() string
}
