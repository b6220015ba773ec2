package app_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/shinobi/internal/adapters/config"
	"go.trai.ch/shinobi/internal/adapters/fs"
	"go.trai.ch/shinobi/internal/app"
	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/shinobi/internal/core/ports"
	"go.trai.ch/shinobi/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fakeExecutor struct {
	commands []string
	pending  []*fakeSubprocess
}

type fakeSubprocess struct {
	done bool
}

func (s *fakeSubprocess) Done() bool     { return s.done }
func (s *fakeSubprocess) Finish() int    { return 0 }
func (s *fakeSubprocess) Output() string { return "" }

func (e *fakeExecutor) Add(_ context.Context, command string, _ []string) (ports.Subprocess, error) {
	e.commands = append(e.commands, command)
	s := &fakeSubprocess{}
	e.pending = append(e.pending, s)
	return s, nil
}

func (e *fakeExecutor) DoWork() error {
	for _, s := range e.pending {
		s.done = true
	}
	e.pending = nil
	return nil
}

type nullTelemetry struct{}

func (nullTelemetry) Record(ctx context.Context, _ string) (context.Context, ports.Vertex) {
	return ctx, nullVertex{}
}
func (nullTelemetry) Close() error { return nil }

type nullVertex struct{}

func (nullVertex) Stdout() io.Writer { return io.Discard }
func (nullVertex) Stderr() io.Writer { return io.Discard }
func (nullVertex) Complete(error)    {}
func (nullVertex) Cached()           {}

func quietLogger(t *testing.T) ports.Logger {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()
	return log
}

// workspace writes a build description copying "in" to "out" inside a temp
// dir, creates the input, and returns the description path and the dir.
func workspace(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	in := filepath.Join(dir, "in")
	require.NoError(t, os.WriteFile(in, []byte("data"), 0o644))

	content := fmt.Sprintf(`
rules:
  copy:
    command: cp $in $out

builds:
  - rule: copy
    out: [%s]
    in: [%s]

defaults: [%s]
`, filepath.Join(dir, "out"), in, filepath.Join(dir, "out"))

	path := filepath.Join(dir, "shinobi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, dir
}

func newApp(t *testing.T, exec ports.Executor) *app.App {
	t.Helper()
	loader := config.NewLoader(quietLogger(t), fs.New())
	return app.New(loader, exec, quietLogger(t), nullTelemetry{})
}

func TestApp_RunBuildsDefaultTargets(t *testing.T) {
	file, dir := workspace(t)
	exec := &fakeExecutor{}
	a := newApp(t, exec)

	err := a.Run(context.Background(), nil, app.RunOptions{
		File:    file,
		LogFile: filepath.Join(dir, ".shinobi_log"),
	})
	require.NoError(t, err)

	require.Len(t, exec.commands, 1)
	assert.Equal(t, "cp "+filepath.Join(dir, "in")+" "+filepath.Join(dir, "out"), exec.commands[0])

	data, err := os.ReadFile(filepath.Join(dir, ".shinobi_log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# ninja log v4")
	assert.Contains(t, string(data), "cp ")
}

func TestApp_RunDryRun(t *testing.T) {
	file, dir := workspace(t)

	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	// No EXPECT calls: the executor must stay untouched.

	a := newApp(t, exec)
	err := a.Run(context.Background(), nil, app.RunOptions{
		File:    file,
		LogFile: filepath.Join(dir, ".shinobi_log"),
		DryRun:  true,
	})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, ".shinobi_log"))
	assert.True(t, os.IsNotExist(statErr), "dry runs do not create the log")
}

func TestApp_RunNoTargets(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "shinobi.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
rules:
  copy:
    command: cp $in $out
`), 0o644))

	a := newApp(t, &fakeExecutor{})
	err := a.Run(context.Background(), nil, app.RunOptions{
		File:    file,
		LogFile: filepath.Join(dir, ".shinobi_log"),
	})
	require.ErrorIs(t, err, domain.ErrNoTargetsSpecified)
}

func TestApp_RunUnknownTargetIsGraphError(t *testing.T) {
	file, dir := workspace(t)

	a := newApp(t, &fakeExecutor{})
	err := a.Run(context.Background(), []string{"no-such-target"}, app.RunOptions{
		File:    file,
		LogFile: filepath.Join(dir, ".shinobi_log"),
	})
	require.ErrorIs(t, err, domain.ErrUnknownTarget)
	assert.True(t, domain.IsGraphError(err))
}

func TestApp_Clean(t *testing.T) {
	file, dir := workspace(t)
	out := filepath.Join(dir, "out")
	logFile := filepath.Join(dir, ".shinobi_log")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(logFile, []byte("# ninja log v4\n"), 0o644))

	a := newApp(t, &fakeExecutor{})
	require.NoError(t, a.Clean(context.Background(), app.CleanOptions{
		File:    file,
		LogFile: logFile,
	}))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(logFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "in"))
	assert.NoError(t, err, "inputs are never cleaned")
}
