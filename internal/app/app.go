// Package app implements the application layer for shinobi.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"go.trai.ch/shinobi/internal/core/domain"
	"go.trai.ch/shinobi/internal/core/ports"
	"go.trai.ch/shinobi/internal/engine/builder"
	"go.trai.ch/shinobi/internal/engine/buildlog"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// DefaultLogFile is the build log path used when none is given. It is
// relative, so it resolves against the working directory.
const DefaultLogFile = ".shinobi_log"

// RunOptions holds the per-invocation build settings.
type RunOptions struct {
	// File is the path of the build description.
	File string

	// LogFile is the path of the command log. Empty means DefaultLogFile.
	LogFile string

	// Jobs caps the number of parallel edge commands. 0 means NumCPU.
	Jobs int

	// KeepGoing is the failure budget before no new edges start.
	KeepGoing int

	// DryRun suppresses command execution and on-disk log writes.
	DryRun bool
}

// App wires the loader, the engine and the executor into user-facing
// operations.
type App struct {
	loader ports.ConfigLoader
	exec   ports.Executor
	logger ports.Logger
	tel    ports.Telemetry
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, exec ports.Executor, logger ports.Logger, tel ports.Telemetry) *App {
	return &App{
		loader: loader,
		exec:   exec,
		logger: logger,
		tel:    tel,
	}
}

// Run executes the build for the given targets, falling back to the
// description's declared defaults when none are named.
func (a *App) Run(ctx context.Context, targets []string, opts RunOptions) error {
	state, defaults, err := a.loader.Load(opts.File)
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		targets = defaults
	}
	if len(targets) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	log := a.openLog(opts)
	defer log.Close()

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = runtime.NumCPU()
	}

	b := builder.New(state, log, a.exec, a.logger, a.tel, builder.Config{
		Parallelism: jobs,
		KeepGoing:   opts.KeepGoing,
		DryRun:      opts.DryRun,
	})
	defer func() { _ = a.tel.Close() }()

	for _, target := range targets {
		if _, err := b.AddTarget(target); err != nil {
			return err
		}
	}

	if b.AlreadyUpToDate() {
		a.logger.Info("no work to do.")
		return nil
	}

	return b.Build(ctx)
}

// openLog loads and opens the command log. Log I/O failures are not fatal:
// the build proceeds without persistence and warns.
func (a *App) openLog(opts RunOptions) *buildlog.Log {
	path := opts.LogFile
	if path == "" {
		path = DefaultLogFile
	}

	log := buildlog.New(opts.DryRun)
	if err := log.Load(path); err != nil {
		a.logger.Warn(fmt.Sprintf("failed to load build log, starting fresh: %v", err))
		return buildlog.New(opts.DryRun)
	}
	if err := log.OpenForWrite(path); err != nil {
		a.logger.Warn(fmt.Sprintf("failed to open build log, continuing without persistence: %v", err))
	}
	return log
}

// CleanOptions holds the settings for Clean.
type CleanOptions struct {
	// File is the path of the build description.
	File string

	// LogFile is the path of the command log. Empty means DefaultLogFile.
	LogFile string
}

// Clean removes every declared output plus the build log. Removals run
// concurrently; missing files are not an error.
func (a *App) Clean(ctx context.Context, opts CleanOptions) error {
	state, _, err := a.loader.Load(opts.File)
	if err != nil {
		return err
	}

	logFile := opts.LogFile
	if logFile == "" {
		logFile = DefaultLogFile
	}

	paths := []string{logFile}
	for _, edge := range state.Edges() {
		for _, out := range edge.Outputs {
			paths = append(paths, out.Path.String())
		}
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, path := range paths {
		g.Go(func() error {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return zerr.With(zerr.Wrap(err, "failed to remove output"), "path", path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info(fmt.Sprintf("cleaned %d paths.", len(paths)))
	return nil
}
