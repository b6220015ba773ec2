// Package main is the entry point for the shinobi build tool.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/shinobi/cmd/shinobi/commands"
	"go.trai.ch/shinobi/internal/app"
	"go.trai.ch/shinobi/internal/core/domain"
	_ "go.trai.ch/shinobi/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed.
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 2
	}

	cli := commands.New(components.App)

	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		if domain.IsGraphError(err) {
			return 2
		}
		return 1
	}
	return 0
}
