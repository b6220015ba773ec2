// Package wiring registers all graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/shinobi/internal/adapters/config"
	_ "go.trai.ch/shinobi/internal/adapters/fs"
	_ "go.trai.ch/shinobi/internal/adapters/logger"
	_ "go.trai.ch/shinobi/internal/adapters/shell"
	_ "go.trai.ch/shinobi/internal/adapters/telemetry"
	// Register app nodes.
	_ "go.trai.ch/shinobi/internal/app"
)
