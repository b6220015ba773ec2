package telemetry

import (
	"os"

	"go.trai.ch/shinobi/internal/adapters/telemetry/progrock"
	"go.trai.ch/shinobi/internal/core/ports"
)

// New selects the telemetry backend: the progrock recorder when stdout is a
// terminal, the no-op backend otherwise (pipes, CI).
func New() ports.Telemetry {
	if isTerminal(os.Stdout) {
		return progrock.New()
	}
	return NewNoOp()
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
