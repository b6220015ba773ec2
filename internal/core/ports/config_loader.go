package ports

import "go.trai.ch/shinobi/internal/core/domain"

// ConfigLoader populates a graph store from a build description on disk.
// Parse failures surface here, before any plan is constructed.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the build description at path and returns the populated
	// state plus the declared default targets.
	Load(path string) (*domain.State, []string, error)
}
