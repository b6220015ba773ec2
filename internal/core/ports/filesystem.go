package ports

// FileSystem observes file modification times for the stat cache.
//
//go:generate go run go.uber.org/mock/mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// Stat returns the mtime of path in unix seconds, 0 if the file is
	// missing. Only hard I/O failures return an error.
	Stat(path string) (int64, error)
}
