package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrDuplicateRule is returned when registering a rule with a name that already exists.
	ErrDuplicateRule = zerr.New("duplicate rule")

	// ErrDuplicateOutput is returned when an output path already has a producing edge.
	ErrDuplicateOutput = zerr.New("output already produced by another edge")

	// ErrMissingInput is returned when an input is missing and no edge knows how to make it.
	ErrMissingInput = zerr.New("missing input and no known rule to make it")

	// ErrCycleDetected is returned when the dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("dependency cycle detected")

	// ErrUnknownTarget is returned when a requested target is not declared in the graph.
	ErrUnknownTarget = zerr.New("unknown target")

	// ErrUnterminatedReference is returned for an unterminated ${...} variable reference.
	ErrUnterminatedReference = zerr.New("unterminated ${} variable reference")

	// ErrNoTargetsSpecified is returned when neither arguments nor defaults name a target.
	ErrNoTargetsSpecified = zerr.New("no targets specified and no defaults declared")

	// ErrBuildFailed is returned when at least one edge command exited non-zero.
	ErrBuildFailed = zerr.New("build failed")
)

// IsGraphError reports whether err is a graph or parse error, as opposed to a
// failure of an executed command. The CLI maps the former to exit code 2.
func IsGraphError(err error) bool {
	for _, sentinel := range []error{
		ErrDuplicateRule,
		ErrDuplicateOutput,
		ErrMissingInput,
		ErrCycleDetected,
		ErrUnknownTarget,
		ErrUnterminatedReference,
		ErrNoTargetsSpecified,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
