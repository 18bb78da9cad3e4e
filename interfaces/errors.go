package interfaces

import (
	"errors"
	"fmt"
)

// Validation and execution failures surfaced by task runners. Each
// missing artifact gets its own sentinel so callers can report
// precisely what is absent.
var (
	// ErrMissingBundle indicates the bundle directory does not exist.
	ErrMissingBundle = errors.New("task bundle directory does not exist")

	// ErrMissingManifest indicates the bundle manifest file is absent.
	ErrMissingManifest = errors.New("bundle manifest not found")

	// ErrMissingEntryPoint indicates the bundle entry point is absent.
	ErrMissingEntryPoint = errors.New("bundle entry point not found")

	// ErrRuntimeUnavailable indicates the runtime binary is missing or
	// failed its version probe.
	ErrRuntimeUnavailable = errors.New("task runtime unavailable")

	// ErrSpawnFailure indicates the child process could not be started.
	ErrSpawnFailure = errors.New("failed to spawn task process")

	// ErrTimeout indicates the run was abandoned because its deadline
	// fired before the child exited.
	ErrTimeout = errors.New("task execution timed out")
)

// StreamError reports an I/O failure while draining one of the child's
// output pipes. Stream is "stdout" or "stderr".
type StreamError struct {
	Stream string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("reading task %s: %v", e.Stream, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
