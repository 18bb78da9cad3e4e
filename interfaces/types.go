package interfaces

import (
	"context"
	"time"
)

// Default values applied by TaskConfig.WithDefaults. The defaults
// match the bundled Node.js task layout the gateway ships with.
const (
	DefaultRuntimePath    = "/nodejs/bin/node"
	DefaultManifestName   = "package.json"
	DefaultEntryPointName = "index.js"
	DefaultTimeout        = 120 * time.Second
)

// TaskConfig describes one invocation of the untrusted child process.
// Built fresh per request; treated as immutable once passed to a
// runner.
type TaskConfig struct {
	// BundlePath is the directory containing the executable bundle.
	BundlePath string

	// RuntimePath is the binary that launches the bundle's entry point.
	RuntimePath string

	// ManifestName is the bundle manifest file checked during
	// validation, relative to BundlePath.
	ManifestName string

	// EntryPointName is the bundle entry point, relative to BundlePath.
	EntryPointName string

	// Timeout bounds the whole spawn-drain-wait sequence.
	Timeout time.Duration

	// Args are appended to the runtime invocation, after the entry
	// point, in order.
	Args []string

	// Env is the complete child environment. The runner treats it as
	// opaque key/value pairs and never logs values; the caller is
	// responsible for merging trusted secrets in before the call.
	Env map[string]string
}

// WithDefaults returns a copy with zero-valued fields replaced by the
// package defaults.
func (c TaskConfig) WithDefaults() TaskConfig {
	if c.RuntimePath == "" {
		c.RuntimePath = DefaultRuntimePath
	}
	if c.ManifestName == "" {
		c.ManifestName = DefaultManifestName
	}
	if c.EntryPointName == "" {
		c.EntryPointName = DefaultEntryPointName
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// TaskOutput is the structured outcome of a completed child process
// run. Produced exactly once per invocation; only ExecutionTimeMS is
// filled in afterwards, by the caller that measured the full run.
type TaskOutput struct {
	// Stdout is the full captured standard output.
	Stdout string `json:"stdout"`

	// Stderr is the full captured standard error.
	Stderr string `json:"stderr"`

	// ExitCode is the process exit code, or -1 if it could not be
	// determined.
	ExitCode int `json:"exit_code"`

	// ExecutionTimeMS spans the whole run including validation,
	// measured by the caller.
	ExecutionTimeMS uint64 `json:"execution_time_ms"`
}

// TaskRunner supervises a single child process invocation.
//
// Validate and VerifyRuntime are side-effect free with respect to the
// process table: no process is spawned until Run. Run's context
// carries the deadline; when it fires, Run terminates and reaps the
// child and returns ErrTimeout.
type TaskRunner interface {
	Validate() error
	VerifyRuntime(ctx context.Context) error
	Run(ctx context.Context) (*TaskOutput, error)
}

// RunnerFactory builds a TaskRunner for a config. Handlers hold a
// factory so tests can substitute a fake child process.
type RunnerFactory func(cfg TaskConfig) TaskRunner
