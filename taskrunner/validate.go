package taskrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/attestedrun/tee-task-gateway/interfaces"
)

// Validate checks the executable bundle before any process is spawned:
// the bundle directory, its manifest, and its entry point must all
// exist. Each missing artifact yields its own sentinel error so
// callers can report exactly what is absent.
func (r *Runner) Validate() error {
	info, err := os.Stat(r.cfg.BundlePath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", interfaces.ErrMissingBundle, r.cfg.BundlePath)
	}

	if _, err := os.Stat(filepath.Join(r.cfg.BundlePath, r.cfg.ManifestName)); err != nil {
		return fmt.Errorf("%w: %s", interfaces.ErrMissingManifest, r.cfg.ManifestName)
	}

	if _, err := os.Stat(filepath.Join(r.cfg.BundlePath, r.cfg.EntryPointName)); err != nil {
		return fmt.Errorf("%w: %s", interfaces.ErrMissingEntryPoint, r.cfg.EntryPointName)
	}

	return nil
}

// VerifyRuntime confirms the runtime binary exists and is invocable by
// running its version probe. This is a separate concern from bundle
// validation and surfaces its own error kind.
func (r *Runner) VerifyRuntime(ctx context.Context) error {
	if _, err := os.Stat(r.cfg.RuntimePath); err != nil {
		return fmt.Errorf("%w: %s", interfaces.ErrRuntimeUnavailable, r.cfg.RuntimePath)
	}

	out, err := exec.CommandContext(ctx, r.cfg.RuntimePath, "--version").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: version probe failed: %s", interfaces.ErrRuntimeUnavailable, bytes.TrimSpace(exitErr.Stderr))
		}
		return fmt.Errorf("%w: %v", interfaces.ErrRuntimeUnavailable, err)
	}

	r.log.Debug("Task runtime available", "runtime", r.cfg.RuntimePath, "version", strings.TrimSpace(string(out)))
	return nil
}
