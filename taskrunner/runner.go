package taskrunner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/attestedrun/tee-task-gateway/interfaces"
)

// Runner executes one task invocation. A Runner is built fresh per
// request from an immutable TaskConfig and is not reused.
type Runner struct {
	cfg interfaces.TaskConfig
	log *slog.Logger
}

// New creates a runner for the given config, applying package defaults
// for unset fields.
func New(cfg interfaces.TaskConfig, log *slog.Logger) *Runner {
	return &Runner{cfg: cfg.WithDefaults(), log: log}
}

// Factory returns a RunnerFactory producing real process runners.
func Factory(log *slog.Logger) interfaces.RunnerFactory {
	return func(cfg interfaces.TaskConfig) interfaces.TaskRunner {
		return New(cfg, log)
	}
}

// Run spawns the child process and returns its captured output.
//
// The child gets stdin connected to the null device, stdout and stderr
// redirected to pipes, the configured arguments appended after the
// entry point, and exactly the configured environment (allowlist; no
// host variables leak through). Both pipes are drained concurrently
// and the whole sequence races the timeout. Run does not stamp
// ExecutionTimeMS; the caller measures wall-clock time around the
// complete validate+run call so duration is meaningful on the timeout
// path too.
func (r *Runner) Run(ctx context.Context) (*interfaces.TaskOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := append([]string{r.cfg.EntryPointName}, r.cfg.Args...)
	cmd := exec.Command(r.cfg.RuntimePath, args...)
	cmd.Dir = r.cfg.BundlePath
	cmd.Env = flattenEnv(r.cfg.Env)

	// Own process group, so the timeout path can kill the child and
	// everything it forked in one signal.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", interfaces.ErrSpawnFailure, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", interfaces.ErrSpawnFailure, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSpawnFailure, err)
	}

	r.log.Debug("Task process started", "pid", cmd.Process.Pid, "bundle", r.cfg.BundlePath, "timeout", r.cfg.Timeout)

	reaped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		case <-reaped:
		}
	}()

	var stdout, stderr strings.Builder
	var g errgroup.Group
	g.Go(func() error { return drain(&stdout, stdoutPipe, "stdout") })
	g.Go(func() error { return drain(&stderr, stderrPipe, "stderr") })

	drainErr := g.Wait()
	if drainErr != nil {
		// The child may still be running with broken pipes; don't
		// leave it behind.
		syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	waitErr := cmd.Wait()
	close(reaped)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w after %s", interfaces.ErrTimeout, r.cfg.Timeout)
	}
	if drainErr != nil {
		return nil, drainErr
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("waiting for task process: %w", waitErr)
		}
		// ExitCode is -1 when the process was signaled, matching the
		// "unobtainable" sentinel.
		exitCode = exitErr.ExitCode()
	}

	return &interfaces.TaskOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}, nil
}

// drain accumulates one output stream line by line until EOF. Partial
// final lines are kept.
func drain(dst *strings.Builder, src io.Reader, stream string) error {
	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadString('\n')
		dst.WriteString(line)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &interfaces.StreamError{Stream: stream, Err: err}
		}
	}
}

// flattenEnv builds the child environment from the config mapping
// only. The host environment is never inherited.
func flattenEnv(env map[string]string) []string {
	flat := make([]string, 0, len(env))
	for k, v := range env {
		flat = append(flat, k+"="+v)
	}
	return flat
}
