package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/quayside/chandler/pkg/log"
)

// DefaultMaxOutput caps captured stdout/stderr per execution (1 MiB each).
// Service logs and validator diagnostics fit comfortably; a runaway process
// cannot balloon memory.
const DefaultMaxOutput = 1 << 20

// Runner executes Commands. The one non-test implementation is ExecRunner;
// tests substitute a FakeRunner so no component test ever spawns a process.
type Runner interface {
	// Run executes cmd, capturing stdout and stderr into the Result.
	Run(ctx context.Context, cmd *Command) (*Result, error)

	// Stream executes cmd writing stdout to w as it is produced. Stderr is
	// captured into the Result. Used for streaming dumps to disk.
	Stream(ctx context.Context, cmd *Command, w io.Writer) (*Result, error)
}

// ExecRunner runs commands on the host via os/exec
type ExecRunner struct {
	maxOutput int
}

// NewRunner creates an ExecRunner with default output limits
func NewRunner() *ExecRunner {
	return &ExecRunner{maxOutput: DefaultMaxOutput}
}

// Run executes cmd capturing output
func (r *ExecRunner) Run(ctx context.Context, cmd *Command) (*Result, error) {
	return r.exec(ctx, cmd, nil)
}

// Stream executes cmd writing stdout to w
func (r *ExecRunner) Stream(ctx context.Context, cmd *Command, w io.Writer) (*Result, error) {
	return r.exec(ctx, cmd, w)
}

func (r *ExecRunner) exec(ctx context.Context, cmd *Command, stdout io.Writer) (*Result, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	if cmd.Dir != "" {
		proc.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		proc.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != nil {
		proc.Stdin = cmd.Stdin
	}

	var outBuf, errBuf bytes.Buffer
	outLimited := &limitedWriter{w: &outBuf, limit: r.maxOutput}
	errLimited := &limitedWriter{w: &errBuf, limit: r.maxOutput}

	if stdout != nil {
		proc.Stdout = stdout
	} else {
		proc.Stdout = outLimited
	}
	proc.Stderr = errLimited

	log.Logger.Debug().
		Str("command", cmd.String()).
		Msg("executing command")

	start := time.Now()
	err := proc.Run()

	result := &Result{
		Stdout:    outBuf.String(),
		Stderr:    errBuf.String(),
		Truncated: outLimited.truncated || errLimited.truncated,
		Duration:  time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to execute %s: %w", cmd.Program, err)
	}

	result.ExitCode = 0
	return result, nil
}

// limitedWriter caps how many bytes are retained, discarding the rest
type limitedWriter struct {
	w         io.Writer
	limit     int
	n         int
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.n >= lw.limit {
		lw.truncated = true
		return len(p), nil
	}
	if lw.n+len(p) > lw.limit {
		keep := lw.limit - lw.n
		if _, err := lw.w.Write(p[:keep]); err != nil {
			return 0, err
		}
		lw.n = lw.limit
		lw.truncated = true
		return len(p), nil
	}
	n, err := lw.w.Write(p)
	lw.n += n
	return n, err
}
