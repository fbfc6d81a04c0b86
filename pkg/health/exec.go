package health

import (
	"context"
	"fmt"
	"time"
)

// ExecChecker evaluates readiness by running a command inside the instance
// (e.g., ["mysqladmin", "ping", "-h", "127.0.0.1"]). Exit zero means ready.
type ExecChecker struct {
	// Command is the argv to execute inside the instance
	Command []string

	// Env holds extra KEY=value pairs for the exec (e.g., MYSQL_PWD)
	Env []string

	// Timeout is the command execution timeout (default: 10 seconds)
	Timeout time.Duration

	// Instance is the name of the instance to exec into
	Instance string

	execer Execer
}

// NewExecChecker creates an exec health checker bound to an instance
func NewExecChecker(execer Execer, instance string, command []string) *ExecChecker {
	return &ExecChecker{
		Command:  command,
		Timeout:  10 * time.Second,
		Instance: instance,
		execer:   execer,
	}
}

// Check performs the exec health check
func (e *ExecChecker) Check(ctx context.Context) Result {
	start := time.Now()

	if len(e.Command) == 0 {
		return Result{
			Healthy:   false,
			Message:   "no command specified",
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	if e.execer == nil {
		return Result{
			Healthy:   false,
			Message:   "no exec runtime configured",
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	result, err := e.execer.Exec(execCtx, e.Instance, e.Command, e.Env)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("exec failed: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	if !result.Success() {
		message := fmt.Sprintf("exit code %d", result.ExitCode)
		if result.TimedOut {
			message = "predicate timed out"
		}
		if out := truncate(result.Output(), 160); out != "" {
			message = fmt.Sprintf("%s: %s", message, out)
		}
		return Result{
			Healthy:   false,
			Message:   message,
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	message := "predicate succeeded"
	if out := truncate(result.Output(), 160); out != "" {
		message = out
	}
	return Result{
		Healthy:   true,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type
func (e *ExecChecker) Type() CheckType {
	return CheckTypeExec
}

// WithTimeout sets the execution timeout
func (e *ExecChecker) WithTimeout(timeout time.Duration) *ExecChecker {
	e.Timeout = timeout
	return e
}

// WithEnv appends KEY=value pairs for the exec
func (e *ExecChecker) WithEnv(env ...string) *ExecChecker {
	e.Env = append(e.Env, env...)
	return e
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
