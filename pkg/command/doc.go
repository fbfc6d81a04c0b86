/*
Package command provides the typed command builder and executor used for
every external process chandler touches.

Provisioning shells out constantly: the container engine, dump tools, and
config validators are all external programs. This package separates the two
halves of that work. A Command is a declarative description built with
With* methods and never executes anything; a Runner turns a Command into a
process and returns a typed Result. Components build Commands and are
unit-tested against a FakeRunner, so no component test ever spawns a
process.

# Core Components

Command:
  - Program, Args, Dir, Env, Stdin, Timeout
  - Built fluently: New("docker", "run").WithArgs(...).WithTimeout(...)
  - String() renders the line for logs; Env values are never rendered

Result:
  - ExitCode, Stdout, Stderr, TimedOut, Truncated, Duration
  - Success() means ran, not timed out, exited zero
  - A non-zero exit is data, not an execution error

Runner interface:
  - Run: capture stdout/stderr into the Result
  - Stream: write stdout to an io.Writer as produced (dump pipelines)

ExecRunner:
  - The one real implementation, backed by os/exec
  - Captured output capped at DefaultMaxOutput per stream
  - Timeout handled via context; TimedOut set on deadline

FakeRunner:
  - Scriptable by command-line prefix, longest prefix wins
  - Unmatched commands succeed with empty output
  - Records every call for order and argument assertions

# Usage

Building and running:

	cmd := command.New("docker", "inspect",
		"--format", "{{.State.Status}}", name).
		WithTimeout(10 * time.Second)

	result, err := runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to probe %s: %w", name, err)
	}
	if !result.Success() {
		// container does not exist
	}

Scripting a test:

	fake := command.NewFakeRunner()
	fake.HandleResult("docker inspect", &command.Result{
		ExitCode: 1,
		Stderr:   "Error: No such container",
	})

	mgr := instance.NewManager(runtime.New(fake), "quayside")
	// ... assert on fake.CallLines()

# Error Semantics

The Runner returns an error only when the command could not be executed at
all: program not on PATH, fork failure. Everything a process reports about
itself (exit code, output, running past its deadline) travels in the
Result. Callers classify Results into their own domain outcomes; nothing
above this package inspects *exec.ExitError.

# Integration Points

  - pkg/runtime: builds every container engine command
  - pkg/render: runs config validators and reload signals
  - pkg/backup: streams dump output into compressed artifacts
  - pkg/module: probes for required host binaries during preflight
*/
package command
