package command

import (
	"io"
	"strings"
	"time"
)

// Command is a declarative description of one external command. Building a
// Command never executes anything; execution happens only when the Command
// is handed to a Runner. This keeps "what should run" unit-testable without
// spawning processes.
type Command struct {
	Program string
	Args    []string
	Dir     string
	Env     []string // extra KEY=value pairs appended to the process env
	Stdin   io.Reader
	Timeout time.Duration // 0 means the caller's context bounds execution
}

// New creates a command for program with the given arguments
func New(program string, args ...string) *Command {
	return &Command{
		Program: program,
		Args:    args,
	}
}

// WithArgs appends arguments
func (c *Command) WithArgs(args ...string) *Command {
	c.Args = append(c.Args, args...)
	return c
}

// WithDir sets the working directory
func (c *Command) WithDir(dir string) *Command {
	c.Dir = dir
	return c
}

// WithEnv appends KEY=value pairs to the command environment
func (c *Command) WithEnv(env ...string) *Command {
	c.Env = append(c.Env, env...)
	return c
}

// WithStdin sets the standard input
func (c *Command) WithStdin(r io.Reader) *Command {
	c.Stdin = r
	return c
}

// WithTimeout bounds a single execution of the command
func (c *Command) WithTimeout(d time.Duration) *Command {
	c.Timeout = d
	return c
}

// String renders the command line for logging. Values passed via Env are
// deliberately not included.
func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}

// Result is the outcome of one command execution. A non-zero exit code is
// not an execution error: the Runner only returns an error when the command
// could not be run at all (program missing, fork failure).
type Result struct {
	ExitCode  int
	Stdout    string
	Stderr    string
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

// Success reports whether the command ran and exited zero
func (r *Result) Success() bool {
	return r != nil && !r.TimedOut && r.ExitCode == 0
}

// Output returns combined stdout and stderr, trimmed
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.Stdout + r.Stderr)
}
