package module

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/quayside/chandler/pkg/command"
)

func newTestPreflight(fake *command.FakeRunner) *Preflight {
	return &Preflight{
		runner:   fake,
		goos:     "linux",
		euid:     0,
		lookPath: func(string) (string, error) { return "/usr/bin/docker", nil },
	}
}

// TestPreflightPasses verifies a root linux host with a responsive daemon
// clears every probe.
func TestPreflightPasses(t *testing.T) {
	fake := command.NewFakeRunner()
	fake.HandleResult("docker version", &command.Result{ExitCode: 0, Stdout: "24.0.7\n"})

	if err := newTestPreflight(fake).Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
}

// TestPreflightWrongOS verifies a non-linux host is rejected before any
// command runs.
func TestPreflightWrongOS(t *testing.T) {
	fake := command.NewFakeRunner()
	p := newTestPreflight(fake)
	p.goos = "darwin"

	err := p.Check(context.Background())
	if !errors.Is(err, ErrEnvironment) {
		t.Fatalf("Check() error = %v, want ErrEnvironment", err)
	}
	if len(fake.Calls()) != 0 {
		t.Error("commands ran despite unsupported OS")
	}
}

// TestPreflightRequiresRoot verifies an unprivileged invocation is an
// environment error.
func TestPreflightRequiresRoot(t *testing.T) {
	p := newTestPreflight(command.NewFakeRunner())
	p.euid = 1000

	err := p.Check(context.Background())
	if !errors.Is(err, ErrEnvironment) {
		t.Fatalf("Check() error = %v, want ErrEnvironment", err)
	}
}

// TestPreflightMissingBinary verifies an absent docker binary is classified
// as a missing dependency, not an environment failure.
func TestPreflightMissingBinary(t *testing.T) {
	p := newTestPreflight(command.NewFakeRunner())
	p.lookPath = func(string) (string, error) { return "", fmt.Errorf("not found") }

	err := p.Check(context.Background())
	if !errors.Is(err, ErrDependencyMissing) {
		t.Fatalf("Check() error = %v, want ErrDependencyMissing", err)
	}
	if errors.Is(err, ErrEnvironment) {
		t.Error("missing binary classified as environment failure")
	}
}

// TestPreflightDaemonDown verifies a present binary with an unresponsive
// daemon is still a missing dependency.
func TestPreflightDaemonDown(t *testing.T) {
	fake := command.NewFakeRunner()
	fake.HandleResult("docker version", &command.Result{
		ExitCode: 1,
		Stderr:   "Cannot connect to the Docker daemon at unix:///var/run/docker.sock",
	})

	err := newTestPreflight(fake).Check(context.Background())
	if !errors.Is(err, ErrDependencyMissing) {
		t.Fatalf("Check() error = %v, want ErrDependencyMissing", err)
	}
}
