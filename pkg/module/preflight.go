package module

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/log"
)

var (
	// ErrEnvironment marks a host that cannot run the panel at all:
	// wrong OS, insufficient privilege. Nothing was mutated when it is
	// returned.
	ErrEnvironment = errors.New("environment check failed")

	// ErrDependencyMissing marks a required external dependency that is
	// absent or unresponsive, distinct from a host that is outright
	// unsupported.
	ErrDependencyMissing = errors.New("required dependency missing")
)

// Preflight verifies the host before any state-mutating step runs. The
// probe fields default to the real host and are overridden in tests.
type Preflight struct {
	runner   command.Runner
	goos     string
	euid     int
	lookPath func(file string) (string, error)
	logger   zerolog.Logger
}

// NewPreflight creates a preflight bound to the real host environment
func NewPreflight(runner command.Runner) *Preflight {
	return &Preflight{
		runner:   runner,
		goos:     runtime.GOOS,
		euid:     os.Geteuid(),
		lookPath: exec.LookPath,
		logger:   log.WithComponent("preflight"),
	}
}

// Check runs every environment probe and returns the first failure.
// Ordering is cheapest first so a plainly unsupported host fails before any
// engine round trip.
func (p *Preflight) Check(ctx context.Context) error {
	if p.goos != "linux" {
		return fmt.Errorf("%w: host OS is %s, linux required", ErrEnvironment, p.goos)
	}
	if p.euid != 0 {
		return fmt.Errorf("%w: must run as root, running as uid %d", ErrEnvironment, p.euid)
	}
	if _, err := p.lookPath("docker"); err != nil {
		return fmt.Errorf("%w: docker binary not found in PATH", ErrDependencyMissing)
	}

	// The binary existing says nothing about the daemon.
	cmd := command.New("docker", "version", "--format", "{{.Server.Version}}")
	result, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: docker daemon not reachable: %v", ErrDependencyMissing, err)
	}
	if !result.Success() {
		return fmt.Errorf("%w: docker daemon not responding: %s", ErrDependencyMissing, result.Output())
	}

	p.logger.Debug().Str("docker", result.Output()).Msg("Preflight passed")
	return nil
}
