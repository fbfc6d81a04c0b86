package instance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/runtime"
	"github.com/quayside/chandler/pkg/types"
)

// DefaultStopTimeout is the grace period, in seconds, a container gets to
// shut down before it is killed.
const DefaultStopTimeout = 30

// Manager owns the lifecycle of named service instances. It layers replace
// semantics and idempotent control verbs over the container runtime:
// deploying a name that already exists tears the old instance down first,
// and remove, stop, and logs tolerate absent instances. The manager makes
// no readiness decisions; callers gate on health separately.
type Manager struct {
	runtime *runtime.DockerRuntime
	network string
	logger  zerolog.Logger
}

// NewManager creates a manager that attaches instances to the given shared
// network unless their spec names one explicitly.
func NewManager(rt *runtime.DockerRuntime, network string) *Manager {
	return &Manager{
		runtime: rt,
		network: network,
		logger:  log.WithComponent("instance"),
	}
}

// Deploy creates a running instance from spec, replacing any existing
// instance of the same name. The sequence is: ensure the shared network
// exists, tear down the old instance, verify published host ports can be
// bound, pull the image, run. The caller's spec is not modified. Deploy
// returns once the container is started; it does not wait for readiness.
func (m *Manager) Deploy(ctx context.Context, spec *types.InstanceSpec) error {
	if spec == nil || spec.Name == "" {
		return fmt.Errorf("instance spec requires a name")
	}
	if spec.Image == "" {
		return fmt.Errorf("instance %s requires an image", spec.Name)
	}

	run := *spec
	if run.Network == "" {
		run.Network = m.network
	}
	if run.StopTimeout == 0 {
		run.StopTimeout = DefaultStopTimeout
	}

	if err := m.runtime.EnsureNetwork(ctx, run.Network); err != nil {
		return err
	}

	status, err := m.runtime.ContainerStatus(ctx, run.Name)
	if err != nil {
		return err
	}
	if status.State != types.ContainerStateMissing {
		m.logger.Info().
			Str("instance", run.Name).
			Str("state", string(status.State)).
			Msg("Replacing existing instance")
	}
	if err := m.Remove(ctx, run.Name); err != nil {
		return err
	}

	// Probe ports only after the old instance released its bindings.
	if err := CheckHostPorts(&run); err != nil {
		return err
	}

	if err := m.runtime.PullImage(ctx, run.Image); err != nil {
		return err
	}

	id, err := m.runtime.RunContainer(ctx, &run)
	if err != nil {
		return err
	}
	m.logger.Info().
		Str("instance", run.Name).
		Str("image", run.Image).
		Str("id", shortID(id)).
		Msg("Instance deployed")
	return nil
}

// Remove stops and removes the named instance. Removing an instance that
// does not exist is success.
func (m *Manager) Remove(ctx context.Context, name string) error {
	if err := m.runtime.StopContainer(ctx, name, DefaultStopTimeout); err != nil {
		return err
	}
	return m.runtime.RemoveContainer(ctx, name)
}

// Start starts a stopped instance. The engine treats starting a running
// container as a no-op, so Start is idempotent for existing instances.
func (m *Manager) Start(ctx context.Context, name string) error {
	return m.runtime.StartContainer(ctx, name)
}

// Stop gracefully stops the named instance, killing it after the default
// grace period. Stopping an absent or already stopped instance is success.
func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.runtime.StopContainer(ctx, name, DefaultStopTimeout)
}

// Status reports the observed state of the named instance. An absent
// instance reports ContainerStateMissing rather than an error.
func (m *Manager) Status(ctx context.Context, name string) (*types.InstanceStatus, error) {
	return m.runtime.ContainerStatus(ctx, name)
}

// Running reports whether the named instance exists and is running.
func (m *Manager) Running(ctx context.Context, name string) (bool, error) {
	status, err := m.runtime.ContainerStatus(ctx, name)
	if err != nil {
		return false, err
	}
	return status.Running(), nil
}

// Logs returns the last tail lines of the instance's output. An absent
// instance yields empty logs, not an error.
func (m *Manager) Logs(ctx context.Context, name string, tail int) (string, error) {
	return m.runtime.ContainerLogs(ctx, name, tail)
}

// List returns the names of all instances the toolkit manages.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.runtime.ListContainers(ctx)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
