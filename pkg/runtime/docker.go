package runtime

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/types"
)

const (
	// DefaultBinary is the container engine CLI chandler drives
	DefaultBinary = "docker"

	// ManagedLabel marks every container chandler owns
	ManagedLabel = "io.quayside.managed"

	// maxPullAttempts caps retries for transient registry failures
	maxPullAttempts = 3

	inspectTimeout = 15 * time.Second
	controlTimeout = 60 * time.Second
	pullTimeout    = 10 * time.Minute
)

// pullRetryDelay separates pull attempts
var pullRetryDelay = 3 * time.Second

// DockerRuntime drives the container engine through its CLI. Every
// operation is expressed as a typed Command handed to the Runner, so the
// full engine interaction is testable without an engine.
type DockerRuntime struct {
	runner command.Runner
	binary string
	logger zerolog.Logger
}

// NewDockerRuntime creates a runtime backed by the given Runner
func NewDockerRuntime(runner command.Runner) *DockerRuntime {
	return &DockerRuntime{
		runner: runner,
		binary: DefaultBinary,
		logger: log.WithComponent("runtime"),
	}
}

// WithBinary overrides the engine CLI path
func (r *DockerRuntime) WithBinary(binary string) *DockerRuntime {
	r.binary = binary
	return r
}

// Version returns the engine's server version. Preflight uses this to
// verify the engine is installed and the daemon is reachable.
func (r *DockerRuntime) Version(ctx context.Context) (string, error) {
	cmd := command.New(r.binary, "version", "--format", "{{.Server.Version}}").
		WithTimeout(inspectTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", r.binary, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("container engine not reachable: %s", result.Output())
	}
	return strings.TrimSpace(result.Stdout), nil
}

// PullImage pulls an image, retrying transient failures up to the attempt
// cap. Retries are bounded; a registry that stays down is surfaced as an
// error after the final attempt.
func (r *DockerRuntime) PullImage(ctx context.Context, ref string) error {
	var lastOutput string
	for attempt := 1; attempt <= maxPullAttempts; attempt++ {
		cmd := command.New(r.binary, "pull", ref).WithTimeout(pullTimeout)
		result, err := r.runner.Run(ctx, cmd)
		if err != nil {
			return fmt.Errorf("failed to pull image %s: %w", ref, err)
		}
		if result.Success() {
			r.logger.Debug().Str("image", ref).Int("attempt", attempt).Msg("image pulled")
			return nil
		}

		lastOutput = result.Output()
		r.logger.Warn().
			Str("image", ref).
			Int("attempt", attempt).
			Int("max_attempts", maxPullAttempts).
			Msg("image pull failed, retrying")

		if attempt < maxPullAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pullRetryDelay):
			}
		}
	}
	return fmt.Errorf("failed to pull image %s after %d attempts: %s", ref, maxPullAttempts, lastOutput)
}

// PullImages pulls several images concurrently and joins on all of them.
// Pulls share no mutable state, which makes this the one safe place for
// parallelism in a provisioning run.
func (r *DockerRuntime) PullImages(ctx context.Context, refs []string) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(refs))

	for _, ref := range refs {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			if err := r.PullImage(ctx, ref); err != nil {
				errCh <- err
			}
		}(ref)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}

// ImageExists reports whether the image is already present on the host
func (r *DockerRuntime) ImageExists(ctx context.Context, ref string) (bool, error) {
	cmd := command.New(r.binary, "image", "inspect", "--format", "{{.Id}}", ref).
		WithTimeout(inspectTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return false, fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}
	if !result.Success() {
		if isNotFound(result) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image %s: %s", ref, result.Output())
	}
	return true, nil
}

// EnsureNetwork creates the named bridge network if it does not exist
func (r *DockerRuntime) EnsureNetwork(ctx context.Context, name string) error {
	inspect := command.New(r.binary, "network", "inspect", name).WithTimeout(inspectTimeout)
	result, err := r.runner.Run(ctx, inspect)
	if err != nil {
		return fmt.Errorf("failed to inspect network %s: %w", name, err)
	}
	if result.Success() {
		return nil
	}

	create := command.New(r.binary, "network", "create", name).WithTimeout(controlTimeout)
	result, err = r.runner.Run(ctx, create)
	if err != nil {
		return fmt.Errorf("failed to create network %s: %w", name, err)
	}
	if !result.Success() {
		return fmt.Errorf("failed to create network %s: %s", name, result.Output())
	}

	r.logger.Info().Str("network", name).Msg("network created")
	return nil
}

// RunContainer creates and starts a detached container from the spec and
// returns the engine's container ID
func (r *DockerRuntime) RunContainer(ctx context.Context, spec *types.InstanceSpec) (string, error) {
	cmd := command.New(r.binary, "run", "-d", "--name", spec.Name)

	if spec.RestartPolicy != "" {
		cmd.WithArgs("--restart", string(spec.RestartPolicy))
	}
	if spec.Network != "" {
		cmd.WithArgs("--network", spec.Network)
	}
	if spec.StopTimeout > 0 {
		cmd.WithArgs("--stop-timeout", strconv.Itoa(spec.StopTimeout))
	}

	for _, p := range spec.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		cmd.WithArgs("-p", fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, proto))
	}

	for _, m := range spec.Mounts {
		bind := m.Source + ":" + m.Target
		if m.ReadOnly {
			bind += ":ro"
		}
		cmd.WithArgs("-v", bind)
	}

	// Env values travel through the client process environment and are
	// referenced by name only, so secrets never appear in the rendered
	// command line, debug logs, or the host process table.
	for _, e := range spec.Env {
		key, _, _ := strings.Cut(e, "=")
		cmd.WithArgs("-e", key)
	}
	cmd.WithEnv(spec.Env...)

	// Sorted for deterministic command lines
	labels := make([]string, 0, len(spec.Labels)+1)
	labels = append(labels, ManagedLabel+"=true")
	for k, v := range spec.Labels {
		labels = append(labels, k+"="+v)
	}
	sort.Strings(labels)
	for _, l := range labels {
		cmd.WithArgs("--label", l)
	}

	cmd.WithArgs(spec.Image)
	cmd.WithArgs(spec.Command...)
	cmd.WithTimeout(controlTimeout)

	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to run container %s: %w", spec.Name, err)
	}
	if !result.Success() {
		return "", fmt.Errorf("failed to run container %s: %s", spec.Name, result.Output())
	}

	id := strings.TrimSpace(result.Stdout)
	r.logger.Info().
		Str("instance", spec.Name).
		Str("image", spec.Image).
		Msg("container started")
	return id, nil
}

// StartContainer starts an existing stopped container. Starting a running
// container is a no-op for the engine and therefore success here.
func (r *DockerRuntime) StartContainer(ctx context.Context, name string) error {
	cmd := command.New(r.binary, "start", name).WithTimeout(controlTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to start container %s: %w", name, err)
	}
	if !result.Success() {
		return fmt.Errorf("failed to start container %s: %s", name, result.Output())
	}
	return nil
}

// StopContainer stops a container by name. Stopping an absent container
// is success, not an error.
func (r *DockerRuntime) StopContainer(ctx context.Context, name string, timeout int) error {
	if timeout <= 0 {
		timeout = 10
	}
	cmd := command.New(r.binary, "stop", "-t", strconv.Itoa(timeout), name).
		WithTimeout(time.Duration(timeout)*time.Second + controlTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to stop container %s: %w", name, err)
	}
	if !result.Success() && !isNotFound(result) {
		return fmt.Errorf("failed to stop container %s: %s", name, result.Output())
	}
	return nil
}

// RemoveContainer force-removes a container by name. Removing an absent
// container is success, not an error.
func (r *DockerRuntime) RemoveContainer(ctx context.Context, name string) error {
	cmd := command.New(r.binary, "rm", "-f", name).WithTimeout(controlTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}
	if !result.Success() && !isNotFound(result) {
		return fmt.Errorf("failed to remove container %s: %s", name, result.Output())
	}
	return nil
}

// ContainerStatus probes the engine state of a named container. A missing
// container yields ContainerStateMissing, not an error.
func (r *DockerRuntime) ContainerStatus(ctx context.Context, name string) (*types.InstanceStatus, error) {
	format := "{{.State.Status}}|{{.State.ExitCode}}|{{.Config.Image}}|{{.State.StartedAt}}"
	cmd := command.New(r.binary, "inspect", "--format", format, name).
		WithTimeout(inspectTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	if !result.Success() {
		if isNotFound(result) {
			return &types.InstanceStatus{Name: name, State: types.ContainerStateMissing}, nil
		}
		return nil, fmt.Errorf("failed to inspect container %s: %s", name, result.Output())
	}

	return parseStatus(name, result.Stdout)
}

// ContainerLogs returns the last tail lines of a container's combined
// stdout and stderr
func (r *DockerRuntime) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	if tail <= 0 {
		tail = 50
	}
	cmd := command.New(r.binary, "logs", "--tail", strconv.Itoa(tail), name).
		WithTimeout(inspectTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to fetch logs for %s: %w", name, err)
	}
	if !result.Success() {
		if isNotFound(result) {
			return "", nil
		}
		return "", fmt.Errorf("failed to fetch logs for %s: %s", name, result.Output())
	}
	return result.Output(), nil
}

// Exec runs argv inside a running container and returns the raw result.
// Non-zero exits are data for the caller, not errors.
func (r *DockerRuntime) Exec(ctx context.Context, name string, argv []string, env []string) (*command.Result, error) {
	cmd := execCommand(r.binary, name, argv, env).WithTimeout(controlTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to exec in container %s: %w", name, err)
	}
	return result, nil
}

// ExecStream runs argv inside a running container streaming stdout to w.
// Used to pipe database dumps straight into compressed artifacts.
func (r *DockerRuntime) ExecStream(ctx context.Context, name string, argv []string, env []string, w io.Writer) (*command.Result, error) {
	cmd := execCommand(r.binary, name, argv, env).WithTimeout(pullTimeout)
	result, err := r.runner.Stream(ctx, cmd, w)
	if err != nil {
		return nil, fmt.Errorf("failed to exec in container %s: %w", name, err)
	}
	return result, nil
}

// ListContainers returns the names of all containers chandler manages,
// running or not
func (r *DockerRuntime) ListContainers(ctx context.Context) ([]string, error) {
	cmd := command.New(r.binary, "ps", "-a",
		"--filter", "label="+ManagedLabel+"=true",
		"--format", "{{.Names}}").
		WithTimeout(inspectTimeout)
	result, err := r.runner.Run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	if !result.Success() {
		return nil, fmt.Errorf("failed to list containers: %s", result.Output())
	}

	var names []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// execCommand builds a docker exec invocation. Env values are passed
// through the client process environment and referenced by name in argv,
// keeping credentials out of the rendered command line.
func execCommand(binary, name string, argv, env []string) *command.Command {
	cmd := command.New(binary, "exec")
	for _, e := range env {
		key, _, _ := strings.Cut(e, "=")
		cmd.WithArgs("-e", key)
	}
	cmd.WithEnv(env...)
	cmd.WithArgs(name)
	cmd.WithArgs(argv...)
	return cmd
}

// parseStatus decodes the pipe-separated inspect format
func parseStatus(name, out string) (*types.InstanceStatus, error) {
	parts := strings.Split(strings.TrimSpace(out), "|")
	if len(parts) != 4 {
		return nil, fmt.Errorf("unexpected inspect output for %s: %q", name, out)
	}

	exitCode, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("unexpected exit code for %s: %q", name, parts[1])
	}

	status := &types.InstanceStatus{
		Name:     name,
		State:    types.ContainerState(parts[0]),
		ExitCode: exitCode,
		Image:    parts[2],
	}
	if started, err := time.Parse(time.RFC3339Nano, parts[3]); err == nil {
		status.StartedAt = started
	}
	return status, nil
}

// isNotFound reports whether the engine said the object does not exist
func isNotFound(result *command.Result) bool {
	return strings.Contains(result.Output(), "No such")
}
