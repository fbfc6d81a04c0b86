/*
Package runtime drives the container engine for chandler.

Every engine interaction (pulls, network setup, container lifecycle, state
probes, in-container execs) goes through DockerRuntime, which expresses
each operation as a typed Command handed to a command.Runner. Nothing else
in chandler talks to the engine, and nothing here knows about modules,
readiness, or fallback; this layer answers only "do this one engine thing."

# Architecture

	┌────────────────── RUNTIME LAYER ───────────────────┐
	│                                                     │
	│  pkg/instance (lifecycle)   pkg/health (probes)     │
	│            │                      │                 │
	│            ▼                      ▼                 │
	│  ┌─────────────────────────────────────────┐       │
	│  │             DockerRuntime               │       │
	│  │  PullImage / PullImages (concurrent)    │       │
	│  │  EnsureNetwork                          │       │
	│  │  RunContainer / Start / Stop / Remove   │       │
	│  │  ContainerStatus / ContainerLogs        │       │
	│  │  Exec / ExecStream                      │       │
	│  └───────────────────┬─────────────────────┘       │
	│                      │ typed Commands               │
	│                      ▼                              │
	│  ┌─────────────────────────────────────────┐       │
	│  │            command.Runner               │       │
	│  │  ExecRunner (real)  /  FakeRunner (test)│       │
	│  └─────────────────────────────────────────┘       │
	└─────────────────────────────────────────────────────┘

# Core Operations

Image management:
  - PullImage: bounded retries for transient registry failures
  - PullImages: concurrent pulls joined before returning; pulls share no
    mutable state, so this is the one sanctioned concurrency point

Network:
  - EnsureNetwork: inspect-then-create, idempotent

Container lifecycle:
  - RunContainer: InstanceSpec -> docker run argv (ports, mounts, env,
    labels, restart policy); every container carries ManagedLabel
  - StartContainer: starting a running container is success
  - StopContainer / RemoveContainer: absent container is success

Observation:
  - ContainerStatus: engine state, exit code, image, start time; a missing
    container is reported as ContainerStateMissing, never as an error
  - ContainerLogs: bounded tail of combined output
  - ListContainers: every container carrying ManagedLabel

In-container execution:
  - Exec: readiness predicates and config validators
  - ExecStream: dump pipelines streaming into compressed artifacts

# Usage

	rt := runtime.NewDockerRuntime(command.NewRunner())

	if err := rt.EnsureNetwork(ctx, "quayside"); err != nil {
		return err
	}

	id, err := rt.RunContainer(ctx, spec)
	if err != nil {
		return err
	}

	status, err := rt.ContainerStatus(ctx, spec.Name)
	if err != nil {
		return err
	}
	if status.State == types.ContainerStateExited {
		logs, _ := rt.ContainerLogs(ctx, spec.Name, 50)
		// surface logs with the failure
	}

# Error Semantics

Three kinds of outcome:
  - error from the Runner: the CLI itself could not run, an environment
    problem caught by preflight in normal operation
  - error from this package: the engine ran and refused, with the engine's
    own output in the message
  - data: absent containers on stop/remove/status/logs are ordinary
    results, because provisioning re-runs constantly hit them

# Testing

All tests script a FakeRunner. The argv mapping in RunContainer is asserted
as a full command line; idempotency cases feed the engine's actual "No such
container" phrasing back through the fake.
*/
package runtime
