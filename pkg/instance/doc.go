/*
Package instance manages the lifecycle of named service instances.

Every service chandler provisions (database, proxy, file browser, metrics
stack, runtimes, panel) runs as a named container on a shared network. The
instance manager turns a declarative InstanceSpec into a running container
and exposes the small set of control verbs the rest of the toolkit needs:
deploy, start, stop, remove, status, and logs.

# Architecture

The manager sits between the provisioning modules above it and the
container runtime below it:

	┌──────────────────────────────────────────┐
	│            Provisioning Modules          │
	│     (database, proxy, metrics, panel)    │
	└───────────────────┬──────────────────────┘
	                    │ InstanceSpec
	                    ▼
	┌──────────────────────────────────────────┐
	│                 Manager                  │
	│  replace semantics · idempotent verbs    │
	│  host port preflight · default network   │
	└───────────────────┬──────────────────────┘
	                    │ engine commands
	                    ▼
	┌──────────────────────────────────────────┐
	│           runtime.DockerRuntime          │
	└──────────────────────────────────────────┘

# Core Components

Manager: lifecycle operations over the runtime. Deploy always replaces:
an existing instance with the same name is stopped and removed before the
new container starts, so retrying a deploy converges instead of failing
on a name collision. Remove, Stop, and Logs tolerate absent instances.

CheckHostPorts: preflight probe for published host ports. Each fixed port
is bound and released once before the image pull, so a port held by
another process fails the deploy immediately with a PortConflictError
instead of after minutes of pulling.

# Usage

Deploying a database instance:

	rt := runtime.NewDockerRuntime(command.NewRunner())
	mgr := instance.NewManager(rt, "quayside")

	err := mgr.Deploy(ctx, &types.InstanceSpec{
	    Name:          "quayside-db",
	    Image:         "mariadb:11.4",
	    RestartPolicy: types.RestartUnlessStopped,
	    Ports:         []*types.PortMapping{{HostPort: 3306, ContainerPort: 3306}},
	    Mounts:        []*types.VolumeMount{{Source: "/srv/quayside/db/data", Target: "/var/lib/mysql"}},
	    Env:           []string{"MARIADB_ROOT_PASSWORD_FILE=/run/secrets/root"},
	})

Checking on an instance later:

	status, err := mgr.Status(ctx, "quayside-db")
	if status.Running() {
	    tail, _ := mgr.Logs(ctx, "quayside-db", 50)
	}

# Separation of Concerns

The manager knows nothing about readiness. Deploy returns as soon as the
container process is started; whether the service inside it is accepting
work is the health gate's question. Keeping the two apart lets the
fallback selector tear down an instance that started fine but never
became ready.

# Integration Points

  - pkg/runtime: executes the engine commands
  - pkg/health: gates on readiness after Deploy returns
  - pkg/deploy: drives Deploy and Remove across fallback candidates
  - pkg/module: uses Status and Logs for the status verb

# Thread Safety

Manager holds no mutable state and is safe for concurrent use. Concurrent
deploys of the same instance name race at the engine level and should be
serialized by the caller; the module sequencer runs modules one at a time
for this reason.
*/
package instance
