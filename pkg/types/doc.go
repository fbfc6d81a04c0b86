/*
Package types defines the core data structures used throughout chandler.

This package contains the fundamental types that represent chandler's domain
model: managed service instances, health checks, credentials, backup
artifacts, and module provisioning state. These types are used by all other
packages for provisioning logic, persistence, and the status API.

# Architecture

The types package is the foundation of chandler's data model. It defines:

  - Service instance specifications (image, network, ports, mounts)
  - Engine-level container state and instance status probes
  - Health check configuration (readiness predicates and poll budgets)
  - Credential sets loaded from persisted secret files
  - Backup artifacts and retention metadata
  - Module provisioning state
  - Proxy site registrations

All types are designed to be:
  - Serializable (JSON) where they cross the storage or HTTP boundary
  - Plain data; behavior lives in the packages that own each concern
  - Validated at the edges (typed string constants for enums)

# Core Types

Service instances:
  - InstanceSpec: Declarative description of one named container
  - PortMapping: Container port published on the host
  - VolumeMount: Host path bound into an instance
  - RestartPolicy: Engine restart behavior (no, on-failure, always, ...)
  - ContainerState: Engine-reported process state, plus "missing"
  - InstanceStatus: Point-in-time probe of a named instance

Health:
  - HealthCheck: Readiness predicate plus interval/timeout/attempt budget
  - HealthCheckType: http, tcp, or exec (run inside the instance)

Credentials:
  - CredentialSet: Named secrets of one service, reused verbatim across runs

Backups:
  - BackupMode: full, schema (structure only), or data (rows only)
  - BackupRecord: One compressed artifact with checksum, size, and age

Modules:
  - ModuleState: pending, installed, degraded, failed
  - ModuleRecord: Persisted provisioning state of one module
  - SiteRecord: One registered reverse-proxy site

# Usage

Declaring a service instance:

	spec := &types.InstanceSpec{
		Name:    "quayside-db",
		Image:   "mariadb:11.4",
		Network: "quayside",
		Env:     []string{"MARIADB_ROOT_PASSWORD=" + rootPw},
		Mounts: []*types.VolumeMount{
			{Source: "/srv/quayside/mysql", Target: "/var/lib/mysql"},
		},
		RestartPolicy: types.RestartAlways,
	}

Declaring its readiness check:

	check := &types.HealthCheck{
		Type:        types.HealthCheckExec,
		Command:     []string{"mysqladmin", "ping", "-h", "localhost"},
		Interval:    3 * time.Second,
		Timeout:     5 * time.Second,
		MaxAttempts: 40,
	}

Recording a backup artifact:

	rec := &types.BackupRecord{
		ID:        uuid.New().String(),
		Target:    "database",
		Mode:      types.BackupModeFull,
		Path:      "/srv/quayside/backups/database/database-full-20240101T0300.sql.gz",
		SizeBytes: n,
		Checksum:  sum,
		CreatedAt: time.Now(),
	}

# Separation of Concerns

Two distinctions carried by these types matter everywhere:

Process state vs readiness:

	ContainerState answers "is the process up" as reported by the engine.
	HealthCheck answers "does the service inside it respond correctly."
	A database can be ContainerStateRunning for minutes while it performs
	first-time initialization; only the readiness predicate decides Ready.

Spec vs status:

	InstanceSpec is the desired state handed to the instance manager.
	InstanceStatus is observed state probed from the engine. Provisioning
	always flows spec -> deploy -> status, never backwards.

# Integration Points

This package integrates with:

  - pkg/instance: Deploys InstanceSpec, probes InstanceStatus
  - pkg/health: Evaluates HealthCheck predicates against instances
  - pkg/deploy: Orders candidate InstanceSpecs for fallback
  - pkg/vault: Produces and reloads CredentialSet
  - pkg/backup: Produces BackupRecord, prunes by Age
  - pkg/storage: Persists ModuleRecord, BackupRecord, SiteRecord as JSON
  - pkg/api: Serves the tagged record types over HTTP
  - pkg/panel: Builds the concrete specs for every panel module

# Thread Safety

Types in this package are plain data:
  - Read-safe: can be read concurrently from multiple goroutines
  - Write-unsafe: mutations must be synchronized by callers

The storage layer handles synchronization for persisted records. Components
treat received specs as immutable and copy before mutating.
*/
package types
