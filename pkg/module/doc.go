/*
Package module sequences provisioning units in dependency order.

A module is one independently installable piece of the panel: the database,
the proxy, the file browser. Each declares its dependencies; the sequencer
resolves a topological order and runs the requested verb, recording every
state transition so later runs and the status API know what the host looks
like.

# Architecture

	┌────────────────── MODULE SEQUENCER ──────────────────┐
	│                                                      │
	│  CLI verb (install / status / backup / repair)       │
	│                      │                               │
	│                      ▼                               │
	│  ┌────────────────────────────────────┐              │
	│  │             Registry               │              │
	│  │  catalog + dependency resolution   │              │
	│  │  (Kahn order, registration ties)   │              │
	│  └──────────────────┬─────────────────┘              │
	│                     ▼                                │
	│  ┌────────────────────────────────────┐              │
	│  │            Sequencer               │              │
	│  │  database → proxy → runtime → ...  │              │
	│  │  halt on first install failure     │              │
	│  └──────┬──────────────┬──────────────┘              │
	│         ▼              ▼                             │
	│    state records   lifecycle events                  │
	│    (pkg/storage)   (pkg/events)                      │
	└──────────────────────────────────────────────────────┘

# Verb Semantics

Install walks the transitive dependency closure in dependency order and
halts at the first failure. Modules provisioned before the failure keep
their state; nothing is rolled back. Because installs are convergent,
re-running after fixing the cause finishes the job.

Repair re-converges: modules implementing Repairer run their own routine,
the rest re-install.

Backup runs only modules implementing Backuper and does not halt on
failure; each target's dump is independent.

Status probes every module and reports per-module health, capturing probe
errors as unhealthy entries rather than aborting.

# Preflight

Preflight verifies the host before anything mutates: linux, root, docker
binary present, daemon responding. Failures are classified ErrEnvironment
(unsupported host) or ErrDependencyMissing (absent or unresponsive
dependency) so the CLI can exit with distinct codes.

# Usage

	registry := module.NewRegistry()
	registry.Register(databaseModule)
	registry.Register(proxyModule)

	seq := module.NewSequencer(registry, store, broker)
	results, err := seq.Install(ctx, "panel")

# Integration Points

  - pkg/panel: provides the concrete module catalog
  - pkg/storage: persists module state records
  - pkg/events: install started/completed/failed, repaired
  - pkg/metrics: per-module install counts and durations
  - cmd/chandler: maps verb errors to exit codes

# Thread Safety

The registry is built once at startup and read-only afterwards. The
sequencer is single-threaded; concurrent orchestrator invocations are
prevented by the CLI run lock, not here.
*/
package module
