/*
Package deploy selects a working implementation for a service instance
from an ordered list of candidates.

Some services ship with more than one viable implementation. The database
is the canonical case: MariaDB is preferred, but on hosts where it fails
to initialize the stock MySQL image is an acceptable substitute. The
Selector owns that decision so modules declare candidates and a readiness
check instead of hand-rolling retry logic.

# Architecture

	┌────────────────────────────────────────────────────┐
	│                     Selector                       │
	│                                                    │
	│  candidates[0] ──► Deploy ──► AwaitReady ──► Ready │
	│        │                          │                │
	│        │                        Failed             │
	│        │                          │                │
	│        │              Remove + Clear data dirs     │
	│        ▼                          │                │
	│  candidates[1] ◄──────────────────┘                │
	│        │                                           │
	│       ...                                          │
	│        ▼                                           │
	│  ExhaustedError (last candidate's reason + logs)   │
	└────────────────────────────────────────────────────┘

# Core Components

  - Candidate: an instance spec plus the data directories that
    implementation writes
  - Selector: walks candidates strictly in order, one at a time
  - ExhaustedError: terminal failure carrying the last candidate's image,
    failure reason, and captured log tail

# Teardown Between Candidates

A failed candidate is fully torn down before the next one starts: the
instance is stopped and removed, and every declared data directory is
cleared. MariaDB and MySQL share a data directory layout in name only;
letting MySQL initialize over MariaDB's system tables produces a crash
loop that looks like a MySQL bug. The last candidate is deliberately left
in place on failure so an operator can inspect its state before re-running.

# Usage

	selector := deploy.NewSelector(manager, gate, reconciler, broker)
	result, err := selector.DeployWithFallback(ctx, []*deploy.Candidate{
		{Spec: mariadbSpec, DataDirs: []string{dataDir}},
		{Spec: mysqlSpec, DataDirs: []string{dataDir}},
	}, dbCheck)
	if err != nil {
		var exhausted *deploy.ExhaustedError
		if errors.As(err, &exhausted) {
			// exhausted.Logs holds the last candidate's output tail
		}
	}

# Integration Points

  - pkg/instance: deploys and removes candidate containers
  - pkg/health: gates each candidate on its readiness check
  - pkg/reconcile: clears data directories between candidates
  - pkg/events: publishes fallback, ready, and failure events
  - pkg/metrics: counts fallback attempts and exhaustions

# Thread Safety

A Selector holds no mutable state. Calls for the same instance name must
not overlap; the module sequencer serializes them.
*/
package deploy
