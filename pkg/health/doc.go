/*
Package health provides readiness predicates and the bounded health gate
that decides when a managed service instance is actually usable.

The package separates two questions that installers habitually conflate:
"is the process up" (the engine's container state) and "does the service
inside it answer correctly" (the readiness predicate). A database instance
is routinely running for minutes while it initializes its data directory;
only the predicate decides readiness.

# Architecture

	┌────────────────── HEALTH GATE ──────────────────────┐
	│                                                      │
	│  AwaitReady(name, check)                             │
	│        │                                             │
	│        ▼  per poll cycle (bounded by MaxAttempts)    │
	│  ┌────────────────────────────────────────────┐     │
	│  │ engine state?                               │     │
	│  │   exited/dead/missing -> Failed(crashed)    │     │
	│  │   restarting  -> wait, log every Nth        │     │
	│  │   running     -> evaluate predicate         │     │
	│  │        ready     -> Ready                   │     │
	│  │        not ready -> wait, next attempt      │     │
	│  └────────────────────────────────────────────┘     │
	│        │                                             │
	│        ▼  budget exhausted                           │
	│  Failed(timeout) + captured log tail                 │
	└──────────────────────────────────────────────────────┘

# Core Components

Checkers (one predicate evaluation each):
  - HTTPChecker: status-range check against a URL
  - TCPChecker: connection attempt against host:port
  - ExecChecker: command inside the instance via the runtime's Exec
  - CheckerFor: builds the right checker from a types.HealthCheck

Gate:
  - AwaitReady returns a classified Outcome, never an error
  - Ready, or Failed with reason crashed / timeout / cancelled / invalid-check
  - Crash classification is immediate: an exited instance fails the gate
    on the spot instead of waiting out the budget
  - Restart loops are logged at reduced frequency (every Nth attempt)
  - Failures capture the instance's recent log tail for diagnosis

# Bounded Polling

The gate's budget is a hard contract: at most MaxAttempts predicate
evaluations, and total blocking no longer than MaxAttempts x Interval plus
one predicate duration. Each cycle subtracts the time it already spent from
the interval before sleeping. Cancellation through the context is honored
at every wait point.

# Usage

	gate := health.NewGate(rt)

	outcome := gate.AwaitReady(ctx, "quayside-db", &types.HealthCheck{
		Type:        types.HealthCheckExec,
		Command:     []string{"mysqladmin", "ping", "-h", "127.0.0.1"},
		Interval:    3 * time.Second,
		Timeout:     5 * time.Second,
		MaxAttempts: 40,
	})

	if outcome.Failed() {
		// outcome.Reason, outcome.Message, outcome.Logs
	}

# Integration Points

  - pkg/runtime: supplies the InstanceProbe (state, logs, exec)
  - pkg/deploy: runs the gate per fallback candidate
  - pkg/module: status verbs run a single-attempt gate pass
  - pkg/panel: declares the per-service HealthCheck specs
*/
package health
