/*
Package metrics provides Prometheus instrumentation and process health
reporting for the chandler agent.

Two distinct things are measured here. The metric variables instrument the
provisioning machinery itself: how often resources were reconciled and
with what outcome, how long module installs took, how many readiness poll
attempts a service consumed before coming up, how backups behaved. The
health checker tracks whether the agent process and its own dependencies
(storage, container runtime, API) are functioning, which is what the
/health and /ready endpoints report.

# Architecture

	┌──────────────────────────────────────────────────┐
	│   reconcile · vault · render · health · deploy   │
	│            module · backup · api                 │
	└───────────────────────┬──────────────────────────┘
	                        │ counters, histograms
	                        ▼
	┌──────────────────────────────────────────────────┐
	│          package-level metric variables          │
	│        (registered once at process start)        │
	└───────────────────────┬──────────────────────────┘
	                        │ scrape
	                        ▼
	              GET /metrics (promhttp)

A background Collector refreshes the state gauges (module states, instance
states, retained backup artifacts) every 15 seconds from storage and the
container runtime, so the gauges reflect reality even when no provisioning
run is active.

# Core Components

Metric variables: package-level counters, gauges, and histograms named
under the chandler_ prefix. All are registered in init, so importing the
package is enough to expose them.

Timer: convenience for timing an operation and observing the elapsed
seconds into a histogram or histogram vec.

Collector: periodic gauge refresher. Reads module and backup records from
storage and instance states from the runtime through narrow interfaces.

HealthChecker: registry of agent component health used by the HTTP
health endpoints. Components report in with RegisterComponent and
UpdateComponent; readiness requires the storage, runtime, and api
components to be registered and healthy.

# Usage

Timing an operation:

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.ModuleInstallDuration, "database")

Counting an outcome:

	metrics.EnsureOutcomesTotal.WithLabelValues("repaired").Inc()

Reporting component health:

	metrics.RegisterComponent("storage", true, "")
	metrics.UpdateComponent("runtime", false, "docker daemon unreachable")

Exposing the endpoints:

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", gin.WrapF(metrics.HealthHandler()))

# Integration Points

  - pkg/reconcile: ensure outcomes and durations
  - pkg/vault: credential generation counts
  - pkg/render: config apply results
  - pkg/health: readiness wait durations and attempt counts
  - pkg/deploy: fallback attempts and exhaustions
  - pkg/module: install results and durations
  - pkg/backup: backup runs, sizes, and pruning
  - pkg/api: request counts, request durations, and the HTTP endpoints

# Thread Safety

Prometheus metric types are safe for concurrent use. The health checker
guards its component map with a mutex. The Collector runs in its own
goroutine and only writes gauges.
*/
package metrics
