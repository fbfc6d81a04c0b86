/*
Package api serves the agent's read-only status API.

When chandler runs in agent mode it hosts a small HTTP surface for
operators and monitoring: module provisioning state, observed instance
states, backup records, registered proxy sites, recent provisioning
events, process health, and Prometheus metrics.

# Endpoints

	GET /healthz            agent process health
	GET /readyz             critical component readiness
	GET /metrics            Prometheus exposition
	GET /api/v1/modules     persisted module records
	GET /api/v1/instances   engine state of every managed instance
	GET /api/v1/backups     backup records, ?target= to filter
	GET /api/v1/sites       registered proxy sites
	GET /api/v1/events      recent provisioning events, newest first

# Read-Only by Design

Every mutating operation on this host goes through a CLI verb holding the
run lock. The API deliberately has no mutating routes, so it can listen
without authentication on loopback and never competes with a provisioning
run over shared state.

# Integration Points

  - pkg/storage: module, backup, and site records
  - pkg/instance: live instance states
  - pkg/events: the recent-events buffer subscribes to the broker
  - pkg/metrics: request metrics middleware and the /metrics handler
*/
package api
