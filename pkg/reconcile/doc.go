/*
Package reconcile idempotently converges filesystem paths to their
declared state.

Every module install starts by reconciling the directories it depends on:
data directories for stateful services, config directories that get bind
mounted into instances, backup and secrets roots. The reconciler creates
what is missing, enforces ownership and mode on what exists, and detects
the one dangerous in-between: a directory that was partially written and
then abandoned.

# Corruption Detection

A stateful service's data directory is trustworthy only once the service
has initialized it, which the service proves by creating a known marker
subpath (MariaDB writes a mysql/ schema directory, for example). The
reconciler classifies directory state against that marker:

	missing path              -> created                  -> Applied
	marker present            -> reused untouched          -> Unchanged
	no marker, empty          -> awaiting first init       -> Unchanged
	no marker, content inside -> corrupted, cleared        -> Repaired

A half-initialized data directory that is silently reused surfaces much
later as a cryptic service startup failure. Clearing it at reconcile time
turns that into a logged, recoverable event: the service initializes from
scratch on its next start.

# Usage

	r := reconcile.NewReconciler()

	outcome, err := r.Ensure(
	    reconcile.NewTarget("/srv/quayside/db/data", 0o700).
	        WithOwner(999, 999).
	        WithMarker("mysql"),
	)

Batch form for a module's directory set:

	err := r.EnsureAll(
	    reconcile.NewTarget("/srv/quayside/db/conf", 0o755),
	    reconcile.NewTarget("/srv/quayside/db/data", 0o700).WithMarker("mysql"),
	)

# Invariants

Ensure is idempotent: running it twice leaves the same on-disk state as
running it once. Clearing keeps the directory inode itself, so bind
mounts into running containers stay valid. Ownership or mode that cannot
be enforced is an error and fatal to the enclosing install; a repaired
corruption is a warning, not an error.

# Integration Points

  - pkg/module: every module's install and repair verbs reconcile their
    directory set first
  - pkg/deploy: clears candidate data directories between fallback
    attempts using the same clearing rules
  - pkg/metrics: outcome counts and durations

# Thread Safety

The reconciler holds no state. Concurrent Ensure calls against disjoint
paths are safe; against the same path they race at the filesystem level
and are prevented by the sequencer running modules one at a time.
*/
package reconcile
