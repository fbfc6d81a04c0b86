/*
Package backup dumps stateful services into compressed artifacts and prunes
them by age.

Dumps run inside the database instance via docker exec, stream through gzip
straight onto disk, and are recorded in the store with their checksum and
size. Retention is a separate, strictly age-based pass: PruneOlderThan is
the only code in chandler that deletes backup artifacts.

# Architecture

	┌───────────────── BACKUP PIPELINE ─────────────────┐
	│                                                   │
	│  Scheduler ──► Runner.RunBackup(target, mode)     │
	│  (tickers)            │                           │
	│                       ▼                           │
	│      docker exec mysqldump ──► gzip ──► artifact  │
	│                       │          │                │
	│                       │        sha256             │
	│                       ▼          │                │
	│               BackupRecord ◄─────┘                │
	│               (store, bucket backups)             │
	│                                                   │
	│  after full cycle: PruneOlderThan(window)         │
	│    age > window → remove artifact + record        │
	└───────────────────────────────────────────────────┘

# Dump Strategies

  - full: complete dump, --all-databases or a named list
  - schema: structure only (--no-data)
  - data: rows only (--no-create-info)

The scheduler runs full dumps daily and data-only dumps every six hours.
All dumps use --single-transaction so InnoDB tables are captured without
locking the panel out of its own database.

# Artifact Layout

	<root>/<target>/<target>-<mode>-<timestamp>.sql.gz

Artifacts are 0600, directories 0700. The recorded checksum is the sha256
of the compressed file as it sits on disk, so integrity can be verified
without decompressing.

# Retention

Pruning deletes an artifact if and only if its record's age exceeds the
window. A record whose file is already gone is cleaned up quietly; a file
that cannot be removed keeps its record so the next run retries. Pruning
runs after the dumps of a full cycle, never before.

# Failure Handling

A failed dump removes its partial artifact and records nothing; the dump
command's own diagnostics ride the returned error. The credential reaches
mysqldump through MYSQL_PWD in the exec environment, never on the command
line.

# Integration Points

  - pkg/runtime: ExecStream carries the dump out of the container
  - pkg/storage: backup records, read by the metrics collector and API
  - pkg/vault: callers read the dump credential from the vault
  - pkg/events: backup.completed, backup.failed, backup.pruned
  - cmd/chandler: the backup verb runs one-shot dumps; agent mode hosts
    the scheduler

# Thread Safety

One scheduler goroutine drives all dumps; Runner methods are not called
concurrently. CLI-invoked dumps are serialized by the run lock.
*/
package backup
