/*
Package storage provides BoltDB-backed persistence for chandler's
provisioning state.

The storage package implements the Store interface using BoltDB as the
underlying database, holding everything chandler must remember between
runs: which modules are installed and in what state, which backup
artifacts exist on disk, and which proxy sites are registered. All data is
serialized as JSON and stored in separate buckets.

# Architecture

	┌────────────────── BOLTDB STORAGE ──────────────────┐
	│                                                     │
	│  ┌───────────────────────────────────────┐          │
	│  │            BoltStore                  │          │
	│  │  - File: <stateDir>/chandler.db       │          │
	│  │  - Transactions: ACID with fsync      │          │
	│  └──────────────────┬────────────────────┘          │
	│                     │                               │
	│  ┌──────────────────▼────────────────────┐          │
	│  │           Bucket Structure            │          │
	│  │  ┌─────────────────────────────┐      │          │
	│  │  │ modules   (module name)     │      │          │
	│  │  │ backups   (artifact ID)     │      │          │
	│  │  │ sites     (domain)          │      │          │
	│  │  └─────────────────────────────┘      │          │
	│  └──────────────────┬────────────────────┘          │
	│                     │                               │
	│  ┌──────────────────▼────────────────────┐          │
	│  │        Transaction Management         │          │
	│  │  - Read: db.View() concurrent reads   │          │
	│  │  - Write: db.Update() serialized      │          │
	│  │  - Rollback: automatic on error       │          │
	│  └───────────────────────────────────────┘          │
	└─────────────────────────────────────────────────────┘

# Core Components

BoltStore:
  - Implements Store interface using BoltDB
  - Single database file under the state directory
  - Automatic bucket creation on initialization
  - Thread-safe via BoltDB's transaction model

Buckets:
  - modules: provisioning state per module, keyed by name
  - backups: one record per compressed backup artifact, keyed by ID
  - sites: registered proxy sites, keyed by domain

# What Is Not Stored Here

Credentials live in the vault's owner-only files, never in the database.
Container state lives in the engine and is probed, not mirrored; a record
here going stale cannot make chandler act on a container that no longer
exists.

# Usage

	store, err := storage.NewBoltStore("/var/lib/chandler")
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := store.GetModule("database")
	if errors.Is(err, storage.ErrNotFound) {
		// first install
	}

Lookup misses wrap ErrNotFound so callers distinguish absence from a
storage failure.

# Integration Points

  - pkg/module: records state transitions around each verb
  - pkg/backup: records artifacts after dumps, deletes records when pruning
  - pkg/metrics: the collector reads module and backup state for gauges
  - pkg/api: read endpoints serve these records directly

# Thread Safety

All methods are safe for concurrent use. BoltDB serializes writers and
allows concurrent readers; no additional locking is needed above it.
*/
package storage
