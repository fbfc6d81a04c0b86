package module

import (
	"context"
)

// Verb is one operation a module can be asked to perform
type Verb string

const (
	VerbInstall Verb = "install"
	VerbStatus  Verb = "status"
	VerbBackup  Verb = "backup"
	VerbRepair  Verb = "repair"
)

// Module is one independently installable unit of provisioning logic.
// Install must be idempotent: re-running it on an already provisioned host
// converges to the same state without rotating credentials or losing data.
type Module interface {
	// Name is the module's unique identifier, used on the CLI and as the
	// storage key
	Name() string

	// Dependencies lists modules that must be provisioned before this one
	Dependencies() []string

	// Install provisions the module from whatever state the host is in
	Install(ctx context.Context) error

	// Status reports the module's current condition without mutating
	// anything
	Status(ctx context.Context) (*Status, error)
}

// Backuper is implemented by modules with state worth dumping. Modules
// without it are skipped by the backup verb.
type Backuper interface {
	Backup(ctx context.Context) error
}

// Repairer is implemented by modules whose repair differs from a plain
// re-install. Install is already convergent, so most modules omit this.
type Repairer interface {
	Repair(ctx context.Context) error
}

// Status is one module's self-reported condition
type Status struct {
	Module  string `json:"module"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}
