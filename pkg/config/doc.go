/*
Package config loads the immutable provisioning context.

Every component receives the Context by value at construction time; nothing
reads configuration from globals or the environment mid-run. The context is
assembled once from /etc/chandler/chandler.yaml layered over defaults, then
validated with struct tags before any state-mutating step runs.

A host with no config file at all is fully supported: the defaults describe
a standard single-host panel layout under /srv/quayside.

# Usage

	ctx, err := config.Load(config.DefaultPath)
	if err != nil {
	    return err // parse or validation failure, reported before any mutation
	}
	vault := vault.NewVault(ctx.SecretsDir())

# Derived Paths

The context derives the state, secrets, backup, and per-service data
directories from DataRoot rather than making each one configurable. Moving
the panel means moving one directory.
*/
package config
