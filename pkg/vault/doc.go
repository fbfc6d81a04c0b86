/*
Package vault generates service credentials once and persists them for
every later run.

Re-running an install must never rotate secrets that live services
already trust: the database root password handed out during the first
provisioning is the one the panel, the backup scheduler, and the operator
keep using. The vault enforces that by construction. GetOrCreate only
ever generates keys that have no persisted value; everything else is
returned verbatim from disk.

# Persistence Format

One file per service under the secrets directory, named <service>.env,
holding plain KEY=value lines with owner-only (0600) mode:

	/srv/quayside/secrets/database.env
	    ROOT_PASSWORD=vN3k...
	    PANEL_PASSWORD=xQ81...

The format is deliberately consumable by anything that reads env files:
the backup scheduler sources it for dump authentication, and dependent
modules read connection secrets from it. Comments and blank lines are
tolerated, so an operator can annotate or pre-seed values by hand; a file
that fails to parse is an error, never a trigger for regeneration.

Writes go through a temp file and rename in the same directory, so a
crash mid-write leaves either the old complete file or the new complete
file.

# Generation

Values are drawn from crypto/rand over an alphanumeric charset, 24
characters by default. The charset excludes everything that would need
quoting in shell, SQL, or rendered config files.

# Rotation

Rotate(service, keys) is the only way an existing value changes, and it
is wired to an explicit CLI verb, never called from provisioning paths.
It regenerates exactly the named keys and leaves the rest alone.

# Usage

	v := vault.NewVault("/srv/quayside/secrets")

	creds, err := v.GetOrCreate("database", []string{"ROOT_PASSWORD", "PANEL_PASSWORD"})
	if err != nil {
	    return err
	}
	rootPassword := creds.Get("ROOT_PASSWORD")

# Integration Points

  - pkg/module: installs call GetOrCreate before deploying stateful
    services
  - pkg/backup: reads persisted credentials to authenticate dumps
  - pkg/render: credential values flow into template contexts
  - cmd/chandler: the rotate verb is the only caller of Rotate

# Thread Safety

The vault holds no in-memory state; every call reads from and writes to
disk. Concurrent calls for different services are safe. Concurrent calls
for the same service are prevented by the CLI run lock.
*/
package vault
