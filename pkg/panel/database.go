package panel

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quayside/chandler/pkg/backup"
	"github.com/quayside/chandler/pkg/deploy"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/reconcile"
	"github.com/quayside/chandler/pkg/types"
)

const (
	// CredentialRootPassword is the database superuser secret
	CredentialRootPassword = "root_password"

	// CredentialPanelPassword authenticates the panel's own database user
	CredentialPanelPassword = "panel_password"

	// PanelDatabase is the schema the panel application owns
	PanelDatabase = "panel"

	// PanelDBUser is the panel's database account
	PanelDBUser = "panel"

	// databaseMarker proves the data directory was initialized by a server:
	// both MariaDB and MySQL create their system schema under mysql/
	databaseMarker = "mysql"
)

// Database provisions the panel's database service: MariaDB first, stock
// MySQL when MariaDB never becomes ready on this host. Both candidates
// share the same data directory and credentials, and the directory is
// cleared between candidates so the fallback initializes from scratch.
type Database struct {
	deps   *Deps
	logger zerolog.Logger
}

// NewDatabase creates the database module
func NewDatabase(deps *Deps) *Database {
	return &Database{
		deps:   deps,
		logger: log.WithModule("database"),
	}
}

// Name implements module.Module
func (d *Database) Name() string { return "database" }

// Dependencies implements module.Module
func (d *Database) Dependencies() []string { return nil }

// InstanceName is the database container's name
func (d *Database) InstanceName() string {
	return d.deps.Ctx.InstanceName("database")
}

// DataDir is the host path mounted at /var/lib/mysql
func (d *Database) DataDir() string {
	return d.deps.Ctx.ServiceDataDir("database")
}

// Install converges the database: data directory reconciled, credentials
// loaded or minted once, server deployed with fallback, panel schema and
// user ensured. Re-running on a provisioned host reuses the credentials
// and the data directory untouched.
func (d *Database) Install(ctx context.Context) error {
	if _, err := d.deps.Reconciler.Ensure(
		reconcile.NewTarget(d.DataDir(), 0o700).WithMarker(databaseMarker),
	); err != nil {
		return err
	}

	creds, err := d.deps.Vault.GetOrCreate(d.Name(),
		[]string{CredentialRootPassword, CredentialPanelPassword})
	if err != nil {
		return err
	}

	result, err := d.deps.Selector.DeployWithFallback(ctx,
		d.candidates(creds.Get(CredentialRootPassword)), d.readinessCheck(creds))
	if err != nil {
		return err
	}
	d.logger.Info().Str("image", result.Image).Msg("Database ready")

	return d.ensurePanelGrant(ctx, creds)
}

// candidates declares the ordered server implementations. Environment and
// mounts are identical apart from the image; MySQL honors the MARIADB_*
// variables' MYSQL_* counterparts, so both get both.
func (d *Database) candidates(rootPassword string) []*deploy.Candidate {
	build := func(image string) *types.InstanceSpec {
		return &types.InstanceSpec{
			Name:    d.InstanceName(),
			Image:   image,
			Network: d.deps.Ctx.Network,
			Env: []string{
				"MARIADB_ROOT_PASSWORD=" + rootPassword,
				"MYSQL_ROOT_PASSWORD=" + rootPassword,
			},
			Mounts: []*types.VolumeMount{
				{Source: d.DataDir(), Target: "/var/lib/mysql"},
			},
			RestartPolicy: types.RestartUnlessStopped,
		}
	}
	return []*deploy.Candidate{
		{Spec: build(ImageMariaDB), DataDirs: []string{d.DataDir()}},
		{Spec: build(ImageMySQL), DataDirs: []string{d.DataDir()}},
	}
}

// readinessCheck pings the server inside the container. First-time
// initialization can take minutes on slow disks, hence the generous budget.
func (d *Database) readinessCheck(creds *types.CredentialSet) *types.HealthCheck {
	return &types.HealthCheck{
		Type:        types.HealthCheckExec,
		Command:     []string{"mysqladmin", "ping", "-h", "127.0.0.1", "-u", "root", "--silent"},
		Env:         []string{"MYSQL_PWD=" + creds.Get(CredentialRootPassword)},
		Interval:    3 * time.Second,
		Timeout:     10 * time.Second,
		MaxAttempts: 60,
	}
}

// ensurePanelGrant creates the panel schema and user. Passwords reach the
// server through the exec environment and shell expansion, never through
// the rendered command line.
func (d *Database) ensurePanelGrant(ctx context.Context, creds *types.CredentialSet) error {
	script := fmt.Sprintf(`mysql -u root -e "`+
		`CREATE DATABASE IF NOT EXISTS %s CHARACTER SET utf8mb4; `+
		`CREATE USER IF NOT EXISTS '%s'@'%%'; `+
		`ALTER USER '%s'@'%%' IDENTIFIED BY '$PANEL_DB_PASSWORD'; `+
		`GRANT ALL PRIVILEGES ON %s.* TO '%s'@'%%'; `+
		`FLUSH PRIVILEGES;"`,
		PanelDatabase, PanelDBUser, PanelDBUser, PanelDatabase, PanelDBUser)

	result, err := d.deps.Runtime.Exec(ctx, d.InstanceName(),
		[]string{"sh", "-c", script},
		[]string{
			"MYSQL_PWD=" + creds.Get(CredentialRootPassword),
			"PANEL_DB_PASSWORD=" + creds.Get(CredentialPanelPassword),
		})
	if err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("failed to ensure panel database grant: %s", result.Output())
	}
	d.logger.Debug().Str("database", PanelDatabase).Msg("Panel grant ensured")
	return nil
}

// Status reports whether the server is running and answering pings
func (d *Database) Status(ctx context.Context) (*module.Status, error) {
	status, err := d.deps.Instances.Status(ctx, d.InstanceName())
	if err != nil {
		return nil, err
	}
	if !status.Running() {
		return &module.Status{
			Module: d.Name(),
			Detail: fmt.Sprintf("instance %s is %s", d.InstanceName(), status.State),
		}, nil
	}

	creds, err := d.deps.Vault.GetOrCreate(d.Name(), []string{CredentialRootPassword})
	if err != nil {
		return nil, err
	}
	result, err := d.deps.Runtime.Exec(ctx, d.InstanceName(),
		[]string{"mysqladmin", "ping", "-h", "127.0.0.1", "-u", "root", "--silent"},
		[]string{"MYSQL_PWD=" + creds.Get(CredentialRootPassword)})
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return &module.Status{Module: d.Name(), Detail: "server not answering ping"}, nil
	}
	return &module.Status{Module: d.Name(), Healthy: true}, nil
}

// Backup dumps all databases through the backup runner
func (d *Database) Backup(ctx context.Context) error {
	target, err := d.BackupTarget()
	if err != nil {
		return err
	}
	_, err = d.deps.Backups.RunBackup(ctx, target, types.BackupModeFull)
	return err
}

// BackupTarget builds the dump target from the stored credentials. The
// agent's scheduler uses the same target for its periodic cycles.
func (d *Database) BackupTarget() (*backup.Target, error) {
	creds, err := d.deps.Vault.GetOrCreate(d.Name(), []string{CredentialRootPassword})
	if err != nil {
		return nil, err
	}
	return &backup.Target{
		Name:           d.Name(),
		Instance:       d.InstanceName(),
		User:           "root",
		Password:       creds.Get(CredentialRootPassword),
		RetentionClass: "stateful",
	}, nil
}
