package panel

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quayside/chandler/pkg/backup"
	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/config"
	"github.com/quayside/chandler/pkg/deploy"
	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/health"
	"github.com/quayside/chandler/pkg/instance"
	"github.com/quayside/chandler/pkg/reconcile"
	"github.com/quayside/chandler/pkg/render"
	"github.com/quayside/chandler/pkg/runtime"
	"github.com/quayside/chandler/pkg/storage"
	"github.com/quayside/chandler/pkg/vault"
)

// newTestDeps builds a full dependency bundle over a scriptable runner and
// a throwaway data root, so module tests exercise the real provisioning
// core without an engine or a filesystem outside the test directory.
func newTestDeps(t *testing.T) (*Deps, *command.FakeRunner) {
	t.Helper()

	ctx := config.Default()
	ctx.DataRoot = t.TempDir()

	runner := command.NewFakeRunner()
	rt := runtime.NewDockerRuntime(runner)
	instances := instance.NewManager(rt, ctx.Network)
	gate := health.NewGate(rt)
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	reconciler := reconcile.NewReconciler().WithBroker(broker)

	store, err := storage.NewBoltStore(ctx.StateDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &Deps{
		Ctx:        ctx,
		Runner:     runner,
		Runtime:    rt,
		Instances:  instances,
		Gate:       gate,
		Selector:   deploy.NewSelector(instances, gate, reconciler, broker),
		Reconciler: reconciler,
		Vault:      vault.NewVault(ctx.SecretsDir()).WithBroker(broker),
		Renderer:   render.NewRenderer(runner).WithBroker(broker),
		Store:      store,
		Broker:     broker,
		Backups:    backup.NewRunner(rt, store, broker, ctx.BackupDir()),
	}, runner
}

// scriptEngine wires a minimal container engine state machine into the
// runner: run records the image, inspect answers from it, rm forgets it.
// The verdict func maps the deployed image to an engine state.
func scriptEngine(runner *command.FakeRunner, verdict func(image string) string) {
	var current string

	runner.Handle("docker run -d", func(cmd *command.Command) (*command.Result, error) {
		// The image is the last colon-bearing argument: binds come first
		// and KEY=value labels carry an equals sign.
		for _, arg := range cmd.Args {
			if strings.Contains(arg, ":") && !strings.Contains(arg, "=") {
				current = arg
			}
		}
		return &command.Result{Stdout: "f00dfeedc0ffee\n"}, nil
	})
	runner.Handle("docker inspect --format", func(cmd *command.Command) (*command.Result, error) {
		if current == "" {
			return &command.Result{ExitCode: 1, Stderr: "Error: No such object"}, nil
		}
		state := verdict(current)
		exitCode := 0
		if state == "exited" {
			exitCode = 1
		}
		out := fmt.Sprintf("%s|%d|%s|2026-08-24T10:00:00.000000000Z\n", state, exitCode, current)
		return &command.Result{Stdout: out}, nil
	})
	runner.Handle("docker rm -f", func(cmd *command.Command) (*command.Result, error) {
		current = ""
		return &command.Result{}, nil
	})
	runner.HandleResult("docker logs", &command.Result{Stdout: "init log tail\n"})
}

// TestDatabaseInstallPrimaryServer verifies the straight-line install:
// MariaDB deploys, answers the ping, and the panel grant is ensured. No
// fallback machinery runs.
func TestDatabaseInstallPrimaryServer(t *testing.T) {
	deps, runner := newTestDeps(t)
	scriptEngine(runner, func(string) string { return "running" })

	db := NewDatabase(deps)
	require.NoError(t, db.Install(context.Background()))

	runs := runner.CallsMatching("docker run -d")
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0], ImageMariaDB)

	grants := runner.CallsMatching("docker exec")
	var sawGrant bool
	for _, line := range grants {
		if strings.Contains(line, "CREATE DATABASE IF NOT EXISTS panel") {
			sawGrant = true
		}
	}
	assert.True(t, sawGrant, "panel grant was never ensured")
}

// TestDatabaseInstallFallsBackToMySQL verifies that a crashing MariaDB is
// torn down, its data directory cleared, and MySQL deployed in its place.
func TestDatabaseInstallFallsBackToMySQL(t *testing.T) {
	deps, runner := newTestDeps(t)
	scriptEngine(runner, func(image string) string {
		if image == ImageMariaDB {
			return "exited"
		}
		return "running"
	})

	db := NewDatabase(deps)
	require.NoError(t, db.Install(context.Background()))

	runs := runner.CallsMatching("docker run -d")
	require.Len(t, runs, 2)
	assert.Contains(t, runs[0], ImageMariaDB)
	assert.Contains(t, runs[1], ImageMySQL)
}

// TestDatabaseCredentialsStableAcrossInstalls verifies that re-installing
// reuses the generated credentials verbatim instead of rotating them.
func TestDatabaseCredentialsStableAcrossInstalls(t *testing.T) {
	deps, runner := newTestDeps(t)
	scriptEngine(runner, func(string) string { return "running" })

	db := NewDatabase(deps)
	require.NoError(t, db.Install(context.Background()))

	first, err := deps.Vault.GetOrCreate(db.Name(),
		[]string{CredentialRootPassword, CredentialPanelPassword})
	require.NoError(t, err)

	require.NoError(t, db.Install(context.Background()))

	second, err := deps.Vault.GetOrCreate(db.Name(),
		[]string{CredentialRootPassword, CredentialPanelPassword})
	require.NoError(t, err)

	assert.Equal(t, first.Get(CredentialRootPassword), second.Get(CredentialRootPassword))
	assert.Equal(t, first.Get(CredentialPanelPassword), second.Get(CredentialPanelPassword))
}

// TestDatabasePasswordsStayOutOfCommandLines verifies the secrets hygiene
// contract: credential values travel through the process environment and
// never appear in any rendered command line.
func TestDatabasePasswordsStayOutOfCommandLines(t *testing.T) {
	deps, runner := newTestDeps(t)
	scriptEngine(runner, func(string) string { return "running" })

	db := NewDatabase(deps)
	require.NoError(t, db.Install(context.Background()))

	creds, err := deps.Vault.GetOrCreate(db.Name(),
		[]string{CredentialRootPassword, CredentialPanelPassword})
	require.NoError(t, err)

	for _, line := range runner.CallLines() {
		assert.NotContains(t, line, creds.Get(CredentialRootPassword))
		assert.NotContains(t, line, creds.Get(CredentialPanelPassword))
	}
}

// TestDatabaseBackupTarget verifies the scheduler-facing target carries the
// root credential and the stateful retention class.
func TestDatabaseBackupTarget(t *testing.T) {
	deps, _ := newTestDeps(t)

	db := NewDatabase(deps)
	target, err := db.BackupTarget()
	require.NoError(t, err)

	assert.Equal(t, "database", target.Name)
	assert.Equal(t, deps.Ctx.InstanceName("database"), target.Instance)
	assert.Equal(t, "root", target.User)
	assert.NotEmpty(t, target.Password)
	assert.Equal(t, "stateful", target.RetentionClass)
}
