package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/quayside/chandler/pkg/backup"
	"github.com/quayside/chandler/pkg/command"
	"github.com/quayside/chandler/pkg/config"
	"github.com/quayside/chandler/pkg/deploy"
	"github.com/quayside/chandler/pkg/events"
	"github.com/quayside/chandler/pkg/health"
	"github.com/quayside/chandler/pkg/instance"
	"github.com/quayside/chandler/pkg/log"
	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/panel"
	"github.com/quayside/chandler/pkg/reconcile"
	"github.com/quayside/chandler/pkg/render"
	"github.com/quayside/chandler/pkg/runlock"
	"github.com/quayside/chandler/pkg/runtime"
	"github.com/quayside/chandler/pkg/storage"
	"github.com/quayside/chandler/pkg/vault"
)

// defaultConfigPath honors CHANDLER_CONFIG so packaging can relocate the
// file without wrapper scripts
func defaultConfigPath() string {
	if path := os.Getenv("CHANDLER_CONFIG"); path != "" {
		return path
	}
	return config.DefaultPath
}

// app wires the provisioning core once per CLI invocation. Every verb
// builds one, uses it, and closes it; no component outlives the process.
type app struct {
	cfg       *config.Context
	runner    command.Runner
	runtime   *runtime.DockerRuntime
	instances *instance.Manager
	store     *storage.BoltStore
	broker    *events.Broker
	vault     *vault.Vault
	backups   *backup.Runner
	catalog   *panel.Catalog
	sequencer *module.Sequencer
	preflight *module.Preflight
	lock      *runlock.Lock
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})

	broker := events.NewBroker()
	broker.Start()

	runner := command.NewRunner()
	rt := runtime.NewDockerRuntime(runner)
	instances := instance.NewManager(rt, cfg.Network)
	gate := health.NewGate(rt)
	reconciler := reconcile.NewReconciler().WithBroker(broker)

	store, err := storage.NewBoltStore(cfg.StateDir())
	if err != nil {
		broker.Stop()
		return nil, err
	}

	credentials := vault.NewVault(cfg.SecretsDir()).WithBroker(broker)
	backups := backup.NewRunner(rt, store, broker, cfg.BackupDir())

	catalog, err := panel.BuildCatalog(&panel.Deps{
		Ctx:        cfg,
		Runner:     runner,
		Runtime:    rt,
		Instances:  instances,
		Gate:       gate,
		Selector:   deploy.NewSelector(instances, gate, reconciler, broker),
		Reconciler: reconciler,
		Vault:      credentials,
		Renderer:   render.NewRenderer(runner).WithBroker(broker),
		Store:      store,
		Broker:     broker,
		Backups:    backups,
	})
	if err != nil {
		store.Close()
		broker.Stop()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		runner:    runner,
		runtime:   rt,
		instances: instances,
		store:     store,
		broker:    broker,
		vault:     credentials,
		backups:   backups,
		catalog:   catalog,
		sequencer: module.NewSequencer(catalog.Registry, store, broker),
		preflight: module.NewPreflight(runner),
		lock:      runlock.New(filepath.Join(cfg.StateDir(), "chandler.lock")),
	}, nil
}

func (a *app) Close() {
	if a.lock.Held() {
		if err := a.lock.Release(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	a.store.Close()
	a.broker.Stop()
}

// mutating runs fn with the host checked and the run lock held. Every verb
// that changes host state goes through here; read-only verbs do not.
func (a *app) mutating(ctx context.Context, fn func(context.Context) error) error {
	if err := a.preflight.Check(ctx); err != nil {
		return err
	}
	if err := a.lock.Acquire(); err != nil {
		return err
	}
	defer a.lock.Release()
	return fn(ctx)
}

// installContext bounds a whole provisioning run
func (a *app) installContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.Timeout.Install)
}
