package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quayside/chandler/pkg/api"
	"github.com/quayside/chandler/pkg/backup"
	"github.com/quayside/chandler/pkg/metrics"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the long-lived host agent",
	Long: `Run the agent: a read-only status API plus the scheduled backup
loop. The agent never mutates provisioning state; mutation stays behind
the CLI verbs and their run lock, so the agent and a concurrent install
cannot conflict.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		target, err := a.catalog.Database.BackupTarget()
		if err != nil {
			return err
		}
		scheduler := backup.NewScheduler(a.backups, []*backup.Target{target},
			backup.SchedulerConfig{
				FullInterval:    a.cfg.Backup.FullInterval,
				PartialInterval: a.cfg.Backup.PartialInterval,
				Retention:       a.cfg.Backup.Retention,
			})
		scheduler.Start()
		defer scheduler.Stop()

		// State gauges on /metrics refresh from storage and the engine.
		collector := metrics.NewCollector(a.store, a.instances)
		collector.Start()
		defer collector.Stop()

		metrics.RegisterComponent("backup-scheduler", true, "")
		metrics.RegisterComponent("store", true, "")

		server := api.NewServer(a.store, a.instances, a.broker)
		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(a.cfg.Agent.Listen)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			fmt.Printf("Received %s, shutting down\n", sig)
			if err := server.Stop(); err != nil {
				return err
			}
			return <-errCh
		case err := <-errCh:
			return err
		}
	},
}
