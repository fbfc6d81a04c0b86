package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/types"
)

// resultRounding keeps per-module durations readable
const resultRounding = 10 * time.Millisecond

var installCmd = &cobra.Command{
	Use:   "install [module...]",
	Short: "Provision panel modules in dependency order",
	Long: `Provision the named modules and everything they depend on, in
dependency order. With no arguments the whole catalog is installed.

Install is idempotent: re-running on a provisioned host converges the
modules without rotating credentials or touching healthy data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := a.installContext()
		defer cancel()
		stop := progressPrinter(a.broker)
		defer stop()

		return a.mutating(ctx, func(ctx context.Context) error {
			results, err := a.sequencer.Install(ctx, args...)
			printResults(results)
			if err != nil {
				return err
			}
			// Scheduled maintenance only once the full catalog is in place;
			// a partial install has nothing complete to maintain.
			if len(args) == 0 {
				if err := installCron(a); err != nil {
					return err
				}
			}
			fmt.Printf("\nPanel available at http://%s/ (port %d)\n",
				a.cfg.Domain, a.cfg.Ports.HTTP)
			return nil
		})
	},
}

// errUnhealthy marks a status run that found unhealthy modules. Wrapping
// scripts branch on exit 0 vs 1 for this verb, so it must not classify as
// a runtime failure.
var errUnhealthy = errors.New("modules unhealthy")

var statusCmd = &cobra.Command{
	Use:   "status [module...]",
	Short: "Report module health without mutating anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.sequencer.Status(cmd.Context(), args...)
		if err != nil {
			return err
		}

		unhealthy := 0
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODULE\tHEALTHY\tDETAIL")
		for _, status := range statuses {
			healthy := "yes"
			if !status.Healthy {
				healthy = "no"
				unhealthy++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", status.Module, healthy, status.Detail)
		}
		w.Flush()

		if unhealthy > 0 {
			return fmt.Errorf("%d of %d %w", unhealthy, len(statuses), errUnhealthy)
		}
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair [module...]",
	Short: "Re-converge modules, clearing corrupted state where detected",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := a.installContext()
		defer cancel()
		stop := progressPrinter(a.broker)
		defer stop()

		return a.mutating(ctx, func(ctx context.Context) error {
			results, err := a.sequencer.Repair(ctx, args...)
			printResults(results)
			return err
		})
	},
}

var backupMode string

var backupCmd = &cobra.Command{
	Use:   "backup [module...]",
	Short: "Dump stateful modules and prune expired artifacts",
	Long: `Dump every named module that carries state (all of them with no
arguments). Each target's dump is independent: one failure does not stop
the rest. After a successful full cycle, artifacts older than the
retention window are pruned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := types.BackupMode(backupMode)
		switch mode {
		case types.BackupModeFull, types.BackupModeSchema, types.BackupModeData:
		default:
			return fmt.Errorf("invalid backup mode %q (full, schema, or data)", backupMode)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := a.installContext()
		defer cancel()

		return a.mutating(ctx, func(ctx context.Context) error {
			// The sequencer's backup verb always dumps full; other modes go
			// straight through the runner against the module targets.
			var backupErr error
			if mode == types.BackupModeFull {
				var results []*module.Result
				results, backupErr = a.sequencer.Backup(ctx, args...)
				printResults(results)
			} else {
				target, err := a.catalog.Database.BackupTarget()
				if err != nil {
					return err
				}
				_, backupErr = a.backups.RunBackup(ctx, target, mode)
			}
			if backupErr != nil {
				return backupErr
			}

			if mode == types.BackupModeFull {
				pruned, err := a.backups.PruneOlderThan(a.cfg.Backup.Retention)
				if err != nil {
					return err
				}
				if pruned > 0 {
					fmt.Printf("Pruned %d expired artifacts\n", pruned)
				}
			}
			return nil
		})
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupMode, "mode", string(types.BackupModeFull),
		"dump strategy: full, schema, or data")
}

// printResults renders per-module verb outcomes
func printResults(results []*module.Result) {
	for _, result := range results {
		mark := "ok"
		if result.Failed() {
			mark = "FAILED"
		}
		fmt.Printf("  %-14s %-8s %s\n", result.Module, mark,
			result.Duration.Round(resultRounding))
	}
}
