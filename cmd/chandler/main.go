package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quayside/chandler/pkg/metrics"
	"github.com/quayside/chandler/pkg/module"
	"github.com/quayside/chandler/pkg/panel"
	"github.com/quayside/chandler/pkg/runlock"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Exit codes are part of the CLI contract: cron entries and wrapping
// scripts branch on them.
const (
	exitOK = 0

	// exitUsage: the request itself was invalid or could not proceed
	// (concurrent run, rejected configuration). Nothing is broken.
	exitUsage = 1

	// exitEnvironment: the host cannot run the panel (wrong OS, not root,
	// engine missing). Nothing was mutated.
	exitEnvironment = 2

	// exitRuntime: provisioning started and failed
	exitRuntime = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode classifies an error into the exit contract
func exitCode(err error) int {
	var rejected *panel.RejectedError
	switch {
	case errors.Is(err, runlock.ErrHeld), errors.Is(err, errUnhealthy), errors.As(err, &rejected):
		return exitUsage
	case errors.Is(err, module.ErrEnvironment), errors.Is(err, module.ErrDependencyMissing):
		return exitEnvironment
	}
	return exitRuntime
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "chandler",
	Short: "Chandler - Quayside panel installer and host agent",
	Long: `Chandler provisions and operates a self-hosted Quayside control panel:
database, reverse proxy, file browser, metrics stack, PHP runtimes, and
the panel application, all as managed containers on a single host.

Every verb is idempotent: re-running install on a provisioned host
converges without rotating credentials or losing data.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Chandler version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))
	metrics.SetVersion(Version)

	rootCmd.PersistentFlags().StringVar(&configPath, "config",
		defaultConfigPath(), "path to the chandler configuration file")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(repairCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(siteCmd)
	rootCmd.AddCommand(rotateCmd)
	rootCmd.AddCommand(agentCmd)
}
