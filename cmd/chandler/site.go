package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var siteCmd = &cobra.Command{
	Use:   "site",
	Short: "Manage proxied sites",
	Long: `Register and remove domains served through the reverse proxy.
Every change regenerates the whole site configuration from the registry,
validates it with nginx's own checker, and only then goes live. A change
the validator rejects leaves the running proxy untouched.`,
}

var siteAddCmd = &cobra.Command{
	Use:   "add <domain> <upstream>",
	Short: "Route a domain to an upstream (host:port)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.mutating(cmd.Context(), func(ctx context.Context) error {
			if err := a.catalog.Proxy.AddSite(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Site %s -> %s\n", args[0], args[1])
			return nil
		})
	},
}

var siteDelCmd = &cobra.Command{
	Use:   "del <domain>",
	Short: "Remove a routed domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return a.mutating(cmd.Context(), func(ctx context.Context) error {
			if err := a.catalog.Proxy.RemoveSite(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Site %s removed\n", args[0])
			return nil
		})
	},
}

func init() {
	siteCmd.AddCommand(siteAddCmd)
	siteCmd.AddCommand(siteDelCmd)
}
