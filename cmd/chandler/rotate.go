package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate <service> <key>...",
	Short: "Rotate stored credentials for a service",
	Long: `Regenerate the named credential keys for a service. Keys not named
keep their current values. Rotation only rewrites the credential file;
run install afterwards to roll the new values out to the instances.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// Rotation touches only the credential files, but it still must not
		// race a provisioning run reading them.
		if err := a.lock.Acquire(); err != nil {
			return err
		}
		defer a.lock.Release()

		creds, err := a.vault.Rotate(args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Printf("Rotated %d keys for %s in %s\n", len(args)-1, args[0], creds.Path)
		fmt.Println("Run 'chandler install' to roll the new credentials out.")
		return nil
	},
}
