package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nimbus-inc/nimbus/internal/interfaces/cli/migrate"
	"github.com/nimbus-inc/nimbus/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nimbus",
		Short: "Nimbus - device entitlement ledger",
		Long:  `Nimbus tracks subscription entitlements and the devices that consume them, with an HTTP API and migration tooling.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
